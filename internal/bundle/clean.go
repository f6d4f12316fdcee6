package bundle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	commentRe       = regexp.MustCompile(`(?m)//.*$|#.*$`)
	trailingCommaRe = regexp.MustCompile(`(?:,\s*)+([}\]])`)
)

// Clean normalizes a captured body so a strict JSON decoder accepts it.
// Steps run in order over the whole text: comments to end of line are
// removed, "..." truncation markers become null, and commas left in front
// of a closing brace or bracket are dropped. Clean(Clean(s)) == Clean(s).
func Clean(body string) string {
	body = commentRe.ReplaceAllString(body, "")
	body = strings.ReplaceAll(body, "...", "null")
	body = trailingCommaRe.ReplaceAllString(body, "$1")
	return body
}

// Recover cleans body and validates it as a single JSON document. The
// payload is returned compacted.
func Recover(body string) (json.RawMessage, error) {
	cleaned := strings.TrimSpace(Clean(body))
	if cleaned == "" {
		return nil, fmt.Errorf("empty body")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(cleaned)); err != nil {
		return nil, err
	}
	return json.RawMessage(buf.Bytes()), nil
}
