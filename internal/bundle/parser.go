// Package bundle reads diagnostic bundle text: a flat file of captured API
// responses, each introduced by a "# N: GET <path> <status>" header line.
package bundle

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/starford/diagreplay/internal/models"
)

var headerRe = regexp.MustCompile(`(?i)^#\s*\d+:\s*GET\s+(\S+)\s+\d+\s*\w*`)

type scanState int

const (
	stateIdle scanState = iota
	stateAccumulating
)

// scanner turns bundle lines into records. In stateIdle no header has been
// seen yet and body lines are discarded; in stateAccumulating body lines
// belong to route.
type scanner struct {
	state   scanState
	route   string
	buf     []string
	records []models.Record
	dropped int
	logger  *slog.Logger
}

func (s *scanner) line(ln string) {
	if m := headerRe.FindStringSubmatch(ln); m != nil {
		s.flush()
		s.route = models.EnsureLeadingSlash(m[1])
		s.state = stateAccumulating
		return
	}
	if s.state == stateAccumulating {
		s.buf = append(s.buf, ln)
	}
}

// flush completes the record being accumulated, if any. It runs both when a
// new header arrives and at end of input.
func (s *scanner) flush() {
	if s.state != stateAccumulating {
		return
	}
	body := strings.Join(s.buf, "\n")
	s.buf = s.buf[:0]
	if strings.TrimSpace(body) == "" {
		s.logger.Debug("bundle: empty body skipped", slog.String("route", s.route))
		return
	}
	payload, err := Recover(body)
	if err != nil {
		s.dropped++
		s.logger.Warn("bundle: record dropped",
			slog.String("route", s.route),
			slog.String("error", err.Error()))
		return
	}
	s.records = append(s.records, models.Record{Route: s.route, Body: body, Payload: payload})
	s.logger.Debug("bundle: record loaded", slog.String("route", s.route))
}

// Result is the outcome of parsing one bundle.
type Result struct {
	// Records holds recovered records in header order. A route may appear
	// more than once; see Dedupe.
	Records []models.Record
	// Dropped counts records whose body could not be recovered.
	Dropped int
}

// Parse scans text and recovers every record body. A record that cannot be
// recovered is logged and skipped; it never stops the scan.
func Parse(text string, logger *slog.Logger) Result {
	s := &scanner{logger: logger}
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), len(text)+1)
	for sc.Scan() {
		s.line(strings.TrimSuffix(sc.Text(), "\r"))
	}
	s.flush()
	return Result{Records: s.records, Dropped: s.dropped}
}

// ParseFile reads and parses the bundle at path.
func ParseFile(path string, logger *slog.Logger) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("bundle: read %s: %w", path, err)
	}
	return Parse(string(data), logger), nil
}

// Dedupe keeps the last record for every route. Each surviving record sits
// at the position where its route first appeared.
func Dedupe(records []models.Record) []models.Record {
	pos := make(map[string]int, len(records))
	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		if i, ok := pos[r.Route]; ok {
			out[i] = r
			continue
		}
		pos[r.Route] = len(out)
		out = append(out, r)
	}
	return out
}
