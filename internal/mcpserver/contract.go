package mcpserver

// BundleFormat describes the inputs the replay server reads, so that LLM
// clients can reason about missing routes and recovered payloads.
const BundleFormat = `# Diagnostic Bundle Format

## Bundle text

A bundle text file is a flat list of captured responses. Each record starts
with a header line and runs until the next header or end of file:

` + "```" + `
# 1: GET /_cluster/health 200 OK
{"status": "green", "number_of_nodes": 3}
# 2: GET /_nodes/stats 200 OK
{"nodes": ...}
` + "```" + `

- Lines before the first header are ignored.
- Bodies are recovered before use: ` + "`//`" + ` and ` + "`#`" + ` comments are stripped to
  end of line, ` + "`...`" + ` becomes ` + "`null`" + `, and trailing commas before ` + "`}`" + ` or ` + "`]`" + ` are removed.
- A body that is still not valid JSON is dropped and logged; loading continues.
- When a route is captured twice the later record wins.

## Route catalog

The catalog (` + "`elastic-rest.yml`" + ` by default) maps API names to versioned routes:

` + "```" + `yaml
licenses:
  subdir: commercial
  extension: .json
  versions:
    ">= 7.0.0 < 8.0.0": "/_xpack/license"
    ">= 8.0.0": "/_license"
` + "```" + `

- Rules are tried in declared order; the first rule whose conditions all hold wins.
- A rule without any condition never matches.
- The artifact for an API is ` + "`{subdir}/{name}{extension}`" + ` under the diagnostics directory.
- ` + "`.json`" + ` artifacts are served as ` + "`application/json`" + `, everything else as ` + "`text/plain`" + `.

## Request matching

1. The query string is dropped from the request path.
2. An exact route match is served.
3. Otherwise the first route, in catalog order, that is a prefix of the path is served.
4. Anything else is a 404 naming the path.
`
