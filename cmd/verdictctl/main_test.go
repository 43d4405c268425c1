package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const policySetJSON = `{
	"id": "documents",
	"combining_algorithm": "deny-overrides",
	"rules": [
		{
			"id": "allow-reads",
			"effect": "Allow",
			"target": {"kind": "compare", "category": "action", "operator": "eq", "value": "read"}
		},
		{
			"id": "deny-sensitive",
			"effect": "Deny",
			"condition": {"kind": "compare", "category": "resource", "attribute": "sensitivity", "operator": "eq", "value": "high"}
		}
	]
}`

const policySetYAML = `id: documents
combining_algorithm: deny-overrides
rules:
  - id: allow-reads
    effect: Allow
    target:
      kind: compare
      category: action
      operator: eq
      value: read
`

func TestOfflineEvaluateExitCodes(t *testing.T) {
	dir := t.TempDir()
	policyFile := writeFile(t, dir, "documents.json", policySetJSON)

	allowReq := writeFile(t, dir, "allow.json",
		`{"action": "read", "resource": {"sensitivity": "low"}}`)
	denyReq := writeFile(t, dir, "deny.json",
		`{"action": "read", "resource": {"sensitivity": "high"}}`)

	var stdout, stderr bytes.Buffer
	code := run([]string{"verdictctl", "evaluate", "-request", allowReq, "-policy-file", policyFile}, &stdout, &stderr)
	assert.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "verdict: Allow")

	stdout.Reset()
	code = run([]string{"verdictctl", "evaluate", "-request", denyReq, "-policy-file", policyFile}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "verdict: Deny")
}

func TestOfflineEvaluateYAMLPolicy(t *testing.T) {
	dir := t.TempDir()
	policyFile := writeFile(t, dir, "documents.yaml", policySetYAML)
	reqFile := writeFile(t, dir, "req.json", `{"action": "read"}`)

	var stdout, stderr bytes.Buffer
	code := run([]string{"verdictctl", "evaluate", "-request", reqFile, "-policy-file", policyFile}, &stdout, &stderr)
	assert.Equal(t, 0, code, stderr.String())
}

func TestInvalidPolicyFileIsUsageError(t *testing.T) {
	dir := t.TempDir()
	policyFile := writeFile(t, dir, "bad.json",
		`{"combining_algorithm": "vote", "rules": [{"id": "r1", "effect": "Shrug"}]}`)
	reqFile := writeFile(t, dir, "req.json", `{"action": "read"}`)

	var stdout, stderr bytes.Buffer
	code := run([]string{"verdictctl", "evaluate", "-request", reqFile, "-policy-file", policyFile}, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "invalid policy set")
}

func TestUsageWithoutArguments(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run([]string{"verdictctl"}, &stdout, &stderr))
	assert.Equal(t, 2, run([]string{"verdictctl", "frobnicate"}, &stdout, &stderr))
}
