// Command verdictctl exercises a Verdict policy decision service from the
// shell. Exit codes mirror the fail-closed contract: 0 = Allow, 1 = Deny,
// 2 = Indeterminate, usage error, or internal failure.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sentinelworks/verdict/model"
	"github.com/sentinelworks/verdict/pdp/engine"
	"github.com/sentinelworks/verdict/store"
)

const defaultAddr = "http://localhost:8080"

func main() {
	exitFn(run(os.Args, os.Stdout, os.Stderr))
}

var exitFn = os.Exit

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	if len(args) < 2 {
		usage(stderr)
		return 2
	}

	switch args[1] {
	case "evaluate":
		return handleEvaluate(args[2:], stdout, stderr)
	case "put":
		return handlePut(args[2:], stdout, stderr)
	default:
		usage(stderr)
		return 2
	}
}

func usage(stderr io.Writer) {
	fmt.Fprintln(stderr, "usage: verdictctl <evaluate|put> [flags]")
	fmt.Fprintln(stderr, "  evaluate -request <file> [-policy-file <file> | -addr <url> -policy-sets a,b]")
	fmt.Fprintln(stderr, "  put -file <file> [-addr <url>] <policy-set-id>")
}

func handleEvaluate(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", envOrDefault("VERDICT_ADDR", defaultAddr), "Verdict API address")
	requestFile := fs.String("request", "", "decision request JSON file")
	policyFile := fs.String("policy-file", "", "evaluate locally against this policy set file instead of a server")
	policySets := fs.String("policy-sets", "", "comma-separated policy set ids (server mode)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *requestFile == "" {
		fmt.Fprintln(stderr, "evaluate requires -request <file>")
		fs.Usage()
		return 2
	}

	var req model.DecisionRequest
	if err := readJSONFile(*requestFile, &req); err != nil {
		fmt.Fprintf(stderr, "failed to read request: %v\n", err)
		return 2
	}

	if *policyFile != "" {
		return evaluateOffline(req, *policyFile, stdout, stderr)
	}
	if *policySets == "" {
		fmt.Fprintln(stderr, "evaluate requires -policy-sets in server mode")
		return 2
	}
	return evaluateRemote(req, *addr, strings.Split(*policySets, ","), stdout, stderr)
}

// evaluateOffline runs the rule evaluator locally against one policy set
// definition. The file goes through the same store validation a server
// write would.
func evaluateOffline(req model.DecisionRequest, policyFile string, stdout, stderr io.Writer) int {
	var set model.PolicySet
	if err := readPolicySetFile(policyFile, &set); err != nil {
		fmt.Fprintf(stderr, "failed to read policy set: %v\n", err)
		return 2
	}
	if set.ID == "" {
		set.ID = strings.TrimSuffix(filepath.Base(policyFile), filepath.Ext(policyFile))
	}

	mem := store.NewMemory()
	if _, _, err := mem.Put(context.Background(), set); err != nil {
		fmt.Fprintf(stderr, "invalid policy set: %v\n", err)
		return 2
	}
	stored, err := mem.Get(context.Background(), set.ID, store.LatestVersion)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load policy set: %v\n", err)
		return 2
	}

	result := engine.NewEvaluator().Evaluate(stored, &req)
	fmt.Fprintf(stdout, "verdict: %s\n", result.Verdict)
	for _, id := range result.MatchedRuleIDs {
		fmt.Fprintf(stdout, "matched: %s\n", id)
	}
	return exitCode(result.Verdict)
}

func evaluateRemote(req model.DecisionRequest, addr string, policySetIDs []string, stdout, stderr io.Writer) int {
	payload := map[string]interface{}{
		"subject":        req.Subject,
		"resource":       req.Resource,
		"action":         req.Action,
		"environment":    req.Environment,
		"policy_set_ids": policySetIDs,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintf(stderr, "failed to encode request: %v\n", err)
		return 2
	}

	resp, err := http.Post(addr+"/api/v1/evaluate", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 2
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(stderr, "failed to read response: %v\n", err)
		return 2
	}
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(stderr, "server returned %s: %s\n", resp.Status, data)
		return 2
	}

	var decoded struct {
		Verdict model.Verdict `json:"verdict"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		fmt.Fprintf(stderr, "failed to decode response: %v\n", err)
		return 2
	}

	fmt.Fprintln(stdout, string(data))
	return exitCode(decoded.Verdict)
}

func handlePut(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", envOrDefault("VERDICT_ADDR", defaultAddr), "Verdict API address")
	file := fs.String("file", "", "policy set definition file (JSON or YAML)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 || *file == "" {
		fmt.Fprintln(stderr, "put requires -file <file> and <policy-set-id>")
		fs.Usage()
		return 2
	}
	id := fs.Arg(0)

	var set model.PolicySet
	if err := readPolicySetFile(*file, &set); err != nil {
		fmt.Fprintf(stderr, "failed to read policy set: %v\n", err)
		return 2
	}

	body, err := json.Marshal(set)
	if err != nil {
		fmt.Fprintf(stderr, "failed to encode policy set: %v\n", err)
		return 2
	}

	httpReq, err := http.NewRequest(http.MethodPut, *addr+"/api/v1/policy-sets/"+id, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(stderr, "failed to build request: %v\n", err)
		return 2
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 2
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		fmt.Fprintf(stderr, "server returned %s: %s\n", resp.Status, data)
		return 2
	}
	fmt.Fprintln(stdout, string(data))
	return 0
}

func exitCode(verdict model.Verdict) int {
	switch verdict {
	case model.VerdictAllow:
		return 0
	case model.VerdictDeny:
		return 1
	default:
		return 2
	}
}

func readJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// readPolicySetFile accepts JSON or YAML definitions. YAML is normalized
// through JSON so the model's typed-value decoding applies to both.
func readPolicySetFile(path string, set *model.PolicySet) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		var raw interface{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return err
		}
		data, err = json.Marshal(raw)
		if err != nil {
			return err
		}
	}
	return json.Unmarshal(data, set)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
