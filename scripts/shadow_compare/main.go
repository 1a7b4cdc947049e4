// Command shadow_compare replays read-only requests against the legacy marks service
// and this API and reports where status codes or JSON shapes differ. Values are not
// compared since ids and timestamps differ between the two stores.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"
)

type target struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Critical bool   `json:"critical"`
}

var defaultTargets = []target{
	{Method: http.MethodGet, Path: "/api/health", Critical: true},
	{Method: http.MethodGet, Path: "/api/students", Critical: true},
	{Method: http.MethodGet, Path: "/api/uploads", Critical: true},
	{Method: http.MethodGet, Path: "/api/students?upload_id=not-an-id", Critical: true},
	{Method: http.MethodGet, Path: "/api/students/000000000000000000000000", Critical: false},
}

// renamedKeys maps legacy document keys onto their names in this API.
var renamedKeys = map[string]string{"_id": "id"}

// ignoredKeys are legacy document bookkeeping fields.
var ignoredKeys = map[string]bool{"__v": true}

type comparison struct {
	Target       target
	LegacyStatus int
	GoStatus     int
	StatusMatch  bool
	ShapeDiffs   []string
	Error        error
}

func (c comparison) failed() bool {
	return c.Error != nil || !c.StatusMatch || len(c.ShapeDiffs) > 0
}

func main() {
	var (
		goBase      string
		legacyBase  string
		targetsPath string
		timeout     time.Duration
	)
	flag.StringVar(&goBase, "go-base", "http://localhost:5000", "Go API base URL")
	flag.StringVar(&legacyBase, "legacy-base", "http://localhost:5001", "Legacy API base URL")
	flag.StringVar(&targetsPath, "targets", "", "optional JSON file with a targets array")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets := defaultTargets
	if targetsPath != "" {
		loaded, err := loadTargets(targetsPath)
		if err != nil {
			log.Fatalf("failed to load targets: %v", err)
		}
		targets = loaded
	}

	client := &http.Client{Timeout: timeout}
	breaking := 0
	results := make([]comparison, 0, len(targets))
	for _, t := range targets {
		res := compareTarget(client, goBase, legacyBase, t)
		if res.failed() && t.Critical {
			breaking++
		}
		results = append(results, res)
	}
	printReport(os.Stdout, results)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg struct {
		Targets []target `json:"targets"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

func compareTarget(client *http.Client, goBase, legacyBase string, tgt target) comparison {
	res := comparison{Target: tgt}
	goStatus, goBody, err := fetch(client, goBase, tgt)
	if err != nil {
		res.Error = fmt.Errorf("go: %w", err)
		return res
	}
	legacyStatus, legacyBody, err := fetch(client, legacyBase, tgt)
	if err != nil {
		res.Error = fmt.Errorf("legacy: %w", err)
		return res
	}
	res.GoStatus, res.LegacyStatus = goStatus, legacyStatus
	res.StatusMatch = goStatus == legacyStatus
	res.ShapeDiffs = shapeDiff(legacyBody, goBody)
	return res
}

func fetch(client *http.Client, base string, tgt target) (int, []byte, error) {
	if client == nil {
		return 0, nil, errors.New("nil client")
	}
	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequest(method, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return 0, nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close() //nolint:errcheck
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

// shapeDiff lists JSON paths whose kind differs or that exist on one side only.
// Arrays are compared through their first element.
func shapeDiff(legacy, current []byte) []string {
	var l, c interface{}
	if err := json.Unmarshal(legacy, &l); err != nil {
		return []string{"legacy body is not JSON"}
	}
	if err := json.Unmarshal(current, &c); err != nil {
		return []string{"go body is not JSON"}
	}
	var diffs []string
	walk("$", l, c, &diffs)
	sort.Strings(diffs)
	return diffs
}

func walk(path string, legacy, current interface{}, diffs *[]string) {
	if kind(legacy) != kind(current) {
		*diffs = append(*diffs, fmt.Sprintf("%s: %s vs %s", path, kind(legacy), kind(current)))
		return
	}
	switch l := legacy.(type) {
	case map[string]interface{}:
		c := current.(map[string]interface{})
		seen := map[string]bool{}
		for key, lv := range l {
			if ignoredKeys[key] {
				continue
			}
			name := key
			if renamed, ok := renamedKeys[key]; ok {
				name = renamed
			}
			seen[name] = true
			cv, ok := c[name]
			if !ok {
				*diffs = append(*diffs, fmt.Sprintf("%s.%s: missing in go", path, name))
				continue
			}
			walk(path+"."+name, lv, cv, diffs)
		}
		for key := range c {
			if !seen[key] {
				*diffs = append(*diffs, fmt.Sprintf("%s.%s: missing in legacy", path, key))
			}
		}
	case []interface{}:
		c := current.([]interface{})
		if len(l) > 0 && len(c) > 0 {
			walk(path+"[0]", l[0], c[0], diffs)
		}
	}
}

func kind(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "bool"
	}
	return fmt.Sprintf("%T", v)
}

func printReport(w io.Writer, results []comparison) {
	fmt.Fprintln(w, "Shadow Compare Report")
	fmt.Fprintln(w, "=====================")
	breaking, optional := 0, 0
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if res.failed() {
			status = "DIFF"
		}
		if res.failed() {
			if res.Target.Critical {
				breaking++
			} else {
				optional++
			}
		}
		fmt.Fprintf(w, "[%s] %s %s\n", status, res.Target.Method, res.Target.Path)
		if res.Error != nil {
			fmt.Fprintf(w, "  error: %v\n", res.Error)
			continue
		}
		fmt.Fprintf(w, "  status go=%d legacy=%d\n", res.GoStatus, res.LegacyStatus)
		for _, d := range res.ShapeDiffs {
			fmt.Fprintf(w, "  shape %s\n", d)
		}
	}
	fmt.Fprintf(w, "Breaking diffs: %d, Optional diffs: %d\n", breaking, optional)
}
