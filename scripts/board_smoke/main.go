package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type check struct {
	Method     string          `json:"method"`
	Path       string          `json:"path"`
	Body       json.RawMessage `json:"body,omitempty"`
	WantStatus int             `json:"wantStatus"`
	Critical   bool            `json:"critical"`
}

type checkFile struct {
	Checks []check `json:"checks"`
}

type outcome struct {
	Check    check
	Status   int
	Pass     bool
	Error    error
	Duration time.Duration
}

func main() {
	var (
		base       string
		checksPath string
		timeout    time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&checksPath, "checks", filepath.Join("scripts", "board_smoke", "checks.json"), "Path to JSON checks file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	checks, err := loadChecks(checksPath)
	if err != nil {
		log.Fatalf("failed to load checks: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var (
		outcomes []outcome
		failures int
		warnings int
	)

	for _, c := range checks {
		out := runCheck(client, base, c)
		if !out.Pass {
			if c.Critical {
				failures++
			} else {
				warnings++
			}
		}
		outcomes = append(outcomes, out)
	}

	printReport(outcomes)

	fmt.Printf("Failures: %d, Warnings: %d\n", failures, warnings)
	if failures > 0 {
		os.Exit(1)
	}
}

func loadChecks(path string) ([]check, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f checkFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if len(f.Checks) == 0 {
		return nil, fmt.Errorf("no checks defined in %s", path)
	}
	return f.Checks, nil
}

func runCheck(client *http.Client, base string, c check) outcome {
	out := outcome{Check: c}

	method := strings.ToUpper(strings.TrimSpace(c.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := c.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	url := strings.TrimRight(base, "/") + path

	var body io.Reader
	if len(c.Body) > 0 {
		body = bytes.NewReader(c.Body)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		out.Error = err
		return out
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := client.Do(req)
	out.Duration = time.Since(start)
	if err != nil {
		out.Error = err
		return out
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	out.Status = resp.StatusCode
	want := c.WantStatus
	if want == 0 {
		want = http.StatusOK
	}
	out.Pass = out.Status == want
	return out
}

func printReport(results []outcome) {
	fmt.Println("Classboard Smoke Report")
	fmt.Println("=======================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.Pass {
			status = "FAIL"
		}
		fmt.Printf("[%s] %s %s\n", status, res.Check.Method, res.Check.Path)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		fmt.Printf("  Status: %d (want %d) in %s | Critical: %t\n", res.Status, res.Check.WantStatus, res.Duration, res.Check.Critical)
	}
}
