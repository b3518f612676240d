// Package main provides a CLI tool for smoke-testing a running debtplan server.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kingpin"
)

const (
	formType = "application/x-www-form-urlencoded"
	jsonType = "application/json"
)

type endpoint struct {
	path        string
	method      string
	body        string
	bodyType    string
	contentType string
	contains    []string
}

// sampleCard is 1000 at 18% with a 25 floor: 62 months at the minimum, 15 with 50 extra
const sampleCard = "balance=1000&apr=18&floor=25&mode=simple"

var endpoints = []endpoint{
	// Pages
	{path: "/calculator", method: "GET", contentType: "text/html", contains: []string{"Credit Card Payoff Calculator"}},
	{path: "/intake", method: "GET", contentType: "text/html", contains: []string{"Get a Debt Relief Plan"}},

	// Calculator partials
	{path: "/calculator/schedule", method: "POST", body: sampleCard, bodyType: formType, contentType: "text/html", contains: []string{"$990.00", "5 years 2 months"}},
	{path: "/calculator/compare", method: "POST", body: sampleCard + "&extra=50", bodyType: formType, contentType: "text/html", contains: []string{"Months saved"}},
	{path: "/calculator/chart?" + sampleCard + "&extra=50", method: "GET", contentType: "application/json", contains: []string{"Balance Over Time"}},
	{path: "/calculator/report.xlsx?" + sampleCard, method: "GET", contentType: "spreadsheetml"},

	// API
	{path: "/api/health", method: "GET", contentType: "application/json", contains: []string{`"status":"ok"`}},
	{path: "/api/payoff", method: "POST", body: `{"principal":1000,"annual_percentage_rate":18,"minimum_payment_floor":25}`, bodyType: jsonType, contentType: "application/json", contains: []string{`"months_to_payoff":62`}},
	{path: "/api/payoff/compare", method: "POST", body: `{"parameters":{"principal":1000,"annual_percentage_rate":18,"minimum_payment_floor":25},"extra_payment":50}`, bodyType: jsonType, contentType: "application/json", contains: []string{`"months_saved":47`}},
	{path: "/api/intake/stats", method: "GET", contentType: "application/json", contains: []string{`"submissions"`}},
}

type result struct {
	endpoint endpoint
	status   int
	duration time.Duration
	err      error
	body     string
}

func main() {
	url := kingpin.Flag("url", "Base URL of the server to validate").Default("http://localhost:8080").String()
	verbose := kingpin.Flag("verbose", "Verbose output").Short('v').Bool()
	timeout := kingpin.Flag("timeout", "Request timeout").Default("10s").Duration()
	kingpin.Parse()

	client := &http.Client{
		Timeout: *timeout,
	}

	fmt.Printf("Validating server at %s\n", *url)
	fmt.Printf("Testing %d endpoints...\n\n", len(endpoints))

	var passed, failed int
	for _, ep := range endpoints {
		r := validateEndpoint(client, *url, ep)

		if r.err != nil {
			failed++
			fmt.Printf("FAIL %s %s\n", ep.method, ep.path)
			fmt.Printf("     Error: %v\n", r.err)
		} else if r.status != http.StatusOK {
			failed++
			fmt.Printf("FAIL %s %s\n", ep.method, ep.path)
			fmt.Printf("     Status: %d (expected 200)\n", r.status)
		} else {
			passed++
			if *verbose {
				fmt.Printf("PASS %s %s (%v)\n", ep.method, ep.path, r.duration)
			}
		}
	}

	fmt.Printf("\n========================================\n")
	fmt.Printf("Results: %d passed, %d failed\n", passed, failed)

	if failed > 0 {
		os.Exit(1)
	}
}

func validateEndpoint(client *http.Client, baseURL string, ep endpoint) result {
	start := time.Now()

	var reqBody io.Reader
	if ep.body != "" {
		reqBody = strings.NewReader(ep.body)
	}
	req, err := http.NewRequest(ep.method, baseURL+ep.path, reqBody)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("failed to create request: %w", err)}
	}
	if ep.bodyType != "" {
		req.Header.Set("Content-Type", ep.bodyType)
	}

	resp, err := client.Do(req)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("failed to read body: %w", err)}
	}

	r := result{
		endpoint: ep,
		status:   resp.StatusCode,
		duration: time.Since(start),
		body:     string(body),
	}

	// Validate content type
	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, ep.contentType) {
		r.err = fmt.Errorf("wrong content type: got %q, expected %q", ct, ep.contentType)
		return r
	}

	// Validate JSON if expected
	if ep.contentType == "application/json" {
		var js interface{}
		if err := json.Unmarshal(body, &js); err != nil {
			r.err = fmt.Errorf("invalid JSON: %w", err)
			return r
		}
	}

	// Validate required content
	for _, needle := range ep.contains {
		if !strings.Contains(string(body), needle) {
			r.err = fmt.Errorf("missing expected content: %q", needle)
			return r
		}
	}

	return r
}
