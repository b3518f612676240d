package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"
	"testing"
)

// ResponseAssertion provides fluent assertions for HTTP responses
type ResponseAssertion struct {
	t        *testing.T
	resp     *http.Response
	body     string
	bodyRead bool
}

// AssertResponse creates a new ResponseAssertion for the given response
func AssertResponse(t *testing.T, resp *http.Response) *ResponseAssertion {
	t.Helper()
	return &ResponseAssertion{t: t, resp: resp}
}

func (ra *ResponseAssertion) readBody() string {
	if !ra.bodyRead {
		defer ra.resp.Body.Close()
		body, err := io.ReadAll(ra.resp.Body)
		if err != nil {
			ra.t.Fatalf("Failed to read response body: %v", err)
		}
		ra.body = string(body)
		ra.bodyRead = true
	}
	return ra.body
}

// Status asserts the response has the expected status code
func (ra *ResponseAssertion) Status(code int) *ResponseAssertion {
	ra.t.Helper()
	if ra.resp.StatusCode != code {
		ra.t.Errorf("Expected status %d, got %d.\nBody (first 300 chars): %s",
			code, ra.resp.StatusCode, truncate(ra.readBody(), 300))
	}
	return ra
}

// StatusOK asserts the response has status 200
func (ra *ResponseAssertion) StatusOK() *ResponseAssertion {
	ra.t.Helper()
	return ra.Status(http.StatusOK)
}

// StatusBadRequest asserts the response has status 400
func (ra *ResponseAssertion) StatusBadRequest() *ResponseAssertion {
	ra.t.Helper()
	return ra.Status(http.StatusBadRequest)
}

// Header asserts a response header contains expected
func (ra *ResponseAssertion) Header(name, expected string) *ResponseAssertion {
	ra.t.Helper()
	if got := ra.resp.Header.Get(name); !strings.Contains(got, expected) {
		ra.t.Errorf("Expected %s containing %q, got %q", name, expected, got)
	}
	return ra
}

// ContentType asserts the response has the expected content type
func (ra *ResponseAssertion) ContentType(expected string) *ResponseAssertion {
	ra.t.Helper()
	return ra.Header("Content-Type", expected)
}

// ContentTypeHTML asserts the response is HTML
func (ra *ResponseAssertion) ContentTypeHTML() *ResponseAssertion {
	ra.t.Helper()
	return ra.ContentType("text/html")
}

// ContentTypeJSON asserts the response is JSON
func (ra *ResponseAssertion) ContentTypeJSON() *ResponseAssertion {
	ra.t.Helper()
	return ra.ContentType("application/json")
}

// Contains asserts the response body contains the given string
func (ra *ResponseAssertion) Contains(substr string) *ResponseAssertion {
	ra.t.Helper()
	return ra.ContainsAll(substr)
}

// ContainsAll asserts the response body contains all the given strings
func (ra *ResponseAssertion) ContainsAll(substrs ...string) *ResponseAssertion {
	ra.t.Helper()
	body := ra.readBody()
	for _, substr := range substrs {
		if !strings.Contains(body, substr) {
			ra.t.Errorf("Expected body to contain %q, but it didn't.\nBody (first 500 chars): %s",
				substr, truncate(body, 500))
		}
	}
	return ra
}

// NotContains asserts the response body does not contain the given string
func (ra *ResponseAssertion) NotContains(substr string) *ResponseAssertion {
	ra.t.Helper()
	if strings.Contains(ra.readBody(), substr) {
		ra.t.Errorf("Expected body NOT to contain %q, but it did", substr)
	}
	return ra
}

// HasElement asserts the response body contains an HTML element with the given ID
func (ra *ResponseAssertion) HasElement(id string) *ResponseAssertion {
	ra.t.Helper()
	pattern := `id=["']` + regexp.QuoteMeta(id) + `["']`
	if matched, _ := regexp.MatchString(pattern, ra.readBody()); !matched {
		ra.t.Errorf("Expected body to contain element with id=%q, but it didn't", id)
	}
	return ra
}

// JSON decodes the body into v
func (ra *ResponseAssertion) JSON(v interface{}) *ResponseAssertion {
	ra.t.Helper()
	if err := json.Unmarshal([]byte(ra.readBody()), v); err != nil {
		ra.t.Fatalf("Failed to decode JSON body: %v\nBody (first 300 chars): %s", err, truncate(ra.body, 300))
	}
	return ra
}

// Body returns the response body as a string
func (ra *ResponseAssertion) Body() string {
	return ra.readBody()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
