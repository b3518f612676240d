// Package http holds response helpers shared by the handler packages. Import
// it as apphttp to keep net/http unshadowed.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log"
	"net/http"
	"strconv"
	"strings"

	"debtplan/internal/services/payoff"
	"debtplan/internal/templates"
)

// RenderTemplate renders a full page, or a stub when templates are not loaded
func RenderTemplate(w http.ResponseWriter, renderer *templates.Renderer, name string, data map[string]interface{}) {
	if renderer != nil {
		renderer.Render(w, name, data)
		return
	}
	title, _ := data["Title"].(string)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<html><body><h1>%s</h1><p>Templates not loaded. Check configuration.</p></body></html>", html.EscapeString(title))
}

// RenderPartial renders a fragment, falling back to JSON without templates
func RenderPartial(w http.ResponseWriter, renderer *templates.Renderer, name string, data map[string]interface{}) {
	if renderer != nil {
		renderer.RenderPartial(w, name, data)
		return
	}
	WriteJSON(w, http.StatusOK, data)
}

// RenderError writes an HTML error fragment for htmx swaps
func RenderError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	fmt.Fprintf(w, `<div class="p-4 bg-red-50 border border-red-200 rounded-lg" role="alert">
	<span class="text-red-700 font-medium">Error</span>
	<p class="mt-2 text-sm text-red-600">%s</p>
</div>`, html.EscapeString(message))
}

// WriteJSON encodes v with the given status
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// WriteJSONError writes {"error": message}
func WriteJSONError(w http.ResponseWriter, message string, status int) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// StatusFor maps engine errors to HTTP status codes
func StatusFor(err error) int {
	if errors.Is(err, payoff.ErrInvalidParameter) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// ErrorResponse logs and sends a plain-text error
func ErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	log.Printf("Error: %s (status %d)", message, statusCode)
	http.Error(w, message, statusCode)
}

// ParseFormFloat parses an optional number; empty means 0. Thousands
// separators and a leading $ are tolerated.
func ParseFormFloat(r *http.Request, key string) (float64, error) {
	v := cleanNumber(r.FormValue(key))
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: must be a number", key)
	}
	return f, nil
}

// ParseRequiredFormFloat parses a number that must be present
func ParseRequiredFormFloat(r *http.Request, key string) (float64, error) {
	if cleanNumber(r.FormValue(key)) == "" {
		return 0, fmt.Errorf("missing required field: %s", key)
	}
	return ParseFormFloat(r, key)
}

// ParseFormFloatDefault parses an optional number, returning def when empty
func ParseFormFloatDefault(r *http.Request, key string, def float64) (float64, error) {
	if cleanNumber(r.FormValue(key)) == "" {
		return def, nil
	}
	return ParseFormFloat(r, key)
}

func cleanNumber(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSuffix(s, "%")
	return strings.ReplaceAll(s, ",", "")
}
