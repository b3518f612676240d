package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"debtplan/internal/config"
	apphttp "debtplan/internal/http"
	"debtplan/internal/models"
	"debtplan/internal/services/cache"
	"debtplan/internal/services/payoff"
	"debtplan/internal/services/report"
	"debtplan/internal/templates"
)

// Payment rule modes offered on the form
const (
	ModeSimple = "simple"
	ModeIssuer = "issuer"
)

var (
	renderer    *templates.Renderer
	cfg         *config.Config
	resultCache cache.Cache

	// now is replaced in tests
	now = time.Now
)

// Initialize sets up the calculator package with required dependencies
func Initialize(r *templates.Renderer, c *config.Config, rc cache.Cache) {
	renderer = r
	cfg = c
	resultCache = rc
}

// RegisterRoutes registers all calculator routes
func RegisterRoutes(r chi.Router) {
	r.Get("/calculator", handleCalculator)
	r.Post("/calculator/schedule", handleSchedule)
	r.Post("/calculator/compare", handleCompare)
	r.Get("/calculator/chart", handleChart)
	r.Get("/calculator/report.xlsx", handleReport)

	r.Post("/api/payoff", handleAPIPayoff)
	r.Post("/api/payoff/compare", handleAPICompare)
}

// computeWithCache runs the engine, using the result cache when available
func computeWithCache(ctx context.Context, p models.PayoffParameters) (*models.PayoffResult, error) {
	key := cache.Key("payoff", p)
	var cached models.PayoffResult
	if cache.GetJSON(ctx, resultCache, key, &cached) {
		return &cached, nil
	}

	result, err := payoff.Compute(p)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, resultCache, key, result, cacheTTL()); err != nil {
		log.Printf("Error caching payoff result: %v", err)
	}
	return result, nil
}

// compareWithCache runs CompareScenarios through the result cache
func compareWithCache(ctx context.Context, p models.PayoffParameters, extra float64) (*models.ScenarioComparison, error) {
	key := cache.Key("compare", struct {
		Params models.PayoffParameters `json:"params"`
		Extra  float64                 `json:"extra"`
	}{p.WithAdditional(0), extra})

	var cached models.ScenarioComparison
	if cache.GetJSON(ctx, resultCache, key, &cached) {
		return &cached, nil
	}

	cmp, err := payoff.CompareScenarios(p, extra)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, resultCache, key, cmp, cacheTTL()); err != nil {
		log.Printf("Error caching comparison: %v", err)
	}
	return cmp, nil
}

func cacheTTL() time.Duration {
	if cfg == nil {
		return 0
	}
	return cfg.Cache.TTL
}

func defaults() config.Calculator {
	if cfg == nil {
		return config.DefaultConfig().Calculator
	}
	return cfg.Calculator
}

// parseParams reads the calculator form (or query string)
func parseParams(r *http.Request) (models.PayoffParameters, error) {
	d := defaults()
	var p models.PayoffParameters
	var err error

	if p.Principal, err = apphttp.ParseRequiredFormFloat(r, "balance"); err != nil {
		return p, err
	}
	if p.AnnualPercentageRate, err = apphttp.ParseRequiredFormFloat(r, "apr"); err != nil {
		return p, err
	}
	if p.MinimumPaymentFloor, err = apphttp.ParseFormFloatDefault(r, "floor", d.MinimumPaymentFloor); err != nil {
		return p, err
	}
	if p.AdditionalMonthlyPayment, err = apphttp.ParseFormFloat(r, "extra"); err != nil {
		return p, err
	}

	switch mode := r.FormValue("mode"); mode {
	case ModeSimple:
		p.RequiredPrincipalPercentage = 0
	case ModeIssuer, "":
		if p.RequiredPrincipalPercentage, err = apphttp.ParseFormFloatDefault(r, "pct", d.IssuerPrincipalPercentage); err != nil {
			return p, err
		}
	default:
		return p, fmt.Errorf("unknown payment rule %q", mode)
	}
	return p, nil
}

// query encodes p so the chart and report links reproduce the same run
func query(p models.PayoffParameters) string {
	v := url.Values{}
	v.Set("balance", strconv.FormatFloat(p.Principal, 'f', -1, 64))
	v.Set("apr", strconv.FormatFloat(p.AnnualPercentageRate, 'f', -1, 64))
	v.Set("floor", strconv.FormatFloat(p.MinimumPaymentFloor, 'f', -1, 64))
	v.Set("pct", strconv.FormatFloat(p.RequiredPrincipalPercentage, 'f', -1, 64))
	if p.AdditionalMonthlyPayment > 0 {
		v.Set("extra", strconv.FormatFloat(p.AdditionalMonthlyPayment, 'f', -1, 64))
	}
	return v.Encode()
}

// errorMessage turns an engine error into text for the form
func errorMessage(err error) string {
	var pe *payoff.ParameterError
	if errors.As(err, &pe) {
		return fieldLabel(pe.Field) + " " + pe.Reason
	}
	return err.Error()
}

func fieldLabel(field string) string {
	switch field {
	case "principal":
		return "Balance"
	case "annual_percentage_rate":
		return "APR"
	case "minimum_payment_floor":
		return "Minimum payment"
	case "required_principal_percentage":
		return "Principal percentage"
	case "additional_monthly_payment", "extra_payment":
		return "Extra payment"
	default:
		return field
	}
}

func handleCalculator(w http.ResponseWriter, r *http.Request) {
	d := defaults()
	pageData := map[string]interface{}{
		"Title":     "Credit Card Payoff Calculator",
		"ActiveTab": "calculator",
		"Defaults":  d,
		"Mode":      ModeIssuer,
	}
	apphttp.RenderTemplate(w, renderer, "base", pageData)
}

func handleSchedule(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		apphttp.RenderError(w, "Invalid form data: "+err.Error(), http.StatusBadRequest)
		return
	}
	p, err := parseParams(r)
	if err != nil {
		apphttp.RenderError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := computeWithCache(r.Context(), p)
	if err != nil {
		apphttp.RenderError(w, errorMessage(err), apphttp.StatusFor(err))
		return
	}

	partialData := map[string]interface{}{
		"Params":   p,
		"Schedule": result.Schedule,
		"Summary":  result.Summary,
		"Query":    query(p),
	}
	if result.Summary.PaidOff {
		partialData["DebtFreeDate"] = payoff.DebtFreeDate(now(), result.Summary.MonthsToPayoff)
	}
	if p.AdditionalMonthlyPayment > 0 {
		if cmp, err := compareWithCache(r.Context(), p, p.AdditionalMonthlyPayment); err == nil {
			partialData["Comparison"] = cmp
		}
	}

	apphttp.RenderPartial(w, renderer, "schedule-results", partialData)
}

func handleCompare(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		apphttp.RenderError(w, "Invalid form data: "+err.Error(), http.StatusBadRequest)
		return
	}
	p, err := parseParams(r)
	if err != nil {
		apphttp.RenderError(w, err.Error(), http.StatusBadRequest)
		return
	}

	cmp, err := compareWithCache(r.Context(), p, p.AdditionalMonthlyPayment)
	if err != nil {
		apphttp.RenderError(w, errorMessage(err), apphttp.StatusFor(err))
		return
	}

	partialData := map[string]interface{}{
		"Params":     p,
		"Comparison": cmp,
		"Query":      query(p),
	}
	if cmp.Baseline.PaidOff {
		partialData["BaselineDate"] = payoff.DebtFreeDate(now(), cmp.BaselineMonthsToPayoff)
	}
	if cmp.Scenario.PaidOff {
		partialData["ScenarioDate"] = payoff.DebtFreeDate(now(), cmp.NewMonthsToPayoff)
	}

	apphttp.RenderPartial(w, renderer, "comparison-results", partialData)
}

func handleChart(w http.ResponseWriter, r *http.Request) {
	p, err := parseParams(r)
	if err != nil {
		apphttp.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	baseline, err := computeWithCache(r.Context(), p.WithAdditional(0))
	if err != nil {
		apphttp.WriteJSONError(w, errorMessage(err), apphttp.StatusFor(err))
		return
	}

	traces := []map[string]interface{}{
		balanceTrace("Minimum payments", baseline, "#ef4444", "rgba(239, 68, 68, 0.15)"),
	}
	if p.AdditionalMonthlyPayment > 0 {
		extra, err := computeWithCache(r.Context(), p)
		if err != nil {
			apphttp.WriteJSONError(w, errorMessage(err), apphttp.StatusFor(err))
			return
		}
		name := fmt.Sprintf("With $%s extra", strconv.FormatFloat(p.AdditionalMonthlyPayment, 'f', -1, 64))
		traces = append(traces, balanceTrace(name, extra, "#22c55e", "rgba(34, 197, 94, 0.25)"))
	}

	chartData := map[string]interface{}{
		"data": traces,
		"layout": map[string]interface{}{
			"title": "Balance Over Time",
			"xaxis": map[string]interface{}{
				"title": "Month",
			},
			"yaxis": map[string]interface{}{
				"title":      "Balance ($)",
				"tickformat": "$,.0f",
			},
			"showlegend": len(traces) > 1,
		},
	}

	apphttp.WriteJSON(w, http.StatusOK, chartData)
}

// balanceTrace plots ending balance by month, starting from the principal at month 0
func balanceTrace(name string, result *models.PayoffResult, line, fill string) map[string]interface{} {
	months := make([]int, 0, len(result.Schedule)+1)
	balances := make([]float64, 0, len(result.Schedule)+1)
	months = append(months, 0)
	balances = append(balances, payoff.Round(result.Parameters.Principal))
	for _, e := range result.Schedule {
		months = append(months, e.Month)
		balances = append(balances, e.EndingBalance)
	}

	return map[string]interface{}{
		"type":      "scatter",
		"mode":      "lines",
		"name":      name,
		"x":         months,
		"y":         balances,
		"fill":      "tozeroy",
		"fillcolor": fill,
		"line": map[string]interface{}{
			"color": line,
			"width": 2,
		},
	}
}

func handleReport(w http.ResponseWriter, r *http.Request) {
	p, err := parseParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := computeWithCache(r.Context(), p)
	if err != nil {
		http.Error(w, errorMessage(err), apphttp.StatusFor(err))
		return
	}

	var cmp *models.ScenarioComparison
	if p.AdditionalMonthlyPayment > 0 {
		if cmp, err = compareWithCache(r.Context(), p, p.AdditionalMonthlyPayment); err != nil {
			http.Error(w, errorMessage(err), apphttp.StatusFor(err))
			return
		}
	}

	generated := now()
	data, err := report.ScheduleXLSX(p, result.Schedule, result.Summary, cmp, generated)
	if err != nil {
		log.Printf("Error building payoff report: %v", err)
		http.Error(w, "Failed to build report", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("payoff_plan_%s.xlsx", generated.Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Write(data)
}

// apiPayoffResponse adds the projected debt-free date to a result
type apiPayoffResponse struct {
	*models.PayoffResult
	DebtFreeDate string `json:"debt_free_date,omitempty"`
}

type apiCompareRequest struct {
	Parameters   models.PayoffParameters `json:"parameters"`
	ExtraPayment float64                 `json:"extra_payment"`
}

func writeAPIError(w http.ResponseWriter, err error) {
	body := map[string]string{"error": errorMessage(err)}
	var pe *payoff.ParameterError
	if errors.As(err, &pe) {
		body["field"] = pe.Field
	}
	apphttp.WriteJSON(w, apphttp.StatusFor(err), body)
}

func handleAPIPayoff(w http.ResponseWriter, r *http.Request) {
	var p models.PayoffParameters
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		apphttp.WriteJSONError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := computeWithCache(r.Context(), p)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	resp := apiPayoffResponse{PayoffResult: result}
	if result.Summary.PaidOff {
		resp.DebtFreeDate = payoff.DebtFreeDate(now(), result.Summary.MonthsToPayoff).Format("2006-01-02")
	}
	apphttp.WriteJSON(w, http.StatusOK, resp)
}

func handleAPICompare(w http.ResponseWriter, r *http.Request) {
	var req apiCompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apphttp.WriteJSONError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	cmp, err := compareWithCache(r.Context(), req.Parameters, req.ExtraPayment)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	apphttp.WriteJSON(w, http.StatusOK, cmp)
}
