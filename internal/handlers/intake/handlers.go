package intake

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"debtplan/internal/config"
	apphttp "debtplan/internal/http"
	"debtplan/internal/models"
	"debtplan/internal/services/intake"
	"debtplan/internal/services/metrics"
	"debtplan/internal/services/storage"
	"debtplan/internal/templates"
)

// maxDebtLines bounds the repeated debt rows accepted from one form
const maxDebtLines = 20

var (
	renderer *templates.Renderer
	repo     intake.Repository
	stats    *metrics.Service
	cfg      *config.Config

	now = time.Now
)

// Initialize sets up the intake package with required dependencies
func Initialize(r *templates.Renderer, rp intake.Repository, m *metrics.Service, c *config.Config) {
	renderer = r
	repo = rp
	stats = m
	cfg = c
}

// RegisterRoutes registers all intake routes
func RegisterRoutes(r chi.Router) {
	r.Get("/intake", handleIntake)
	r.Post("/intake", handleSubmit)

	// These return visitor contact details and carry no authentication;
	// deployments must restrict /api/intake at the proxy.
	r.Group(func(r chi.Router) {
		r.Use(noStore)
		r.Get("/api/intake", handleList)
		r.Get("/api/intake/stats", handleStats)
		r.Get("/api/intake/{id}", handleGet)
	})
}

// noStore keeps submissions out of browser and proxy caches
func noStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func floor() float64 {
	if cfg == nil {
		return config.DefaultConfig().Calculator.MinimumPaymentFloor
	}
	return cfg.Calculator.MinimumPaymentFloor
}

// repoStatus maps repository errors to HTTP status codes
func repoStatus(err error) int {
	switch {
	case errors.Is(err, intake.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, intake.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrLocked):
		return http.StatusLocked
	default:
		return http.StatusInternalServerError
	}
}

func handleIntake(w http.ResponseWriter, r *http.Request) {
	pageData := map[string]interface{}{
		"Title":     "Get a Debt Relief Plan",
		"ActiveTab": "intake",
		"Kinds":     models.DebtKinds,
		"Rows":      []int{1, 2, 3},
	}
	apphttp.RenderTemplate(w, renderer, "base", pageData)
}

// parseSubmission reads the intake form. Debt rows arrive as parallel
// repeated fields; rows with no creditor and no balance are skipped.
func parseSubmission(r *http.Request) (*models.Submission, error) {
	budget, err := apphttp.ParseFormFloat(r, "monthly_budget")
	if err != nil {
		return nil, err
	}

	s := &models.Submission{
		FirstName:     r.FormValue("first_name"),
		LastName:      r.FormValue("last_name"),
		Email:         r.FormValue("email"),
		Phone:         r.FormValue("phone"),
		State:         r.FormValue("state"),
		MonthlyBudget: budget,
		Consent:       r.FormValue("consent") != "",
	}

	creditors := r.Form["creditor"]
	kinds := r.Form["kind"]
	balances := r.Form["balance"]
	aprs := r.Form["apr"]
	minimums := r.Form["minimum_payment"]

	at := func(values []string, i int) string {
		if i < len(values) {
			return strings.TrimSpace(values[i])
		}
		return ""
	}
	number := func(name string, values []string, i int) (float64, error) {
		v := strings.ReplaceAll(strings.TrimPrefix(at(values, i), "$"), ",", "")
		if v == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("debt %d: invalid %s", i+1, name)
		}
		return f, nil
	}

	rows := max(len(creditors), len(balances))
	if rows > maxDebtLines {
		return nil, fmt.Errorf("at most %d debts can be submitted", maxDebtLines)
	}
	for i := 0; i < rows; i++ {
		if at(creditors, i) == "" && at(balances, i) == "" {
			continue
		}
		d := models.DebtLine{
			Creditor: at(creditors, i),
			Kind:     models.DebtKind(at(kinds, i)),
		}
		if d.Balance, err = number("balance", balances, i); err != nil {
			return nil, err
		}
		if d.APR, err = number("APR", aprs, i); err != nil {
			return nil, err
		}
		if d.MinimumPayment, err = number("minimum payment", minimums, i); err != nil {
			return nil, err
		}
		s.Debts = append(s.Debts, d)
	}
	return s, nil
}

func handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		apphttp.RenderError(w, "Invalid form data: "+err.Error(), http.StatusBadRequest)
		return
	}

	s, err := parseSubmission(r)
	if err != nil {
		apphttp.RenderError(w, err.Error(), http.StatusBadRequest)
		return
	}

	intake.Normalize(s, now())
	if err := intake.Validate(s); err != nil {
		apphttp.RenderError(w, err.Error(), http.StatusBadRequest)
		return
	}

	projections, err := intake.Project(s, floor(), s.CreatedAt)
	if err != nil {
		apphttp.RenderError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := repo.Save(r.Context(), s); err != nil {
		log.Printf("Error saving intake submission: %v", err)
		apphttp.RenderError(w, "We could not save your request. Please try again.", repoStatus(err))
		return
	}
	log.Printf("Intake submission %s saved with %d debts", s.ID, len(s.Debts))

	var interest float64
	nonConvergent := 0
	for _, p := range projections {
		if p.Summary.PaidOff {
			interest += p.Summary.TotalInterestPaid
		} else {
			nonConvergent++
		}
	}

	partialData := map[string]interface{}{
		"Submission":    s,
		"Projections":   projections,
		"TotalDebt":     s.TotalDebt(),
		"TotalInterest": interest,
		"NonConvergent": nonConvergent,
	}
	apphttp.RenderPartial(w, renderer, "intake-confirmation", partialData)
}

func handleList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			apphttp.WriteJSONError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	subs, err := repo.List(r.Context(), limit)
	if err != nil {
		apphttp.WriteJSONError(w, err.Error(), repoStatus(err))
		return
	}
	if subs == nil {
		subs = []models.Submission{}
	}
	apphttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"submissions": subs,
		"count":       len(subs),
	})
}

func handleGet(w http.ResponseWriter, r *http.Request) {
	s, err := repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		apphttp.WriteJSONError(w, err.Error(), repoStatus(err))
		return
	}
	apphttp.WriteJSON(w, http.StatusOK, s)
}

func handleStats(w http.ResponseWriter, r *http.Request) {
	subs, err := repo.List(r.Context(), 0)
	if err != nil {
		apphttp.WriteJSONError(w, err.Error(), repoStatus(err))
		return
	}
	apphttp.WriteJSON(w, http.StatusOK, stats.Summarize(subs))
}
