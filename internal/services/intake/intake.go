// Package intake stores debt-relief intake submissions. Submissions are kept
// either as JSON files in the (optionally encrypted) data directory or in a
// SQL database.
package intake

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"debtplan/internal/models"
	"debtplan/internal/services/payoff"
)

// ErrNotFound is returned by Get for an unknown ID
var ErrNotFound = errors.New("submission not found")

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("invalid submission")

// Repository persists submissions
type Repository interface {
	Save(ctx context.Context, s *models.Submission) error
	Get(ctx context.Context, id string) (*models.Submission, error)
	// List returns the newest submissions first; limit <= 0 means all
	List(ctx context.Context, limit int) ([]models.Submission, error)
	// DeleteBefore removes submissions created before t and reports how many
	DeleteBefore(ctx context.Context, t time.Time) (int, error)
	Close() error
}

// Open returns the repository for driver: "file" uses the data directory,
// "sqlite" and "postgres" open dsn
func Open(driver, dsn string, files FileStore) (Repository, error) {
	switch driver {
	case "", "file":
		return NewFileRepository(files)
	case "sqlite", "postgres":
		return OpenSQL(driver, dsn)
	default:
		return nil, fmt.Errorf("unknown intake driver %q", driver)
	}
}

// Normalize trims the form fields and fills ID and CreatedAt when unset
func Normalize(s *models.Submission, now time.Time) {
	s.FirstName = strings.TrimSpace(s.FirstName)
	s.LastName = strings.TrimSpace(s.LastName)
	s.Email = strings.ToLower(strings.TrimSpace(s.Email))
	s.Phone = strings.TrimSpace(s.Phone)
	s.State = strings.ToUpper(strings.TrimSpace(s.State))
	for i := range s.Debts {
		s.Debts[i].Creditor = strings.TrimSpace(s.Debts[i].Creditor)
		if s.Debts[i].Kind == "" {
			s.Debts[i].Kind = models.DebtCreditCard
		}
	}
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now.UTC()
	}
}

// Validate checks the fields a submission must carry
func Validate(s *models.Submission) error {
	if s.FirstName == "" || s.LastName == "" {
		return fmt.Errorf("%w: first and last name are required", ErrInvalid)
	}
	if s.Email == "" || !strings.Contains(s.Email, "@") {
		return fmt.Errorf("%w: a valid email is required", ErrInvalid)
	}
	if len(s.Debts) == 0 {
		return fmt.Errorf("%w: at least one debt is required", ErrInvalid)
	}
	for i, d := range s.Debts {
		if !finite(d.Balance) || d.Balance <= 0 {
			return fmt.Errorf("%w: debt %d balance must be greater than 0", ErrInvalid, i+1)
		}
		if !finite(d.APR) || d.APR < 0 || d.APR > 100 {
			return fmt.Errorf("%w: debt %d APR must be between 0 and 100", ErrInvalid, i+1)
		}
		if !finite(d.MinimumPayment) || d.MinimumPayment < 0 {
			return fmt.Errorf("%w: debt %d minimum payment cannot be negative", ErrInvalid, i+1)
		}
	}
	if !finite(s.MonthlyBudget) || s.MonthlyBudget < 0 {
		return fmt.Errorf("%w: monthly budget must be a non-negative amount", ErrInvalid)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Project runs each debt line through the issuer minimum-payment rule. A line
// with a stated minimum payment uses it as the floor.
func Project(s *models.Submission, floor float64, from time.Time) ([]models.DebtProjection, error) {
	out := make([]models.DebtProjection, 0, len(s.Debts))
	for _, d := range s.Debts {
		f := floor
		if d.MinimumPayment > 0 {
			f = d.MinimumPayment
		}
		_, summary, err := payoff.ComputeSchedule(payoff.IssuerRule(f).Params(d.Balance, d.APR))
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", d.Creditor, err)
		}
		p := models.DebtProjection{Debt: d, Summary: summary}
		if summary.PaidOff {
			p.DebtFreeDate = payoff.DebtFreeDate(from, summary.MonthsToPayoff)
		}
		out = append(out, p)
	}
	return out, nil
}
