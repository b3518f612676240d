package intake

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"debtplan/internal/models"
	"debtplan/internal/services/storage"
)

func sampleSubmission() *models.Submission {
	return &models.Submission{
		FirstName: " Jordan ",
		LastName:  "Lee",
		Email:     "Jordan@Example.com ",
		State:     "tx",
		Debts: []models.DebtLine{
			{Creditor: "Visa", Kind: models.DebtCreditCard, Balance: 4800, APR: 22.9},
			{Creditor: "Store", Kind: models.DebtStoreCard, Balance: 1000, APR: 18, MinimumPayment: 25},
		},
		MonthlyBudget: 300,
		Consent:       true,
	}
}

func TestNormalize(t *testing.T) {
	s := sampleSubmission()
	s.Debts[0].Kind = ""
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	Normalize(s, now)

	if s.FirstName != "Jordan" || s.Email != "jordan@example.com" || s.State != "TX" {
		t.Errorf("fields not normalized: %+v", s)
	}
	if s.Debts[0].Kind != models.DebtCreditCard {
		t.Errorf("Kind = %q, want default credit_card", s.Debts[0].Kind)
	}
	if s.ID == "" || !s.CreatedAt.Equal(now) {
		t.Errorf("ID/CreatedAt not filled: %q %v", s.ID, s.CreatedAt)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Submission)
		ok     bool
	}{
		{"valid", func(s *models.Submission) {}, true},
		{"missing first name", func(s *models.Submission) { s.FirstName = "" }, false},
		{"missing last name", func(s *models.Submission) { s.LastName = "" }, false},
		{"bad email", func(s *models.Submission) { s.Email = "nobody" }, false},
		{"no debts", func(s *models.Submission) { s.Debts = nil }, false},
		{"zero balance", func(s *models.Submission) { s.Debts[0].Balance = 0 }, false},
		{"apr too high", func(s *models.Submission) { s.Debts[1].APR = 120 }, false},
		{"negative minimum", func(s *models.Submission) { s.Debts[0].MinimumPayment = -5 }, false},
		{"negative budget", func(s *models.Submission) { s.MonthlyBudget = -1 }, false},
		{"NaN budget", func(s *models.Submission) { s.MonthlyBudget = math.NaN() }, false},
		{"infinite budget", func(s *models.Submission) { s.MonthlyBudget = math.Inf(1) }, false},
		{"infinite balance", func(s *models.Submission) { s.Debts[0].Balance = math.Inf(1) }, false},
		{"NaN APR", func(s *models.Submission) { s.Debts[0].APR = math.NaN() }, false},
		{"infinite minimum", func(s *models.Submission) { s.Debts[1].MinimumPayment = math.Inf(1) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sampleSubmission()
			Normalize(s, time.Now())
			tt.mutate(s)
			err := Validate(s)
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalid) {
				t.Errorf("got %v, want ErrInvalid", err)
			}
		})
	}
}

func TestProject(t *testing.T) {
	s := sampleSubmission()
	from := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	projections, err := Project(s, 25, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(projections) != 2 {
		t.Fatalf("got %d projections, want 2", len(projections))
	}
	for _, p := range projections {
		if !p.Summary.PaidOff {
			t.Errorf("%s should pay off under the issuer rule", p.Debt.Creditor)
		}
		if p.DebtFreeDate.Before(from) {
			t.Errorf("%s debt-free date %v before %v", p.Debt.Creditor, p.DebtFreeDate, from)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("mongo", "", nil); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestFileRepository(t *testing.T) {
	store, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	repo, err := Open("file", "", store)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	testRepository(t, repo)
}

func TestSQLiteRepository(t *testing.T) {
	repo, err := Open("sqlite", filepath.Join(t.TempDir(), "intake.db"), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	testRepository(t, repo)
}

func TestRebind(t *testing.T) {
	pg := &SQLRepository{dialect: "postgres"}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("postgres rebind = %q", got)
	}
	lite := &SQLRepository{dialect: "sqlite"}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite rebind = %q", got)
	}
}

func testRepository(t *testing.T, repo Repository) {
	t.Helper()
	defer repo.Close()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		s := sampleSubmission()
		Normalize(s, base.AddDate(0, 0, i*10))
		if err := repo.Save(ctx, s); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		ids = append(ids, s.ID)
	}

	got, err := repo.Get(ctx, ids[1])
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Email != "jordan@example.com" || len(got.Debts) != 2 || got.Debts[1].MinimumPayment != 25 {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !got.CreatedAt.Equal(base.AddDate(0, 0, 10)) || !got.Consent {
		t.Errorf("CreatedAt/Consent mismatch: %v %v", got.CreatedAt, got.Consent)
	}

	// saving an existing id replaces it, as a restore does
	got.Phone = "555-0100"
	if err := repo.Save(ctx, got); err != nil {
		t.Fatalf("save again: %v", err)
	}
	if again, err := repo.Get(ctx, ids[1]); err != nil || again.Phone != "555-0100" {
		t.Errorf("replace: got %+v, %v", again, err)
	}

	if _, err := repo.Get(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing id: got %v, want ErrNotFound", err)
	}

	list, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].ID != ids[2] {
		t.Errorf("list should be newest first, got %d items", len(list))
	}
	if list, _ := repo.List(ctx, 2); len(list) != 2 {
		t.Errorf("limited list has %d items, want 2", len(list))
	}

	n, err := repo.DeleteBefore(ctx, base.AddDate(0, 0, 15))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d, want 2", n)
	}
	list, _ = repo.List(ctx, 0)
	if len(list) != 1 || list[0].ID != ids[2] {
		t.Errorf("after purge got %d items", len(list))
	}
}
