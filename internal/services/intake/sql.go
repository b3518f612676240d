package intake

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"debtplan/internal/models"
)

// SQLRepository stores submissions in SQLite or Postgres. Debt lines are kept
// as a JSON column so both dialects share one schema.
type SQLRepository struct {
	db      *sql.DB
	dialect string
}

// OpenSQL opens dsn with driver ("sqlite" or "postgres") and creates the schema
func OpenSQL(driver, dsn string) (*SQLRepository, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%s intake repository needs a DSN", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == "sqlite" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
		// one writer avoids SQLITE_BUSY under concurrent form posts
		db.SetMaxOpenConns(1)
	}

	r := &SQLRepository{db: db, dialect: driver}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("Intake repository opened: %s", driver)
	return r, nil
}

func (r *SQLRepository) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS intake_submissions (
			id             TEXT PRIMARY KEY,
			created_at     BIGINT NOT NULL,
			first_name     TEXT NOT NULL,
			last_name      TEXT NOT NULL,
			email          TEXT NOT NULL,
			phone          TEXT,
			state          TEXT,
			monthly_budget DOUBLE PRECISION,
			consent        INTEGER NOT NULL DEFAULT 0,
			debts          TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_intake_created ON intake_submissions(created_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// rebind turns ? placeholders into $n for Postgres
func (r *SQLRepository) rebind(query string) string {
	if r.dialect != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

const selectColumns = `SELECT id, created_at, first_name, last_name, email, phone, state,
	monthly_budget, consent, debts FROM intake_submissions`

func (r *SQLRepository) Save(ctx context.Context, s *models.Submission) error {
	debts, err := json.Marshal(s.Debts)
	if err != nil {
		return fmt.Errorf("encode debts: %w", err)
	}
	consent := 0
	if s.Consent {
		consent = 1
	}

	_, err = r.db.ExecContext(ctx, r.rebind(`INSERT INTO intake_submissions
		(id, created_at, first_name, last_name, email, phone, state, monthly_budget, consent, debts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			created_at = excluded.created_at, first_name = excluded.first_name,
			last_name = excluded.last_name, email = excluded.email, phone = excluded.phone,
			state = excluded.state, monthly_budget = excluded.monthly_budget,
			consent = excluded.consent, debts = excluded.debts`),
		s.ID, s.CreatedAt.UnixNano(), s.FirstName, s.LastName, s.Email, s.Phone, s.State,
		s.MonthlyBudget, consent, string(debts))
	if err != nil {
		return fmt.Errorf("save submission: %w", err)
	}
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, id string) (*models.Submission, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(selectColumns+` WHERE id = ?`), id)
	s, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SQLRepository) List(ctx context.Context, limit int) ([]models.Submission, error) {
	query := selectColumns + ` ORDER BY created_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []models.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *SQLRepository) DeleteBefore(ctx context.Context, t time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM intake_submissions WHERE created_at < ?`), t.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("delete submissions: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *SQLRepository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSubmission(row scanner) (*models.Submission, error) {
	var (
		s       models.Submission
		created int64
		phone   sql.NullString
		state   sql.NullString
		budget  sql.NullFloat64
		consent int
		debts   string
	)
	if err := row.Scan(&s.ID, &created, &s.FirstName, &s.LastName, &s.Email, &phone, &state,
		&budget, &consent, &debts); err != nil {
		return nil, err
	}
	s.CreatedAt = time.Unix(0, created).UTC()
	s.Phone = phone.String
	s.State = state.String
	s.MonthlyBudget = budget.Float64
	s.Consent = consent != 0
	if err := json.Unmarshal([]byte(debts), &s.Debts); err != nil {
		return nil, fmt.Errorf("decode debts for %s: %w", s.ID, err)
	}
	return &s, nil
}
