package healing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/testforge/pomsuite/internal/browser"
	"github.com/testforge/pomsuite/internal/config"
)

// PostgresStore keeps locator history in PostgreSQL so it survives across
// runs and machines. Tables are created by migrations/.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an open database
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects using cfg and verifies the connection
func OpenPostgres(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

// Health checks database connectivity
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type candidateRow struct {
	Strategy  string    `db:"candidate_strategy"`
	Value     string    `db:"candidate_value"`
	Score     float64   `db:"score"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r candidateRow) toCandidate() Candidate {
	return Candidate{
		Locator:   browser.Locator{Strategy: browser.Strategy(r.Strategy), Value: r.Value},
		Score:     r.Score,
		UpdatedAt: r.UpdatedAt,
	}
}

type eventRow struct {
	ID             uuid.UUID `db:"id"`
	Page           string    `db:"page"`
	Strategy       string    `db:"strategy"`
	Value          string    `db:"value"`
	HealedStrategy string    `db:"healed_strategy"`
	HealedValue    string    `db:"healed_value"`
	Score          float64   `db:"score"`
	PageURL        string    `db:"page_url"`
	CreatedAt      time.Time `db:"created_at"`
}

func (r eventRow) toEvent() Event {
	return Event{
		ID: r.ID,
		Key: Key{
			Page:    r.Page,
			Locator: browser.Locator{Strategy: browser.Strategy(r.Strategy), Value: r.Value},
		},
		Healed:    browser.Locator{Strategy: browser.Strategy(r.HealedStrategy), Value: r.HealedValue},
		Score:     r.Score,
		PageURL:   r.PageURL,
		CreatedAt: r.CreatedAt,
	}
}

func (s *PostgresStore) Candidates(ctx context.Context, key Key) ([]Candidate, error) {
	query := `
		SELECT candidate_strategy, candidate_value, score, updated_at
		FROM locator_candidates
		WHERE page = $1 AND strategy = $2 AND value = $3
		ORDER BY score DESC, updated_at DESC
	`

	var rows []candidateRow
	if err := s.db.SelectContext(ctx, &rows, query,
		key.Page, string(key.Locator.Strategy), key.Locator.Value,
	); err != nil {
		return nil, fmt.Errorf("selecting candidates: %w", err)
	}

	out := make([]Candidate, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toCandidate())
	}
	return out, nil
}

func (s *PostgresStore) Save(ctx context.Context, key Key, cs []Candidate) error {
	if len(cs) == 0 {
		return nil
	}

	query := `
		INSERT INTO locator_candidates
			(page, strategy, value, candidate_strategy, candidate_value, score, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (page, strategy, value, candidate_strategy, candidate_value)
		DO UPDATE SET score = EXCLUDED.score, updated_at = EXCLUDED.updated_at
	`

	return s.transaction(ctx, func(tx *sqlx.Tx) error {
		for _, c := range cs {
			updated := c.UpdatedAt
			if updated.IsZero() {
				updated = time.Now().UTC()
			}
			if _, err := tx.ExecContext(ctx, query,
				key.Page,
				string(key.Locator.Strategy),
				key.Locator.Value,
				string(c.Locator.Strategy),
				c.Locator.Value,
				c.Score,
				updated,
			); err != nil {
				return fmt.Errorf("upserting candidate %s: %w", c.Locator, err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) RecordHeal(ctx context.Context, ev Event) error {
	query := `
		INSERT INTO heal_events
			(id, page, strategy, value, healed_strategy, healed_value, score, page_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.ExecContext(ctx, query,
		ev.ID,
		ev.Key.Page,
		string(ev.Key.Locator.Strategy),
		ev.Key.Locator.Value,
		string(ev.Healed.Strategy),
		ev.Healed.Value,
		ev.Score,
		ev.PageURL,
		ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting heal event: %w", err)
	}
	return nil
}

func (s *PostgresStore) Events(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, page, strategy, value, healed_strategy, healed_value, score, page_url, created_at
		FROM heal_events
		ORDER BY created_at DESC
		LIMIT $1
	`

	var rows []eventRow
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("selecting heal events: %w", err)
	}

	out := make([]Event, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toEvent())
	}
	return out, nil
}

// transaction executes fn within a transaction
func (s *PostgresStore) transaction(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction: %w (original error: %v)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
