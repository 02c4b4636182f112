package quote

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SQLiteStore persists quotes in a sqlite table. The results payload is
// stored as a JSON snapshot so listing never has to recompute anything.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an open database. The quotes table must exist
// (see migrations/).
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Save(ctx context.Context, q Quote) (string, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	resultsJSON, err := json.Marshal(q.Results)
	if err != nil {
		return "", fmt.Errorf("marshal quote results: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO quotes (id, created_at, filename, results_json)
		VALUES (?, ?, ?, ?)
	`, q.ID, q.Timestamp.UTC().Format(time.RFC3339), q.Filename, string(resultsJSON))
	if err != nil {
		return "", fmt.Errorf("insert quote: %w", err)
	}

	return q.ID, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Quote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, filename, results_json
		FROM quotes
		ORDER BY datetime(created_at) DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]Quote, 0)
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}

	return quotes, nil
}

func (s *SQLiteStore) Find(ctx context.Context, id string) (Quote, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, filename, results_json
		FROM quotes
		WHERE id = ?
	`, id)

	q, err := scanQuote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Quote{}, ErrNotFound
	}
	if err != nil {
		return Quote{}, err
	}
	return q, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM quotes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete quote: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuote(row rowScanner) (Quote, error) {
	var q Quote
	var createdAt string
	var resultsJSON string
	if err := row.Scan(&q.ID, &createdAt, &q.Filename, &resultsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quote{}, err
		}
		return Quote{}, fmt.Errorf("scan quote: %w", err)
	}

	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Quote{}, fmt.Errorf("parse quote timestamp %q: %w", createdAt, err)
	}
	q.Timestamp = ts

	if err := json.Unmarshal([]byte(resultsJSON), &q.Results); err != nil {
		return Quote{}, fmt.Errorf("unmarshal quote results: %w", err)
	}

	return q, nil
}
