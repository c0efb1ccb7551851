// Package deliveries records one row per received webhook delivery with
// its dispatch outcome. It is the serve-mode audit surface; the routing
// layer itself stays stateless.
package deliveries

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/forgebot/forgebot/internal/plugin"
)

// Delivery is one received webhook and its dispatch outcome.
type Delivery struct {
	ID          string                          `json:"id"`
	Event       string                          `json:"event"`
	Repository  string                          `json:"repository,omitempty"`
	Category    string                          `json:"category,omitempty"`
	Handlers    int                             `json:"handlers"`
	Failed      int                             `json:"failed"`
	ReceivedAt  time.Time                       `json:"received_at"`
	CompletedAt time.Time                       `json:"completed_at"`
	Results     map[string]plugin.HandlerResult `json:"results,omitempty"`
}

// Store persists deliveries in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a delivery store over an opened database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record inserts one delivery row.
func (s *Store) Record(ctx context.Context, d Delivery) error {
	failed := 0
	for _, r := range d.Results {
		if !r.Success {
			failed++
		}
	}

	resultsJSON, err := json.Marshal(d.Results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO deliveries (id, event, repository, category, handlers, failed, received_at, completed_at, results)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID,
		d.Event,
		d.Repository,
		d.Category,
		len(d.Results),
		failed,
		d.ReceivedAt.UTC().Format(time.RFC3339Nano),
		d.CompletedAt.UTC().Format(time.RFC3339Nano),
		string(resultsJSON),
	)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

// Recent returns up to limit deliveries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Delivery, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event, repository, category, handlers, failed, received_at, completed_at, results
         FROM deliveries ORDER BY received_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		var d Delivery
		var receivedAt, completedAt string
		var resultsJSON sql.NullString

		if err := rows.Scan(&d.ID, &d.Event, &d.Repository, &d.Category, &d.Handlers, &d.Failed,
			&receivedAt, &completedAt, &resultsJSON); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}

		if t, err := time.Parse(time.RFC3339Nano, receivedAt); err == nil {
			d.ReceivedAt = t
		}
		if t, err := time.Parse(time.RFC3339Nano, completedAt); err == nil {
			d.CompletedAt = t
		}
		if resultsJSON.Valid && resultsJSON.String != "" {
			if err := json.Unmarshal([]byte(resultsJSON.String), &d.Results); err != nil {
				return nil, fmt.Errorf("unmarshal results for %s: %w", d.ID, err)
			}
		}

		out = append(out, d)
	}
	return out, rows.Err()
}
