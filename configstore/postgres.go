package configstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/R3E-Network/widget_layer/canvas"
)

// Schema is the canvas configuration table. Hosts apply it once at startup.
const Schema = `
CREATE TABLE IF NOT EXISTS canvas_configs (
    canvas_id  TEXT PRIMARY KEY,
    document   JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// ErrNotFound is returned when no document is stored under a canvas id.
var ErrNotFound = errors.New("canvas configuration not found")

// PostgresStore persists canvas documents in Postgres.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a store over an open connection.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Open connects to Postgres and applies the schema.
func Open(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Canvas returns the document stored under canvasID.
func (s *PostgresStore) Canvas(ctx context.Context, canvasID string) (*canvas.Document, error) {
	var raw []byte
	err := s.db.GetContext(ctx, &raw,
		`SELECT document FROM canvas_configs WHERE canvas_id = $1`, canvasID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query canvas config: %w", err)
	}

	var doc canvas.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode canvas document: %w", err)
	}
	return &doc, nil
}

// Put stores or replaces the document under canvasID.
func (s *PostgresStore) Put(ctx context.Context, canvasID string, doc *canvas.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode canvas document: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO canvas_configs (canvas_id, document, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (canvas_id) DO UPDATE SET document = $2, updated_at = now()`,
		canvasID, raw)
	if err != nil {
		return fmt.Errorf("store canvas config: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
