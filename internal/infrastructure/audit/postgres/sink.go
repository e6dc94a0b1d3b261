package postgres

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"
	"unicode/utf8"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/news-classifier/internal/core/domain"
)

const textPreviewLen = 200

// Sink persists every prediction attempt to the predictions table for
// offline analytics. It is a pure write sink on the request path; Stats is
// read only by the HTTP stats surface.
type Sink struct {
	db *sql.DB
}

func NewSink(db *sql.DB) *Sink {
	return &Sink{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (s *Sink) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent instance startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS predictions (
	id BIGSERIAL PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	request_id TEXT,
	text_hash VARCHAR(64) NOT NULL,
	text_preview TEXT NOT NULL,
	predicted_topic VARCHAR(50),
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	latency_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
	model_version VARCHAR(50) NOT NULL DEFAULT 'unknown',
	cached BOOLEAN NOT NULL DEFAULT FALSE,
	error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_predictions_topic ON predictions(predicted_topic);
CREATE INDEX IF NOT EXISTS idx_predictions_text_hash ON predictions(text_hash);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (s *Sink) Name() string { return "postgres" }

// truncatePreview bounds the stored preview by rune count so the cut never
// splits a multi-byte character into invalid UTF-8, which Postgres rejects.
func truncatePreview(text string) string {
	if utf8.RuneCountInString(text) <= textPreviewLen {
		return text
	}
	runes := []rune(text)
	return string(runes[:textPreviewLen])
}

func (s *Sink) Write(ctx context.Context, rec domain.AuditRecord) error {
	preview := truncatePreview(rec.Text)

	_, err := s.db.ExecContext(ctx, `
INSERT INTO predictions (
	created_at, request_id, text_hash, text_preview, predicted_topic, confidence, latency_ms, model_version, cached, error_message
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		rec.CreatedAt, rec.RequestID, hashText(rec.Text), preview, rec.Topic,
		rec.Confidence, rec.LatencyMS, rec.ModelVersion, rec.Cached, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

// Stats aggregates successful predictions over the trailing window.
func (s *Sink) Stats(ctx context.Context, window time.Duration) (*domain.AuditStats, error) {
	since := time.Now().UTC().Add(-window)

	stats := &domain.AuditStats{
		WindowHours: int(window.Hours()),
		TopicCounts: make(map[string]int64),
	}

	row := s.db.QueryRowContext(ctx, `
SELECT COUNT(*), COALESCE(AVG(confidence), 0), COALESCE(AVG(latency_ms), 0),
	COALESCE(AVG(CASE WHEN cached THEN 1.0 ELSE 0.0 END), 0)
FROM predictions
WHERE created_at >= $1 AND error_message = ''
`, since)
	if err := row.Scan(&stats.TotalRequests, &stats.AvgConfidence, &stats.AvgLatencyMS, &stats.CacheHitRate); err != nil {
		return nil, fmt.Errorf("scan aggregate stats: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT predicted_topic, COUNT(*)
FROM predictions
WHERE created_at >= $1 AND error_message = ''
GROUP BY predicted_topic
`, since)
	if err != nil {
		return nil, fmt.Errorf("query topic counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var topic string
		var count int64
		if err := rows.Scan(&topic, &count); err != nil {
			return nil, fmt.Errorf("scan topic count: %w", err)
		}
		stats.TopicCounts[topic] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topic counts: %w", err)
	}
	return stats, nil
}

func (s *Sink) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
