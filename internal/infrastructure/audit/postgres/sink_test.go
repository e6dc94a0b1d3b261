package postgres

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/news-classifier/internal/core/domain"
)

func newSinkWithMock(t *testing.T) (*Sink, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &Sink{db: db}, mock, func() { _ = db.Close() }
}

func TestWriteInsertsPrediction(t *testing.T) {
	sink, mock, done := newSinkWithMock(t)
	defer done()

	rec := domain.AuditRecord{
		RequestID:    "req-1",
		Text:         "Scientists discover water on Mars",
		Topic:        "SCIENCE",
		Confidence:   0.97,
		Cached:       false,
		LatencyMS:    42.5,
		ModelVersion: "bert-v2",
		CreatedAt:    time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO predictions").
		WithArgs(rec.CreatedAt, rec.RequestID, hashText(rec.Text), rec.Text, rec.Topic,
			rec.Confidence, rec.LatencyMS, rec.ModelVersion, rec.Cached, rec.Error).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := sink.Write(context.Background(), rec); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestWriteTruncatesTextPreview(t *testing.T) {
	sink, mock, done := newSinkWithMock(t)
	defer done()

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	rec := domain.AuditRecord{Text: string(long), CreatedAt: time.Now().UTC()}

	mock.ExpectExec("INSERT INTO predictions").
		WithArgs(rec.CreatedAt, rec.RequestID, hashText(rec.Text), string(long[:textPreviewLen]),
			rec.Topic, rec.Confidence, rec.LatencyMS, rec.ModelVersion, rec.Cached, rec.Error).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := sink.Write(context.Background(), rec); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestWritePreviewKeepsMultiByteRunesIntact(t *testing.T) {
	sink, mock, done := newSinkWithMock(t)
	defer done()

	// 240 bytes but only 80 runes: under the rune limit, the preview must
	// be the full text rather than a byte-truncated invalid prefix.
	rec := domain.AuditRecord{Text: strings.Repeat("你", 80), CreatedAt: time.Now().UTC()}

	mock.ExpectExec("INSERT INTO predictions").
		WithArgs(rec.CreatedAt, rec.RequestID, hashText(rec.Text), rec.Text,
			rec.Topic, rec.Confidence, rec.LatencyMS, rec.ModelVersion, rec.Cached, rec.Error).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := sink.Write(context.Background(), rec); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTruncatePreviewByRuneCount(t *testing.T) {
	long := strings.Repeat("你", textPreviewLen+50)
	preview := truncatePreview(long)

	if !utf8.ValidString(preview) {
		t.Fatalf("preview is not valid UTF-8")
	}
	if got := utf8.RuneCountInString(preview); got != textPreviewLen {
		t.Fatalf("preview rune count = %d, want %d", got, textPreviewLen)
	}
	if !strings.HasPrefix(long, preview) {
		t.Fatalf("preview is not a prefix of the original text")
	}
}

func TestStatsAggregatesWindow(t *testing.T) {
	sink, mock, done := newSinkWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\), COALESCE\\(AVG\\(confidence\\)").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count", "avg_conf", "avg_lat", "hit_rate"}).
			AddRow(120, 0.91, 37.2, 0.65))
	mock.ExpectQuery("SELECT predicted_topic, COUNT\\(\\*\\)").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"predicted_topic", "count"}).
			AddRow("SPORTS", 70).
			AddRow("WORLD", 50))

	stats, err := sink.Stats(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalRequests != 120 {
		t.Fatalf("expected 120 requests, got %d", stats.TotalRequests)
	}
	if stats.WindowHours != 24 {
		t.Fatalf("expected 24h window, got %d", stats.WindowHours)
	}
	if stats.TopicCounts["SPORTS"] != 70 || stats.TopicCounts["WORLD"] != 50 {
		t.Fatalf("unexpected topic counts: %+v", stats.TopicCounts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
