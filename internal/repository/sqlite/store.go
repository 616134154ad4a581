// Package sqlite keeps usage logs and visits in a local SQLite file, for
// development and for operators inspecting an exported snapshot.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/sangukO/haru-word/internal/domain"
	"github.com/sangukO/haru-word/internal/usecase"
)

// timeLayout is fixed width so text comparison in SQL matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS ai_usage_logs (
    id                 TEXT PRIMARY KEY,
    user_id            TEXT NOT NULL,
    feature_name       TEXT NOT NULL,
    target_word_ids    TEXT NOT NULL DEFAULT '[]',
    generated_sentence TEXT,
    status             TEXT NOT NULL CHECK (status IN ('SUCCESS', 'FAILURE')),
    error_message      TEXT,
    created_at         TEXT NOT NULL,
    CHECK ((status = 'SUCCESS' AND generated_sentence IS NOT NULL AND error_message IS NULL)
        OR (status = 'FAILURE' AND error_message IS NOT NULL AND generated_sentence IS NULL))
);
CREATE INDEX IF NOT EXISTS idx_ai_usage_logs_user_created ON ai_usage_logs(user_id, created_at);
CREATE TABLE IF NOT EXISTS user_daily_visits (
    user_id    TEXT NOT NULL,
    visit_date TEXT NOT NULL,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY (user_id, visit_date)
);
`

// Store provides SQLite-backed storage for usage logs and visits.
type Store struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

var (
	_ usecase.UsageLogStore  = (*Store)(nil)
	_ usecase.UsageLogReader = (*Store)(nil)
	_ usecase.VisitStore     = (*Store)(nil)
)

// OpenStore opens (or creates) the database at dbPath and runs migrations.
func OpenStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open db: %w", err)
	}
	// One writer at a time avoids SQLITE_BUSY under concurrent inserts.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
	}

	s := &Store{db: db, now: time.Now, newID: uuid.NewString}
	if err := s.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the required tables if they don't exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite: run migrations: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// CountUsageSince counts the user's log entries created at or after since.
func (s *Store) CountUsageSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ai_usage_logs WHERE user_id = ? AND created_at >= ?`,
		userID, formatTime(since),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: count usage: %w", err)
	}
	return n, nil
}

// InsertUsageLog stores entry with a fresh id and the current time.
func (s *Store) InsertUsageLog(ctx context.Context, entry domain.UsageLogEntry) (domain.UsageLogEntry, error) {
	if err := entry.Validate(); err != nil {
		return domain.UsageLogEntry{}, fmt.Errorf("sqlite: insert usage log: %w", err)
	}
	if entry.TargetWordIDs == nil {
		entry.TargetWordIDs = []int64{}
	}
	ids, err := json.Marshal(entry.TargetWordIDs)
	if err != nil {
		return domain.UsageLogEntry{}, fmt.Errorf("sqlite: encode word ids: %w", err)
	}
	entry.ID = s.newID()
	entry.CreatedAt = s.now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ai_usage_logs (
			id, user_id, feature_name, target_word_ids,
			generated_sentence, status, error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.UserID, entry.FeatureName, string(ids),
		nullString(entry.GeneratedSentence), string(entry.Status), nullString(entry.ErrorMessage),
		formatTime(entry.CreatedAt),
	)
	if err != nil {
		return domain.UsageLogEntry{}, fmt.Errorf("sqlite: insert usage log: %w", err)
	}
	return entry, nil
}

// ListUsageLogs returns the user's log entries matching q, newest first.
func (s *Store) ListUsageLogs(ctx context.Context, userID string, q domain.UsageQuery) ([]domain.UsageLogEntry, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}
	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(q.Status))
	}
	if !q.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, formatTime(q.From))
	}
	if !q.To.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, formatTime(q.To))
	}
	query := `
		SELECT id, user_id, feature_name, target_word_ids,
		       generated_sentence, status, error_message, created_at
		FROM ai_usage_logs
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC, rowid DESC`
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list usage logs: %w", err)
	}
	defer rows.Close()

	entries := []domain.UsageLogEntry{}
	for rows.Next() {
		var (
			e                 domain.UsageLogEntry
			ids, status, at   string
			sentence, message sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.FeatureName, &ids, &sentence, &status, &message, &at); err != nil {
			return nil, fmt.Errorf("sqlite: scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(ids), &e.TargetWordIDs); err != nil {
			return nil, fmt.Errorf("sqlite: decode word ids of %s: %w", e.ID, err)
		}
		if e.CreatedAt, err = time.Parse(timeLayout, at); err != nil {
			return nil, fmt.Errorf("sqlite: parse created_at of %s: %w", e.ID, err)
		}
		e.Status = domain.UsageStatus(status)
		if sentence.Valid {
			e.GeneratedSentence = &sentence.String
		}
		if message.Valid {
			e.ErrorMessage = &message.String
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list usage logs: %w", err)
	}
	return entries, nil
}

// RecordVisit upserts the (user, day) row.
func (s *Store) RecordVisit(ctx context.Context, userID, visitDate string) error {
	if _, err := time.Parse(domain.DateLayout, visitDate); err != nil {
		return fmt.Errorf("sqlite: invalid visit date %q: %w", visitDate, err)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_daily_visits (user_id, visit_date) VALUES (?, ?)`,
		userID, visitDate,
	)
	if err != nil {
		return fmt.Errorf("sqlite: record visit: %w", err)
	}
	return nil
}

// ListVisits returns visits between fromDate and toDate inclusive, oldest first.
func (s *Store) ListVisits(ctx context.Context, userID, fromDate, toDate string) ([]domain.DailyVisit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT visit_date FROM user_daily_visits
		WHERE user_id = ? AND visit_date BETWEEN ? AND ?
		ORDER BY visit_date ASC`,
		userID, fromDate, toDate,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list visits: %w", err)
	}
	defer rows.Close()

	visits := []domain.DailyVisit{}
	for rows.Next() {
		v := domain.DailyVisit{UserID: userID}
		if err := rows.Scan(&v.VisitDate); err != nil {
			return nil, fmt.Errorf("sqlite: scan visit: %w", err)
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
