// Package postgres provides a PostgreSQL-backed usage log and visit store.
//
// The schema mirrors the hosted database the web app reads from: one row per
// generation attempt in ai_usage_logs and one row per user and day in
// user_daily_visits.
package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sangukO/haru-word/internal/domain"
	"github.com/sangukO/haru-word/internal/usecase"
)

// Store is a PostgreSQL-backed usage log and visit store.
type Store struct {
	pool        *pgxpool.Pool
	tablePrefix string
}

var (
	_ usecase.UsageLogStore  = (*Store)(nil)
	_ usecase.UsageLogReader = (*Store)(nil)
	_ usecase.VisitStore     = (*Store)(nil)
)

// Option configures Store.
type Option func(*Store)

// WithTablePrefix sets the table name prefix (default none).
func WithTablePrefix(prefix string) Option {
	return func(s *Store) { s.tablePrefix = prefix }
}

// New creates a new PostgreSQL-backed store.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{pool: pool}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) logsTable() string   { return s.tablePrefix + "ai_usage_logs" }
func (s *Store) visitsTable() string { return s.tablePrefix + "user_daily_visits" }

// EnsureSchema creates the required tables if they don't exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	q := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			user_id TEXT NOT NULL,
			feature_name TEXT NOT NULL,
			target_word_ids BIGINT[] NOT NULL DEFAULT '{}',
			generated_sentence TEXT,
			status TEXT NOT NULL CHECK (status IN ('SUCCESS', 'FAILURE')),
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CHECK ((status = 'SUCCESS' AND generated_sentence IS NOT NULL AND error_message IS NULL)
				OR (status = 'FAILURE' AND error_message IS NOT NULL AND generated_sentence IS NULL))
		);
		CREATE INDEX IF NOT EXISTS %[1]s_user_created_idx ON %[1]s (user_id, created_at DESC);
		CREATE TABLE IF NOT EXISTS %[2]s (
			user_id TEXT NOT NULL,
			visit_date DATE NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (user_id, visit_date)
		);
	`, s.logsTable(), s.visitsTable())
	if _, err := s.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

// CountUsageSince counts the user's log entries created at or after since.
func (s *Store) CountUsageSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT count(*) FROM %s WHERE user_id = $1 AND created_at >= $2`, s.logsTable()),
		userID, since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count usage: %w", err)
	}
	return n, nil
}

// InsertUsageLog inserts entry. The database assigns id and created_at.
func (s *Store) InsertUsageLog(ctx context.Context, entry domain.UsageLogEntry) (domain.UsageLogEntry, error) {
	if err := entry.Validate(); err != nil {
		return domain.UsageLogEntry{}, fmt.Errorf("postgres: insert usage log: %w", err)
	}
	ids := entry.TargetWordIDs
	if ids == nil {
		ids = []int64{}
	}

	var id int64
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO %s (user_id, feature_name, target_word_ids, generated_sentence, status, error_message)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at`, s.logsTable()),
		entry.UserID, entry.FeatureName, ids, entry.GeneratedSentence, string(entry.Status), entry.ErrorMessage,
	).Scan(&id, &entry.CreatedAt)
	if err != nil {
		return domain.UsageLogEntry{}, fmt.Errorf("postgres: insert usage log: %w", err)
	}
	entry.ID = strconv.FormatInt(id, 10)
	entry.TargetWordIDs = ids
	return entry, nil
}

// ListUsageLogs returns the user's log entries matching q, newest first.
func (s *Store) ListUsageLogs(ctx context.Context, userID string, q domain.UsageQuery) ([]domain.UsageLogEntry, error) {
	where := []string{"user_id = $1"}
	args := []any{userID}
	if q.Status != "" {
		args = append(args, string(q.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if !q.From.IsZero() {
		args = append(args, q.From)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !q.To.IsZero() {
		args = append(args, q.To)
		where = append(where, fmt.Sprintf("created_at < $%d", len(args)))
	}
	sql := fmt.Sprintf(`SELECT id, user_id, feature_name, target_word_ids, generated_sentence, status, error_message, created_at
		FROM %s WHERE %s ORDER BY created_at DESC, id DESC`, s.logsTable(), strings.Join(where, " AND "))
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list usage logs: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.UsageLogEntry, error) {
		var (
			e      domain.UsageLogEntry
			id     int64
			status string
		)
		if err := row.Scan(&id, &e.UserID, &e.FeatureName, &e.TargetWordIDs, &e.GeneratedSentence, &status, &e.ErrorMessage, &e.CreatedAt); err != nil {
			return domain.UsageLogEntry{}, err
		}
		e.ID = strconv.FormatInt(id, 10)
		e.Status = domain.UsageStatus(status)
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan usage logs: %w", err)
	}
	if entries == nil {
		entries = []domain.UsageLogEntry{}
	}
	return entries, nil
}

// RecordVisit upserts the (user, day) row.
func (s *Store) RecordVisit(ctx context.Context, userID, visitDate string) error {
	_, err := s.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (user_id, visit_date) VALUES ($1, $2::date)
			ON CONFLICT (user_id, visit_date) DO NOTHING`, s.visitsTable()),
		userID, visitDate,
	)
	if err != nil {
		return fmt.Errorf("postgres: record visit: %w", err)
	}
	return nil
}

// ListVisits returns visits between fromDate and toDate inclusive, oldest first.
func (s *Store) ListVisits(ctx context.Context, userID, fromDate, toDate string) ([]domain.DailyVisit, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT to_char(visit_date, 'YYYY-MM-DD') FROM %s
			WHERE user_id = $1 AND visit_date BETWEEN $2::date AND $3::date
			ORDER BY visit_date`, s.visitsTable()),
		userID, fromDate, toDate,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list visits: %w", err)
	}
	visits, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.DailyVisit, error) {
		v := domain.DailyVisit{UserID: userID}
		err := row.Scan(&v.VisitDate)
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan visits: %w", err)
	}
	if visits == nil {
		visits = []domain.DailyVisit{}
	}
	return visits, nil
}
