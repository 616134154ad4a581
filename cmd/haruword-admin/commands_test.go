package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sangukO/haru-word/internal/domain"
	"github.com/sangukO/haru-word/internal/repository/sqlite"
)

func runAdmin(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func seedSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "admin.db")
	store, err := sqlite.OpenStore(path)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	_, err = store.InsertUsageLog(ctx, domain.NewSuccessEntry("u1", domain.FeatureSentenceGeneration, []int64{11, 42}, "윤슬이 반짝였다."))
	require.NoError(t, err)
	_, err = store.InsertUsageLog(ctx, domain.NewFailureEntry("u1", domain.FeatureSentenceGeneration, []int64{7}, "timeout"))
	require.NoError(t, err)
	require.NoError(t, store.RecordVisit(ctx, "u1", "2026-03-01"))
	return path
}

func TestMigrateSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.db")
	out, err := runAdmin(t, "--store", "sqlite", "--path", path, "migrate")
	require.NoError(t, err)
	require.Contains(t, out, "schema ready (sqlite)")
}

func TestLogsCommand(t *testing.T) {
	path := seedSQLite(t)

	out, err := runAdmin(t, "--store", "sqlite", "--path", path, "logs", "--user", "u1")
	require.NoError(t, err)
	require.Contains(t, out, "윤슬이 반짝였다.")
	require.Contains(t, out, "timeout")
	require.Contains(t, out, "11,42")

	out, err = runAdmin(t, "--store", "sqlite", "--path", path, "logs", "--user", "u1", "--status", "failure")
	require.NoError(t, err)
	require.Contains(t, out, "timeout")
	require.NotContains(t, out, "윤슬")

	_, err = runAdmin(t, "--store", "sqlite", "--path", path, "logs", "--user", "u1", "--status", "maybe")
	require.Error(t, err)
}

func TestUsageCommand(t *testing.T) {
	path := seedSQLite(t)

	out, err := runAdmin(t, "--store", "sqlite", "--path", path, "usage", "--user", "u1")
	require.NoError(t, err)
	require.Contains(t, out, "user u1: 2/3 used")
	require.Contains(t, out, "(remaining 1, resets ")
}

func TestUsageCommand_LimitFromEnvironment(t *testing.T) {
	path := seedSQLite(t)
	t.Setenv("AI_DAILY_LIMIT", "5")

	out, err := runAdmin(t, "--store", "sqlite", "--path", path, "usage", "--user", "u1")
	require.NoError(t, err)
	require.Contains(t, out, "user u1: 2/5 used")
	require.Contains(t, out, "(remaining 3, resets ")

	out, err = runAdmin(t, "--store", "sqlite", "--path", path, "usage", "--user", "u1", "--limit", "2")
	require.NoError(t, err)
	require.Contains(t, out, "(remaining 0, resets ")
}

func TestUsageCommand_InvalidLimitEnvironmentFallsBack(t *testing.T) {
	path := seedSQLite(t)
	t.Setenv("AI_DAILY_LIMIT", "lots")

	out, err := runAdmin(t, "--store", "sqlite", "--path", path, "usage", "--user", "u1")
	require.NoError(t, err)
	require.Contains(t, out, "user u1: 2/3 used")
}

func TestLogsHelpExplainsPerUserScope(t *testing.T) {
	out, err := runAdmin(t, "logs", "--help")
	require.NoError(t, err)
	require.Contains(t, out, "single --user")
	require.Contains(t, out, "full table scan")
}

func TestVisitsCommand(t *testing.T) {
	path := seedSQLite(t)

	out, err := runAdmin(t, "--store", "sqlite", "--path", path, "visits", "--user", "u1", "--year", "2026")
	require.NoError(t, err)
	require.Contains(t, out, "2026-03-01")
	require.Contains(t, out, "1 day(s) in 2026")
}

func TestRequiresUserFlag(t *testing.T) {
	path := seedSQLite(t)
	_, err := runAdmin(t, "--store", "sqlite", "--path", path, "logs")
	require.Error(t, err)
}

func TestStoreSelection(t *testing.T) {
	_, err := runAdmin(t, "--store", "redis", "usage", "--user", "u1")
	require.ErrorContains(t, err, "unknown store")

	_, err = runAdmin(t, "--store", "dynamodb", "--table", "", "usage", "--user", "u1")
	require.ErrorContains(t, err, "--table")

	_, err = runAdmin(t, "--store", "postgres", "--dsn", "", "usage", "--user", "u1")
	require.ErrorContains(t, err, "--dsn")
}
