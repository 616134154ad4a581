package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sangukO/haru-word/internal/auth"
	"github.com/sangukO/haru-word/internal/domain"
	"github.com/sangukO/haru-word/internal/usecase"
)

func tempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "haruword_test.db")
}

// openTestStore returns a store whose clock advances one second per insert.
func openTestStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()
	store, err := OpenStore(tempDBPath(t))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clock := time.Date(2026, 3, 1, 1, 0, 0, 0, time.UTC)
	seq := 0
	store.now = func() time.Time { return clock }
	store.newID = func() string {
		seq++
		return "log-" + strconv.Itoa(seq)
	}
	return store, &clock
}

func TestOpenStoreCreatesFile(t *testing.T) {
	path := tempDBPath(t)
	store, err := OpenStore(path)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(context.Background()))
}

func TestInsertAndList(t *testing.T) {
	store, clock := openTestStore(t)
	ctx := context.Background()

	first, err := store.InsertUsageLog(ctx, domain.NewSuccessEntry("u1", domain.FeatureSentenceGeneration, []int64{11, 42}, "윤슬이 반짝였다."))
	require.NoError(t, err)
	require.Equal(t, "log-1", first.ID)
	require.Equal(t, *clock, first.CreatedAt)

	*clock = clock.Add(time.Second)
	_, err = store.InsertUsageLog(ctx, domain.NewFailureEntry("u1", domain.FeatureSentenceGeneration, nil, "timeout"))
	require.NoError(t, err)
	*clock = clock.Add(time.Second)
	_, err = store.InsertUsageLog(ctx, domain.NewSuccessEntry("u2", domain.FeatureSentenceGeneration, []int64{1}, "다른 사용자"))
	require.NoError(t, err)

	all, err := store.ListUsageLogs(ctx, "u1", domain.UsageQuery{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "log-2", all[0].ID)
	require.Equal(t, domain.UsageFailure, all[0].Status)
	require.Equal(t, "timeout", *all[0].ErrorMessage)
	require.Nil(t, all[0].GeneratedSentence)
	require.Equal(t, []int64{}, all[0].TargetWordIDs)

	require.Equal(t, "log-1", all[1].ID)
	require.Equal(t, []int64{11, 42}, all[1].TargetWordIDs)
	require.Equal(t, "윤슬이 반짝였다.", *all[1].GeneratedSentence)
	require.Nil(t, all[1].ErrorMessage)
	require.Equal(t, time.Date(2026, 3, 1, 1, 0, 0, 0, time.UTC), all[1].CreatedAt)

	successes, err := store.ListUsageLogs(ctx, "u1", domain.UsageQuery{Status: domain.UsageSuccess, Limit: 5})
	require.NoError(t, err)
	require.Len(t, successes, 1)

	limited, err := store.ListUsageLogs(ctx, "u1", domain.UsageQuery{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	require.Equal(t, "log-2", limited[0].ID)

	none, err := store.ListUsageLogs(ctx, "nobody", domain.UsageQuery{})
	require.NoError(t, err)
	require.NotNil(t, none)
	require.Empty(t, none)
}

func TestListUsageLogs_TimeBounds(t *testing.T) {
	store, clock := openTestStore(t)
	ctx := context.Background()
	start := *clock

	for i := 0; i < 3; i++ {
		_, err := store.InsertUsageLog(ctx, domain.NewSuccessEntry("u1", domain.FeatureSentenceGeneration, nil, "s"+strconv.Itoa(i)))
		require.NoError(t, err)
		*clock = clock.Add(time.Hour)
	}

	got, err := store.ListUsageLogs(ctx, "u1", domain.UsageQuery{From: start.Add(time.Hour), To: start.Add(2 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "s1", *got[0].GeneratedSentence)
}

func TestCountUsageSince(t *testing.T) {
	store, clock := openTestStore(t)
	ctx := context.Background()
	seoul := time.FixedZone("KST", 9*60*60)

	// 23:59 KST Feb 28, then 00:00 and 10:00 KST Mar 1.
	for _, at := range []time.Time{
		time.Date(2026, 2, 28, 23, 59, 0, 0, seoul),
		time.Date(2026, 3, 1, 0, 0, 0, 0, seoul),
		time.Date(2026, 3, 1, 10, 0, 0, 0, seoul),
	} {
		*clock = at
		_, err := store.InsertUsageLog(ctx, domain.NewFailureEntry("u1", domain.FeatureSentenceGeneration, nil, "x"))
		require.NoError(t, err)
	}

	n, err := store.CountUsageSince(ctx, "u1", time.Date(2026, 3, 1, 0, 0, 0, 0, seoul))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = store.CountUsageSince(ctx, "u2", time.Time{})
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestInsertUsageLog_RejectsInvalidEntry(t *testing.T) {
	store, _ := openTestStore(t)

	_, err := store.InsertUsageLog(context.Background(), domain.UsageLogEntry{UserID: "u1", FeatureName: "f", Status: domain.UsageSuccess})
	require.Error(t, err)

	n, err := store.CountUsageSince(context.Background(), "u1", time.Time{})
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestCheckConstraintRejectsMixedRow(t *testing.T) {
	store, _ := openTestStore(t)

	_, err := store.db.Exec(`INSERT INTO ai_usage_logs (id, user_id, feature_name, status, generated_sentence, error_message, created_at)
		VALUES ('x', 'u1', 'f', 'SUCCESS', 's', 'e', '2026-03-01T00:00:00.000000000Z')`)
	require.Error(t, err)
}

func TestVisits(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordVisit(ctx, "u1", "2026-03-01"))
	require.NoError(t, store.RecordVisit(ctx, "u1", "2026-03-01"))
	require.NoError(t, store.RecordVisit(ctx, "u1", "2026-01-15"))
	require.NoError(t, store.RecordVisit(ctx, "u1", "2025-12-31"))
	require.NoError(t, store.RecordVisit(ctx, "u2", "2026-01-15"))
	require.Error(t, store.RecordVisit(ctx, "u1", "March 1"))

	visits, err := store.ListVisits(ctx, "u1", "2026-01-01", "2026-12-31")
	require.NoError(t, err)
	require.Equal(t, []domain.DailyVisit{
		{UserID: "u1", VisitDate: "2026-01-15"},
		{UserID: "u1", VisitDate: "2026-03-01"},
	}, visits)
}

type echoLLM struct{ err error }

func (e echoLLM) Chat(context.Context, string, []domain.ChatMessage) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	return "오늘도 시나브로 성장했다.", nil
}

type staticParams struct{}

func (staticParams) GetParameter(context.Context, string) (string, error) {
	return "gpt-4o-mini", nil
}

// The daily limit holds against a real store: after three attempts,
// successful or not, the fourth is rejected without a new row.
func TestSentenceServiceQuotaAgainstStore(t *testing.T) {
	store, _ := openTestStore(t)
	store.now = time.Now
	ctx := auth.WithUserID(context.Background(), "u1")

	newService := func(llm usecase.LLMClient) *usecase.SentenceService {
		svc, err := usecase.NewSentenceService(staticParams{}, llm, store, auth.ContextResolver{}, usecase.SentenceConfig{
			ParamPrefix: "/haru-word",
			DailyLimit:  3,
		})
		require.NoError(t, err)
		return svc
	}

	ok := newService(echoLLM{})
	failing := newService(echoLLM{err: errors.New("upstream down")})

	_, err := ok.Generate(ctx, usecase.GenerateInput{Words: []domain.TargetWord{{ID: 1, Word: "시나브로", Meaning: "조금씩"}}})
	require.NoError(t, err)
	_, err = failing.Generate(ctx, usecase.GenerateInput{Words: []domain.TargetWord{{ID: 1, Word: "시나브로", Meaning: "조금씩"}}})
	require.Error(t, err)
	_, err = ok.Generate(ctx, usecase.GenerateInput{Words: []domain.TargetWord{{ID: 2, Word: "윤슬", Meaning: "잔물결"}}})
	require.NoError(t, err)

	_, err = ok.Generate(ctx, usecase.GenerateInput{Words: []domain.TargetWord{{ID: 3, Word: "가람", Meaning: "강"}}})
	var ucErr *usecase.Error
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, usecase.ErrorQuotaExceeded, ucErr.Code)

	rows, err := store.ListUsageLogs(context.Background(), "u1", domain.UsageQuery{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
}
