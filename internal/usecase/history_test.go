package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sangukO/haru-word/internal/domain"
)

func newHistoryFixture(t *testing.T, userID string) (*HistoryService, *memoryLogStore) {
	t.Helper()
	logs := newMemoryLogStore(fixedNow)
	svc, err := NewHistoryService(logs, staticIdentity{userID: userID})
	require.NoError(t, err)
	return svc, logs
}

func TestNewHistoryService_ValidatesDependencies(t *testing.T) {
	_, err := NewHistoryService(nil, staticIdentity{})
	require.Error(t, err)
	_, err = NewHistoryService(newMemoryLogStore(fixedNow), nil)
	require.Error(t, err)
}

func TestHistory_ReturnsSuccessesNewestFirst(t *testing.T) {
	svc, logs := newHistoryFixture(t, testUser)
	base := fixedNow()
	logs.seed(testUser, domain.UsageSuccess, base.Add(-3*time.Hour))
	logs.seed(testUser, domain.UsageFailure, base.Add(-2*time.Hour))
	logs.seed(testUser, domain.UsageSuccess, base.Add(-1*time.Hour))
	logs.seed("other", domain.UsageSuccess, base)

	got, err := svc.History(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "3", got[0].ID)
	require.Equal(t, "1", got[1].ID)
	for _, e := range got {
		require.Equal(t, domain.UsageSuccess, e.Status)
		require.Equal(t, testUser, e.UserID)
	}
	require.Equal(t, defaultHistoryLimit, logs.lastQuery.Limit)
	require.Equal(t, domain.UsageSuccess, logs.lastQuery.Status)
}

func TestHistory_ClampsLimit(t *testing.T) {
	svc, logs := newHistoryFixture(t, testUser)

	_, err := svc.History(context.Background(), 1000)
	require.NoError(t, err)
	require.Equal(t, maxHistoryLimit, logs.lastQuery.Limit)

	_, err = svc.History(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, 7, logs.lastQuery.Limit)
}

func TestHistory_EmptyIsNotNil(t *testing.T) {
	svc, _ := newHistoryFixture(t, testUser)

	got, err := svc.History(context.Background(), 10)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestHistory_Errors(t *testing.T) {
	svc, _ := newHistoryFixture(t, "")
	_, err := svc.History(context.Background(), 10)
	expectUsecaseError(t, err, ErrorUnauthenticated, "missing_identity")

	svc, logs := newHistoryFixture(t, testUser)
	logs.listErr = errors.New("scan failed")
	_, err = svc.History(context.Background(), 10)
	expectUsecaseError(t, err, ErrorInternal, "usage_list_error")
}
