package usecase

import (
	"context"
	"errors"

	"github.com/sangukO/haru-word/internal/domain"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

type UsageLogReader interface {
	ListUsageLogs(ctx context.Context, userID string, q domain.UsageQuery) ([]domain.UsageLogEntry, error)
}

// HistoryService lists the sentences a user has generated.
type HistoryService struct {
	logs     UsageLogReader
	identity IdentityResolver
}

func NewHistoryService(logs UsageLogReader, identity IdentityResolver) (*HistoryService, error) {
	if logs == nil {
		return nil, errors.New("usecase: usage log reader must not be nil")
	}
	if identity == nil {
		return nil, errors.New("usecase: identity resolver must not be nil")
	}
	return &HistoryService{logs: logs, identity: identity}, nil
}

// History returns the current user's successful generations, newest first.
func (s *HistoryService) History(ctx context.Context, limit int) ([]domain.UsageLogEntry, error) {
	userID, err := currentUser(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	entries, err := s.logs.ListUsageLogs(ctx, userID, domain.UsageQuery{
		Status: domain.UsageSuccess,
		Limit:  limit,
	})
	if err != nil {
		return nil, newError(ErrorInternal, "usage_list_error", err)
	}
	if entries == nil {
		entries = []domain.UsageLogEntry{}
	}
	return entries, nil
}
