package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/sangukO/haru-word/internal/domain"
)

type mockParams struct {
	vals map[string]string
	err  error
}

func (m *mockParams) GetParameter(_ context.Context, name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.vals[name]
	if !ok {
		return "", fmt.Errorf("param not found: %s", name)
	}
	return v, nil
}

type transientParams struct {
	*mockParams
	failOnce bool
}

func (p *transientParams) GetParameter(ctx context.Context, name string) (string, error) {
	if p.failOnce {
		p.failOnce = false
		return "", errors.New("temporary ssm failure")
	}
	return p.mockParams.GetParameter(ctx, name)
}

type mockLLM struct {
	answer    string
	err       error
	panicWith any
	callCount int
	lastModel string
	lastMsgs  []domain.ChatMessage
}

func (m *mockLLM) Chat(_ context.Context, model string, msgs []domain.ChatMessage) (string, error) {
	m.callCount++
	m.lastModel = model
	m.lastMsgs = msgs
	if m.panicWith != nil {
		panic(m.panicWith)
	}
	return m.answer, m.err
}

type staticIdentity struct {
	userID string
}

func (s staticIdentity) CurrentUserID(context.Context) (string, bool) {
	return s.userID, s.userID != ""
}

// memoryLogStore is an in-memory usage log table. CreatedAt comes from clock.
type memoryLogStore struct {
	mu        sync.Mutex
	entries   []domain.UsageLogEntry
	clock     func() time.Time
	countErr  error
	insertErr error
	listErr   error

	countCalls  int
	lastSince   time.Time
	insertCtxOK bool
	lastQuery   domain.UsageQuery
}

func newMemoryLogStore(clock func() time.Time) *memoryLogStore {
	return &memoryLogStore{clock: clock}
}

func (m *memoryLogStore) seed(userID string, status domain.UsageStatus, createdAt time.Time) {
	var e domain.UsageLogEntry
	if status == domain.UsageSuccess {
		e = domain.NewSuccessEntry(userID, domain.FeatureSentenceGeneration, []int64{1}, "seeded")
	} else {
		e = domain.NewFailureEntry(userID, domain.FeatureSentenceGeneration, []int64{1}, "seeded")
	}
	e.ID = strconv.Itoa(len(m.entries) + 1)
	e.CreatedAt = createdAt
	m.entries = append(m.entries, e)
}

func (m *memoryLogStore) CountUsageSince(_ context.Context, userID string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countCalls++
	m.lastSince = since
	if m.countErr != nil {
		return 0, m.countErr
	}
	n := 0
	for _, e := range m.entries {
		if e.UserID == userID && !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memoryLogStore) InsertUsageLog(ctx context.Context, entry domain.UsageLogEntry) (domain.UsageLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertCtxOK = ctx.Err() == nil
	if m.insertErr != nil {
		return domain.UsageLogEntry{}, m.insertErr
	}
	if err := entry.Validate(); err != nil {
		return domain.UsageLogEntry{}, err
	}
	entry.ID = strconv.Itoa(len(m.entries) + 1)
	entry.CreatedAt = m.clock()
	m.entries = append(m.entries, entry)
	return entry, nil
}

func (m *memoryLogStore) ListUsageLogs(_ context.Context, userID string, q domain.UsageQuery) ([]domain.UsageLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQuery = q
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.UsageLogEntry
	for _, e := range m.entries {
		if e.UserID != userID {
			continue
		}
		if q.Status != "" && e.Status != q.Status {
			continue
		}
		if !q.From.IsZero() && e.CreatedAt.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && !e.CreatedAt.Before(q.To) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memoryLogStore) rowsFor(userID string) []domain.UsageLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.UsageLogEntry
	for _, e := range m.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

type memoryVisitStore struct {
	visits   map[string]map[string]bool
	writeErr error
	listErr  error
}

func newMemoryVisitStore() *memoryVisitStore {
	return &memoryVisitStore{visits: map[string]map[string]bool{}}
}

func (m *memoryVisitStore) RecordVisit(_ context.Context, userID, visitDate string) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	if m.visits[userID] == nil {
		m.visits[userID] = map[string]bool{}
	}
	m.visits[userID][visitDate] = true
	return nil
}

func (m *memoryVisitStore) ListVisits(_ context.Context, userID, fromDate, toDate string) ([]domain.DailyVisit, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.DailyVisit
	for d := range m.visits[userID] {
		if d >= fromDate && d <= toDate {
			out = append(out, domain.DailyVisit{UserID: userID, VisitDate: d})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VisitDate < out[j].VisitDate })
	return out, nil
}
