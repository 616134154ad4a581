package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/sangukO/haru-word/internal/domain"
)

const (
	minActivityYear = 2000
	maxActivityYear = 2100
)

type VisitStore interface {
	RecordVisit(ctx context.Context, userID, visitDate string) error
	ListVisits(ctx context.Context, userID, fromDate, toDate string) ([]domain.DailyVisit, error)
}

// ActivityService records daily attendance and builds the yearly activity
// heatmap from visits and successful generations.
type ActivityService struct {
	visits   VisitStore
	logs     UsageLogReader
	identity IdentityResolver
	location *time.Location
	now      func() time.Time
}

func NewActivityService(visits VisitStore, logs UsageLogReader, identity IdentityResolver, loc *time.Location) (*ActivityService, error) {
	if visits == nil {
		return nil, errors.New("usecase: visit store must not be nil")
	}
	if logs == nil {
		return nil, errors.New("usecase: usage log reader must not be nil")
	}
	if identity == nil {
		return nil, errors.New("usecase: identity resolver must not be nil")
	}
	return &ActivityService{
		visits:   visits,
		logs:     logs,
		identity: identity,
		location: resolveLocation(loc),
		now:      time.Now,
	}, nil
}

// RecordVisit marks today (service zone) as visited. Repeated calls on the
// same day are no-ops.
func (s *ActivityService) RecordVisit(ctx context.Context) (string, error) {
	userID, err := currentUser(ctx, s.identity)
	if err != nil {
		return "", err
	}
	today := serviceDate(s.now(), s.location)
	if err := s.visits.RecordVisit(ctx, userID, today); err != nil {
		return "", newError(ErrorInternal, "visit_write_error", err)
	}
	return today, nil
}

// Activity returns one cell per calendar day of year. A day scores one for a
// visit plus one per successful generation.
func (s *ActivityService) Activity(ctx context.Context, year int) ([]domain.ActivityDay, error) {
	userID, err := currentUser(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	if year < minActivityYear || year > maxActivityYear {
		return nil, newError(ErrorInvalidInput, "year_out_of_range", nil)
	}

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, s.location)
	to := from.AddDate(1, 0, 0)
	last := to.AddDate(0, 0, -1)

	visits, err := s.visits.ListVisits(ctx, userID, from.Format(domain.DateLayout), last.Format(domain.DateLayout))
	if err != nil {
		return nil, newError(ErrorInternal, "visit_list_error", err)
	}
	logs, err := s.logs.ListUsageLogs(ctx, userID, domain.UsageQuery{
		Status: domain.UsageSuccess,
		From:   from,
		To:     to,
	})
	if err != nil {
		return nil, newError(ErrorInternal, "usage_list_error", err)
	}

	scores := make(map[string]int, len(visits)+len(logs))
	for _, v := range visits {
		scores[v.VisitDate]++
	}
	for _, e := range logs {
		if e.Status != domain.UsageSuccess {
			continue
		}
		scores[serviceDate(e.CreatedAt, s.location)]++
	}

	days := make([]domain.ActivityDay, 0, 366)
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		date := d.Format(domain.DateLayout)
		days = append(days, domain.ActivityDay{Date: date, Count: scores[date]})
	}
	return days, nil
}
