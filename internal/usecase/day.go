package usecase

import (
	"time"
	_ "time/tzdata"

	"github.com/sangukO/haru-word/internal/domain"
)

// DefaultLocation is the service home zone. Daily quotas reset and visit
// dates roll over at midnight here, whatever the caller's zone.
const DefaultLocation = "Asia/Seoul"

func startOfDay(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

func nextMidnight(t time.Time, loc *time.Location) time.Time {
	return startOfDay(t, loc).AddDate(0, 0, 1)
}

// QuotaWindow returns the start of the service day containing now and the
// instant the daily quota resets.
func QuotaWindow(now time.Time, loc *time.Location) (start, resetsAt time.Time) {
	loc = resolveLocation(loc)
	return startOfDay(now, loc), nextMidnight(now, loc)
}

func serviceDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(domain.DateLayout)
}

func resolveLocation(loc *time.Location) *time.Location {
	if loc != nil {
		return loc
	}
	if l, err := time.LoadLocation(DefaultLocation); err == nil {
		return l
	}
	return time.FixedZone("KST", 9*60*60)
}
