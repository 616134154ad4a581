package domain

// DateLayout is the calendar-date format used for visit dates and activity cells.
const DateLayout = "2006-01-02"

// DailyVisit marks that a user opened the service on a service-zone calendar day.
type DailyVisit struct {
	UserID    string
	VisitDate string
}

// ActivityDay is one cell of the yearly activity heatmap.
type ActivityDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}
