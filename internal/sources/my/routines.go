package my

import (
	"time"

	"github.com/JakeFAU/trademark-crawler/internal/engine"
	"github.com/JakeFAU/trademark-crawler/internal/navigation"
	"github.com/JakeFAU/trademark-crawler/internal/requestkey"
)

// Tag names carried on request user data and copied onto navigations.
const (
	TagFilterKey      = "filterKey"
	TagFilterStrategy = "filterStrategy"
	TagFilterValue    = "filterValue"
	TagPageNumber     = "pageNumber"
	TagRequestDate    = "requestDate"
)

// UserData is the typed form of a search request's tags.
type UserData struct {
	FilterKey      FilterKey
	FilterStrategy FilterStrategy
	// Value is the literal filter value for Value searches.
	Value string
	// Start and End bound date searches. Day searches set both.
	Start time.Time
	End   time.Time
	// PageNumber is 1-based; zero means the first page.
	PageNumber  int
	RequestDate time.Time
}

// Page returns the page number, defaulting to 1.
func (u UserData) Page() int {
	if u.PageNumber < 1 {
		return 1
	}
	return u.PageNumber
}

// FilterValue returns the value as it is stored in tags: a calendar date for
// Day, a [start, end] pair for DateRange, the literal otherwise.
func (u UserData) FilterValue() any {
	switch {
	case u.FilterStrategy == DateRange:
		return []string{formatDate(u.Start), formatDate(u.End)}
	case u.FilterKey.IsDate() && !u.Start.IsZero():
		return formatDate(u.Start)
	default:
		return u.Value
	}
}

// Tags renders u into navigation tags.
func (u UserData) Tags() navigation.Tags {
	tags := navigation.Tags{
		TagFilterKey:      string(u.FilterKey),
		TagFilterStrategy: string(u.FilterStrategy),
		TagFilterValue:    u.FilterValue(),
		TagPageNumber:     u.Page(),
	}
	if !u.RequestDate.IsZero() {
		tags[TagRequestDate] = u.RequestDate.UTC().Format(time.RFC3339)
	}
	return tags
}

// ComposeRequests builds one Day request per date-valued filter key for
// every calendar day from start to end inclusive.
func ComposeRequests(start, end time.Time) []*engine.Request {
	start, end = truncateDay(start), truncateDay(end)
	keys := DateFilterKeys()
	var reqs []*engine.Request
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		for _, key := range keys {
			reqs = append(reqs, ComposeDateRequest(key, day))
		}
	}
	return reqs
}

// ComposeRequestsForDate builds the requests for a single day.
func ComposeRequestsForDate(date time.Time) []*engine.Request {
	return ComposeRequests(date, date)
}

// ComposeDateRequest builds the first-page Day search for key on date.
func ComposeDateRequest(key FilterKey, date time.Time) *engine.Request {
	date = truncateDay(date)
	return ComposeRequest(UserData{
		FilterKey:      key,
		FilterStrategy: Day,
		Start:          date,
		End:            date,
		PageNumber:     1,
	}, time.Time{})
}

// ComposeApplicationDateRequest searches by application date.
func ComposeApplicationDateRequest(date time.Time) *engine.Request {
	return ComposeDateRequest(ApplicationDate, date)
}

// ComposePublicationDateRequest searches by publication date.
func ComposePublicationDateRequest(date time.Time) *engine.Request {
	return ComposeDateRequest(PublicationDate, date)
}

// ComposeCaseNumberRequest looks up a single case. now dates the key.
func ComposeCaseNumberRequest(caseNumber string, now time.Time) *engine.Request {
	return ComposeRequest(UserData{
		FilterKey:      CaseNumber,
		FilterStrategy: Value,
		Value:          caseNumber,
		PageNumber:     1,
		RequestDate:    now,
	}, now)
}

// ComposeRequest builds a request for arbitrary user data. Date-keyed
// searches are keyed on their start date; any other search on the request
// date, then now.
func ComposeRequest(u UserData, now time.Time) *engine.Request {
	var filterDate time.Time
	if u.FilterKey.IsDate() {
		filterDate = u.Start
	}
	if now.IsZero() {
		now = time.Now()
	}
	date := requestkey.ReferenceDate(string(u.FilterKey), filterDate, u.RequestDate, now)
	return &engine.Request{
		URL: StartingURL,
		UniqueKey: requestkey.Derive(OfficeCode, string(u.FilterKey), string(u.FilterStrategy),
			date, u.Page()),
		UserData: engine.UserData{
			OfficeCode: OfficeCode,
			Tags:       u.Tags(),
		},
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func formatDate(t time.Time) string {
	return t.Format(requestkey.DateLayout)
}
