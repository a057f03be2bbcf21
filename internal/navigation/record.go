package navigation

import (
	"encoding/json"
	"time"
)

// TypeName names navigation rows in local fallback files.
const TypeName = "Navigation"

// CollectedURLs holds parallel label and url sequences in insertion order.
type CollectedURLs struct {
	Label []string `json:"label"`
	URL   []string `json:"url"`
}

// Record is the wire row of a Navigation. Nil pointers and maps render as
// null.
type Record struct {
	ID                  string            `json:"id"`
	Attempt             int               `json:"attempt"`
	ParentID            *string           `json:"parent_id"`
	Outcome             *Outcome          `json:"outcome"`
	StartedAt           time.Time         `json:"started_at"`
	StartedAtMs         int               `json:"started_at_ms"`
	EndedAt             *time.Time        `json:"ended_at"`
	EndedAtMs           *int              `json:"ended_at_ms"`
	Domain              *string           `json:"domain"`
	Host                *string           `json:"host"`
	URL                 string            `json:"url"`
	SessionID           *string           `json:"session_id"`
	Method              string            `json:"method"`
	RequestHeaders      map[string]string `json:"request_headers"`
	RequestProxy        *Proxy            `json:"request_proxy"`
	RemoteAddress       *string           `json:"remote_address"`
	RemotePort          *int              `json:"remote_port"`
	Redirected          *bool             `json:"redirected"`
	SecurityDetails     map[string]any    `json:"security_details"`
	StatusCode          *int              `json:"status_code"`
	ResponseHeaders     map[string]string `json:"response_headers"`
	LandingDomain       *string           `json:"landing_domain"`
	LandingHost         *string           `json:"landing_host"`
	LandingURL          *string           `json:"landing_url"`
	Title               *string           `json:"title"`
	ContentLocation     *string           `json:"content_location"`
	ScreenshotLocation  *string           `json:"screenshot_location"`
	CollectedURLs       CollectedURLs     `json:"collected_urls"`
	OfficeCode          *string           `json:"office_code"`
	Tags                Tags              `json:"tags"`
	ExceptionPresent    *bool             `json:"exception_present"`
	ExceptionName       *string           `json:"exception_name"`
	ExceptionType       *string           `json:"exception_type"`
	ExceptionMessage    *string           `json:"exception_message"`
	ExceptionStackTrace *string           `json:"exception_stack_trace"`
}

func (r Record) clone() Record {
	out := r
	out.RequestHeaders = cloneStrings(r.RequestHeaders)
	out.ResponseHeaders = cloneStrings(r.ResponseHeaders)
	out.SecurityDetails = cloneTags(r.SecurityDetails)
	out.Tags = cloneTags(r.Tags)
	out.CollectedURLs = CollectedURLs{
		Label: append([]string{}, r.CollectedURLs.Label...),
		URL:   append([]string{}, r.CollectedURLs.URL...),
	}
	if r.RequestProxy != nil {
		px := *r.RequestProxy
		out.RequestProxy = &px
	}
	return out
}

// MarshalJSON renders the wire row.
func (n *Navigation) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.rec)
}

// RecordID implements records.Record.
func (n *Navigation) RecordID() string { return n.rec.ID }

// RecordAttempt implements records.Record.
func (n *Navigation) RecordAttempt() (int, bool) { return n.rec.Attempt, true }

// RecordType implements records.Record.
func (n *Navigation) RecordType() string { return TypeName }
