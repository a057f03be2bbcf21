// Package navigation tracks one browser round-trip from dispatch through
// landing to its terminal outcome.
//
// A Navigation moves through Created, optionally Landed, and Ended. Ended is
// terminal: every mutator returns ErrAlreadyEnded once an outcome is set.
// A Navigation is owned by the single attempt that created it and is not
// safe for concurrent mutation.
package navigation

import (
	"errors"
	"fmt"
	"time"

	"github.com/JakeFAU/trademark-crawler/internal/clock/system"
	"github.com/JakeFAU/trademark-crawler/internal/id"
	"github.com/JakeFAU/trademark-crawler/internal/urlparts"
)

// ErrAlreadyEnded is returned by mutators called after DeclareEnding.
var ErrAlreadyEnded = errors.New("navigation already ended")

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces unique, time-ordered identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// State is the lifecycle position of a Navigation.
type State int

// Lifecycle states.
const (
	Created State = iota
	Landed
	Ended
)

func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case Landed:
		return "Landed"
	case Ended:
		return "Ended"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Proxy describes the upstream proxy an attempt was routed through.
type Proxy struct {
	Host string `json:"host"`
	Port string `json:"port"`
	User string `json:"user,omitempty"`
}

// Tags is caller-supplied context. The navigation never interprets it.
type Tags map[string]any

// Params describes the outbound request of a new Navigation.
type Params struct {
	// ParentID links this navigation to the one that enqueued it.
	ParentID string
	// Previous is the prior navigation of the same chain. Its id becomes
	// the parent id when ParentID is empty.
	Previous   *Navigation
	Attempt    int
	OfficeCode string
	SessionID  string
	Proxy      *Proxy
	Method     string
	URL        string
	Headers    map[string]string
	Tags       Tags
}

// Landing carries landing data. Nil fields leave the recorded value alone.
type Landing struct {
	URL             *string
	RequestHeaders  map[string]string
	Status          *int
	ResponseHeaders map[string]string
	RemoteAddress   *string
	RemotePort      *int
	SecurityDetails map[string]any
}

func (l Landing) empty() bool {
	return l.URL == nil && l.RequestHeaders == nil && l.Status == nil &&
		l.ResponseHeaders == nil && l.RemoteAddress == nil && l.RemotePort == nil &&
		l.SecurityDetails == nil
}

// Ending carries the terminal artifacts. Empty strings mean unavailable.
type Ending struct {
	LandingURL         string
	Title              string
	ContentLocation    string
	ScreenshotLocation string
}

// Option customises construction.
type Option func(*options)

type options struct {
	clock Clock
	ids   IDGenerator
}

// WithClock overrides the clock used for started/ended timestamps.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithIDGenerator overrides identifier generation.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) { o.ids = g }
}

// Navigation is the state-tracked record of one navigation attempt.
type Navigation struct {
	rec   Record
	state State
	clock Clock
}

// New creates a Navigation with a fresh id. Each attempt of the same unit
// of work gets its own Navigation.
func New(p Params, opts ...Option) (*Navigation, error) {
	o := options{clock: system.New(), ids: id.NewGenerator()}
	for _, opt := range opts {
		opt(&o)
	}
	if p.URL == "" {
		return nil, fmt.Errorf("navigation url is required")
	}
	navID, err := o.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("navigation id: %w", err)
	}
	method := p.Method
	if method == "" {
		method = "GET"
	}
	parentID := p.ParentID
	if parentID == "" && p.Previous != nil {
		parentID = p.Previous.ID()
	}

	started, startedMs := system.Parts(o.clock.Now())
	host, domain := urlparts.Split(p.URL)
	rec := Record{
		ID:             navID,
		Attempt:        p.Attempt,
		ParentID:       optional(parentID),
		OfficeCode:     optional(p.OfficeCode),
		SessionID:      optional(p.SessionID),
		Method:         method,
		URL:            p.URL,
		Host:           optional(host),
		Domain:         optional(domain),
		RequestHeaders: cloneStrings(p.Headers),
		StartedAt:      started,
		StartedAtMs:    startedMs,
		CollectedURLs:  CollectedURLs{Label: []string{}, URL: []string{}},
		Tags:           cloneTags(p.Tags),
	}
	if p.Proxy != nil {
		px := *p.Proxy
		rec.RequestProxy = &px
	}
	return &Navigation{rec: rec, state: Created, clock: o.clock}, nil
}

// ID returns the navigation identifier.
func (n *Navigation) ID() string { return n.rec.ID }

// Attempt returns the 0-based retry counter.
func (n *Navigation) Attempt() int { return n.rec.Attempt }

// URL returns the originally requested URL.
func (n *Navigation) URL() string { return n.rec.URL }

// OfficeCode returns the office the attempt belongs to.
func (n *Navigation) OfficeCode() string { return deref(n.rec.OfficeCode) }

// LandingURL returns the recorded landing URL, if any.
func (n *Navigation) LandingURL() string { return deref(n.rec.LandingURL) }

// State returns the lifecycle state.
func (n *Navigation) State() State { return n.state }

// Ended reports whether an outcome has been set.
func (n *Navigation) Ended() bool { return n.state == Ended }

// Record returns a copy of the current field set.
func (n *Navigation) Record() Record { return n.rec.clone() }

// DeclareLanding records landing data. Nil fields in l leave existing
// values untouched. When l.URL is set, the landing url, host, domain and
// redirected flag are derived from it together.
func (n *Navigation) DeclareLanding(l Landing) error {
	if n.Ended() {
		return ErrAlreadyEnded
	}
	n.applyLanding(l)
	return nil
}

func (n *Navigation) applyLanding(l Landing) {
	if l.empty() {
		return
	}
	if l.Status != nil {
		n.rec.StatusCode = ptr(*l.Status)
	}
	if l.RequestHeaders != nil {
		n.rec.RequestHeaders = cloneStrings(l.RequestHeaders)
	}
	if l.ResponseHeaders != nil {
		n.rec.ResponseHeaders = cloneStrings(l.ResponseHeaders)
	}
	if l.RemoteAddress != nil {
		n.rec.RemoteAddress = optional(*l.RemoteAddress)
	}
	if l.RemotePort != nil {
		n.rec.RemotePort = ptr(*l.RemotePort)
	}
	if l.SecurityDetails != nil {
		n.rec.SecurityDetails = cloneTags(l.SecurityDetails)
	}
	if n.state == Created {
		n.state = Landed
	}
	if l.URL == nil {
		return
	}
	landing := *l.URL
	host, domain := urlparts.Split(landing)
	n.rec.LandingURL = optional(landing)
	n.rec.LandingHost = optional(host)
	n.rec.LandingDomain = optional(domain)
	n.rec.Redirected = ptr(landing != n.rec.URL)
}

// DeclareException records err. Only the first exception is kept; the
// return value reports whether err was recorded.
func (n *Navigation) DeclareException(err error) bool {
	if err == nil || n.Ended() || n.rec.ExceptionPresent != nil {
		return false
	}
	ex := describe(err)
	n.rec.ExceptionPresent = optional(true)
	n.rec.ExceptionName = optional(ex.name)
	n.rec.ExceptionType = optional(ex.typeName)
	n.rec.ExceptionMessage = optional(ex.message)
	n.rec.ExceptionStackTrace = optional(ex.stack)
	return true
}

// DeclareEnding sets the outcome and end timestamp exactly once. A landing
// URL that differs from the recorded one is declared as a landing first.
// It returns the navigation for direct hand-off to a sink.
func (n *Navigation) DeclareEnding(outcome Outcome, e Ending) (*Navigation, error) {
	if n.Ended() {
		return n, ErrAlreadyEnded
	}
	if !outcome.Valid() {
		return n, fmt.Errorf("invalid outcome %q", outcome)
	}
	if e.LandingURL != "" && e.LandingURL != n.LandingURL() {
		n.applyLanding(Landing{URL: &e.LandingURL})
	}
	now := n.clock.Now()
	if started := n.rec.StartedAt.Add(time.Duration(n.rec.StartedAtMs) * time.Millisecond); now.Before(started) {
		now = started
	}
	ended, endedMs := system.Parts(now)
	n.rec.Title = optional(e.Title)
	n.rec.ContentLocation = optional(e.ContentLocation)
	n.rec.ScreenshotLocation = optional(e.ScreenshotLocation)
	n.rec.Outcome = optional(outcome)
	n.rec.EndedAt = &ended
	n.rec.EndedAtMs = ptr(endedMs)
	n.state = Ended
	return n, nil
}

// CollectURL appends one labelled URL.
func (n *Navigation) CollectURL(label, url string) error {
	if n.Ended() {
		return ErrAlreadyEnded
	}
	n.rec.CollectedURLs.Label = append(n.rec.CollectedURLs.Label, label)
	n.rec.CollectedURLs.URL = append(n.rec.CollectedURLs.URL, url)
	return nil
}

// CollectURLs appends urls under a single label, in order.
func (n *Navigation) CollectURLs(label string, urls []string) error {
	for _, u := range urls {
		if err := n.CollectURL(label, u); err != nil {
			return err
		}
	}
	return nil
}

// optional returns nil for the zero value of T.
func optional[T comparable](v T) *T {
	var zero T
	if v == zero {
		return nil
	}
	return &v
}

func ptr[T any](v T) *T {
	return &v
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func cloneStrings(src map[string]string) map[string]string {
	if src == nil {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func cloneTags[M ~map[string]any](src M) M {
	if src == nil {
		return nil
	}
	dst := make(M, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
