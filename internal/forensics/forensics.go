// Package forensics ends navigations. Handle is the exception pathway: it
// captures whatever evidence the page still yields, uploads it, ends the
// navigation and saves it, and never fails. EndAsSuccess is the pathway
// for handlers that finished extracting.
package forensics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/trademark-crawler/internal/metrics"
	"github.com/JakeFAU/trademark-crawler/internal/navigation"
	"github.com/JakeFAU/trademark-crawler/internal/records"
	"github.com/JakeFAU/trademark-crawler/internal/storage"
)

// DefaultStepTimeout bounds each capture step.
const DefaultStepTimeout = 10 * time.Second

// Page is the live browser page of an attempt.
type Page interface {
	Title(ctx context.Context) (string, error)
	URL(ctx context.Context) (string, error)
	Content(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
}

// Session is the proxy identity of an attempt.
type Session interface {
	MarkBad()
}

// Attempt is everything known about one in-flight request.
type Attempt struct {
	Navigation *navigation.Navigation
	Page       Page
	Session    Session
	// RequestID names local mirror files.
	RequestID   string
	URL         string
	ResponseURL string
	LoadedURL   string
}

// Mirrors are optional local copies of captured evidence, keyed by outcome.
type Mirrors struct {
	FailureScreenshots storage.BlobStore
	FailureContent     storage.BlobStore
	SuccessScreenshots storage.BlobStore
	SuccessContent     storage.BlobStore
}

// Config controls a Handler.
type Config struct {
	StepTimeout time.Duration
	Mirrors     Mirrors
}

// Handler ends navigations and hands them to the sinks.
type Handler struct {
	artifacts *storage.ArtifactSink
	records   *records.Sink
	cfg       Config
	logger    *zap.Logger
}

// NewHandler builds a handler. Nil sinks fall back to unconfigured ones.
func NewHandler(artifacts *storage.ArtifactSink, recs *records.Sink, cfg Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if artifacts == nil {
		artifacts = storage.NewArtifactSink(nil, "", logger)
	}
	if recs == nil {
		recs = records.NewSink(records.WithLogger(logger))
	}
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = DefaultStepTimeout
	}
	return &Handler{artifacts: artifacts, records: recs, cfg: cfg, logger: logger.Named("forensics")}
}

type evidence struct {
	title      Probe[string]
	url        Probe[string]
	content    Probe[string]
	screenshot Probe[[]byte]
}

// capture runs each probe independently; one failing never skips another.
func (h *Handler) capture(ctx context.Context, page Page) evidence {
	var ev evidence
	if page == nil {
		missing := errors.New("no page")
		ev.title.Err, ev.url.Err, ev.content.Err, ev.screenshot.Err = missing, missing, missing, missing
		return ev
	}
	ev.title = run(ctx, h.cfg.StepTimeout, page.Title)
	ev.url = run(ctx, h.cfg.StepTimeout, page.URL)
	ev.content = run(ctx, h.cfg.StepTimeout, page.Content)
	ev.screenshot = run(ctx, h.cfg.StepTimeout, page.Screenshot)
	return ev
}

func (h *Handler) logProbeFailures(ev evidence, fields []zap.Field) {
	for _, p := range []struct {
		name string
		err  error
	}{
		{"title", ev.title.Err},
		{"url", ev.url.Err},
		{"content", ev.content.Err},
		{"screenshot", ev.screenshot.Err},
	} {
		if p.err == nil {
			continue
		}
		metrics.ObserveProbeFailure(p.name)
		h.logger.Warn("failed to retrieve page "+p.name, append(fields, zap.Error(p.err))...)
	}
}

// Retry handles an error on an attempt that will be retried.
func (h *Handler) Retry(ctx context.Context, a Attempt, err error) {
	h.Handle(ctx, navigation.Retry, a, err)
}

// Failure handles an error on the final attempt.
func (h *Handler) Failure(ctx context.Context, a Attempt, err error) {
	h.Handle(ctx, navigation.Failure, a, err)
}

// Handle records err on the attempt's navigation and ends it with outcome.
// It never returns an error and never panics.
func (h *Handler) Handle(ctx context.Context, outcome navigation.Outcome, a Attempt, err error) {
	nav := a.Navigation
	fields := attemptFields(a)
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("exception handler panicked", append(fields, zap.Any("panic", r))...)
		}
	}()

	h.logger.Error("encountered an error during navigation",
		append(fields,
			zap.String("outcome", string(outcome)),
			zap.String("response_url", a.ResponseURL),
			zap.String("loaded_url", a.LoadedURL),
			zap.Error(err))...)
	if nav != nil && err != nil {
		nav.DeclareException(err)
	}

	ev := h.capture(ctx, a.Page)
	h.logProbeFailures(ev, fields)

	if a.Session != nil {
		a.Session.MarkBad()
	}

	if nav != nil {
		ending := navigation.Ending{
			LandingURL: firstNonEmpty(probeValue(ev.url), a.ResponseURL, a.LoadedURL),
			Title:      probeValue(ev.title),
		}
		ending.ContentLocation, ending.ScreenshotLocation = h.upload(ctx, nav.ID(), ev)
		h.end(ctx, nav, outcome, ending)
	}

	h.mirror(ctx, mirrorName(a), ev, h.cfg.Mirrors.FailureScreenshots, h.cfg.Mirrors.FailureContent)
}

// EndAsSuccess ends the navigation as a success with the page's current
// state. A capture error is returned without ending the navigation so the
// caller's retry pathway can still record it.
func (h *Handler) EndAsSuccess(ctx context.Context, a Attempt) error {
	nav := a.Navigation
	if nav == nil {
		return fmt.Errorf("attempt has no navigation")
	}
	ev := h.capture(ctx, a.Page)
	for _, err := range []error{ev.url.Err, ev.title.Err, ev.content.Err, ev.screenshot.Err} {
		if err != nil {
			h.logProbeFailures(ev, attemptFields(a))
			return fmt.Errorf("capture page: %w", err)
		}
	}
	ending := navigation.Ending{LandingURL: ev.url.Value, Title: ev.title.Value}
	ending.ContentLocation, ending.ScreenshotLocation = h.upload(ctx, nav.ID(), ev)
	if !h.end(ctx, nav, navigation.Success, ending) {
		return navigation.ErrAlreadyEnded
	}
	h.mirror(ctx, mirrorName(a), ev, h.cfg.Mirrors.SuccessScreenshots, h.cfg.Mirrors.SuccessContent)
	return nil
}

func (h *Handler) upload(ctx context.Context, navID string, ev evidence) (content, screenshot string) {
	if ev.content.OK() && ev.content.Value != "" {
		content, _ = h.artifacts.PutContentHTML(ctx, navID, []byte(ev.content.Value))
	}
	if ev.screenshot.OK() && len(ev.screenshot.Value) > 0 {
		screenshot, _ = h.artifacts.PutScreenshotPNG(ctx, navID, ev.screenshot.Value)
	}
	return content, screenshot
}

func (h *Handler) end(ctx context.Context, nav *navigation.Navigation, outcome navigation.Outcome, e navigation.Ending) bool {
	ended, err := nav.DeclareEnding(outcome, e)
	if err != nil {
		h.logger.Warn("navigation could not be ended",
			zap.String("id", nav.ID()), zap.Int("attempt", nav.Attempt()), zap.String("outcome", string(outcome)), zap.Error(err))
		return false
	}
	metrics.ObserveNavigationEnded(ended.OfficeCode(), string(outcome))
	h.records.SaveNavigation(ctx, ended)
	return true
}

func (h *Handler) mirror(ctx context.Context, name string, ev evidence, screenshots, content storage.BlobStore) {
	if screenshots != nil && ev.screenshot.OK() && len(ev.screenshot.Value) > 0 {
		if _, err := screenshots.PutObject(ctx, name+"_screenshot.png", "image/png", bytes.NewReader(ev.screenshot.Value)); err != nil {
			h.logger.Warn("local screenshot mirror failed", zap.String("name", name), zap.Error(err))
		}
	}
	if content != nil && ev.content.OK() && ev.content.Value != "" {
		if _, err := content.PutObject(ctx, name+"_content.html", "text/html", bytes.NewReader([]byte(ev.content.Value))); err != nil {
			h.logger.Warn("local content mirror failed", zap.String("name", name), zap.Error(err))
		}
	}
}

func attemptFields(a Attempt) []zap.Field {
	fields := []zap.Field{zap.String("request_id", a.RequestID), zap.String("url", a.URL)}
	if a.Navigation != nil {
		fields = append(fields, zap.String("id", a.Navigation.ID()), zap.Int("attempt", a.Navigation.Attempt()))
	}
	return fields
}

func mirrorName(a Attempt) string {
	if a.RequestID != "" {
		return a.RequestID
	}
	if a.Navigation != nil {
		return a.Navigation.ID()
	}
	return "unknown"
}

func probeValue(p Probe[string]) string {
	if !p.OK() {
		return ""
	}
	return p.Value
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
