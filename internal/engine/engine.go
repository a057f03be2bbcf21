// Package engine runs crawl requests through a browser with bounded
// concurrency, a per-host request ceiling, retries and session rotation.
// Every attempt gets its own Navigation; errors are routed to the
// forensics handler.
package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/trademark-crawler/internal/browser"
	"github.com/JakeFAU/trademark-crawler/internal/crawlerr"
	"github.com/JakeFAU/trademark-crawler/internal/forensics"
	"github.com/JakeFAU/trademark-crawler/internal/id"
	"github.com/JakeFAU/trademark-crawler/internal/metrics"
	"github.com/JakeFAU/trademark-crawler/internal/navigation"
	"github.com/JakeFAU/trademark-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/trademark-crawler/internal/queue/memory"
	"github.com/JakeFAU/trademark-crawler/internal/seen"
	"github.com/JakeFAU/trademark-crawler/internal/session"
)

// Defaults.
const (
	DefaultConcurrency    = 5
	DefaultMaxAttempts    = 5
	DefaultHandlerTimeout = 6000 * time.Second
)

var errPermanent = errors.New("permanent failure")

// Permanent marks err so the request is failed without further retries.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", errPermanent, err)
}

// Page is a browser tab.
type Page interface {
	forensics.Page
	Navigate(ctx context.Context, url string, headers map[string]string) (browser.Response, error)
	Close()
}

// Opener opens a page for a session.
type Opener func(ctx context.Context, sess browser.Session) (Page, error)

// DriverOpener adapts a chromedp driver.
func DriverOpener(d *browser.Driver) Opener {
	return func(ctx context.Context, sess browser.Session) (Page, error) {
		tab, err := d.Open(ctx, sess)
		if err != nil {
			return nil, err
		}
		return tab, nil
	}
}

// Handler processes a landed page. Returning an error fails the attempt.
type Handler func(ctx context.Context, c *Context) error

// Config controls the engine.
type Config struct {
	Concurrency    int
	MaxAttempts    int
	HandlerTimeout time.Duration
}

// Deps are the engine's collaborators. Sessions, Seen and Limiter are
// optional.
type Deps struct {
	Open      Opener
	Handler   Handler
	Forensics *forensics.Handler
	Sessions  *session.Pool
	Limiter   *ratelimit.Limiter
	Seen      seen.Store
	IDs       session.IDGenerator
	Logger    *zap.Logger
}

// Engine is a single crawl run.
type Engine struct {
	cfg  Config
	deps Deps

	queue   *memory.Queue[*Request]
	pending atomic.Int64
	keysMu  sync.Mutex
	keys    map[string]struct{}
	logger  *zap.Logger
}

// New validates deps and builds an engine.
func New(cfg Config, deps Deps) (*Engine, error) {
	if deps.Open == nil {
		return nil, fmt.Errorf("page opener is required")
	}
	if deps.Handler == nil {
		return nil, fmt.Errorf("request handler is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = DefaultHandlerTimeout
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Forensics == nil {
		deps.Forensics = forensics.NewHandler(nil, nil, forensics.Config{}, deps.Logger)
	}
	if deps.Limiter == nil {
		deps.Limiter = ratelimit.New(ratelimit.Config{})
	}
	if deps.Seen == nil {
		deps.Seen = seen.Nop{}
	}
	if deps.IDs == nil {
		deps.IDs = id.NewGenerator()
	}
	return &Engine{
		cfg:    cfg,
		deps:   deps,
		queue:  memory.NewQueue[*Request](),
		keys:   make(map[string]struct{}),
		logger: deps.Logger.Named("engine"),
	}, nil
}

// Run enqueues seeds and processes requests until none remain or ctx ends.
func (e *Engine) Run(ctx context.Context, seeds ...*Request) error {
	if _, err := e.AddRequests(ctx, seeds...); err != nil {
		return err
	}
	if e.pending.Load() == 0 {
		e.queue.Close()
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < e.cfg.Concurrency; i++ {
		workerID := i
		g.Go(func() error {
			e.work(gctx, workerID)
			return nil
		})
	}
	stop := context.AfterFunc(ctx, e.queue.Close)
	defer stop()
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("crawl interrupted: %w", err)
	}
	return nil
}

// AddRequests enqueues reqs, skipping duplicates and keys already completed
// in an earlier run. It returns the number accepted.
func (e *Engine) AddRequests(ctx context.Context, reqs ...*Request) (int, error) {
	accepted := 0
	for _, req := range reqs {
		if req == nil || req.URL == "" {
			continue
		}
		if req.Method == "" {
			req.Method = http.MethodGet
		}
		if req.UniqueKey == "" {
			req.UniqueKey = req.URL
		}
		if req.ID == "" {
			rid, err := e.deps.IDs.NewID()
			if err != nil {
				return accepted, fmt.Errorf("request id: %w", err)
			}
			req.ID = rid
		}
		if !e.claim(req.UniqueKey) {
			continue
		}
		done, err := e.deps.Seen.Seen(ctx, req.UniqueKey)
		if err != nil {
			e.logger.Warn("seen lookup failed; enqueuing anyway", zap.String("unique_key", req.UniqueKey), zap.Error(err))
		}
		if done {
			metrics.ObserveRequestSkipped()
			e.logger.Info("request already completed; skipping", zap.String("unique_key", req.UniqueKey))
			continue
		}
		e.pending.Add(1)
		if err := e.queue.Enqueue(req); err != nil {
			e.pending.Add(-1)
			return accepted, fmt.Errorf("enqueue %s: %w", req.UniqueKey, err)
		}
		accepted++
	}
	return accepted, nil
}

func (e *Engine) claim(key string) bool {
	e.keysMu.Lock()
	defer e.keysMu.Unlock()
	if _, ok := e.keys[key]; ok {
		return false
	}
	e.keys[key] = struct{}{}
	return true
}

func (e *Engine) work(ctx context.Context, workerID int) {
	for {
		if ctx.Err() != nil {
			return
		}
		req, err := e.queue.Dequeue(ctx)
		if err != nil {
			return
		}
		metrics.IncActiveWorkers()
		requeued := e.process(ctx, req)
		metrics.DecActiveWorkers()
		if !requeued && e.pending.Add(-1) == 0 {
			e.queue.Close()
		}
		e.logger.Debug("request processed", zap.Int("worker", workerID), zap.String("request_id", req.ID), zap.Bool("requeued", requeued))
	}
}

// process runs one attempt and reports whether the request was put back
// for another attempt.
func (e *Engine) process(ctx context.Context, req *Request) bool {
	c, err := e.attempt(ctx, req)
	// The page and session outlive the attempt so forensics can still
	// capture and mark them.
	defer e.release(c)
	if err == nil {
		if c.Navigation != nil && !c.Navigation.Ended() {
			e.logger.Warn("handler returned without ending navigation",
				zap.String("id", c.Navigation.ID()), zap.String("request_id", req.ID))
		}
		if _, err := e.deps.Seen.MarkSeen(ctx, req.UniqueKey); err != nil {
			e.logger.Warn("seen mark failed", zap.String("unique_key", req.UniqueKey), zap.Error(err))
		}
		return false
	}
	if ctx.Err() != nil {
		e.deps.Forensics.Failure(context.WithoutCancel(ctx), c.forensicAttempt(), err)
		return false
	}

	final := errors.Is(err, errPermanent) || req.RetryCount+1 >= e.cfg.MaxAttempts
	if final {
		e.deps.Forensics.Failure(ctx, c.forensicAttempt(), err)
		return false
	}
	e.deps.Forensics.Retry(ctx, c.forensicAttempt(), err)
	req.RetryCount++
	if qerr := e.queue.Enqueue(req); qerr != nil {
		e.logger.Error("could not requeue request", zap.String("request_id", req.ID), zap.Error(qerr))
		return false
	}
	return true
}

func (e *Engine) attempt(ctx context.Context, req *Request) (c *Context, err error) {
	c = &Context{Request: req, engine: e, Logger: e.logger.With(zap.String("request_id", req.ID))}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("request handler panicked: %v", r)
		}
	}()

	if err := e.deps.Limiter.Wait(ctx, req.URL); err != nil {
		return c, err
	}
	if e.deps.Sessions != nil {
		sess, err := e.deps.Sessions.Get()
		if err != nil {
			return c, err
		}
		c.Session = sess
	}

	if err := e.preNavigation(c); err != nil {
		return c, err
	}

	actx, cancel := context.WithTimeout(ctx, e.cfg.HandlerTimeout)
	defer cancel()

	var bs browser.Session
	if c.Session != nil {
		bs = browser.Session{ID: c.Session.ID, ProxyURL: c.Session.ProxyURL}
	}
	page, err := e.deps.Open(actx, bs)
	if err != nil {
		return c, fmt.Errorf("open page: %w", err)
	}
	c.Page = page

	resp, navErr := page.Navigate(actx, req.URL, req.Headers)
	c.Response = resp
	e.postNavigation(c)
	if navErr != nil {
		if errors.Is(navErr, context.DeadlineExceeded) {
			return c, &crawlerr.ResponseTimeoutError{
				Message: navErr.Error(),
				Request: crawlerr.RequestContext{Method: req.Method, URL: req.URL},
			}
		}
		return c, navErr
	}
	req.LoadedURL = resp.URL
	if blockedStatus(resp.Status) {
		return c, &crawlerr.ResponseStatusError{
			Message:  "blocked by registry",
			Request:  crawlerr.RequestContext{Method: req.Method, URL: req.URL},
			Response: crawlerr.ResponseContext{Status: resp.Status, URL: resp.URL},
		}
	}
	if err := e.deps.Handler(actx, c); err != nil {
		return c, err
	}
	return c, nil
}

func (e *Engine) release(c *Context) {
	if c.Page != nil {
		c.Page.Close()
	}
	if c.Session != nil && e.deps.Sessions != nil {
		e.deps.Sessions.Release(c.Session)
	}
}

func blockedStatus(status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

// preNavigation creates the attempt's Navigation, chained to the previous
// attempt when there is one.
func (e *Engine) preNavigation(c *Context) error {
	req := c.Request
	tags := cloneTags(req.UserData.Tags)
	if tags == nil {
		tags = navigation.Tags{}
	}
	tags["requestId"] = req.ID

	p := navigation.Params{
		ParentID:   req.UserData.ParentID,
		Previous:   req.UserData.Navigation,
		Attempt:    req.RetryCount,
		OfficeCode: req.UserData.OfficeCode,
		Method:     req.Method,
		URL:        req.URL,
		Headers:    req.Headers,
		Tags:       tags,
	}
	if c.Session != nil {
		p.SessionID = c.Session.ID
		p.Proxy = c.Session.Proxy()
	}
	nav, err := navigation.New(p)
	if err != nil {
		return err
	}
	req.UserData.Navigation = nav
	c.Navigation = nav
	c.Logger.Info("beginning new navigation",
		zap.String("id", nav.ID()), zap.Int("attempt", nav.Attempt()),
		zap.String("url", req.URL), zap.String("office_code", req.UserData.OfficeCode))
	return nil
}

// postNavigation records the landing from the browser response.
func (e *Engine) postNavigation(c *Context) {
	if c.Navigation == nil {
		return
	}
	if c.Response.URL == "" && c.Response.Status == 0 {
		c.Logger.Warn("no response found for request", zap.String("id", c.Navigation.ID()))
		return
	}
	if err := c.Navigation.DeclareLanding(c.Response.Landing()); err != nil {
		c.Logger.Warn("landing not recorded", zap.String("id", c.Navigation.ID()), zap.Error(err))
		return
	}
	c.Logger.Info("initial page landing made for request",
		zap.String("id", c.Navigation.ID()), zap.Int("status", c.Response.Status),
		zap.String("response_url", c.Response.URL), zap.String("remote_address", c.Response.RemoteAddress))
}
