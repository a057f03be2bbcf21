// Package browser drives headless Chrome through chromedp. A Driver keeps
// one browser per proxy session; each attempt opens a Tab.
package browser

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/trademark-crawler/internal/navigation"
)

// Config controls the browser.
type Config struct {
	Headless          bool
	UserAgent         string
	NavigationTimeout time.Duration
	// Incognito opens every tab in a fresh browser context.
	Incognito bool
	// ExecPath overrides Chrome discovery.
	ExecPath string
}

// Session identifies the proxy identity a tab runs under.
type Session struct {
	ID       string
	ProxyURL string
}

type browserInstance struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
}

// Driver owns Chrome processes keyed by session id.
type Driver struct {
	cfg    Config
	logger *zap.Logger

	mu       sync.Mutex
	browsers map[string]*browserInstance
}

// NewDriver validates cfg. Browsers start lazily on Open.
func NewDriver(cfg Config, logger *zap.Logger) (*Driver, error) {
	if cfg.NavigationTimeout < 0 {
		return nil, fmt.Errorf("navigation timeout must be >= 0")
	}
	if cfg.NavigationTimeout == 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{cfg: cfg, logger: logger.Named("browser"), browsers: make(map[string]*browserInstance)}, nil
}

type proxySettings struct {
	server   string
	user     string
	password string
}

func parseProxy(raw string) (*proxySettings, error) {
	if raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse proxy url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("proxy url %q has no host", raw)
	}
	p := &proxySettings{server: u.Scheme + "://" + u.Host}
	if u.User != nil {
		p.user = u.User.Username()
		p.password, _ = u.User.Password()
	}
	return p, nil
}

func (d *Driver) allocatorOptions(proxy *proxySettings) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if d.cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if d.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(d.cfg.ExecPath))
	}
	if d.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(d.cfg.UserAgent))
	}
	if proxy != nil {
		opts = append(opts, chromedp.ProxyServer(proxy.server))
	}
	return opts
}

func (d *Driver) browserFor(sess Session, proxy *proxySettings) (*browserInstance, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.browsers[sess.ID]; ok {
		return b, nil
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), d.allocatorOptions(proxy)...)
	ctx, cancel := chromedp.NewContext(allocCtx)
	// Start the browser now so Open fails fast when Chrome is missing.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	b := &browserInstance{allocCtx: allocCtx, allocCancel: allocCancel, ctx: ctx, cancel: cancel}
	d.browsers[sess.ID] = b
	d.logger.Info("browser started", zap.String("session_id", sess.ID), zap.Bool("proxied", proxy != nil))
	return b, nil
}

// Open creates a tab for sess.
func (d *Driver) Open(ctx context.Context, sess Session) (*Tab, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	proxy, err := parseProxy(sess.ProxyURL)
	if err != nil {
		return nil, err
	}
	b, err := d.browserFor(sess, proxy)
	if err != nil {
		return nil, err
	}
	var tabCtx context.Context
	var tabCancel context.CancelFunc
	if d.cfg.Incognito {
		tabCtx, tabCancel = chromedp.NewContext(b.ctx, chromedp.WithNewBrowserContext())
	} else {
		tabCtx, tabCancel = chromedp.NewContext(b.ctx)
	}
	t := &Tab{ctx: tabCtx, cancel: tabCancel, driver: d, meta: newResponseMeta()}
	chromedp.ListenTarget(tabCtx, t.meta.captureEvent)
	if proxy != nil && proxy.user != "" {
		chromedp.ListenTarget(tabCtx, proxyAuthListener(tabCtx, proxy))
	}
	if err := chromedp.Run(tabCtx, d.setupAction(proxy)); err != nil {
		tabCancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return t, nil
}

// Retire closes the browser of a session.
func (d *Driver) Retire(sessionID string) {
	d.mu.Lock()
	b, ok := d.browsers[sessionID]
	delete(d.browsers, sessionID)
	d.mu.Unlock()
	if ok {
		b.cancel()
		b.allocCancel()
		d.logger.Info("browser retired", zap.String("session_id", sessionID))
	}
}

// Close shuts down every browser.
func (d *Driver) Close() {
	d.mu.Lock()
	ids := make([]string, 0, len(d.browsers))
	for id := range d.browsers {
		ids = append(ids, id)
	}
	d.mu.Unlock()
	for _, id := range ids {
		d.Retire(id)
	}
}

func (d *Driver) setupAction(proxy *proxySettings) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if d.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(d.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		if proxy != nil && proxy.user != "" {
			if err := fetch.Enable().WithHandleAuthRequests(true).Do(ctx); err != nil {
				return fmt.Errorf("enable fetch domain: %w", err)
			}
		}
		return nil
	})
}

// proxyAuthListener answers proxy auth challenges. With the fetch domain
// enabled every request pauses and must be continued explicitly.
func proxyAuthListener(ctx context.Context, proxy *proxySettings) func(ev any) {
	return func(ev any) {
		switch e := ev.(type) {
		case *fetch.EventAuthRequired:
			go func() {
				exec := cdp.WithExecutor(ctx, chromedp.FromContext(ctx).Target)
				_ = fetch.ContinueWithAuth(e.RequestID, &fetch.AuthChallengeResponse{
					Response: fetch.AuthChallengeResponseResponseProvideCredentials,
					Username: proxy.user,
					Password: proxy.password,
				}).Do(exec)
			}()
		case *fetch.EventRequestPaused:
			go func() {
				exec := cdp.WithExecutor(ctx, chromedp.FromContext(ctx).Target)
				_ = fetch.ContinueRequest(e.RequestID).Do(exec)
			}()
		}
	}
}

// Response is what the browser saw for the main document.
type Response struct {
	URL             string
	Status          int
	RequestHeaders  map[string]string
	ResponseHeaders map[string]string
	RemoteAddress   string
	RemotePort      int
	SecurityDetails map[string]any
}

// Landing converts r into a navigation landing. Absent values stay nil.
func (r Response) Landing() navigation.Landing {
	var l navigation.Landing
	if r.URL != "" {
		l.URL = &r.URL
	}
	if r.Status != 0 {
		l.Status = &r.Status
	}
	if r.RemoteAddress != "" {
		l.RemoteAddress = &r.RemoteAddress
	}
	if r.RemotePort != 0 {
		l.RemotePort = &r.RemotePort
	}
	l.RequestHeaders = r.RequestHeaders
	l.ResponseHeaders = r.ResponseHeaders
	l.SecurityDetails = r.SecurityDetails
	return l
}
