package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Tab is one browser page. It is owned by a single attempt.
type Tab struct {
	ctx    context.Context
	cancel context.CancelFunc
	driver *Driver
	meta   *responseMeta
}

// run executes actions on the tab, bounded by ctx as well as the tab's own
// lifetime.
func (t *Tab) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(t.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// Navigate loads rawURL with extra headers and waits for the body.
func (t *Tab) Navigate(ctx context.Context, rawURL string, headers map[string]string) (Response, error) {
	navCtx, cancel := context.WithTimeout(ctx, t.driver.cfg.NavigationTimeout)
	defer cancel()

	actions := []chromedp.Action{}
	if len(headers) > 0 {
		actions = append(actions, network.SetExtraHTTPHeaders(toNetworkHeaders(headers)))
	}
	var finalURL string
	actions = append(actions,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Location(&finalURL),
	)
	if err := t.run(navCtx, actions...); err != nil {
		return t.meta.snapshot(""), fmt.Errorf("navigate %s: %w", rawURL, err)
	}
	return t.meta.snapshot(finalURL), nil
}

// Title implements forensics.Page.
func (t *Tab) Title(ctx context.Context) (string, error) {
	var title string
	if err := t.run(ctx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("page title: %w", err)
	}
	return title, nil
}

// URL implements forensics.Page.
func (t *Tab) URL(ctx context.Context) (string, error) {
	var loc string
	if err := t.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("page url: %w", err)
	}
	return loc, nil
}

// Content implements forensics.Page.
func (t *Tab) Content(ctx context.Context) (string, error) {
	var html string
	if err := t.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("page content: %w", err)
	}
	return html, nil
}

// Screenshot implements forensics.Page with a full-page PNG.
func (t *Tab) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := t.run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("page screenshot: %w", err)
	}
	return buf, nil
}

// Close closes the tab.
func (t *Tab) Close() {
	t.cancel()
}

// responseMeta records the main document request and response.
type responseMeta struct {
	mu       sync.RWMutex
	request  map[string]string
	response Response
}

func newResponseMeta() *responseMeta {
	return &responseMeta{}
}

func (m *responseMeta) captureEvent(ev any) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		m.captureRequest(e)
	case *network.EventResponseReceived:
		m.captureResponse(e)
	}
}

func (m *responseMeta) captureRequest(e *network.EventRequestWillBeSent) {
	if e.Type != network.ResourceTypeDocument || e.Request == nil {
		return
	}
	m.mu.Lock()
	m.request = flattenHeaders(e.Request.Headers)
	m.mu.Unlock()
}

func (m *responseMeta) captureResponse(e *network.EventResponseReceived) {
	if e.Type != network.ResourceTypeDocument || e.Response == nil {
		return
	}
	r := e.Response
	resp := Response{
		URL:             r.URL,
		Status:          int(r.Status),
		ResponseHeaders: flattenHeaders(r.Headers),
		RemoteAddress:   r.RemoteIPAddress,
		RemotePort:      int(r.RemotePort),
		SecurityDetails: securityDetails(r.SecurityDetails),
	}
	m.mu.Lock()
	m.response = resp
	m.mu.Unlock()
}

// snapshot returns the last document response. Without one the url falls
// back to finalURL, and stays empty when that is empty too.
func (m *responseMeta) snapshot(finalURL string) Response {
	m.mu.RLock()
	resp := m.response
	resp.RequestHeaders = cloneStrings(m.request)
	m.mu.RUnlock()
	resp.ResponseHeaders = cloneStrings(resp.ResponseHeaders)
	if resp.URL == "" {
		resp.URL = finalURL
	}
	return resp
}

// flattenHeaders joins multi-valued headers with ", ".
func flattenHeaders(h network.Headers) map[string]string {
	if h == nil {
		return nil
	}
	out := make(map[string]string, len(h))
	for key, value := range h {
		switch v := value.(type) {
		case string:
			out[key] = v
		case []string:
			out[key] = strings.Join(v, ", ")
		case []any:
			parts := make([]string, 0, len(v))
			for _, entry := range v {
				parts = append(parts, fmt.Sprint(entry))
			}
			out[key] = strings.Join(parts, ", ")
		default:
			out[key] = fmt.Sprint(v)
		}
	}
	return out
}

func toNetworkHeaders(h map[string]string) network.Headers {
	headers := make(network.Headers, len(h))
	for k, v := range h {
		headers[k] = v
	}
	return headers
}

func securityDetails(sd *network.SecurityDetails) map[string]any {
	if sd == nil {
		return nil
	}
	raw, err := json.Marshal(sd)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
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
