package browser

import (
	"context"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDriverDefaults(t *testing.T) {
	_, err := NewDriver(Config{NavigationTimeout: -time.Second}, nil)
	assert.Error(t, err)

	d, err := NewDriver(Config{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, d.cfg.NavigationTimeout)
}

func TestOpenCanceledContext(t *testing.T) {
	d, err := NewDriver(Config{}, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Open(ctx, Session{ID: "s"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseProxy(t *testing.T) {
	p, err := parseProxy("")
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = parseProxy("http://user-session-abc:pw@proxy.local:8000")
	require.NoError(t, err)
	assert.Equal(t, "http://proxy.local:8000", p.server)
	assert.Equal(t, "user-session-abc", p.user)
	assert.Equal(t, "pw", p.password)

	p, err = parseProxy("socks5://proxy.local:1080")
	require.NoError(t, err)
	assert.Empty(t, p.user)

	_, err = parseProxy("not a url")
	assert.Error(t, err)
}

func TestResponseMetaCapturesDocumentOnly(t *testing.T) {
	m := newResponseMeta()
	m.captureEvent(&network.EventRequestWillBeSent{
		Type:    network.ResourceTypeDocument,
		Request: &network.Request{Headers: network.Headers{"User-Agent": "tmc"}},
	})
	m.captureEvent(&network.EventResponseReceived{
		Type: network.ResourceTypeDocument,
		Response: &network.Response{
			URL:             "https://iponlineext.myipo.gov.my/SPHI/Extra/Default.aspx",
			Status:          200,
			Headers:         network.Headers{"Set-Cookie": []any{"a=1", "b=2"}, "Content-Type": "text/html"},
			RemoteIPAddress: "203.0.113.9",
			RemotePort:      443,
			SecurityDetails: &network.SecurityDetails{Protocol: "TLS 1.3", SubjectName: "*.myipo.gov.my"},
		},
	})
	m.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeImage,
		Response: &network.Response{URL: "https://iponlineext.myipo.gov.my/logo.png", Status: 404},
	})

	resp := m.snapshot("https://final")
	assert.Equal(t, "https://iponlineext.myipo.gov.my/SPHI/Extra/Default.aspx", resp.URL)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "a=1, b=2", resp.ResponseHeaders["Set-Cookie"])
	assert.Equal(t, "tmc", resp.RequestHeaders["User-Agent"])
	assert.Equal(t, "203.0.113.9", resp.RemoteAddress)
	assert.Equal(t, 443, resp.RemotePort)
	assert.Equal(t, "TLS 1.3", resp.SecurityDetails["protocol"])
}

func TestResponseMetaFallbacks(t *testing.T) {
	m := newResponseMeta()
	assert.Equal(t, "https://final", m.snapshot("https://final").URL)

	// No document response and no location: nothing landed.
	resp := m.snapshot("")
	assert.Empty(t, resp.URL)
	assert.Zero(t, resp.Status)
	assert.Nil(t, resp.Landing().URL)
}

func TestResponseLanding(t *testing.T) {
	l := Response{}.Landing()
	assert.Nil(t, l.URL)
	assert.Nil(t, l.Status)
	assert.Nil(t, l.RemotePort)

	l = Response{URL: "https://x", Status: 302, RemoteAddress: "198.51.100.1", RemotePort: 80}.Landing()
	require.NotNil(t, l.URL)
	assert.Equal(t, "https://x", *l.URL)
	assert.Equal(t, 302, *l.Status)
	assert.Equal(t, 80, *l.RemotePort)
}

func TestHeaderConversion(t *testing.T) {
	assert.Nil(t, flattenHeaders(nil))
	h := toNetworkHeaders(map[string]string{"Referer": "https://iponlineext.myipo.gov.my"})
	assert.Equal(t, "https://iponlineext.myipo.gov.my", h["Referer"])
}
