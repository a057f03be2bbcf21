// Package session hands out browser sessions, each bound to one proxy
// identity, and retires them after a usage ceiling or once marked bad.
package session

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/trademark-crawler/internal/metrics"
	"github.com/JakeFAU/trademark-crawler/internal/navigation"
)

// DefaultMaxUsage is the number of checkouts before a session rotates.
const DefaultMaxUsage = 20

// DefaultProxyTemplate renders a proxy URL from its parts.
const DefaultProxyTemplate = "http://{{USERNAME}}:{{PASSWORD}}@{{HOST}}:{{PORT}}"

// ProxyConfig describes the upstream proxy. A zero Host disables proxying.
type ProxyConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Template string
}

// Enabled reports whether a proxy is configured.
func (c ProxyConfig) Enabled() bool { return c.Host != "" }

// ExpandProxyTemplate fills the proxy URL template for sessionID.
func ExpandProxyTemplate(c ProxyConfig, sessionID string) string {
	tmpl := c.Template
	if tmpl == "" {
		tmpl = DefaultProxyTemplate
	}
	return strings.NewReplacer(
		"{{HOST}}", c.Host,
		"{{PORT}}", c.Port,
		"{{USERNAME}}", c.User,
		"{{PASSWORD}}", c.Password,
		"{{SESSION}}", sessionID,
	).Replace(tmpl)
}

// Session is one proxy identity.
type Session struct {
	ID string
	// ProxyURL is empty when proxying is disabled.
	ProxyURL string
	proxy    *navigation.Proxy

	mu    sync.Mutex
	usage int
	bad   bool
}

// Proxy returns the proxy recorded on navigations.
func (s *Session) Proxy() *navigation.Proxy {
	if s.proxy == nil {
		return nil
	}
	p := *s.proxy
	return &p
}

// MarkBad retires the session. Repeated calls have no further effect.
func (s *Session) MarkBad() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bad = true
}

// Bad reports whether MarkBad was called.
func (s *Session) Bad() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bad
}

// Usage reports how many times the session was checked out.
func (s *Session) Usage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}

// IDGenerator produces session ids.
type IDGenerator interface {
	NewID() (string, error)
}

// Retirer is told when a session leaves the pool.
type Retirer interface {
	Retire(sessionID string)
}

// Pool rotates sessions. A checked-out session belongs to one attempt until
// it is released.
type Pool struct {
	mu       sync.Mutex
	ids      IDGenerator
	proxy    ProxyConfig
	maxUsage int
	idle     []*Session
	retirer  Retirer
	logger   *zap.Logger
}

// NewPool builds a pool. maxUsage <= 0 uses DefaultMaxUsage.
func NewPool(ids IDGenerator, proxy ProxyConfig, maxUsage int, logger *zap.Logger) *Pool {
	if maxUsage <= 0 {
		maxUsage = DefaultMaxUsage
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{ids: ids, proxy: proxy, maxUsage: maxUsage, logger: logger.Named("sessions")}
}

// OnRetire registers r to hear about retired sessions.
func (p *Pool) OnRetire(r Retirer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.retirer = r
}

// Get checks out an idle session, creating one when none is usable.
func (p *Pool) Get() (*Session, error) {
	p.mu.Lock()
	for len(p.idle) > 0 {
		s := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]
		if reason := p.retireReason(s); reason != "" {
			p.retireLocked(s, reason)
			continue
		}
		s.mu.Lock()
		s.usage++
		s.mu.Unlock()
		p.mu.Unlock()
		return s, nil
	}
	p.mu.Unlock()

	s, err := p.newSession()
	if err != nil {
		return nil, err
	}
	s.usage = 1
	return s, nil
}

// Release returns s to the pool, retiring it when bad or worn out.
func (p *Pool) Release(s *Session) {
	if s == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if reason := p.retireReason(s); reason != "" {
		p.retireLocked(s, reason)
		return
	}
	p.idle = append(p.idle, s)
}

// Idle reports the number of sessions waiting for reuse.
func (p *Pool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

func (p *Pool) retireReason(s *Session) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.bad:
		return "bad"
	case s.usage >= p.maxUsage:
		return "max_usage"
	default:
		return ""
	}
}

func (p *Pool) retireLocked(s *Session, reason string) {
	metrics.ObserveSessionRetired(reason)
	p.logger.Info("session retired", zap.String("session_id", s.ID), zap.String("reason", reason), zap.Int("usage", s.Usage()))
	if p.retirer != nil {
		p.retirer.Retire(s.ID)
	}
}

func (p *Pool) newSession() (*Session, error) {
	sid, err := p.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}
	s := &Session{ID: sid}
	if p.proxy.Enabled() {
		s.ProxyURL = ExpandProxyTemplate(p.proxy, sid)
		s.proxy = &navigation.Proxy{Host: p.proxy.Host, Port: p.proxy.Port, User: p.proxy.User}
	}
	return s, nil
}
