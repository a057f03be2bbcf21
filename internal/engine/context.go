package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/trademark-crawler/internal/browser"
	"github.com/JakeFAU/trademark-crawler/internal/forensics"
	"github.com/JakeFAU/trademark-crawler/internal/navigation"
	"github.com/JakeFAU/trademark-crawler/internal/session"
)

// Context is what a handler sees of one attempt.
type Context struct {
	Request    *Request
	Navigation *navigation.Navigation
	Page       Page
	Session    *session.Session
	Response   browser.Response
	Logger     *zap.Logger

	engine *Engine
}

// AddRequests enqueues child work.
func (c *Context) AddRequests(ctx context.Context, reqs ...*Request) (int, error) {
	return c.engine.AddRequests(ctx, reqs...)
}

// EndAsSuccess ends the navigation with the page's current evidence.
func (c *Context) EndAsSuccess(ctx context.Context) error {
	return c.engine.deps.Forensics.EndAsSuccess(ctx, c.forensicAttempt())
}

func (c *Context) forensicAttempt() forensics.Attempt {
	a := forensics.Attempt{
		Navigation:  c.Navigation,
		RequestID:   c.Request.ID,
		URL:         c.Request.URL,
		ResponseURL: c.Response.URL,
		LoadedURL:   c.Request.LoadedURL,
	}
	if c.Page != nil {
		a.Page = c.Page
	}
	if c.Session != nil {
		a.Session = c.Session
	}
	return a
}
