package my

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/trademark-crawler/internal/crawlerr"
	"github.com/JakeFAU/trademark-crawler/internal/engine"
	"github.com/JakeFAU/trademark-crawler/internal/requestkey"
)

const userDataScope = "request user data"

// Handler validates a search request and ends its navigation as Success.
// Malformed requests fail without retries.
func Handler(ctx context.Context, c *engine.Context) error {
	if c.Navigation == nil || c.Navigation.OfficeCode() == "" {
		return engine.Permanent(&crawlerr.MissingFieldError{Field: "office_code", Scope: "navigation"})
	}
	u, err := ParseUserData(c.Request.UserData)
	if err != nil {
		return engine.Permanent(err)
	}

	c.Logger.Info("processing search",
		zap.String("id", c.Navigation.ID()),
		zap.String("office_code", c.Navigation.OfficeCode()),
		zap.String("filter_strategy", string(u.FilterStrategy)),
		zap.String("filter_key", string(u.FilterKey)),
		zap.Any("filter_value", u.FilterValue()),
		zap.Int("page_number", u.Page()),
	)
	return c.EndAsSuccess(ctx)
}

// ParseUserData reads the typed search parameters back out of request tags.
// Strategy, key and value are required; the page defaults to 1.
func ParseUserData(ud engine.UserData) (UserData, error) {
	var u UserData

	strategy := FilterStrategy(ud.Tag(TagFilterStrategy))
	if strategy == "" {
		return u, &crawlerr.MissingFieldError{Field: TagFilterStrategy, Scope: userDataScope}
	}
	if !strategy.Valid() {
		return u, fmt.Errorf("unknown filter strategy %q", strategy)
	}
	key := FilterKey(ud.Tag(TagFilterKey))
	if key == "" {
		return u, &crawlerr.MissingFieldError{Field: TagFilterKey, Scope: userDataScope}
	}
	if !key.Valid() {
		return u, fmt.Errorf("unknown filter key %q", key)
	}
	u.FilterStrategy, u.FilterKey = strategy, key

	values := filterValues(ud.Tags[TagFilterValue])
	if len(values) == 0 {
		return u, &crawlerr.MissingFieldError{Field: TagFilterValue, Scope: userDataScope}
	}
	if strategy == Value {
		u.Value = values[0]
	} else {
		start, err := time.Parse(requestkey.DateLayout, values[0])
		if err != nil {
			return u, fmt.Errorf("parse filter start date: %w", err)
		}
		end := start
		if len(values) > 1 {
			if end, err = time.Parse(requestkey.DateLayout, values[1]); err != nil {
				return u, fmt.Errorf("parse filter end date: %w", err)
			}
		}
		u.Start, u.End = start, end
	}

	page, err := pageNumber(ud.Tags[TagPageNumber])
	if err != nil {
		return u, err
	}
	u.PageNumber = page

	if s := ud.Tag(TagRequestDate); s != "" {
		if u.RequestDate, err = time.Parse(time.RFC3339, s); err != nil {
			return u, fmt.Errorf("parse request date: %w", err)
		}
	}
	return u, nil
}

func filterValues(v any) []string {
	var out []string
	switch t := v.(type) {
	case string:
		out = []string{t}
	case []string:
		out = t
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	if len(out) == 0 || out[0] == "" {
		return nil
	}
	return out
}

func pageNumber(v any) (int, error) {
	switch t := v.(type) {
	case nil:
		return 1, nil
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		return int(t), nil
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0, fmt.Errorf("parse page number: %w", err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unexpected page number type %T", v)
	}
}
