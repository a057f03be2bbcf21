package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/trademark-crawler/internal/app"
	"github.com/JakeFAU/trademark-crawler/internal/engine"
	"github.com/JakeFAU/trademark-crawler/internal/requestkey"
	"github.com/JakeFAU/trademark-crawler/internal/sources/my"
)

type crawlOptions struct {
	office      string
	date        string
	start       string
	end         string
	caseNumbers []string
}

func newCrawlCmd() *cobra.Command {
	opts := &crawlOptions{}
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl an office registry",
		Long: `Composes search requests for one office and runs them through the
engine. Searches cover every date field for each day in --date or
--start/--end, or look up the given --case numbers.`,
		Example: `  trademark-crawler crawl --date 2024-03-01
  trademark-crawler crawl --start 2024-03-01 --end 2024-03-07
  trademark-crawler crawl --case TM2024001234 --case TM2024001235`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := runtimeFrom(cmd.Context())
			if err != nil {
				return err
			}
			seeds, err := opts.seeds(time.Now())
			if err != nil {
				return err
			}

			a, err := app.Build(cmd.Context(), rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := a.Close(); cerr != nil {
					rt.logger.Warn("failed to close application", zap.Error(cerr))
				}
			}()
			return a.Crawl(cmd.Context(), my.Handler, seeds...)
		},
	}
	cmd.Flags().StringVar(&opts.office, "office", my.OfficeCode, "office code to crawl")
	cmd.Flags().StringVar(&opts.date, "date", "", "single day to search (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.start, "start", "", "first day to search (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.end, "end", "", "last day to search, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&opts.caseNumbers, "case", nil, "case number to look up; repeatable")
	return cmd
}

func (o *crawlOptions) seeds(now time.Time) ([]*engine.Request, error) {
	if !strings.EqualFold(o.office, my.OfficeCode) {
		return nil, fmt.Errorf("office %q is not supported", o.office)
	}
	modes := 0
	for _, set := range []bool{o.date != "", o.start != "" || o.end != "", len(o.caseNumbers) > 0} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		return nil, errors.New("exactly one of --date, --start/--end or --case is required")
	}

	switch {
	case o.date != "":
		day, err := parseDay("date", o.date)
		if err != nil {
			return nil, err
		}
		return my.ComposeRequestsForDate(day), nil
	case len(o.caseNumbers) > 0:
		reqs := make([]*engine.Request, 0, len(o.caseNumbers))
		for _, c := range o.caseNumbers {
			if c = strings.TrimSpace(c); c != "" {
				reqs = append(reqs, my.ComposeCaseNumberRequest(c, now))
			}
		}
		return reqs, nil
	default:
		start, err := parseDay("start", o.start)
		if err != nil {
			return nil, err
		}
		end, err := parseDay("end", o.end)
		if err != nil {
			return nil, err
		}
		if end.Before(start) {
			return nil, errors.New("--end must not be before --start")
		}
		return my.ComposeRequests(start, end), nil
	}
}

func parseDay(flag, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("--%s is required", flag)
	}
	day, err := time.Parse(requestkey.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be YYYY-MM-DD: %w", flag, err)
	}
	return day, nil
}
