package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/trademark-crawler/internal/requestkey"
	"github.com/JakeFAU/trademark-crawler/internal/sources/my"
)

func newKeyCmd() *cobra.Command {
	var (
		office, key, strategy, date string
		page                        int
	)
	cmd := &cobra.Command{
		Use:     "key",
		Short:   "Print the unique key a search request dedupes on",
		Example: `  trademark-crawler key --key ApplicationDate --strategy Day --date 2024-03-01`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if key == "" || strategy == "" {
				return fmt.Errorf("--key and --strategy are required")
			}
			if page < 1 {
				return fmt.Errorf("--page must be >= 1")
			}
			day := time.Now()
			if date != "" {
				var err error
				if day, err = parseDay("date", date); err != nil {
					return err
				}
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), requestkey.Derive(office, key, strategy, day, page))
			return err
		},
	}
	cmd.Flags().StringVar(&office, "office", my.OfficeCode, "office code")
	cmd.Flags().StringVar(&key, "key", "", "filter key, e.g. ApplicationDate")
	cmd.Flags().StringVar(&strategy, "strategy", "", "filter strategy, e.g. Day")
	cmd.Flags().StringVar(&date, "date", "", "date component (YYYY-MM-DD); defaults to today")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}
