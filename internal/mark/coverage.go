package mark

import (
	"fmt"
	"time"

	"github.com/JakeFAU/trademark-crawler/internal/id"
)

// CoverageTypeName names coverage rows in local fallback files.
const CoverageTypeName = "Coverage"

// Coverage summarises what a source held for an office at collection time.
type Coverage struct {
	ID           string     `json:"id"`
	CollectedAt  time.Time  `json:"collected_at"`
	OfficeCode   string     `json:"office_code"`
	Source       string     `json:"source"`
	UpdatedAt    *time.Time `json:"updated_at"`
	RecordsCount *int       `json:"records_count"`
	EarliestDate Date       `json:"earliest_date"`
	LatestDate   Date       `json:"latest_date"`
	NavigationID string     `json:"navigation_id,omitempty"`
}

// NewCoverage creates a Coverage whose collection time is the timestamp
// embedded in its id.
func NewCoverage(officeCode, source, navigationID string) (*Coverage, error) {
	if officeCode == "" || source == "" {
		return nil, fmt.Errorf("coverage office code and source are required")
	}
	covID, err := id.New()
	if err != nil {
		return nil, fmt.Errorf("coverage id: %w", err)
	}
	collected, err := id.TimeOf(covID)
	if err != nil {
		return nil, fmt.Errorf("coverage collected_at: %w", err)
	}
	return &Coverage{
		ID:           covID,
		CollectedAt:  collected,
		OfficeCode:   officeCode,
		Source:       source,
		NavigationID: navigationID,
	}, nil
}

// RecordID implements records.Record.
func (c *Coverage) RecordID() string { return c.ID }

// RecordAttempt implements records.Record. Coverages carry no attempt.
func (c *Coverage) RecordAttempt() (int, bool) { return 0, false }

// RecordType implements records.Record.
func (c *Coverage) RecordType() string { return CoverageTypeName }
