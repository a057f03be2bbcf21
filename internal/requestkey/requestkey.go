// Package requestkey derives the identity key of a unit of crawl work.
//
// Keys look like MY-ApplicationDate-Day-2024-03-01-1. The crawl engine uses
// them to recognise work it has already attempted, so the field order and
// the date layout are part of the stored contract.
package requestkey

import (
	"strconv"
	"strings"
	"time"
)

// Separator joins the key components.
const Separator = "-"

// DateLayout renders the calendar date component.
const DateLayout = "2006-01-02"

// Derive joins office, filter key, filter strategy, calendar date and page
// number into a key. The date is rendered in its own location.
func Derive(officeCode, filterKey, filterStrategy string, date time.Time, page int) string {
	return strings.Join([]string{
		strings.ToUpper(officeCode),
		filterKey,
		filterStrategy,
		date.Format(DateLayout),
		strconv.Itoa(page),
	}, Separator)
}

// ReferenceDate picks the date component for a key. Date-keyed filters use
// the filter value; any other filter uses the request date, or now when no
// request date was supplied.
func ReferenceDate(filterKey string, filterValue, requestDate, now time.Time) time.Time {
	if IsDateFilter(filterKey) && !filterValue.IsZero() {
		return filterValue
	}
	if !requestDate.IsZero() {
		return requestDate
	}
	return now
}

// IsDateFilter reports whether the filter key names a date field.
func IsDateFilter(filterKey string) bool {
	return strings.Contains(filterKey, "Date")
}
