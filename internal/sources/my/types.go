// Package my composes search requests for the Malaysian trademark registry
// and validates them when they come back to the handler.
package my

import "github.com/JakeFAU/trademark-crawler/internal/requestkey"

// StartingURL is the registry's public search landing page.
const StartingURL = "https://iponlineext.myipo.gov.my/SPHI/Extra/Default.aspx"

// OfficeCode identifies the Malaysian office.
const OfficeCode = "MY"

// FilterKey is the registry field a search filters on.
type FilterKey string

// Filter keys offered by the registry search form.
const (
	ApplicationDate      FilterKey = "ApplicationDate"
	AcceptanceDate       FilterKey = "AcceptanceDate"
	PriorityDate         FilterKey = "PriorityDate"
	PublicationDate      FilterKey = "PublicationDate"
	RegistrationDate     FilterKey = "RegistrationDate"
	RenewalDueDate       FilterKey = "RenewalDueDate"
	CertificateIssueDate FilterKey = "CertificateIssueDate"
	CaseNumber           FilterKey = "CaseNumber"
)

// FilterKeys lists every key in form order.
var FilterKeys = []FilterKey{
	ApplicationDate,
	AcceptanceDate,
	PriorityDate,
	PublicationDate,
	RegistrationDate,
	RenewalDueDate,
	CertificateIssueDate,
	CaseNumber,
}

// IsDate reports whether k filters on a date field.
func (k FilterKey) IsDate() bool { return requestkey.IsDateFilter(string(k)) }

// Valid reports whether k is a known key.
func (k FilterKey) Valid() bool {
	for _, known := range FilterKeys {
		if k == known {
			return true
		}
	}
	return false
}

// DateFilterKeys returns the date-valued keys in form order.
func DateFilterKeys() []FilterKey {
	out := make([]FilterKey, 0, len(FilterKeys))
	for _, k := range FilterKeys {
		if k.IsDate() {
			out = append(out, k)
		}
	}
	return out
}

// FilterStrategy is how the filter value is applied.
type FilterStrategy string

// Filter strategies.
const (
	Day       FilterStrategy = "Day"
	DateRange FilterStrategy = "DateRange"
	Value     FilterStrategy = "Value"
)

// Valid reports whether s is a known strategy.
func (s FilterStrategy) Valid() bool {
	switch s {
	case Day, DateRange, Value:
		return true
	}
	return false
}
