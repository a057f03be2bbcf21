package requestkey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveFormat(t *testing.T) {
	t.Parallel()

	got := Derive("MY", "ApplicationDate", "Day", time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC), 1)
	assert.Equal(t, "MY-ApplicationDate-Day-2024-03-01-1", got)
}

func TestDeriveIsPure(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	a := Derive("MY", "ApplicationDate", "Day", day, 1)
	b := Derive("MY", "ApplicationDate", "Day", day, 1)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, Derive("MY", "ApplicationDate", "Day", day.AddDate(0, 0, 1), 1))
}

func TestDeriveEachComponentMatters(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	base := Derive("MY", "ApplicationDate", "Day", day, 1)

	variants := map[string]string{
		"office":   Derive("SG", "ApplicationDate", "Day", day, 1),
		"key":      Derive("MY", "PublicationDate", "Day", day, 1),
		"strategy": Derive("MY", "ApplicationDate", "DateRange", day, 1),
		"date":     Derive("MY", "ApplicationDate", "Day", day.AddDate(0, 1, 0), 1),
		"page":     Derive("MY", "ApplicationDate", "Day", day, 2),
	}
	for name, v := range variants {
		assert.NotEqual(t, base, v, name)
	}
}

func TestDeriveIgnoresTimeOfDay(t *testing.T) {
	t.Parallel()

	morning := time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC)
	evening := time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC)
	assert.Equal(t,
		Derive("MY", "ApplicationDate", "Day", morning, 3),
		Derive("MY", "ApplicationDate", "Day", evening, 3),
	)
}

func TestReferenceDate(t *testing.T) {
	t.Parallel()

	value := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	request := time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 6, 6, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, value, ReferenceDate("ApplicationDate", value, request, now))
	assert.Equal(t, request, ReferenceDate("CaseNumber", time.Time{}, request, now))
	assert.Equal(t, now, ReferenceDate("CaseNumber", time.Time{}, time.Time{}, now))
	assert.Equal(t, request, ReferenceDate("ApplicationDate", time.Time{}, request, now))
}

func TestCaseNumberKeyStillCarriesDate(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 6, 10, 0, 0, 0, time.UTC)
	date := ReferenceDate("CaseNumber", time.Time{}, time.Time{}, now)
	assert.Equal(t, "MY-CaseNumber-Value-2024-06-06-1", Derive("my", "CaseNumber", "Value", date, 1))
}
