package mark

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/trademark-crawler/internal/id"
)

func decodeRow(t *testing.T, v any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var row map[string]any
	require.NoError(t, json.Unmarshal(raw, &row))
	return row
}

func TestNewMarkFromScrape(t *testing.T) {
	t.Parallel()

	m, err := New(Scrape{
		ID:         "nav-1",
		OfficeCode: "MY",
		URL:        "https://iponlineext.myipo.gov.my/SPHI/Extra/IP/Mutual/Browse.aspx?id=1",
		ST13:       "MY50202401234",
		Name:       "ACME",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, m.ID)
	assert.NotEqual(t, "nav-1", m.ID)
	assert.Equal(t, "nav-1", m.NavigationID)
	assert.Equal(t, "ACME", m.Name)
	assert.Equal(t, "MY50202401234", m.ST13)
	assert.Equal(t, "iponlineext.myipo.gov.my", m.Host)
	assert.Equal(t, "myipo.gov.my", m.Domain)
	require.NotNil(t, m.Scrape)
	assert.Equal(t, "ACME", m.Scrape.Name)

	_, err = id.TimeOf(m.ID)
	require.NoError(t, err)
}

func TestNewMarkRequiresNavigation(t *testing.T) {
	t.Parallel()

	_, err := New(Scrape{URL: "https://example.gov"})
	require.Error(t, err)
}

func TestMarkDatesRenderAsCalendarDates(t *testing.T) {
	t.Parallel()

	m, err := New(Scrape{ID: "nav-1", URL: "https://example.gov"})
	require.NoError(t, err)
	m.ApplicationDate = NewDate(2024, 3, 1)
	m.Status = StatusRegistered
	m.Feature = FeatureStylizedCharacters

	row := decodeRow(t, m)
	assert.Equal(t, "2024-03-01", row["application_date"])
	assert.Nil(t, row["registration_date"])
	assert.Contains(t, row, "registration_date")
	assert.Equal(t, "Registered", row["status"])
	assert.Equal(t, "Stylized Characters", row["feature"])
}

func TestMarkColumnarTransposition(t *testing.T) {
	t.Parallel()

	m, err := New(Scrape{ID: "nav-1", URL: "https://example.gov"})
	require.NoError(t, err)
	m.Classifications = []Classification{
		{NiceClass: "25", Description: "Clothing"},
		{NiceClass: "35", LocalClass: "35a"},
	}
	m.Owners = []Address{
		{Name: "Acme Sdn Bhd", Country: "MY"},
		{Name: "Other", Identifier: "X1"},
	}
	m.Priorities = []Priority{{SerialNumber: "123", Date: NewDate(2023, 12, 31)}}
	m.Histories = []History{
		{Type: "Filed", Timestamp: time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)},
		{Type: "Published", PublicationDate: NewDate(2024, 6, 1)},
	}
	m.Designations = []Designation{{OfficeCode: "SG", Date: NewDate(2024, 1, 2)}}

	row := decodeRow(t, m)

	classes := row["classifications"].(map[string]any)
	assert.Equal(t, []any{"25", "35"}, classes["nice_class"])
	assert.Equal(t, []any{nil, "35a"}, classes["local_class"])
	assert.Equal(t, []any{"Clothing", nil}, classes["description"])

	owners := row["owners"].(map[string]any)
	assert.Equal(t, []any{"Acme Sdn Bhd", "Other"}, owners["name"])
	assert.Equal(t, []any{nil, "X1"}, owners["identifier"])
	assert.Equal(t, []any{nil, nil}, owners["address"])
	assert.Equal(t, []any{"MY", nil}, owners["country"])

	priorities := row["priorities"].(map[string]any)
	assert.Equal(t, []any{"2023-12-31"}, priorities["date"])
	assert.Equal(t, []any{nil}, priorities["office_code"])

	histories := row["histories"].(map[string]any)
	assert.Equal(t, []any{"2024-03-01T08:30:00Z", nil}, histories["timestamp"])
	assert.Equal(t, []any{nil, "2024-06-01"}, histories["publication_date"])

	designations := row["designations"].(map[string]any)
	assert.Equal(t, []any{"SG"}, designations["office_code"])
	assert.Equal(t, []any{"2024-01-02"}, designations["date"])

	applicants := row["applicants"].(map[string]any)
	assert.Equal(t, []any{}, applicants["name"])
}

func TestColumnsHaveEqualLength(t *testing.T) {
	t.Parallel()

	in := []Address{{Name: "a"}, {}, {Country: "MY"}}
	cols := transposeAddresses(in)
	for _, c := range [][]*string{cols.Name, cols.Identifier, cols.Address, cols.Country} {
		assert.Len(t, c, len(in))
	}
}

func TestDateJSON(t *testing.T) {
	t.Parallel()

	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2024-02-29"`), &d))
	assert.Equal(t, "2024-02-29", d.String())

	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.True(t, d.IsZero())

	require.Error(t, json.Unmarshal([]byte(`"29/02/2024"`), &d))

	local := time.Date(2024, 3, 1, 23, 30, 0, 0, time.FixedZone("UTC+8", 8*3600))
	assert.Equal(t, "2024-03-01", DateOf(local).String())
	assert.True(t, DateOf(time.Time{}).IsZero())
}

func TestMarkRecordIdentity(t *testing.T) {
	t.Parallel()

	m := &Mark{ID: "m-1"}
	attempt, ok := m.RecordAttempt()
	assert.Equal(t, "m-1", m.RecordID())
	assert.Equal(t, 0, attempt)
	assert.False(t, ok)
	assert.Equal(t, "Mark", m.RecordType())
}

func TestNewCoverage(t *testing.T) {
	t.Parallel()

	c, err := NewCoverage("MY", "myipo", "nav-1")
	require.NoError(t, err)

	collected, err := id.TimeOf(c.ID)
	require.NoError(t, err)
	assert.Equal(t, collected, c.CollectedAt)

	count := 42
	c.RecordsCount = &count
	c.EarliestDate = NewDate(2001, 1, 1)
	row := decodeRow(t, c)
	assert.Equal(t, "2001-01-01", row["earliest_date"])
	assert.Nil(t, row["latest_date"])
	assert.EqualValues(t, 42, row["records_count"])
	assert.Equal(t, "nav-1", row["navigation_id"])
	assert.Equal(t, "Coverage", c.RecordType())

	_, err = NewCoverage("", "myipo", "")
	require.Error(t, err)
}
