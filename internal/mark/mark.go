// Package mark models extracted trademark records and coverage summaries.
//
// List-of-struct fields render in columnar form: one array per attribute,
// with null placeholders, matching the analytical store's ingestion shape.
package mark

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/JakeFAU/trademark-crawler/internal/id"
	"github.com/JakeFAU/trademark-crawler/internal/urlparts"
)

// TypeName names mark rows in local fallback files.
const TypeName = "Mark"

// Feature is the WIPO INID 550 mark feature.
type Feature string

// Features.
const (
	FeatureWord               Feature = "Word"
	FeatureFigurative         Feature = "Figurative"
	FeatureCombined           Feature = "Combined"
	FeatureStylizedCharacters Feature = "Stylized Characters"
)

// Effect is the WIPO INID 551 mark effect.
type Effect string

// Effects.
const (
	EffectIndividual  Effect = "Individual"
	EffectCollective  Effect = "Collective"
	EffectCertificate Effect = "Certificate"
)

// Status is the normalised legal status of a mark.
type Status string

// Statuses.
const (
	StatusPending    Status = "Pending"
	StatusWithdrawn  Status = "Withdrawn"
	StatusRegistered Status = "Registered"
	StatusCancelled  Status = "Cancelled"
	StatusEnded      Status = "Ended"
	StatusExpired    Status = "Expired"
)

// Address identifies an owner, applicant, representative or similar party.
type Address struct {
	Name       string `json:"name,omitempty"`
	Identifier string `json:"identifier,omitempty"`
	Address    string `json:"address,omitempty"`
	Country    string `json:"country,omitempty"`
}

// Classification is one Nice class entry.
type Classification struct {
	NiceClass   string `json:"nice_class,omitempty"`
	LocalClass  string `json:"local_class,omitempty"`
	Description string `json:"description,omitempty"`
}

// Priority is a claimed priority filing.
type Priority struct {
	SerialNumber string `json:"serial_number,omitempty"`
	Date         Date   `json:"date"`
	OfficeCode   string `json:"office_code,omitempty"`
	Data         string `json:"data,omitempty"`
}

// History is one prosecution history entry.
type History struct {
	Type            string    `json:"type,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	Description     string    `json:"description,omitempty"`
	PublicationID   string    `json:"publication_id,omitempty"`
	PublicationDate Date      `json:"publication_date"`
}

// Designation is a designated office under an international registration.
type Designation struct {
	OfficeCode      string `json:"office_code,omitempty"`
	Identifier      string `json:"identifier,omitempty"`
	Date            Date   `json:"date"`
	UnderOfficeCode string `json:"under_office_code,omitempty"`
}

// Event is a publication event.
type Event struct {
	PublicationIdentifier  string `json:"publication_identifier,omitempty"`
	PublicationStatus      string `json:"publication_status,omitempty"`
	IndustrialPropertyType string `json:"industrial_property_type,omitempty"`
}

// Scrape holds raw, unparsed field values as read from the page. ID is the
// producing navigation's id.
type Scrape struct {
	ID                 string `json:"id"`
	OfficeCode         string `json:"office_code"`
	URL                string `json:"url"`
	ST13               string `json:"st13,omitempty"`
	Name               string `json:"name,omitempty"`
	WebpageTitle       string `json:"webpage_title,omitempty"`
	StatusRaw          string `json:"status_raw,omitempty"`
	ContactsRaw        any    `json:"contacts_raw,omitempty"`
	DesignationsRaw    any    `json:"designations_raw,omitempty"`
	ClassificationsRaw any    `json:"classifications_raw,omitempty"`
	ViennaClassesRaw   any    `json:"vienna_classes_raw,omitempty"`
	PrioritiesRaw      any    `json:"priorities_raw,omitempty"`
	FieldsRaw          any    `json:"fields_raw,omitempty"`
	ImageRaw           string `json:"image_raw,omitempty"`
	FeatureRaw         string `json:"feature_raw,omitempty"`
}

// Mark is one extracted trademark record.
type Mark struct {
	ID                            string           `json:"id"`
	OfficeCode                    string           `json:"office_code,omitempty"`
	ST13                          string           `json:"st13,omitempty"`
	Name                          string           `json:"name,omitempty"`
	Status                        Status           `json:"status,omitempty"`
	StatusDate                    Date             `json:"status_date"`
	Feature                       Feature          `json:"feature,omitempty"`
	Effect                        Effect           `json:"effect,omitempty"`
	ApplicationNumber             string           `json:"application_number,omitempty"`
	ApplicationDate               Date             `json:"application_date"`
	PublicationDate               Date             `json:"publication_date"`
	ApplicationLanguage           string           `json:"application_language,omitempty"`
	Transliteration               string           `json:"transliteration,omitempty"`
	RegistrationNumber            string           `json:"registration_number,omitempty"`
	RegistrationDate              Date             `json:"registration_date"`
	IssueDate                     Date             `json:"issue_date"`
	ExpiryDate                    Date             `json:"expiry_date"`
	RenewalDate                   Date             `json:"renewal_date"`
	RenewalRequestDate            Date             `json:"renewal_request_date"`
	EventDate                     Date             `json:"event_date"`
	RemovalDate                   Date             `json:"removal_date"`
	TerminationDate               Date             `json:"termination_date"`
	SurrenderDate                 Date             `json:"surrender_date"`
	RestoredDate                  Date             `json:"restored_date"`
	Description                   string           `json:"description,omitempty"`
	FigurativeElementsDescription string           `json:"figurative_elements_description,omitempty"`
	ReproductionContentType       string           `json:"reproduction_content_type,omitempty"`
	Reproduction                  string           `json:"reproduction,omitempty"`
	Characters                    string           `json:"characters,omitempty"`
	Disclaimer                    string           `json:"disclaimer,omitempty"`
	Translation                   string           `json:"translation,omitempty"`
	ColorsClaimed                 string           `json:"colors_claimed,omitempty"`
	Comments                      string           `json:"comments,omitempty"`
	Colors                        string           `json:"colors,omitempty"`
	Classifications               []Classification `json:"classifications"`
	Priorities                    []Priority       `json:"priorities"`
	Owners                        []Address        `json:"owners"`
	Assignees                     []Address        `json:"assignees"`
	Applicants                    []Address        `json:"applicants"`
	Representatives               []Address        `json:"representatives"`
	Correspondents                []Address        `json:"correspondents"`
	Licensees                     []Address        `json:"licensees"`
	ViennaClasses                 []string         `json:"vienna_classes,omitempty"`
	Designations                  []Designation    `json:"designations"`
	Histories                     []History        `json:"histories"`
	Events                        []Event          `json:"events,omitempty"`
	NavigationID                  string           `json:"navigation_id"`
	Domain                        string           `json:"domain,omitempty"`
	Host                          string           `json:"host,omitempty"`
	URL                           string           `json:"url,omitempty"`
	Tags                          map[string]any   `json:"tags,omitempty"`
	ContentLocation               string           `json:"content_location,omitempty"`
	ScreenshotLocation            string           `json:"screenshot_location,omitempty"`
	Scrape                        *Scrape          `json:"scrape,omitempty"`
}

// New creates a Mark from its scrape. The mark gets a fresh id and links
// back to the navigation named by scrape.ID.
func New(scrape Scrape) (*Mark, error) {
	if scrape.ID == "" {
		return nil, fmt.Errorf("scrape navigation id is required")
	}
	markID, err := id.New()
	if err != nil {
		return nil, fmt.Errorf("mark id: %w", err)
	}
	host, domain := urlparts.Split(scrape.URL)
	s := scrape
	return &Mark{
		ID:           markID,
		NavigationID: scrape.ID,
		Name:         scrape.Name,
		ST13:         scrape.ST13,
		OfficeCode:   scrape.OfficeCode,
		URL:          scrape.URL,
		Host:         host,
		Domain:       domain,
		Scrape:       &s,
	}, nil
}

type markAlias Mark

// MarshalJSON renders the wire row with columnar sub-records.
func (m *Mark) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		*markAlias
		Classifications classificationColumns `json:"classifications"`
		Priorities      priorityColumns       `json:"priorities"`
		Owners          addressColumns        `json:"owners"`
		Assignees       addressColumns        `json:"assignees"`
		Applicants      addressColumns        `json:"applicants"`
		Representatives addressColumns        `json:"representatives"`
		Correspondents  addressColumns        `json:"correspondents"`
		Licensees       addressColumns        `json:"licensees"`
		Designations    designationColumns    `json:"designations"`
		Histories       historyColumns        `json:"histories"`
	}{
		markAlias:       (*markAlias)(m),
		Classifications: transposeClassifications(m.Classifications),
		Priorities:      transposePriorities(m.Priorities),
		Owners:          transposeAddresses(m.Owners),
		Assignees:       transposeAddresses(m.Assignees),
		Applicants:      transposeAddresses(m.Applicants),
		Representatives: transposeAddresses(m.Representatives),
		Correspondents:  transposeAddresses(m.Correspondents),
		Licensees:       transposeAddresses(m.Licensees),
		Designations:    transposeDesignations(m.Designations),
		Histories:       transposeHistories(m.Histories),
	})
}

// RecordID implements records.Record.
func (m *Mark) RecordID() string { return m.ID }

// RecordAttempt implements records.Record. Marks carry no attempt.
func (m *Mark) RecordAttempt() (int, bool) { return 0, false }

// RecordType implements records.Record.
func (m *Mark) RecordType() string { return TypeName }
