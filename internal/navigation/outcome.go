package navigation

// Outcome is the terminal classification of a Navigation.
type Outcome string

// Outcomes.
const (
	Success Outcome = "Success"
	Retry   Outcome = "Retry"
	Failure Outcome = "Failure"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	switch o {
	case Success, Retry, Failure:
		return true
	default:
		return false
	}
}
