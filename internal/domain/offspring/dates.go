// internal/domain/offspring/dates.go
package offspring

import (
	"time"

	"offspring_lifecycle/internal/domain/species"
)

// middayHour pins every stored calendar date so DST shifts and local rendering
// cannot push it onto a neighbouring day.
const middayHour = 12

const day = 24 * time.Hour

// NormalizeDate returns t's UTC calendar date at 12:00 UTC.
func NormalizeDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), middayHour, 0, 0, 0, time.UTC)
}

// AddDays returns the normalised date n calendar days after t.
func AddDays(t time.Time, n int) time.Time {
	return NormalizeDate(t).AddDate(0, 0, n)
}

// SubtractDays returns the normalised date n calendar days before t.
func SubtractDays(t time.Time, n int) time.Time {
	return AddDays(t, -n)
}

// DaysBetween returns the whole calendar days from a to b (negative when b is earlier).
func DaysBetween(a, b time.Time) int {
	return int(NormalizeDate(b).Sub(NormalizeDate(a)) / day)
}

// ExpectedDates are the milestone projections derived from a birth date.
type ExpectedDates struct {
	ExpectedWeanedAt             time.Time
	ExpectedPlacementStartAt     time.Time
	ExpectedPlacementCompletedAt time.Time
}

// CalculateExpectedDates projects the three milestones from birthDate using the
// species profile. It knows nothing about the state machine. A nil provider uses
// the built-in species table.
func CalculateExpectedDates(birthDate time.Time, speciesCode string, provider species.Provider) ExpectedDates {
	if provider == nil {
		provider = species.Table{}
	}
	p := provider.Intervals(speciesCode)
	return ExpectedDates{
		ExpectedWeanedAt:             AddDays(birthDate, p.WeanDays),
		ExpectedPlacementStartAt:     AddDays(birthDate, p.PlacementStartDays),
		ExpectedPlacementCompletedAt: AddDays(birthDate, p.PlacementCompletedDays),
	}
}

// Fields maps the projections onto the group date fields they populate.
func (d ExpectedDates) Fields() map[DateField]time.Time {
	return map[DateField]time.Time{
		FieldExpectedWeanedAt:             d.ExpectedWeanedAt,
		FieldExpectedPlacementStartAt:     d.ExpectedPlacementStartAt,
		FieldExpectedPlacementCompletedAt: d.ExpectedPlacementCompletedAt,
	}
}
