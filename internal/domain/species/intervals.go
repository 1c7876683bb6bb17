// internal/domain/species/intervals.go
package species

import "strings"

// Profile holds the post-birth day offsets used to project a litter's milestones.
type Profile struct {
	WeanDays               int
	PlacementStartDays     int
	PlacementCompletedDays int
}

// Provider resolves the interval profile for a species code.
type Provider interface {
	Intervals(code string) Profile
}

// DefaultCode is the profile used when a species code is unknown.
const DefaultCode = "DOG"

var profiles = map[string]Profile{
	"DOG":    {WeanDays: 56, PlacementStartDays: 56, PlacementCompletedDays: 84},
	"CAT":    {WeanDays: 56, PlacementStartDays: 84, PlacementCompletedDays: 112},
	"HORSE":  {WeanDays: 180, PlacementStartDays: 210, PlacementCompletedDays: 365},
	"GOAT":   {WeanDays: 84, PlacementStartDays: 90, PlacementCompletedDays: 120},
	"SHEEP":  {WeanDays: 90, PlacementStartDays: 100, PlacementCompletedDays: 130},
	"RABBIT": {WeanDays: 42, PlacementStartDays: 56, PlacementCompletedDays: 70},
}

// Table is the built-in static species table.
type Table struct{}

// Intervals returns the profile for code, falling back to the DOG profile.
func (Table) Intervals(code string) Profile {
	if p, ok := profiles[Normalize(code)]; ok {
		return p
	}
	return profiles[DefaultCode]
}

// Known reports whether code has its own entry in the table.
func Known(code string) bool {
	_, ok := profiles[Normalize(code)]
	return ok
}

// Normalize trims and upper-cases a species code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
