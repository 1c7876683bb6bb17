package offspring

import (
	"testing"
	"time"
)

func TestCalculateExpectedDatesHorse(t *testing.T) {
	birth := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got := CalculateExpectedDates(birth, "HORSE", nil)

	want := ExpectedDates{
		ExpectedWeanedAt:             time.Date(2024, 6, 29, 12, 0, 0, 0, time.UTC),
		ExpectedPlacementStartAt:     time.Date(2024, 7, 29, 12, 0, 0, 0, time.UTC),
		ExpectedPlacementCompletedAt: time.Date(2024, 12, 31, 12, 0, 0, 0, time.UTC),
	}
	if !got.ExpectedWeanedAt.Equal(want.ExpectedWeanedAt) {
		t.Fatalf("weaned: got %v want %v", got.ExpectedWeanedAt, want.ExpectedWeanedAt)
	}
	if !got.ExpectedPlacementStartAt.Equal(want.ExpectedPlacementStartAt) {
		t.Fatalf("placement start: got %v want %v", got.ExpectedPlacementStartAt, want.ExpectedPlacementStartAt)
	}
	if !got.ExpectedPlacementCompletedAt.Equal(want.ExpectedPlacementCompletedAt) {
		t.Fatalf("placement completed: got %v want %v", got.ExpectedPlacementCompletedAt, want.ExpectedPlacementCompletedAt)
	}
}

func TestCalculateExpectedDatesDeterministic(t *testing.T) {
	birth := time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC)
	a := CalculateExpectedDates(birth, "cat", nil)
	b := CalculateExpectedDates(birth, "cat", nil)
	if a != b {
		t.Fatalf("expected identical outputs, got %+v and %+v", a, b)
	}
}

func TestCalculateExpectedDatesUnknownSpeciesUsesDog(t *testing.T) {
	birth := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	unknown := CalculateExpectedDates(birth, "ALPACA", nil)
	dog := CalculateExpectedDates(birth, "DOG", nil)
	if unknown != dog {
		t.Fatalf("expected dog fallback, got %+v want %+v", unknown, dog)
	}
}

func TestNormalizeDateAcrossZones(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 2024-03-10 is the US spring-forward day.
	local := time.Date(2024, 3, 10, 1, 30, 0, 0, ny)
	got := NormalizeDate(local)
	want := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if got.Location() != time.UTC {
		t.Fatalf("expected UTC location")
	}
}

func TestDayArithmetic(t *testing.T) {
	start := time.Date(2024, 2, 28, 8, 0, 0, 0, time.UTC)
	if got := AddDays(start, 2); !got.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("AddDays across leap day: got %v", got)
	}
	if got := SubtractDays(start, 28); !got.Equal(time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("SubtractDays: got %v", got)
	}
	end := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	if got := DaysBetween(start, end); got != 2 {
		t.Fatalf("DaysBetween = %d, want 2", got)
	}
	if got := DaysBetween(end, start); got != -2 {
		t.Fatalf("DaysBetween reversed = %d, want -2", got)
	}
}
