package app

import (
	"testing"
	"time"

	"offspring_lifecycle/internal/domain/offspring"
	"offspring_lifecycle/internal/domain/species"

	"github.com/sirupsen/logrus"
)

func newMilestoneService(f *fixture, graceDays int) *MilestoneServiceImpl {
	return NewMilestoneServiceImpl(f.store, f.svc, species.Table{}, f.svc.logger, graceDays)
}

func TestRecordBirthProjectsDatesAndAutoAdvances(t *testing.T) {
	f := newFixture(t)
	svc := newMilestoneService(f, 0)
	g := f.group(t, offspring.Group{Species: "horse"})

	// Late evening in New York is already the next day in UTC.
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tz database unavailable: %v", err)
	}
	res, err := svc.RecordBirth(f.ctx, g.ID, time.Date(2023, 12, 31, 21, 0, 0, 0, ny))
	if err != nil {
		t.Fatalf("record birth: %v", err)
	}
	if !res.AutoAdvance.Advanced || res.Group.Status != offspring.StatusBorn {
		t.Fatalf("expected auto-advance to BORN, got %+v", res.AutoAdvance)
	}

	want := map[string]*time.Time{
		"birth":     date(2024, 1, 1),
		"weaned":    date(2024, 6, 29),
		"start":     date(2024, 7, 29),
		"completed": date(2024, 12, 31),
	}
	got := map[string]*time.Time{
		"birth":     res.Group.ActualBirthOn,
		"weaned":    res.Group.ExpectedWeanedAt,
		"start":     res.Group.ExpectedPlacementStartAt,
		"completed": res.Group.ExpectedPlacementCompletedAt,
	}
	for k, w := range want {
		if got[k] == nil || !got[k].Equal(*w) {
			t.Fatalf("%s: expected %v, got %v", k, *w, got[k])
		}
	}

	events := f.events(t, g.ID)
	// four milestone fields then the auto-advance
	if len(events) != 5 {
		t.Fatalf("expected 5 events, got %d: %+v", len(events), events)
	}
	if events[0].Type != offspring.EventMilestoneRecorded || events[0].Field != string(offspring.FieldActualBirthOn) || events[0].After != "2024-01-01" {
		t.Fatalf("unexpected first event %+v", events[0])
	}
	if events[4].Type != offspring.EventAutoAdvance {
		t.Fatalf("expected auto-advance event last, got %+v", events[4])
	}
}

func TestRecordWeanedWaitsForWeaningStatus(t *testing.T) {
	f := newFixture(t)
	svc := newMilestoneService(f, 0)
	// BORN with no live offspring: the weaned date is stored but BORN->WEANING is not ready.
	g := f.group(t, offspring.Group{Status: offspring.StatusBorn, ActualBirthOn: date(2024, 3, 1)})

	res, err := svc.RecordWeaned(f.ctx, g.ID, time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("record weaned: %v", err)
	}
	if res.AutoAdvance.Advanced {
		t.Fatalf("expected no auto-advance, got %+v", res.AutoAdvance)
	}
	if res.Group.WeanedAt == nil || !res.Group.WeanedAt.Equal(*date(2024, 4, 26)) {
		t.Fatalf("expected normalised weaned date, got %v", res.Group.WeanedAt)
	}
}

func TestRecordPlacementStartAdvancesFromWeaned(t *testing.T) {
	f := newFixture(t)
	svc := newMilestoneService(f, 0)
	g := f.group(t, offspring.Group{Status: offspring.StatusWeaned, WeanedAt: date(2024, 4, 26)})

	res, err := svc.RecordPlacementStart(f.ctx, g.ID, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("record placement start: %v", err)
	}
	if !res.AutoAdvance.Advanced || res.Group.Status != offspring.StatusPlacement {
		t.Fatalf("expected PLACEMENT, got %+v", res)
	}
}

func TestRecordRejectedOnTerminalGroups(t *testing.T) {
	f := newFixture(t)
	svc := newMilestoneService(f, 0)

	dissolved := f.group(t, offspring.Group{Status: offspring.StatusDissolved})
	_, err := svc.RecordWeaned(f.ctx, dissolved.ID, time.Now())
	expectCode(t, err, offspring.CodeCannotAdvanceDissolved)

	complete := f.group(t, offspring.Group{Status: offspring.StatusGroupComplete})
	_, err = svc.RecordBirth(f.ctx, complete.ID, time.Now())
	expectCode(t, err, offspring.CodeAlreadyComplete)

	_, err = svc.RecordBirth(f.ctx, "missing", time.Now())
	expectCode(t, err, offspring.CodeGroupNotFound)
}

func TestHistoryListsEventsInOrder(t *testing.T) {
	f := newFixture(t)
	svc := newMilestoneService(f, 0)
	g := f.group(t, offspring.Group{ActualBirthOn: date(2024, 3, 1)}, offspring.Member{Name: "a"})

	if _, err := f.svc.Advance(f.ctx, g.ID, nil); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := f.svc.Advance(f.ctx, g.ID, nil); err != nil {
		t.Fatalf("advance: %v", err)
	}
	events, err := svc.History(f.ctx, g.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(events) != 2 || events[0].After != "BORN" || events[1].After != "WEANING" {
		t.Fatalf("unexpected history %+v", events)
	}
}

func TestOverdueMilestones(t *testing.T) {
	f := newFixture(t)
	svc := newMilestoneService(f, 2)

	late := f.group(t, offspring.Group{Status: offspring.StatusWeaning, ExpectedWeanedAt: date(2024, 4, 1)})
	_ = f.group(t, offspring.Group{Status: offspring.StatusWeaning, ExpectedWeanedAt: date(2024, 4, 8)})
	_ = f.group(t, offspring.Group{Status: offspring.StatusWeaned, WeanedAt: date(2024, 3, 1), ExpectedPlacementStartAt: date(2024, 4, 8)})
	placement := f.group(t, offspring.Group{Status: offspring.StatusPlacement, ExpectedPlacementCompletedAt: date(2024, 3, 1)})
	_ = f.group(t, offspring.Group{Status: offspring.StatusGroupComplete, ExpectedPlacementCompletedAt: date(2024, 1, 1)})
	_ = f.group(t, offspring.Group{Status: offspring.StatusPending})

	overdue, err := svc.OverdueMilestones(f.ctx, time.Date(2024, 4, 10, 6, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("overdue milestones: %v", err)
	}
	byID := make(map[string]OverdueMilestone, len(overdue))
	for _, o := range overdue {
		byID[o.GroupID] = o
	}
	if len(byID) != 2 {
		t.Fatalf("expected two overdue groups, got %+v", overdue)
	}
	if o := byID[late.ID]; o.Field != offspring.FieldWeanedAt || o.DaysOverdue != 9 {
		t.Fatalf("unexpected weaning entry %+v", o)
	}
	if o := byID[placement.ID]; o.Field != offspring.FieldCompletedAt || o.DaysOverdue != 40 {
		t.Fatalf("unexpected placement entry %+v", o)
	}
}

func TestRecordBirthWarnsWhenOverwritingRecordedDate(t *testing.T) {
	f := newFixture(t)
	svc := newMilestoneService(f, 0)
	g := f.group(t, offspring.Group{
		Species:       "DOG",
		Status:        offspring.StatusWeaned,
		ActualBirthOn: date(2024, 3, 1),
		WeanedAt:      date(2024, 4, 26),
	})

	res, err := svc.RecordBirth(f.ctx, g.ID, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("record birth: %v", err)
	}
	if res.Group.Status != offspring.StatusWeaned {
		t.Fatalf("expected status untouched, got %s", res.Group.Status)
	}

	var warned *logrus.Entry
	for _, e := range f.hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "Overwriting a recorded milestone date" {
			warned = e
		}
	}
	if warned == nil {
		t.Fatalf("expected an overwrite warning")
	}
	if warned.Data["field"] != offspring.FieldActualBirthOn || warned.Data["before"] != "2024-03-01" || warned.Data["after"] != "2024-03-05" {
		t.Fatalf("unexpected warning fields %+v", warned.Data)
	}
}

func TestRecordWeanedSameDateDoesNotWarn(t *testing.T) {
	f := newFixture(t)
	svc := newMilestoneService(f, 0)
	g := f.group(t, offspring.Group{Status: offspring.StatusWeaning, WeanedAt: date(2024, 4, 26)})

	if _, err := svc.RecordWeaned(f.ctx, g.ID, time.Date(2024, 4, 26, 18, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("record weaned: %v", err)
	}
	for _, e := range f.hook.AllEntries() {
		if e.Message == "Overwriting a recorded milestone date" {
			t.Fatalf("unexpected overwrite warning %+v", e.Data)
		}
	}
}
