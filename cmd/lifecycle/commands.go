package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"offspring_lifecycle/internal/app"
	"offspring_lifecycle/internal/domain/offspring"
	"offspring_lifecycle/internal/domain/species"
	"offspring_lifecycle/internal/infra/config"
)

const usage = `usage: lifecycle [command]

commands:
  serve                                  run the overdue milestone scheduler (default)
  advance <group-id> [STATUS]            move a group one step forward
  rewind <group-id>                      move a group one step back
  dissolve <group-id>                    dissolve a group with no live offspring
  auto-advance <group-id>                advance one step if the next precondition holds
  record-birth <group-id> <YYYY-MM-DD>   record the birth date and projected milestones
  record-weaned <group-id> <YYYY-MM-DD>  record the weaned date
  record-placement <group-id> <YYYY-MM-DD>
                                         record the placement start date
  expected-dates <YYYY-MM-DD> <SPECIES>  print projected milestone dates
  history <group-id>                     print the group's lifecycle events
  overdue [YYYY-MM-DD]                   print overdue milestones as of a date (default today)

Groups and offspring are created by the application that owns them; this tool only
records milestones on and transitions existing groups. Every command except
expected-dates needs STORAGE_DRIVER=sqlite or postgres.
`

const dateLayout = "2006-01-02"

// runCommand executes one operator command and writes a plain-text result to out.
func runCommand(ctx context.Context, args []string, lifecycle app.LifecycleService, milestones app.MilestoneService, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command\n%s", usage)
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "advance":
		if len(rest) < 1 || len(rest) > 2 {
			return usageError(cmd)
		}
		var target *offspring.LifecycleStatus
		if len(rest) == 2 {
			s := offspring.LifecycleStatus(strings.ToUpper(rest[1]))
			target = &s
		}
		g, err := lifecycle.Advance(ctx, rest[0], target)
		if err != nil {
			return err
		}
		printGroup(out, g)
	case "rewind":
		if len(rest) != 1 {
			return usageError(cmd)
		}
		g, err := lifecycle.Rewind(ctx, rest[0])
		if err != nil {
			return err
		}
		printGroup(out, g)
	case "dissolve":
		if len(rest) != 1 {
			return usageError(cmd)
		}
		g, err := lifecycle.Dissolve(ctx, rest[0])
		if err != nil {
			return err
		}
		printGroup(out, g)
	case "auto-advance":
		if len(rest) != 1 {
			return usageError(cmd)
		}
		res, err := lifecycle.AutoAdvanceIfReady(ctx, rest[0])
		if err != nil {
			return err
		}
		printAutoAdvance(out, res)
	case "record-birth", "record-weaned", "record-placement":
		if len(rest) != 2 {
			return usageError(cmd)
		}
		on, err := parseDate(rest[1])
		if err != nil {
			return err
		}
		record := milestones.RecordBirth
		switch cmd {
		case "record-weaned":
			record = milestones.RecordWeaned
		case "record-placement":
			record = milestones.RecordPlacementStart
		}
		res, err := record(ctx, rest[0], on)
		if err != nil {
			return err
		}
		printGroup(out, res.Group)
		printAutoAdvance(out, res.AutoAdvance)
	case "expected-dates":
		if len(rest) != 2 {
			return usageError(cmd)
		}
		birth, err := parseDate(rest[0])
		if err != nil {
			return err
		}
		code := species.Normalize(rest[1])
		if !species.Known(code) {
			fmt.Fprintf(out, "species %s unknown, using %s intervals\n", code, species.DefaultCode)
		}
		d := offspring.CalculateExpectedDates(birth, code, species.Table{})
		fmt.Fprintf(out, "expected_weaned_at               %s\n", d.ExpectedWeanedAt.Format(dateLayout))
		fmt.Fprintf(out, "expected_placement_start_at      %s\n", d.ExpectedPlacementStartAt.Format(dateLayout))
		fmt.Fprintf(out, "expected_placement_completed_at  %s\n", d.ExpectedPlacementCompletedAt.Format(dateLayout))
	case "history":
		if len(rest) != 1 {
			return usageError(cmd)
		}
		events, err := milestones.History(ctx, rest[0])
		if err != nil {
			return err
		}
		for _, e := range events {
			fmt.Fprintf(out, "%s  %-22s %-32s %s -> %s", e.OccurredAt.UTC().Format(time.RFC3339), e.Type, e.Field, orDash(e.Before), orDash(e.After))
			if e.Notes != "" {
				fmt.Fprintf(out, "  (%s)", e.Notes)
			}
			fmt.Fprintln(out)
		}
	case "overdue":
		if len(rest) > 1 {
			return usageError(cmd)
		}
		asOf := time.Now()
		if len(rest) == 1 {
			var err error
			if asOf, err = parseDate(rest[0]); err != nil {
				return err
			}
		}
		overdue, err := milestones.OverdueMilestones(ctx, asOf)
		if err != nil {
			return err
		}
		for _, o := range overdue {
			fmt.Fprintf(out, "%s  %-14s %-20s expected %s (%d days overdue)\n",
				o.GroupID, o.Status, o.Field, o.ExpectedOn.Format(dateLayout), o.DaysOverdue)
		}
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
	return nil
}

// checkCommandStorage rejects commands that would only ever see an empty store.
func checkCommandStorage(driver, cmd string) error {
	switch cmd {
	case "expected-dates", "help", "-h", "--help":
		return nil
	}
	if driver == config.DriverMemory {
		return fmt.Errorf("command %q needs persistent storage: the memory store starts empty in every process, set STORAGE_DRIVER to %s or %s",
			cmd, config.DriverSQLite, config.DriverPostgres)
	}
	return nil
}

func usageError(cmd string) error {
	return fmt.Errorf("wrong arguments for %s\n%s", cmd, usage)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return offspring.NormalizeDate(t), nil
}

func printGroup(out io.Writer, g offspring.Group) {
	fmt.Fprintf(out, "group %s  species=%s  status=%s\n", g.ID, g.Species, g.Status)
	for _, f := range offspring.DateFields() {
		if v := *g.DateRef(f); v != nil {
			fmt.Fprintf(out, "  %-32s %s\n", f, v.UTC().Format(dateLayout))
		}
	}
}

func printAutoAdvance(out io.Writer, res app.AutoAdvanceResult) {
	if res.Advanced {
		fmt.Fprintf(out, "auto-advanced %s -> %s\n", res.From, res.To)
		return
	}
	fmt.Fprintf(out, "no transition (status %s)\n", res.To)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
