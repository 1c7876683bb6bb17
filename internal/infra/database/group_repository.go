package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"offspring_lifecycle/internal/domain/offspring"

	"github.com/google/uuid"
	"github.com/lib/pq" // For pq.Array
)

// Compile-time contract assertion.
var _ offspring.Store = (*GroupRepository)(nil)

const groupColumns = `id, tenant_id, species, lifecycle_status,
       actual_birth_on, weaned_at, placement_start_at, completed_at,
       expected_weaned_at, expected_placement_start_at, expected_placement_completed_at,
       count_live, count_born, count_placed, created_at, updated_at`

const memberColumns = `id, group_id, name, life_state, placement_state, keeper_intent, archived_at`

const eventColumns = `id, group_id, event_type, field, occurred_at, before_value, after_value, notes`

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// GroupRepository persists offspring groups, members and lifecycle events in
// PostgreSQL or SQLite.
type GroupRepository struct {
	db      *sql.DB
	dialect Dialect
	nowFn   func() time.Time
}

func NewGroupRepository(db *sql.DB, dialect Dialect) *GroupRepository {
	return &GroupRepository{
		db:      db,
		dialect: dialect,
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// RunInTx runs fn inside one database transaction. On Postgres the group row is
// locked by LoadSnapshot; on SQLite the single pooled connection serialises writers.
func (r *GroupRepository) RunInTx(ctx context.Context, fn func(tx offspring.Tx) error) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin lifecycle transaction: %w", err)
	}
	defer sqlTx.Rollback() // Rollback if not committed

	if err := fn(&groupTx{q: sqlTx, dialect: r.dialect, now: r.nowFn().UTC()}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit lifecycle transaction: %w", err)
	}
	return nil
}

type groupTx struct {
	q       queryer
	dialect Dialect
	now     time.Time
}

func (t *groupTx) LoadSnapshot(ctx context.Context, groupID string) (offspring.Snapshot, error) {
	query := t.dialect.Rebind(`SELECT ` + groupColumns + ` FROM offspring_groups WHERE id = ?` + t.dialect.lockClause())
	g, err := scanGroup(t.q.QueryRowContext(ctx, query, groupID))
	if err != nil {
		if err == sql.ErrNoRows {
			return offspring.Snapshot{}, offspring.ErrGroupNotFound
		}
		return offspring.Snapshot{}, fmt.Errorf("error loading offspring group %s: %w", groupID, err)
	}

	rows, err := t.q.QueryContext(ctx, t.dialect.Rebind(`SELECT `+memberColumns+`
               FROM offspring WHERE group_id = ? AND archived_at IS NULL ORDER BY id`), groupID)
	if err != nil {
		return offspring.Snapshot{}, fmt.Errorf("error querying offspring for group %s: %w", groupID, err)
	}
	defer rows.Close()

	members := make([]offspring.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return offspring.Snapshot{}, fmt.Errorf("error scanning offspring row: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return offspring.Snapshot{}, fmt.Errorf("error iterating offspring rows: %w", err)
	}
	return offspring.Snapshot{Group: g, Members: members}, nil
}

func (t *groupTx) WriteGroup(ctx context.Context, groupID string, patch offspring.GroupPatch) error {
	var sets []string
	var args []any

	if patch.Status != nil {
		sets = append(sets, "lifecycle_status = ?")
		args = append(args, string(*patch.Status))
	}
	cleared := make(map[offspring.DateField]bool, len(patch.Clear))
	for _, field := range patch.Clear {
		if !field.Valid() {
			return fmt.Errorf("unknown date field %q", field)
		}
		cleared[field] = true
	}
	for field := range patch.Set {
		if !field.Valid() {
			return fmt.Errorf("unknown date field %q", field)
		}
	}
	// DateFields gives a stable column order; a field both set and cleared ends up cleared.
	for _, field := range offspring.DateFields() {
		if cleared[field] {
			sets = append(sets, string(field)+" = NULL")
			continue
		}
		if v, ok := patch.Set[field]; ok {
			sets = append(sets, string(field)+" = ?")
			args = append(args, v.UTC())
		}
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, t.now)
	args = append(args, groupID)

	query := t.dialect.Rebind(`UPDATE offspring_groups SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
	res, err := t.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error updating offspring group %s: %w", groupID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows for group %s: %w", groupID, err)
	}
	if affected == 0 {
		return offspring.ErrGroupNotFound
	}
	return nil
}

func (t *groupTx) Append(ctx context.Context, event offspring.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = t.now
	}
	query := t.dialect.Rebind(`INSERT INTO lifecycle_events (` + eventColumns + `)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := t.q.ExecContext(ctx, query,
		event.ID, event.GroupID, string(event.Type), event.Field, event.OccurredAt.UTC(),
		event.Before, event.After, event.Notes,
	)
	if err != nil {
		return fmt.Errorf("error appending lifecycle event for group %s: %w", event.GroupID, err)
	}
	return nil
}

// CreateGroup inserts a group, assigning an id and defaulting the status to PENDING.
func (r *GroupRepository) CreateGroup(ctx context.Context, g offspring.Group) (offspring.Group, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.Status == "" {
		g.Status = offspring.StatusPending
	}
	now := r.nowFn().UTC()
	g.CreatedAt, g.UpdatedAt = now, now

	query := r.dialect.Rebind(`INSERT INTO offspring_groups (` + groupColumns + `)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		g.ID, g.TenantID, g.Species, string(g.Status),
		nullTime(g.ActualBirthOn), nullTime(g.WeanedAt), nullTime(g.PlacementStartAt), nullTime(g.CompletedAt),
		nullTime(g.ExpectedWeanedAt), nullTime(g.ExpectedPlacementStartAt), nullTime(g.ExpectedPlacementCompletedAt),
		nullInt(g.CountLive), nullInt(g.CountBorn), nullInt(g.CountPlaced), g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		return offspring.Group{}, fmt.Errorf("error creating offspring group: %w", err)
	}
	return g, nil
}

// AddMember attaches an offspring record to a group.
func (r *GroupRepository) AddMember(ctx context.Context, m offspring.Member) (offspring.Member, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.LifeState == "" {
		m.LifeState = offspring.LifeStateAlive
	}
	if m.PlacementState == "" {
		m.PlacementState = offspring.PlacementUnassigned
	}
	if m.KeeperIntent == "" {
		m.KeeperIntent = offspring.KeeperNone
	}
	query := r.dialect.Rebind(`INSERT INTO offspring (` + memberColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.GroupID, m.Name, string(m.LifeState), string(m.PlacementState), string(m.KeeperIntent), nullTime(m.ArchivedAt),
	)
	if err != nil {
		return offspring.Member{}, fmt.Errorf("error adding offspring to group %s: %w", m.GroupID, err)
	}
	return m, nil
}

// GetGroup reads a group outside of any unit of work.
func (r *GroupRepository) GetGroup(ctx context.Context, id string) (offspring.Group, error) {
	query := r.dialect.Rebind(`SELECT ` + groupColumns + ` FROM offspring_groups WHERE id = ?`)
	g, err := scanGroup(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return offspring.Group{}, offspring.ErrGroupNotFound
		}
		return offspring.Group{}, fmt.Errorf("error getting offspring group by ID: %w", err)
	}
	return g, nil
}

// ListEvents returns a group's events in append order.
func (r *GroupRepository) ListEvents(ctx context.Context, groupID string) ([]offspring.Event, error) {
	query := r.dialect.Rebind(`SELECT ` + eventColumns + `
               FROM lifecycle_events WHERE group_id = ? ORDER BY seq`)
	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("error querying lifecycle events: %w", err)
	}
	defer rows.Close()

	events := make([]offspring.Event, 0)
	for rows.Next() {
		var e offspring.Event
		var eventType string
		if err := rows.Scan(&e.ID, &e.GroupID, &eventType, &e.Field, &e.OccurredAt, &e.Before, &e.After, &e.Notes); err != nil {
			return nil, fmt.Errorf("error scanning lifecycle event row: %w", err)
		}
		e.Type = offspring.EventType(eventType)
		e.OccurredAt = e.OccurredAt.UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lifecycle event rows: %w", err)
	}
	return events, nil
}

// ListOpenGroups returns groups that are neither complete nor dissolved, oldest first.
func (r *GroupRepository) ListOpenGroups(ctx context.Context) ([]offspring.Group, error) {
	terminal := []string{string(offspring.StatusGroupComplete), string(offspring.StatusDissolved)}

	var rows *sql.Rows
	var err error
	switch r.dialect {
	case DialectPostgres:
		rows, err = r.db.QueryContext(ctx, `SELECT `+groupColumns+`
               FROM offspring_groups WHERE NOT (lifecycle_status = ANY($1::text[]))
               ORDER BY created_at, id`, pq.Array(terminal))
	default:
		rows, err = r.db.QueryContext(ctx, `SELECT `+groupColumns+`
               FROM offspring_groups WHERE lifecycle_status NOT IN (?, ?)
               ORDER BY created_at, id`, terminal[0], terminal[1])
	}
	if err != nil {
		return nil, fmt.Errorf("error listing open offspring groups: %w", err)
	}
	defer rows.Close()

	groups := make([]offspring.Group, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning offspring group row: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating offspring group rows: %w", err)
	}
	return groups, nil
}

func scanGroup(row rowScanner) (offspring.Group, error) {
	var g offspring.Group
	var status string
	var birth, weaned, placementStart, completed, expWeaned, expStart, expCompleted sql.NullTime
	var live, born, placed sql.NullInt64
	err := row.Scan(
		&g.ID, &g.TenantID, &g.Species, &status,
		&birth, &weaned, &placementStart, &completed,
		&expWeaned, &expStart, &expCompleted,
		&live, &born, &placed, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return offspring.Group{}, err
	}
	g.Status = offspring.LifecycleStatus(status)
	g.ActualBirthOn = timePtr(birth)
	g.WeanedAt = timePtr(weaned)
	g.PlacementStartAt = timePtr(placementStart)
	g.CompletedAt = timePtr(completed)
	g.ExpectedWeanedAt = timePtr(expWeaned)
	g.ExpectedPlacementStartAt = timePtr(expStart)
	g.ExpectedPlacementCompletedAt = timePtr(expCompleted)
	g.CountLive = intPtr(live)
	g.CountBorn = intPtr(born)
	g.CountPlaced = intPtr(placed)
	g.CreatedAt = g.CreatedAt.UTC()
	g.UpdatedAt = g.UpdatedAt.UTC()
	return g, nil
}

func scanMember(row rowScanner) (offspring.Member, error) {
	var m offspring.Member
	var life, placement, intent string
	var archived sql.NullTime
	if err := row.Scan(&m.ID, &m.GroupID, &m.Name, &life, &placement, &intent, &archived); err != nil {
		return offspring.Member{}, err
	}
	m.LifeState = offspring.LifeState(life)
	m.PlacementState = offspring.PlacementState(placement)
	m.KeeperIntent = offspring.KeeperIntent(intent)
	m.ArchivedAt = timePtr(archived)
	return m, nil
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
