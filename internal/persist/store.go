package persist

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/jpalmerr/livewatch/internal/history"
	"github.com/jpalmerr/livewatch/internal/predict"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	stateTable = "channel_state"
	slotTable  = "broadcast_slots"
)

// The type names are understood by both SQLite and Postgres.
const schema = `
CREATE TABLE IF NOT EXISTS channel_state (
    channel_id TEXT PRIMARY KEY,
    tier TEXT NOT NULL,
    activity_score DOUBLE PRECISION NOT NULL,
    checks BIGINT NOT NULL,
    found BIGINT NOT NULL,
    last_seen_live BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS broadcast_slots (
    channel_id TEXT NOT NULL,
    weekday INTEGER NOT NULL,
    hour INTEGER NOT NULL,
    last_seen BIGINT NOT NULL,
    PRIMARY KEY (channel_id, weekday, hour)
);`

// State is the persisted part of one channel: its broadcast history, its
// activity counters and the tier it was last placed in.
type State struct {
	ChannelID string
	Tier      predict.Tier
	Schedule  history.Schedule
	Activity  history.Activity
	UpdatedAt time.Time
}

// Store saves and restores channel state in a SQL database.
type Store struct {
	db     *sql.DB
	driver string
	sb     sq.StatementBuilderType
}

// Open connects to the database named by dsn and ensures the schema exists.
// For SQLite, dsn is a file path whose directory is created if missing.
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite:
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("persist: ensure dir: %w", err)
			}
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("persist: unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("persist: open: %w", err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	s := &Store{db: db, driver: driver, sb: builder(driver)}
	if err := s.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func builder(driver string) sq.StatementBuilderType {
	if driver == DriverPostgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("persist: init schema: %w", err)
	}
	return nil
}

// Driver returns the database driver name.
func (s *Store) Driver() string {
	return s.driver
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save replaces the stored state of st.ChannelID.
func (s *Store) Save(ctx context.Context, st State) error {
	if st.ChannelID == "" {
		return fmt.Errorf("persist: save: empty channel id")
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("persist: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	upsert, args, err := s.upsertState(st).ToSql()
	if err != nil {
		return fmt.Errorf("persist: build upsert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsert, args...); err != nil {
		return fmt.Errorf("persist: upsert state %s: %w", st.ChannelID, err)
	}

	del, args, err := s.sb.Delete(slotTable).Where(sq.Eq{"channel_id": st.ChannelID}).ToSql()
	if err != nil {
		return fmt.Errorf("persist: build delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, del, args...); err != nil {
		return fmt.Errorf("persist: clear slots %s: %w", st.ChannelID, err)
	}

	if ins, ok := s.insertSlots(st); ok {
		query, args, err := ins.ToSql()
		if err != nil {
			return fmt.Errorf("persist: build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("persist: insert slots %s: %w", st.ChannelID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("persist: commit: %w", err)
	}
	return nil
}

func (s *Store) upsertState(st State) sq.InsertBuilder {
	return s.sb.Insert(stateTable).
		Columns("channel_id", "tier", "activity_score", "checks", "found", "last_seen_live", "updated_at").
		Values(
			st.ChannelID,
			st.Tier.String(),
			st.Activity.Score,
			st.Activity.Checks,
			st.Activity.Found,
			toNanos(st.Activity.LastSeenLive),
			toNanos(st.UpdatedAt),
		).
		Suffix(`ON CONFLICT (channel_id) DO UPDATE SET
    tier = excluded.tier,
    activity_score = excluded.activity_score,
    checks = excluded.checks,
    found = excluded.found,
    last_seen_live = excluded.last_seen_live,
    updated_at = excluded.updated_at`)
}

func (s *Store) insertSlots(st State) (sq.InsertBuilder, bool) {
	ins := s.sb.Insert(slotTable).Columns("channel_id", "weekday", "hour", "last_seen")
	if st.Schedule.Empty() {
		return ins, false
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		for _, slot := range st.Schedule.Slots(wd) {
			ins = ins.Values(st.ChannelID, int(wd), slot.Hour, toNanos(slot.LastSeen))
		}
	}
	return ins, true
}

// Load returns the stored state for channelID.
// The boolean is false when nothing has been saved for it.
func (s *Store) Load(ctx context.Context, channelID string) (State, bool, error) {
	states, err := s.load(ctx, sq.Eq{"channel_id": channelID})
	if err != nil {
		return State{}, false, err
	}
	st, ok := states[channelID]
	return st, ok, nil
}

// LoadAll returns every stored state keyed by channel ID.
func (s *Store) LoadAll(ctx context.Context) (map[string]State, error) {
	return s.load(ctx, nil)
}

func (s *Store) load(ctx context.Context, where sq.Sqlizer) (map[string]State, error) {
	sel := s.sb.Select("channel_id", "tier", "activity_score", "checks", "found", "last_seen_live", "updated_at").
		From(stateTable)
	if where != nil {
		sel = sel.Where(where)
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("persist: build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("persist: query state: %w", err)
	}

	states := make(map[string]State)
	for rows.Next() {
		var (
			st            State
			tier          string
			lastLive, upd int64
			checks, found int64
		)
		if err := rows.Scan(&st.ChannelID, &tier, &st.Activity.Score, &checks, &found, &lastLive, &upd); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("persist: scan state: %w", err)
		}
		if st.Tier, err = predict.ParseTier(tier); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("persist: channel %s: %w", st.ChannelID, err)
		}
		st.Activity.Checks = int(checks)
		st.Activity.Found = int(found)
		st.Activity.LastSeenLive = fromNanos(lastLive)
		st.UpdatedAt = fromNanos(upd)
		states[st.ChannelID] = st
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("persist: rows iteration: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("persist: close rows: %w", err)
	}

	slots, err := s.loadSlots(ctx, where)
	if err != nil {
		return nil, err
	}
	for id, byDay := range slots {
		st, ok := states[id]
		if !ok {
			continue
		}
		sched, err := history.FromSlots(byDay)
		if err != nil {
			return nil, fmt.Errorf("persist: channel %s: %w", id, err)
		}
		st.Schedule = sched
		states[id] = st
	}
	return states, nil
}

func (s *Store) loadSlots(ctx context.Context, where sq.Sqlizer) (map[string]map[time.Weekday][]history.Slot, error) {
	sel := s.sb.Select("channel_id", "weekday", "hour", "last_seen").
		From(slotTable).
		OrderBy("channel_id", "weekday", "hour")
	if where != nil {
		sel = sel.Where(where)
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("persist: build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("persist: query slots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]map[time.Weekday][]history.Slot)
	for rows.Next() {
		var (
			id          string
			weekday, hr int
			lastSeen    int64
		)
		if err := rows.Scan(&id, &weekday, &hr, &lastSeen); err != nil {
			return nil, fmt.Errorf("persist: scan slot: %w", err)
		}
		if out[id] == nil {
			out[id] = make(map[time.Weekday][]history.Slot)
		}
		wd := time.Weekday(weekday)
		out[id][wd] = append(out[id][wd], history.Slot{Hour: hr, LastSeen: fromNanos(lastSeen)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("persist: rows iteration: %w", err)
	}
	return out, nil
}

// Delete removes the stored state for channelID. Unknown IDs are ignored.
func (s *Store) Delete(ctx context.Context, channelID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("persist: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{slotTable, stateTable} {
		query, args, err := s.sb.Delete(table).Where(sq.Eq{"channel_id": channelID}).ToSql()
		if err != nil {
			return fmt.Errorf("persist: build delete: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("persist: delete %s from %s: %w", channelID, table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("persist: commit: %w", err)
	}
	return nil
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
