package persist

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/jpalmerr/livewatch/internal/history"
	"github.com/jpalmerr/livewatch/internal/predict"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "livewatch.db")
	st, err := Open(DriverSQLite, path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st, path
}

// monday returns a Monday in January 2024 at the given hour.
func monday(week, hour int) time.Time {
	return time.Date(2024, time.January, 1+7*week, hour, 0, 0, 0, time.UTC)
}

func sampleState(t *testing.T, id string, hours ...int) State {
	t.Helper()
	var sched history.Schedule
	for i, h := range hours {
		if err := sched.Record(monday(i, h)); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	return State{
		ChannelID: id,
		Tier:      predict.Fast,
		Schedule:  sched,
		Activity: history.Activity{
			Score:        0.375,
			Checks:       12,
			Found:        3,
			LastSeenLive: monday(2, 21),
		},
		UpdatedAt: monday(3, 0),
	}
}

func lastSeenByHour(s history.Schedule, wd time.Weekday) map[int]time.Time {
	out := make(map[int]time.Time)
	for _, slot := range s.Slots(wd) {
		out[slot.Hour] = slot.LastSeen
	}
	return out
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := Open("mysql", "whatever"); err == nil {
		t.Fatal("Open(mysql) error = nil")
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	st, _ := openTemp(t)
	ctx := context.Background()
	want := sampleState(t, "alice", 20, 21, 9)

	if err := st.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, ok, err := st.Load(ctx, "alice")
	if err != nil || !ok {
		t.Fatalf("Load() = ok %v, err %v", ok, err)
	}

	if got.Tier != predict.Fast {
		t.Errorf("Tier = %v, want fast", got.Tier)
	}
	if got.Activity.Score != want.Activity.Score || got.Activity.Checks != 12 || got.Activity.Found != 3 {
		t.Errorf("Activity = %+v, want %+v", got.Activity, want.Activity)
	}
	if !got.Activity.LastSeenLive.Equal(want.Activity.LastSeenLive) {
		t.Errorf("LastSeenLive = %v, want %v", got.Activity.LastSeenLive, want.Activity.LastSeenLive)
	}
	if !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, want.UpdatedAt)
	}

	gotHours := got.Schedule.Hours(time.Monday)
	if len(gotHours) != 3 || gotHours[0] != 9 || gotHours[1] != 20 || gotHours[2] != 21 {
		t.Errorf("Hours(Monday) = %v, want [9 20 21]", gotHours)
	}
	wantSeen := lastSeenByHour(want.Schedule, time.Monday)
	for hour, seen := range lastSeenByHour(got.Schedule, time.Monday) {
		if !seen.Equal(wantSeen[hour]) {
			t.Errorf("LastSeen[%d] = %v, want %v", hour, seen, wantSeen[hour])
		}
	}
}

func TestStore_LoadUnknown(t *testing.T) {
	st, _ := openTemp(t)

	_, ok, err := st.Load(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if ok {
		t.Error("Load(nobody) ok = true")
	}
}

func TestStore_SaveReplacesSlots(t *testing.T) {
	st, _ := openTemp(t)
	ctx := context.Background()

	if err := st.Save(ctx, sampleState(t, "alice", 20, 21)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	next := sampleState(t, "alice", 7)
	next.Tier = predict.Slow
	if err := st.Save(ctx, next); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, _, err := st.Load(ctx, "alice")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if hours := got.Schedule.Hours(time.Monday); len(hours) != 1 || hours[0] != 7 {
		t.Errorf("Hours(Monday) = %v, want [7]", hours)
	}
	if got.Tier != predict.Slow {
		t.Errorf("Tier = %v, want slow", got.Tier)
	}
}

func TestStore_EmptyScheduleRoundTrip(t *testing.T) {
	st, _ := openTemp(t)
	ctx := context.Background()

	if err := st.Save(ctx, State{ChannelID: "quiet", Tier: predict.Medium}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, ok, err := st.Load(ctx, "quiet")
	if err != nil || !ok {
		t.Fatalf("Load() = ok %v, err %v", ok, err)
	}
	if !got.Schedule.Empty() {
		t.Errorf("Schedule = %v, want empty", got.Schedule.Week())
	}
	if !got.Activity.LastSeenLive.IsZero() {
		t.Errorf("LastSeenLive = %v, want zero", got.Activity.LastSeenLive)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not defaulted")
	}
}

func TestStore_LoadAllAndDelete(t *testing.T) {
	st, _ := openTemp(t)
	ctx := context.Background()

	for _, id := range []string{"alice", "bob", "carol"} {
		if err := st.Save(ctx, sampleState(t, id, 20)); err != nil {
			t.Fatalf("Save(%s) error = %v", id, err)
		}
	}
	if err := st.Delete(ctx, "bob"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := st.Delete(ctx, "never-saved"); err != nil {
		t.Fatalf("Delete(unknown) error = %v", err)
	}

	all, err := st.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("LoadAll() = %d states, want 2", len(all))
	}
	if _, ok := all["bob"]; ok {
		t.Error("bob still stored after Delete")
	}
	if hours := all["carol"].Schedule.Hours(time.Monday); len(hours) != 1 || hours[0] != 20 {
		t.Errorf("carol Hours(Monday) = %v", hours)
	}
}

func TestStore_SurvivesReopen(t *testing.T) {
	st, path := openTemp(t)
	ctx := context.Background()

	if err := st.Save(ctx, sampleState(t, "alice", 21)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(DriverSQLite, path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = reopened.Close() }()

	got, ok, err := reopened.Load(ctx, "alice")
	if err != nil || !ok {
		t.Fatalf("Load() = ok %v, err %v", ok, err)
	}
	if !got.Schedule.Contains(time.Monday, 21) {
		t.Error("schedule lost across reopen")
	}
}

func TestBuilder_Placeholders(t *testing.T) {
	tests := []struct {
		driver string
		want   string
	}{
		{DriverSQLite, "channel_id = ?"},
		{DriverPostgres, "channel_id = $1"},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			query, args, err := builder(tt.driver).Delete(slotTable).Where(sq.Eq{"channel_id": "alice"}).ToSql()
			if err != nil {
				t.Fatalf("ToSql() error = %v", err)
			}
			if !strings.Contains(query, tt.want) {
				t.Errorf("query = %q, want it to contain %q", query, tt.want)
			}
			if len(args) != 1 || args[0] != "alice" {
				t.Errorf("args = %v", args)
			}
		})
	}
}

func TestUpsert_PostgresPlaceholders(t *testing.T) {
	s := &Store{driver: DriverPostgres, sb: builder(DriverPostgres)}

	query, args, err := s.upsertState(State{ChannelID: "alice", Tier: predict.Medium}).ToSql()
	if err != nil {
		t.Fatalf("ToSql() error = %v", err)
	}
	if !strings.Contains(query, "$7") || strings.Contains(query, "?") {
		t.Errorf("query = %q, want dollar placeholders", query)
	}
	if !strings.Contains(query, "ON CONFLICT (channel_id) DO UPDATE") {
		t.Errorf("query = %q, want upsert suffix", query)
	}
	if len(args) != 7 {
		t.Errorf("len(args) = %d, want 7", len(args))
	}
}
