package history

import (
	"fmt"
	"sort"
	"time"

	lwerrors "github.com/jpalmerr/livewatch/internal/errors"
)

// SlotsPerDay is the number of distinct hours remembered per weekday.
const SlotsPerDay = 5

const daysPerWeek = 7

// Slot is one remembered broadcast hour.
type Slot struct {
	// Hour is the hour of day (0-23) at which a broadcast start was observed.
	Hour int `json:"hour"`

	// LastSeen is the most recent observation of a broadcast starting in Hour.
	// It is the eviction key when the weekday is full.
	LastSeen time.Time `json:"last_seen"`
}

type day struct {
	slots [SlotsPerDay]Slot
	n     int
}

// Schedule holds up to [SlotsPerDay] broadcast hours for each weekday.
//
// The zero value is an empty schedule ready for use. Schedule has no pointers,
// so assigning it copies all slots.
type Schedule struct {
	days [daysPerWeek]day
}

// Record adds the weekday and hour of t to the schedule.
//
// A known hour keeps its place and has its LastSeen moved forward. A new hour
// is inserted while the weekday has room; otherwise it replaces the hour with
// the oldest LastSeen. Record returns a [lwerrors.HistoryCorruptionError] if
// the weekday's slot count is out of range and leaves the schedule untouched.
func (s *Schedule) Record(t time.Time) error {
	wd := int(t.Weekday())
	d := &s.days[wd]
	if d.n < 0 || d.n > SlotsPerDay {
		return &lwerrors.HistoryCorruptionError{Weekday: wd, Size: d.n, Limit: SlotsPerDay}
	}

	hour := t.Hour()
	for i := 0; i < d.n; i++ {
		if d.slots[i].Hour == hour {
			if t.After(d.slots[i].LastSeen) {
				d.slots[i].LastSeen = t
			}
			return nil
		}
	}

	if d.n < SlotsPerDay {
		d.slots[d.n] = Slot{Hour: hour, LastSeen: t}
		d.n++
		return nil
	}

	stalest := 0
	for i := 1; i < d.n; i++ {
		if d.slots[i].LastSeen.Before(d.slots[stalest].LastSeen) {
			stalest = i
		}
	}
	d.slots[stalest] = Slot{Hour: hour, LastSeen: t}
	return nil
}

// Contains reports whether hour is recorded for weekday.
func (s Schedule) Contains(weekday time.Weekday, hour int) bool {
	d := s.days[weekday]
	for i := 0; i < d.n; i++ {
		if d.slots[i].Hour == hour {
			return true
		}
	}
	return false
}

// Hours returns the recorded hours for weekday in ascending order.
func (s Schedule) Hours(weekday time.Weekday) []int {
	d := s.days[weekday]
	hours := make([]int, 0, d.n)
	for i := 0; i < d.n; i++ {
		hours = append(hours, d.slots[i].Hour)
	}
	sort.Ints(hours)
	return hours
}

// Slots returns a copy of the slots recorded for weekday.
func (s Schedule) Slots(weekday time.Weekday) []Slot {
	d := s.days[weekday]
	out := make([]Slot, d.n)
	copy(out, d.slots[:d.n])
	return out
}

// Len returns the number of hours recorded for weekday.
func (s Schedule) Len(weekday time.Weekday) int {
	return s.days[weekday].n
}

// ActiveDays returns the number of weekdays with at least one recorded hour.
func (s Schedule) ActiveDays() int {
	n := 0
	for _, d := range s.days {
		if d.n > 0 {
			n++
		}
	}
	return n
}

// TotalHours returns the number of recorded hours across all weekdays.
func (s Schedule) TotalHours() int {
	total := 0
	for _, d := range s.days {
		total += d.n
	}
	return total
}

// Empty reports whether nothing has been recorded.
func (s Schedule) Empty() bool {
	return s.TotalHours() == 0
}

// Week returns the recorded hours keyed by weekday, omitting empty days.
func (s Schedule) Week() map[time.Weekday][]int {
	week := make(map[time.Weekday][]int)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if s.days[wd].n > 0 {
			week[wd] = s.Hours(wd)
		}
	}
	return week
}

// Validate checks slot counts and hour ranges for every weekday.
func (s Schedule) Validate() error {
	for wd, d := range s.days {
		if d.n < 0 || d.n > SlotsPerDay {
			return &lwerrors.HistoryCorruptionError{Weekday: wd, Size: d.n, Limit: SlotsPerDay}
		}
		seen := make(map[int]struct{}, d.n)
		for i := 0; i < d.n; i++ {
			h := d.slots[i].Hour
			if h < 0 || h > 23 {
				return fmt.Errorf("weekday %d: hour %d out of range: %w", wd, h, lwerrors.ErrHistoryCorrupted)
			}
			if _, dup := seen[h]; dup {
				return fmt.Errorf("weekday %d: duplicate hour %d: %w", wd, h, lwerrors.ErrHistoryCorrupted)
			}
			seen[h] = struct{}{}
		}
	}
	return nil
}

// FromSlots rebuilds a schedule from previously saved slots.
//
// Oversized weekdays are rejected rather than truncated.
func FromSlots(slots map[time.Weekday][]Slot) (Schedule, error) {
	var s Schedule
	for wd, list := range slots {
		if wd < time.Sunday || wd > time.Saturday {
			return Schedule{}, fmt.Errorf("weekday %d out of range: %w", wd, lwerrors.ErrHistoryCorrupted)
		}
		if len(list) > SlotsPerDay {
			return Schedule{}, &lwerrors.HistoryCorruptionError{Weekday: int(wd), Size: len(list), Limit: SlotsPerDay}
		}
		d := &s.days[wd]
		d.n = copy(d.slots[:], list)
	}
	if err := s.Validate(); err != nil {
		return Schedule{}, err
	}
	return s, nil
}
