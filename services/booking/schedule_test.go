package booking

import (
	"testing"
	"time"

	"github.com/bimbelkita/bimbel-api/model"
)

func TestNextWeekday(t *testing.T) {
	// 2025-06-16 is a Monday
	monday := time.Date(2025, 6, 16, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		from    time.Time
		weekday time.Weekday
		wantDay int
	}{
		{"today counts", monday, time.Monday, 16},
		{"next day", monday, time.Tuesday, 17},
		{"wraps the week", monday, time.Sunday, 22},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextWeekday(tt.from, tt.weekday)
			if got.Day() != tt.wantDay {
				t.Errorf("NextWeekday() = %v, want day %d", got, tt.wantDay)
			}
			if got.Hour() != 0 || got.Minute() != 0 {
				t.Errorf("NextWeekday() = %v, want midnight anchor", got)
			}
		})
	}
}

func TestGenerateWeeklySlots(t *testing.T) {
	// 2025-06-16 is a Monday
	now := time.Date(2025, 6, 16, 6, 0, 0, 0, time.UTC)

	t.Run("window divides evenly", func(t *testing.T) {
		starts, err := GenerateWeeklySlots(now, []time.Weekday{time.Monday}, "08:00", "10:00", time.Hour)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(starts) != 2 {
			t.Fatalf("got %d slots, want 2", len(starts))
		}
		if starts[0].Hour() != 8 || starts[1].Hour() != 9 {
			t.Errorf("starts = %v, want 08:00 and 09:00", starts)
		}
	})

	t.Run("trailing partial slot is dropped", func(t *testing.T) {
		starts, err := GenerateWeeklySlots(now, []time.Weekday{time.Monday}, "08:00", "09:30", time.Hour)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(starts) != 1 {
			t.Fatalf("got %d slots, want 1 (the 09:00 slot would overflow the window)", len(starts))
		}
	})

	t.Run("window smaller than duration yields nothing", func(t *testing.T) {
		starts, err := GenerateWeeklySlots(now, []time.Weekday{time.Monday}, "08:00", "08:30", time.Hour)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(starts) != 0 {
			t.Fatalf("got %d slots, want 0", len(starts))
		}
	})

	t.Run("multiple weekdays are sorted chronologically", func(t *testing.T) {
		starts, err := GenerateWeeklySlots(now, []time.Weekday{time.Wednesday, time.Monday}, "08:00", "09:00", time.Hour)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(starts) != 2 {
			t.Fatalf("got %d slots, want 2", len(starts))
		}
		if !starts[0].Before(starts[1]) {
			t.Errorf("starts not sorted: %v", starts)
		}
		if starts[0].Weekday() != time.Monday || starts[1].Weekday() != time.Wednesday {
			t.Errorf("weekdays = %v and %v, want Monday then Wednesday", starts[0].Weekday(), starts[1].Weekday())
		}
	})

	t.Run("bad time of day", func(t *testing.T) {
		if _, err := GenerateWeeklySlots(now, []time.Weekday{time.Monday}, "8am", "10:00", time.Hour); err != ErrBadTimeOfDay {
			t.Errorf("err = %v, want ErrBadTimeOfDay", err)
		}
	})

	t.Run("non-positive duration", func(t *testing.T) {
		if _, err := GenerateWeeklySlots(now, []time.Weekday{time.Monday}, "08:00", "10:00", 0); err != ErrInvalidWindow {
			t.Errorf("err = %v, want ErrInvalidWindow", err)
		}
	})
}

func TestGroupByWeekday(t *testing.T) {
	now := time.Date(2025, 6, 16, 9, 30, 0, 0, time.UTC) // Monday 09:30

	slots := []model.TeachingSlot{
		{ID: 1, StartsAt: time.Date(2025, 6, 18, 10, 0, 0, 0, time.UTC), EndsAt: time.Date(2025, 6, 18, 11, 0, 0, 0, time.UTC)}, // Wednesday
		{ID: 2, StartsAt: time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC), EndsAt: time.Date(2025, 6, 16, 10, 0, 0, 0, time.UTC)},  // Monday, live now
		{ID: 3, StartsAt: time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC), EndsAt: time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC)},   // Monday, over
	}

	groups := GroupByWeekday(slots, now)

	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2 (empty weekdays omitted)", len(groups))
	}
	if groups[0].Weekday != "Monday" || groups[1].Weekday != "Wednesday" {
		t.Fatalf("group order = %s, %s; want Monday, Wednesday", groups[0].Weekday, groups[1].Weekday)
	}

	monday := groups[0]
	if len(monday.Slots) != 2 {
		t.Fatalf("Monday has %d slots, want 2", len(monday.Slots))
	}
	if monday.Slots[0].ID != 3 || monday.Slots[1].ID != 2 {
		t.Errorf("Monday slots not in start order: %d, %d", monday.Slots[0].ID, monday.Slots[1].ID)
	}
	if monday.Slots[0].IsLive {
		t.Error("finished slot flagged live")
	}
	if !monday.Slots[1].IsLive {
		t.Error("in-progress slot not flagged live")
	}
}
