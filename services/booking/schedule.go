package booking

import (
	"errors"
	"sort"
	"time"

	"github.com/bimbelkita/bimbel-api/model"
)

var ErrBadTimeOfDay = errors.New("time must be in HH:MM format")

// NextWeekday returns the next date on or after from whose weekday matches.
// "Today counts": asking for Monday on a Monday returns today.
func NextWeekday(from time.Time, weekday time.Weekday) time.Time {
	date := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	for i := 0; i < 7; i++ {
		if date.Weekday() == weekday {
			return date
		}
		date = date.AddDate(0, 0, 1)
	}
	return date
}

// GenerateWeeklySlots emits the start time of every non-overlapping slot of
// the given duration inside the daily window, for the next occurrence of each
// selected weekday. Trailing partial slots are dropped, not truncated.
func GenerateWeeklySlots(now time.Time, weekdays []time.Weekday, windowStart, windowEnd string, duration time.Duration) ([]time.Time, error) {
	if duration <= 0 {
		return nil, ErrInvalidWindow
	}

	startH, startM, err := parseTimeOfDay(windowStart)
	if err != nil {
		return nil, err
	}
	endH, endM, err := parseTimeOfDay(windowEnd)
	if err != nil {
		return nil, err
	}

	var starts []time.Time
	for _, weekday := range weekdays {
		anchor := NextWeekday(now, weekday)
		cursor := anchor.Add(time.Duration(startH)*time.Hour + time.Duration(startM)*time.Minute)
		windowClose := anchor.Add(time.Duration(endH)*time.Hour + time.Duration(endM)*time.Minute)

		for !cursor.Add(duration).After(windowClose) {
			starts = append(starts, cursor)
			cursor = cursor.Add(duration)
		}
	}

	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	return starts, nil
}

func parseTimeOfDay(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, ErrBadTimeOfDay
	}
	return t.Hour(), t.Minute(), nil
}

// SlotView is a slot decorated for calendar display.
type SlotView struct {
	model.TeachingSlot
	IsLive bool `json:"is_live"`
}

// WeekdayGroup is one calendar column: a weekday name plus its slots in
// start order.
type WeekdayGroup struct {
	Weekday string     `json:"weekday"`
	Slots   []SlotView `json:"slots"`
}

// GroupByWeekday arranges slots into weekday-named groups for calendar-style
// display, Monday first. Empty weekdays are omitted.
func GroupByWeekday(slots []model.TeachingSlot, now time.Time) []WeekdayGroup {
	order := []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
		time.Friday, time.Saturday, time.Sunday,
	}

	byDay := make(map[time.Weekday][]SlotView)
	for _, slot := range slots {
		day := slot.StartsAt.Weekday()
		byDay[day] = append(byDay[day], SlotView{
			TeachingSlot: slot,
			IsLive:       slot.IsLive(now),
		})
	}

	var groups []WeekdayGroup
	for _, day := range order {
		views, ok := byDay[day]
		if !ok {
			continue
		}
		sort.Slice(views, func(i, j int) bool {
			return views[i].StartsAt.Before(views[j].StartsAt)
		})
		groups = append(groups, WeekdayGroup{
			Weekday: day.String(),
			Slots:   views,
		})
	}
	return groups
}
