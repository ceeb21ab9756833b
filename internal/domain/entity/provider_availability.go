package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidAvailability = errors.New("availability must set exactly one of day_of_week or specific_date")

// ProviderAvailability is either a recurring weekly window (DayOfWeek, 0 = Sunday)
// or a one-off window on SpecificDate. Exactly one of the two is set.
type ProviderAvailability struct {
	ID           int        `gorm:"primaryKey;autoIncrement" json:"id"`
	ProviderID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"provider_id"`
	DayOfWeek    *int       `gorm:"type:smallint" json:"day_of_week,omitempty"`
	SpecificDate *time.Time `gorm:"type:date;index" json:"specific_date,omitempty"`
	StartTime    string     `gorm:"type:time;not null" json:"start_time"`
	EndTime      string     `gorm:"type:time;not null" json:"end_time"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ProviderAvailability) TableName() string {
	return "provider_availabilities"
}

func (a *ProviderAvailability) Validate() error {
	if (a.DayOfWeek == nil) == (a.SpecificDate == nil) {
		return ErrInvalidAvailability
	}
	if a.DayOfWeek != nil && (*a.DayOfWeek < 0 || *a.DayOfWeek > 6) {
		return ErrInvalidAvailability
	}
	start, ok1 := parseClock(a.StartTime)
	end, ok2 := parseClock(a.EndTime)
	if !ok1 || !ok2 || !end.After(start) {
		return ErrInvalidAvailability
	}
	return nil
}

// CoversDate reports whether the window applies on the calendar date of d.
func (a *ProviderAvailability) CoversDate(d time.Time) bool {
	if a.SpecificDate != nil {
		return DateOnly(*a.SpecificDate).Equal(DateOnly(d))
	}
	if a.DayOfWeek != nil {
		return int(d.Weekday()) == *a.DayOfWeek
	}
	return false
}

// CoversSlot reports whether [start, end) falls inside the window on start's date.
func (a *ProviderAvailability) CoversSlot(start, end time.Time) bool {
	if !a.CoversDate(start) || !DateOnly(start).Equal(DateOnly(end)) {
		return false
	}
	winStart, ok1 := parseClock(a.StartTime)
	winEnd, ok2 := parseClock(a.EndTime)
	if !ok1 || !ok2 {
		return false
	}
	slotStart := clockOf(start)
	slotEnd := clockOf(end)
	return !slotStart.Before(winStart) && !slotEnd.After(winEnd) && slotEnd.After(slotStart)
}

// AnyCoversDate reports whether at least one window covers d
func AnyCoversDate(windows []ProviderAvailability, d time.Time) bool {
	for i := range windows {
		if windows[i].CoversDate(d) {
			return true
		}
	}
	return false
}

// AnyCoversSlot reports whether at least one window covers the slot
func AnyCoversSlot(windows []ProviderAvailability, start, end time.Time) bool {
	for i := range windows {
		if windows[i].CoversSlot(start, end) {
			return true
		}
	}
	return false
}

// parseClock accepts "15:04" and the "15:04:05" form Postgres returns for time columns.
func parseClock(s string) (time.Time, bool) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func clockOf(t time.Time) time.Time {
	return time.Date(0, 1, 1, t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}
