package models

import (
	"fmt"
	"time"
)

// DueBucket groups due dates relative to the current day.
type DueBucket string

const (
	DueToday    DueBucket = "today"
	DueTomorrow DueBucket = "tomorrow"
	DueWeek     DueBucket = "week"
	DueOverdue  DueBucket = "overdue"
)

func (b DueBucket) Valid() bool {
	switch b {
	case "", DueToday, DueTomorrow, DueWeek, DueOverdue:
		return true
	}
	return false
}

// Contains reports whether due falls in the bucket, relative to today.
// Both dates are compared at day granularity.
func (b DueBucket) Contains(due, today time.Time) bool {
	d := truncateDay(due)
	t := truncateDay(today)
	switch b {
	case DueToday:
		return d.Equal(t)
	case DueTomorrow:
		return d.Equal(t.AddDate(0, 0, 1))
	case DueWeek:
		return !d.Before(t) && d.Before(t.AddDate(0, 0, 7))
	case DueOverdue:
		return d.Before(t)
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Filter holds the transient search and filter criteria. Zero-value fields
// mean "no filter" for that dimension; set fields are combined with AND.
type Filter struct {
	Priority Priority  `json:"priority,omitempty"`
	Assignee string    `json:"assignee,omitempty"`
	DueDate  DueBucket `json:"due_date,omitempty"`
	// Status narrows to one column, matched by name ignoring case.
	Status string `json:"status,omitempty"`
	Query  string `json:"query,omitempty"`
}

func (f Filter) IsZero() bool {
	return f == Filter{}
}

func ValidateFilterPriority(p Priority) error {
	if p == "" {
		return nil
	}
	return ValidatePriority(p)
}

func ValidateDueBucket(b DueBucket) error {
	if !b.Valid() {
		return fmt.Errorf("invalid due date filter %q (want today, tomorrow, week or overdue)", b)
	}
	return nil
}
