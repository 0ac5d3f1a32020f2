package gnc

import (
	"fmt"
	"time"
)

// PeriodType is the unit of a recurrence period. Values match the wire
// format.
type PeriodType string

const (
	PeriodOnce        PeriodType = "once"
	PeriodDay         PeriodType = "day"
	PeriodWeek        PeriodType = "week"
	PeriodMonth       PeriodType = "month"
	PeriodEndOfMonth  PeriodType = "end of month"
	PeriodNthWeekday  PeriodType = "nth weekday"
	PeriodLastWeekday PeriodType = "last weekday"
	PeriodYear        PeriodType = "year"
)

// ParsePeriodType parses a wire period type.
func ParsePeriodType(s string) (PeriodType, error) {
	switch PeriodType(s) {
	case PeriodOnce, PeriodDay, PeriodWeek, PeriodMonth, PeriodEndOfMonth,
		PeriodNthWeekday, PeriodLastWeekday, PeriodYear:
		return PeriodType(s), nil
	}
	return "", fmt.Errorf("unknown period type %q", s)
}

// WeekendAdjust tells how an occurrence falling on a weekend is moved.
type WeekendAdjust string

const (
	WeekendNone    WeekendAdjust = "none"
	WeekendBack    WeekendAdjust = "back"
	WeekendForward WeekendAdjust = "forward"
)

// ParseWeekendAdjust parses a weekend adjustment, defaulting to none for
// unknown values.
func ParseWeekendAdjust(s string) WeekendAdjust {
	switch WeekendAdjust(s) {
	case WeekendBack:
		return WeekendBack
	case WeekendForward:
		return WeekendForward
	}
	return WeekendNone
}

// Recurrence describes how often a scheduled action repeats: every
// Multiplier periods of PeriodType, starting at PeriodStart.
//
// ByDays restricts weekly recurrences to specific weekdays. When a weekly
// recurrence arrives without explicit by-day information, the decoder sets a
// single by-day equal to the weekday of the action's start date. This is a
// deliberate approximation carried over from the original format consumer
// (it preserves "runs at least once per week", not day-of-week fidelity).
type Recurrence struct {
	Multiplier    int
	PeriodType    PeriodType
	PeriodStart   time.Time
	WeekendAdjust WeekendAdjust
	ByDays        []time.Weekday
}

// NewRecurrence creates a monthly recurrence, the format's default.
func NewRecurrence() *Recurrence {
	return &Recurrence{Multiplier: 1, PeriodType: PeriodMonth, WeekendAdjust: WeekendNone}
}

// ActionType tells what a scheduled action does when it fires.
type ActionType string

const (
	ActionTransaction ActionType = "TRANSACTION"
	ActionBackup      ActionType = "BACKUP"
)

// ScheduledAction is a recurring instruction: create a transaction from a
// template, or run a backup. ActionUID links to the template transaction for
// TRANSACTION actions and is a synthetic identifier for BACKUP actions.
type ScheduledAction struct {
	UID               string
	ActionType        ActionType
	ActionUID         string
	Enabled           bool
	AutoCreate        bool
	AutoNotify        bool
	AdvanceCreateDays int
	AdvanceNotifyDays int
	StartTime         time.Time
	EndTime           time.Time
	LastRunTime       time.Time
	TotalPlannedCount int
	ExecutionCount    int
	Tag               string
	Recurrence        *Recurrence
}

// NewScheduledAction creates a scheduled action of the given type with a
// fresh UID.
func NewScheduledAction(actionType ActionType) *ScheduledAction {
	return &ScheduledAction{
		UID:        NewUID(),
		ActionType: actionType,
	}
}
