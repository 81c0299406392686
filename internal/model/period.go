package model

import (
	"fmt"
	"strings"
	"time"
)

// PeriodStatus represents the closing state of an accounting period.
type PeriodStatus string

const (
	PeriodOpen    PeriodStatus = "open"
	PeriodClosing PeriodStatus = "closing"
	PeriodClosed  PeriodStatus = "closed"
	PeriodLocked  PeriodStatus = "locked"
)

// PeriodKey identifies a calendar-month accounting period, "YYYY-MM".
type PeriodKey string

// PeriodOf derives the period key for a date.
func PeriodOf(t time.Time) PeriodKey {
	return PeriodKey(fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month())))
}

// Compact returns the key without the separator, "YYYYMM". Used in
// transaction numbers.
func (k PeriodKey) Compact() string {
	return strings.ReplaceAll(string(k), "-", "")
}

// Valid reports whether the key parses as YYYY-MM.
func (k PeriodKey) Valid() bool {
	_, err := time.Parse("2006-01", string(k))
	return err == nil
}

// Period tracks the closing state of one calendar month. Every period starts
// OPEN when first referenced.
type Period struct {
	Key      PeriodKey
	Status   PeriodStatus
	ClosedAt time.Time
	ClosedBy string
	LockedAt time.Time
	LockedBy string
	Version  int64 // optimistic-concurrency token
}

// Open reports whether transactions dated in the period may still be created
// or modified.
func (p Period) Open() bool {
	return p.Status == PeriodOpen || p.Status == PeriodClosing
}

// PeriodNotOpenError is returned when a transaction is created or modified in
// a CLOSED or LOCKED period.
type PeriodNotOpenError struct {
	Period PeriodKey
	Status PeriodStatus
}

func (e *PeriodNotOpenError) Error() string {
	return fmt.Sprintf("period %s is %s", e.Period, e.Status)
}
