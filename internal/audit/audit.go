// Package audit defines the audit-trail collaborator. Warning overrides and
// period lock/unlock actions must be recorded here before they take effect.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EntryType classifies audit entries.
type EntryType string

const (
	TypeOverrideWarning EntryType = "OVERRIDE_WARNING"
	TypePeriodLock      EntryType = "PERIOD_LOCK"
	TypePeriodUnlock    EntryType = "PERIOD_UNLOCK"
)

// Entry is one immutable audit record.
type Entry struct {
	ID         string
	CompanyID  string
	Type       EntryType
	RuleCodes  []string // overridden rule codes, empty otherwise
	EntityType string
	EntityID   string
	Ref        string // human-readable reference (transaction number, period key)
	Actor      string
	Notes      string
	At         time.Time
}

// Recorder accepts audit entries. Implementations must persist before
// returning; a failed write must fail the guarded action.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// NewEntry builds an Entry with a fresh ID and timestamp.
func NewEntry(companyID string, t EntryType, actor string) Entry {
	return Entry{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		Type:      t,
		Actor:     actor,
		At:        time.Now().UTC(),
	}
}
