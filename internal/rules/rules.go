// Package rules evaluates candidate entities against the pre-posting and
// pre-closing rule sets, classifying every finding as a block, warning, or
// informational note.
package rules

import (
	"fmt"
	"strings"
)

// Severity classifies a rule hit.
type Severity string

const (
	SeverityBlock Severity = "block"
	SeverityWarn  Severity = "warn"
	SeverityInfo  Severity = "info"
)

// Hit is one rule finding.
type Hit struct {
	Code          string
	Severity      Severity
	Title         string
	Message       string
	FixSuggestion string
	GuideLink     string
}

// Result groups hits by severity. Keeping the three lists separate makes the
// "any block refuses the action" check an emptiness test.
type Result struct {
	Blocks   []Hit
	Warnings []Hit
	Infos    []Hit
}

// OK reports whether the action may proceed, possibly after a warning
// override.
func (r Result) OK() bool {
	return len(r.Blocks) == 0
}

// Clean reports whether the action may proceed without any override.
func (r Result) Clean() bool {
	return len(r.Blocks) == 0 && len(r.Warnings) == 0
}

// WarnCodes returns the codes of all warning hits, in evaluation order.
func (r Result) WarnCodes() []string {
	codes := make([]string, len(r.Warnings))
	for i, h := range r.Warnings {
		codes[i] = h.Code
	}
	return codes
}

func (r *Result) add(h Hit) {
	switch h.Severity {
	case SeverityBlock:
		r.Blocks = append(r.Blocks, h)
	case SeverityWarn:
		r.Warnings = append(r.Warnings, h)
	default:
		r.Infos = append(r.Infos, h)
	}
}

// Thresholds configures confidence cut-offs for extracted document data.
type Thresholds struct {
	DocumentWarn  float64 // below this, warn
	DocumentBlock float64 // below this, block
}

// DefaultThresholds mirror the defaults shipped in saldo.yaml.
func DefaultThresholds() Thresholds {
	return Thresholds{DocumentWarn: 0.70, DocumentBlock: 0.40}
}

// Context is the read-only evaluation context supplied by the caller. Rules
// may depend on nothing else.
type Context struct {
	CompanyID  string
	Period     string
	UserID     string
	Thresholds Thresholds
}

// Override is an explicit user acknowledgment of warning hits. It must be
// recorded in the audit log before the guarded action proceeds.
type Override struct {
	UserID string
	Note   string
}

// BlockedError is returned when an action is refused because of block-severity
// hits. The full result travels with it so the caller can display every hit.
type BlockedError struct {
	Result Result
}

func (e *BlockedError) Error() string {
	codes := make([]string, len(e.Result.Blocks))
	for i, h := range e.Result.Blocks {
		codes[i] = h.Code
	}
	return fmt.Sprintf("action blocked by rules: %s", strings.Join(codes, ", "))
}

// OverrideRequiredError is returned when only warnings exist but the caller
// supplied no override acknowledgment.
type OverrideRequiredError struct {
	Result Result
}

func (e *OverrideRequiredError) Error() string {
	return fmt.Sprintf("action requires override of %d warning(s): %s",
		len(e.Result.Warnings), strings.Join(e.Result.WarnCodes(), ", "))
}
