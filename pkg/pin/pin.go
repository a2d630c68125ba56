// Package pin defines field-sales pin events and their normalization.
package pin

import (
	"strings"
	"time"
)

// Raw is one row of an activity export, untyped. Rows are immutable once
// read; normalization produces a new view.
type Raw struct {
	Rep       string
	Timestamp string
	Status    string
	Tags      string
	Address   string
	Line      int
}

// Event is a normalized pin: a Raw row with parsed timestamp, calendar day,
// folded matching fields and a link to the rep's previous pin.
type Event struct {
	Rep     string
	Time    time.Time
	Day     string // calendar day in local time, "2006-01-02"
	Status  string // original status text, kept for display
	Folded  string // lowercased/trimmed status, used for matching
	Tags    []string
	Address string
	Prev    *Event // previous pin for the same rep, nil for the first
}

// conversationStatuses are the statuses that always count as a substantive
// interaction with a homeowner.
var conversationStatuses = map[string]bool{
	"interested - follow up": true,
	"inspection scheduled":   true,
	"not interested - yet":   true,
}

// Tags that indicate a "Do Not Knock" pin was sign-driven rather than an
// actual conversation at the door.
var noSoliciting = map[string]bool{
	"yard sign":                 true,
	"custom no soliciting sign": true,
}

// IsConversation reports whether this pin counts as a conversation. "Do Not
// Knock" counts only when no soliciting-sign tag explains it away.
func (e *Event) IsConversation() bool {
	if conversationStatuses[e.Folded] {
		return true
	}
	if e.Folded != "do not knock" {
		return false
	}
	for _, tag := range e.Tags {
		if noSoliciting[tag] {
			return false
		}
	}
	return true
}

// IsInspection reports whether the pin recorded an inspection of any outcome.
func (e *Event) IsInspection() bool {
	return strings.Contains(e.Folded, "inspected")
}

// IsInspectionScheduled reports whether an inspection was booked at the door.
func (e *Event) IsInspectionScheduled() bool {
	return e.Folded == "inspection scheduled"
}

// IsInspectedNoDamage reports an inspection that found nothing.
func (e *Event) IsInspectedNoDamage() bool {
	return e.IsInspection() && strings.Contains(e.Folded, "no damage")
}

// IsInspectedDamage reports an inspection that found damage.
func (e *Event) IsInspectedDamage() bool {
	return e.IsInspection() && strings.Contains(e.Folded, "damage") && !strings.Contains(e.Folded, "no damage")
}

// IsClaimFiled reports whether the homeowner filed an insurance claim.
func (e *Event) IsClaimFiled() bool {
	return strings.Contains(e.Folded, "claim filed")
}

// splitTags folds a comma-delimited tag list into a normalized set.
func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
