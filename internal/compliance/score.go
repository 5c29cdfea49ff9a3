package compliance

import "time"

// ScoredDocument is the subset of a document the scorer reads.
type ScoredDocument struct {
	ID         string
	Type       string
	RawStatus  RawStatus
	ExpiryDate *time.Time
}

// TypeStatus is the per-required-type view of a driver.
type TypeStatus struct {
	Type       string        `json:"type"`
	Status     DisplayStatus `json:"status"`
	Label      string        `json:"label"`
	DocumentID string        `json:"documentId,omitempty"`
}

// Satisfies reports whether a document counts towards the score. The
// persisted ACTIVE status is trusted, but a document without an expiry date
// never counts.
func (d ScoredDocument) Satisfies(requiredType string) bool {
	return d.Type == requiredType && d.RawStatus == RawActive && d.ExpiryDate != nil
}

// Score returns round-half-up(100*k/n) where k of the n distinct required
// types are satisfied. No required types scores 0.
func Score(docs []ScoredDocument, requiredTypes []string) int {
	required := dedupe(requiredTypes)
	n := len(required)
	if n == 0 || len(docs) == 0 {
		return 0
	}
	k := 0
	for _, name := range required {
		for _, d := range docs {
			if d.Satisfies(name) {
				k++
				break
			}
		}
	}
	return (200*k + n) / (2 * n)
}

// Breakdown reports the best display status per required type. A type with
// no document shows as Pending.
func Breakdown(docs []ScoredDocument, requiredTypes []string, now time.Time, reminderDays []int) []TypeStatus {
	required := dedupe(requiredTypes)
	out := make([]TypeStatus, 0, len(required))
	for _, name := range required {
		best := TypeStatus{Type: name, Status: StatusPending}
		bestRank := -1
		for _, d := range docs {
			if d.Type != name {
				continue
			}
			window := ReminderWindowFromDays(reminderDays, d.ExpiryDate, now)
			st := EffectiveStatus(StatusInput{RawStatus: d.RawStatus, ExpiryDate: d.ExpiryDate}, now, window)
			if r := rank[st]; r > bestRank {
				bestRank = r
				best.Status = st
				best.DocumentID = d.ID
			}
		}
		best.Label = best.Status.Label()
		out = append(out, best)
	}
	return out
}

var rank = map[DisplayStatus]int{
	StatusExpired:      0,
	StatusPending:      1,
	StatusProcessing:   2,
	StatusExpiringSoon: 3,
	StatusActive:       4,
}

func dedupe(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
