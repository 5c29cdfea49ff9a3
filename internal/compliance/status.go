// Package compliance derives display status for documents and aggregates a
// driver's documents into a compliance score. Everything here is pure.
package compliance

import (
	"sort"
	"time"
)

// RawStatus is the lifecycle status persisted on a document.
type RawStatus string

const (
	RawPending      RawStatus = "PENDING"
	RawProcessing   RawStatus = "PROCESSING"
	RawActive       RawStatus = "ACTIVE"
	RawExpiringSoon RawStatus = "EXPIRING_SOON"
	RawExpired      RawStatus = "EXPIRED"
	RawRejected     RawStatus = "REJECTED"
	RawFailed       RawStatus = "FAILED"
)

// ParseRawStatus validates a stored or requested status value.
func ParseRawStatus(s string) (RawStatus, bool) {
	switch st := RawStatus(s); st {
	case RawPending, RawProcessing, RawActive, RawExpiringSoon, RawExpired, RawRejected, RawFailed:
		return st, true
	}
	return "", false
}

// DisplayStatus is the computed view shown to users. It is never persisted.
type DisplayStatus string

const (
	StatusActive       DisplayStatus = "ACTIVE"
	StatusExpiringSoon DisplayStatus = "EXPIRING_SOON"
	StatusExpired      DisplayStatus = "EXPIRED"
	StatusPending      DisplayStatus = "PENDING"
	StatusProcessing   DisplayStatus = "PROCESSING"
)

var labels = map[DisplayStatus]string{
	StatusActive:       "Verified",
	StatusExpiringSoon: "Expiring Soon",
	StatusExpired:      "Expired",
	StatusPending:      "Pending",
	StatusProcessing:   "Processing",
}

// Label returns the user-facing label.
func (d DisplayStatus) Label() string {
	if l, ok := labels[d]; ok {
		return l
	}
	return string(d)
}

// StatusInput is the subset of a document the status engine reads.
type StatusInput struct {
	RawStatus  RawStatus
	ExpiryDate *time.Time
}

// EffectiveStatus computes the display status. A zero window disables
// EXPIRING_SOON.
func EffectiveStatus(doc StatusInput, now time.Time, window time.Duration) DisplayStatus {
	switch doc.RawStatus {
	case RawProcessing:
		return StatusProcessing
	case RawRejected, RawFailed:
		return StatusExpired
	}
	if doc.ExpiryDate == nil {
		return StatusPending
	}
	expiry := *doc.ExpiryDate
	if expiry.Before(now) {
		return StatusExpired
	}
	if window > 0 && expiry.Sub(now) <= window {
		return StatusExpiringSoon
	}
	return StatusActive
}

// DaysUntil returns whole days until expiry, rounding partial days up.
func DaysUntil(expiry, now time.Time) int {
	d := expiry.Sub(now)
	if d <= 0 {
		return 0
	}
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}

// NearestThreshold picks the smallest configured threshold that is still
// at or above the remaining days. ok is false when none applies.
func NearestThreshold(thresholds []int, remainingDays int) (int, bool) {
	sorted := normalizeThresholds(thresholds)
	for _, t := range sorted {
		if t >= remainingDays {
			return t, true
		}
	}
	return 0, false
}

// ReminderWindowFromDays converts company reminder days into the window used
// by EffectiveStatus for one document.
func ReminderWindowFromDays(thresholds []int, expiry *time.Time, now time.Time) time.Duration {
	sorted := normalizeThresholds(thresholds)
	if len(sorted) == 0 {
		return 0
	}
	days := sorted[len(sorted)-1]
	if expiry != nil {
		if t, ok := NearestThreshold(sorted, DaysUntil(*expiry, now)); ok {
			days = t
		}
	}
	return time.Duration(days) * 24 * time.Hour
}

func normalizeThresholds(thresholds []int) []int {
	out := make([]int, 0, len(thresholds))
	seen := make(map[int]struct{}, len(thresholds))
	for _, t := range thresholds {
		if t <= 0 {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Ints(out)
	return out
}
