// Package lifecycle computes a post's temporal state from its creation
// timestamp and a fixed TTL. Everything here is pure: callers inject now,
// so the package never reads the clock and is deterministic in tests.
package lifecycle

import "time"

const (
	// PostTTL is the window after which a post is eligible for purging.
	PostTTL = 24 * time.Hour
	// ExpiringSoonWindow marks the final stretch before expiry.
	ExpiringSoonWindow = 2 * time.Hour
)

// Urgency is the presentation tier derived from remaining lifetime.
type Urgency string

const (
	UrgencySafe     Urgency = "safe"     // >= 12h remaining
	UrgencyWarning  Urgency = "warning"  // [6h, 12h)
	UrgencyDanger   Urgency = "danger"   // [1h, 6h)
	UrgencyCritical Urgency = "critical" // < 1h or expired
)

// State is the full computed lifecycle of a post at a point in time.
type State struct {
	Expired          bool
	ExpiringSoon     bool
	Remaining        time.Duration
	SecondsRemaining int64
	Urgency          Urgency
}

// Remaining returns the lifetime left at now, clamped to [0, ttl].
// A post created in the future (clock skew) reports a full ttl.
func Remaining(createdAt time.Time, ttl time.Duration, now time.Time) time.Duration {
	elapsed := now.Sub(createdAt)
	if elapsed < 0 {
		return ttl
	}
	if elapsed >= ttl {
		return 0
	}
	return ttl - elapsed
}

// Expired reports whether the post's lifetime is exhausted. The boundary is
// inclusive: a post created exactly ttl ago is expired.
func Expired(createdAt time.Time, ttl time.Duration, now time.Time) bool {
	return Remaining(createdAt, ttl, now) == 0
}

// ExpiringSoon reports whether the post is inside the final warning window.
// The boundary is inclusive: a post with exactly the window remaining is
// already expiring soon.
func ExpiringSoon(createdAt time.Time, ttl time.Duration, now time.Time) bool {
	return Remaining(createdAt, ttl, now) <= ExpiringSoonWindow
}

// Tier maps a remaining duration onto an urgency tier.
func Tier(remaining time.Duration) Urgency {
	switch {
	case remaining >= 12*time.Hour:
		return UrgencySafe
	case remaining >= 6*time.Hour:
		return UrgencyWarning
	case remaining >= time.Hour:
		return UrgencyDanger
	default:
		return UrgencyCritical
	}
}

// Evaluate computes the full lifecycle state in one pass.
func Evaluate(createdAt time.Time, ttl time.Duration, now time.Time) State {
	remaining := Remaining(createdAt, ttl, now)
	return State{
		Expired:          remaining == 0,
		ExpiringSoon:     remaining <= ExpiringSoonWindow,
		Remaining:        remaining,
		SecondsRemaining: int64(remaining / time.Second),
		Urgency:          Tier(remaining),
	}
}
