package application

import "time"

// ExpiryWindowMonths is the look-ahead horizon for rate-expiry warnings.
const ExpiryWindowMonths = 6

// ExpiryPolicy decides whether an already-past expiry date still counts as
// "expiring soon". Product has not settled the boundary; both behaviors exist
// in the field, so the choice is explicit configuration rather than a guess.
type ExpiryPolicy int

const (
	// ExcludeExpired is the strict forward-looking window: dates before now
	// are not flagged.
	ExcludeExpired ExpiryPolicy = iota
	// IncludeExpired also flags dates already in the past.
	IncludeExpired
)

// ExpiringWithinWindow reports whether expiry falls on or before now plus six
// calendar months. A nil expiry never matches. Under ExcludeExpired, dates
// before now are excluded.
func ExpiringWithinWindow(expiry *time.Time, now time.Time, policy ExpiryPolicy) bool {
	if expiry == nil {
		return false
	}
	horizon := now.AddDate(0, ExpiryWindowMonths, 0)
	if expiry.After(horizon) {
		return false
	}
	if policy == ExcludeExpired && expiry.Before(now) {
		return false
	}
	return true
}
