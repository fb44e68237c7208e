// Package quantity resolves the bulk-action selector used by farm and land
// commands. A request is either a positive count or -1, meaning "everything
// that is currently available".
package quantity

// Resolve turns a requested quantity into the number of units to act on.
//
// -1 selects all of available. Any other non-positive request selects nothing.
// Positive requests are clamped to available, and clamped reports whether
// the caller got fewer units than it asked for.
func Resolve(requested, available int) (n int, clamped bool) {
	if available < 0 {
		available = 0
	}
	switch {
	case requested == -1:
		return available, false
	case requested <= 0:
		return 0, false
	case requested > available:
		return available, true
	}
	return requested, false
}

// Valid reports whether requested is an accepted selector value.
func Valid(requested int) bool {
	return requested == -1 || requested > 0
}
