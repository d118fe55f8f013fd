package pointers

// Float64 returns a pointer to v, for optional numeric fields such as activity
// difficulty and threshold overrides.
func Float64(v float64) *float64 { return &v }
