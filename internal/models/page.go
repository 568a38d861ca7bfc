package models

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageLimit clamps a requested page size: non-positive values fall back
// to def and anything above MaxPageSize is capped.
func PageLimit(n, def int) int {
	if n <= 0 {
		return def
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}
