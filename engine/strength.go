package engine

// Strength is a coarse classification of how many independent physical
// entropy sources feed the pool. The OS source alone is WEAK; one auxiliary
// collector on top of it is MEDIUM; two or more are STRONG.
type Strength int

const (
	StrengthWeak Strength = iota
	StrengthMedium
	StrengthStrong
)

// String returns the wire-stable name of the strength class.
func (s Strength) String() string {
	switch s {
	case StrengthMedium:
		return "MEDIUM"
	case StrengthStrong:
		return "STRONG"
	default:
		return "WEAK"
	}
}
