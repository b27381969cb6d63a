// Package listing manages property listings (houses for sale and for rent)
// and wires their image endpoints into the media core.
package listing

import "fmt"

// Kind discriminates the listing types that can own media assets. The set is
// closed here: adding a kind means adding a table, a constant, and arms to
// the switches below — the media layer itself never changes.
type Kind string

const (
	KindHouseForSale Kind = "house_for_sale"
	KindHouseForRent Kind = "house_for_rent"
)

// Kinds returns every known listing kind.
func Kinds() []Kind {
	return []Kind{KindHouseForSale, KindHouseForRent}
}

// ParseKind validates a kind string. Unknown kinds are an error, never a
// silent fallback.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindHouseForSale, KindHouseForRent:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown listing kind %q", s)
	}
}
