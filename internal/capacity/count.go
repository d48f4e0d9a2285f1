package capacity

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/soltixdb/clusterplan/internal/planerr"
)

// Count is a count that is either fixed (Min == Max) or ranged.
// A zero bound is unbounded.
type Count struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Fixed returns a count with a single value
func Fixed(n int) Count {
	return Count{Min: n, Max: n}
}

// IsRange reports whether the count allows more than one value
func (c Count) IsRange() bool {
	return c.Min != c.Max
}

// Contains reports whether n lies inside the count's bounds
func (c Count) Contains(n int) bool {
	return n >= c.Min && (c.Max == 0 || n <= c.Max)
}

// Clamp limits n to the count's bounds
func (c Count) Clamp(n int) int {
	if n < c.Min {
		return c.Min
	}
	if c.Max > 0 && n > c.Max {
		return c.Max
	}
	return n
}

func (c Count) String() string {
	if !c.IsRange() {
		return strconv.Itoa(c.Min)
	}
	return fmt.Sprintf("[%s, %s]", bound(c.Min), bound(c.Max))
}

func bound(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// ParseCount parses a plain integer ("3") or an ascending two-element
// range ("[2, 4]"). Either range bound may be left empty to leave it open.
// attribute names the declaration attribute in error messages.
func ParseCount(attribute, literal string) (Count, error) {
	s := strings.TrimSpace(literal)
	if s == "" {
		return Count{}, planerr.InvalidSpec("invalid %s '%s': value is empty", attribute, literal)
	}

	if !strings.HasPrefix(s, "[") {
		n, err := parseInt(attribute, literal, s)
		if err != nil {
			return Count{}, err
		}
		return Fixed(n), nil
	}

	if !strings.HasSuffix(s, "]") {
		return Count{}, planerr.InvalidSpec("invalid %s '%s': range must be enclosed in brackets", attribute, literal)
	}
	parts := strings.Split(s[1:len(s)-1], ",")
	if len(parts) != 2 {
		return Count{}, planerr.InvalidSpec("invalid %s '%s': range must have exactly two elements", attribute, literal)
	}

	var c Count
	var err error
	if lo := strings.TrimSpace(parts[0]); lo != "" {
		if c.Min, err = parseInt(attribute, literal, lo); err != nil {
			return Count{}, err
		}
	}
	if hi := strings.TrimSpace(parts[1]); hi != "" {
		if c.Max, err = parseInt(attribute, literal, hi); err != nil {
			return Count{}, err
		}
	}
	if c.Max > 0 && c.Min > c.Max {
		return Count{}, planerr.InvalidSpec("invalid %s '%s': range is descending, %d is greater than %d",
			attribute, literal, c.Min, c.Max)
	}
	return c, nil
}

func parseInt(attribute, literal, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, planerr.InvalidSpec("invalid %s '%s': '%s' is not an integer", attribute, literal, s).
			WithDetail("attribute", attribute).
			WithDetail("offending", s)
	}
	if n < 0 {
		return 0, planerr.InvalidSpec("invalid %s '%s': '%s' must not be negative", attribute, literal, s).
			WithDetail("attribute", attribute).
			WithDetail("offending", s)
	}
	return n, nil
}
