package cryptotax

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMethod is returned for a matching method outside FIFO, LIFO and HIFO.
var ErrUnknownMethod = errors.New("unknown matching method")

// MatchingMethod defines the order in which lots are consumed by a disposal.
type MatchingMethod int

const (
	// FIFO (First-In, First-Out) consumes the oldest lots first.
	FIFO MatchingMethod = iota
	// LIFO (Last-In, First-Out) consumes the most recent lots first.
	LIFO
	// HIFO (Highest-In, First-Out) consumes the lots with the highest unit cost first.
	HIFO
)

// Methods lists the supported matching methods.
var Methods = []MatchingMethod{FIFO, LIFO, HIFO}

func (m MatchingMethod) String() string {
	switch m {
	case FIFO:
		return "FIFO"
	case LIFO:
		return "LIFO"
	case HIFO:
		return "HIFO"
	default:
		return "unknown"
	}
}

// Valid reports whether m is a supported method.
func (m MatchingMethod) Valid() bool { return m >= FIFO && m <= HIFO }

// ParseMatchingMethod parses a string into a MatchingMethod. It is case insensitive.
func ParseMatchingMethod(s string) (MatchingMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FIFO":
		return FIFO, nil
	case "LIFO":
		return LIFO, nil
	case "HIFO":
		return HIFO, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

func (m MatchingMethod) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMethod, int(m))
	}
	return []byte(m.String()), nil
}

func (m *MatchingMethod) UnmarshalText(b []byte) error {
	v, err := ParseMatchingMethod(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
