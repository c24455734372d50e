package toolchain

import "fmt"

// NotFoundKind distinguishes why a lookup found nothing.
type NotFoundKind int

const (
	// IndexOutOfRange means a 1-based menu index was outside [1, size].
	IndexOutOfRange NotFoundKind = iota
	// NoMatch means no registered profile equals the requested tuple.
	NoMatch
	// UnknownID means a stable identifier is not (or no longer) registered.
	UnknownID
	// AmbiguousID means a short ID prefix matches more than one entry.
	AmbiguousID
)

func (k NotFoundKind) String() string {
	switch k {
	case IndexOutOfRange:
		return "index out of range"
	case NoMatch:
		return "no matching toolchain"
	case UnknownID:
		return "unknown toolchain id"
	case AmbiguousID:
		return "ambiguous toolchain id"
	}
	return "not found"
}

// NotFoundError is returned by registry and resolver lookups that find nothing.
// It is a usage error: the menu re-prompts instead of exiting.
type NotFoundError struct {
	Kind    NotFoundKind
	Index   int     // requested index (IndexOutOfRange)
	Size    int     // registry size at lookup time (IndexOutOfRange)
	ID      ID      // requested id (UnknownID)
	Profile Profile // requested tuple (NoMatch)
	Matches int     // entries sharing the prefix (AmbiguousID)
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	switch e.Kind {
	case IndexOutOfRange:
		if e.Size == 0 {
			return fmt.Sprintf("toolchain %d not found: no toolchains are registered", e.Index)
		}
		return fmt.Sprintf("toolchain %d not found: valid range is 1-%d", e.Index, e.Size)
	case NoMatch:
		return fmt.Sprintf("no registered toolchain matches %s", e.Profile)
	case UnknownID:
		return fmt.Sprintf("toolchain %s is not registered", e.ID)
	case AmbiguousID:
		return fmt.Sprintf("toolchain id %s matches %d toolchains; use the full id", e.ID, e.Matches)
	}
	return "toolchain not found"
}
