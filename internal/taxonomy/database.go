package taxonomy

import "errors"

// Policy violation errors. Query-time absence is never an error; these are
// raised only for caller configuration mistakes.
var (
	// ErrUnknownTaxon is returned by LCA under UnknownError when an input id
	// is not present in the database.
	ErrUnknownTaxon = errors.New("unknown taxon in input")

	// ErrNoDatabase is returned when an operation that needs a taxonomy
	// database (duplicate aggregation, name conversion) is requested
	// without one.
	ErrNoDatabase = errors.New("taxonomy database required")
)

// UnknownPolicy governs LCA behavior when an input id is absent from the
// database.
type UnknownPolicy int

const (
	// UnknownIgnore drops unknown ids and computes the LCA over the rest.
	UnknownIgnore UnknownPolicy = iota
	// UnknownError fails the whole call with ErrUnknownTaxon.
	UnknownError
	// UnknownRoot short-circuits the whole call to the root id.
	UnknownRoot
	// UnknownNone short-circuits the whole call to absent.
	UnknownNone
)

func (p UnknownPolicy) String() string {
	switch p {
	case UnknownIgnore:
		return "ignore"
	case UnknownError:
		return "error"
	case UnknownRoot:
		return "root"
	case UnknownNone:
		return "none"
	}
	return "invalid"
}

// ParseUnknownPolicy parses a policy name as used on the CLI.
func ParseUnknownPolicy(s string) (UnknownPolicy, bool) {
	switch s {
	case "ignore":
		return UnknownIgnore, true
	case "error":
		return UnknownError, true
	case "root":
		return UnknownRoot, true
	case "none":
		return UnknownNone, true
	}
	return 0, false
}

// AmbiguityPolicy governs name→id lookup when a name maps to more than one
// taxon (homonyms across kingdoms are common in NCBI).
type AmbiguityPolicy int

const (
	// AmbiguityAbsent returns no id when the name is ambiguous.
	AmbiguityAbsent AmbiguityPolicy = iota
	// AmbiguityFirst returns the first registered id.
	AmbiguityFirst
	// AmbiguityAll returns every id registered for the name.
	AmbiguityAll
)

// Database is the read-only query contract every taxonomy backend
// implements. A Database is built once from reference files and never
// mutated afterwards, so all methods are safe for unsynchronized concurrent
// use.
//
// Absence (an id, name or rank simply not present) is reported through ok
// booleans, never through errors, so batch callers need no per-row error
// handling.
type Database[ID comparable] interface {
	// Root returns the root sentinel id.
	Root() ID

	// Contains reports whether the id is present in the dataset.
	Contains(id ID) bool

	// Rank returns the standard rank of the id. Ids at non-standard ranks
	// (clade, subfamily, ...) report ok=false.
	Rank(id ID) (Rank, bool)

	// Name returns the display name of the id.
	Name(id ID) (string, bool)

	// NameToID resolves a taxon name to ids under the given ambiguity
	// policy. ok=false means the name is unknown, or ambiguous under
	// AmbiguityAbsent.
	NameToID(name string, policy AmbiguityPolicy) ([]ID, bool)

	// ParentAt returns the ancestor at the target rank. An id already at
	// the target rank returns itself; a lineage that never reaches the rank
	// reports ok=false.
	ParentAt(id ID, rank Rank) (ID, bool)

	// Parents returns the full root→leaf ancestor chain, including the id
	// itself as the last element. The chain may include taxa at
	// non-standard ranks.
	Parents(id ID) []ID

	// Children returns all descendants reachable from the id, excluding
	// the id itself.
	Children(id ID) []ID

	// StandardLineage returns the seven-slot standard lineage of the id,
	// absent-filled for unreached or unannotated ranks.
	StandardLineage(id ID) Lineage[ID]

	// LCA returns the last common ancestor of the ids. See the package
	// LCA function for the exact semantics.
	LCA(ids []ID, policy UnknownPolicy) (ID, bool, error)
}
