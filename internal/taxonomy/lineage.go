package taxonomy

// Lineage is a fixed seven-slot array of taxon ids in standard rank order.
// A slot is either filled or absent; an unannotated intermediate rank stays
// absent rather than being skipped, so a slot's position always corresponds
// to its rank.
type Lineage[ID comparable] struct {
	ids     [NumRanks]ID
	present [NumRanks]bool
}

// Set fills the slot for the given rank. Out-of-range ranks are ignored.
func (l *Lineage[ID]) Set(r Rank, id ID) {
	if !r.Valid() {
		return
	}
	l.ids[r] = id
	l.present[r] = true
}

// At returns the taxon at the given rank, if that slot is filled.
func (l Lineage[ID]) At(r Rank) (ID, bool) {
	var zero ID
	if !r.Valid() || !l.present[r] {
		return zero, false
	}
	return l.ids[r], true
}

// Deepest returns the most specific filled slot.
func (l Lineage[ID]) Deepest() (ID, Rank, bool) {
	for r := Species; r >= Superkingdom; r-- {
		if l.present[r] {
			return l.ids[r], r, true
		}
	}
	var zero ID
	return zero, 0, false
}

// Empty reports whether no slot is filled.
func (l Lineage[ID]) Empty() bool {
	for _, p := range l.present {
		if p {
			return false
		}
	}
	return true
}

// IDs returns the filled slots in rank order, gaps omitted.
func (l Lineage[ID]) IDs() []ID {
	out := make([]ID, 0, NumRanks)
	for r := 0; r < NumRanks; r++ {
		if l.present[r] {
			out = append(out, l.ids[r])
		}
	}
	return out
}

// FillGaps returns a copy in which every absent slot above an annotated one
// takes the nearest more specific annotation. A lineage annotated only at
// genus therefore reports that genus at every rank up to superkingdom, while
// ranks below the deepest annotation stay absent. GTDB lineages are gap-free
// by construction, so this is a no-op there; it exists for NCBI lineages,
// where intermediate ranks are often unannotated.
func (l Lineage[ID]) FillGaps() Lineage[ID] {
	out := l
	var carry ID
	haveCarry := false
	for r := Species; r >= Superkingdom; r-- {
		if out.present[r] {
			carry = out.ids[r]
			haveCarry = true
		} else if haveCarry {
			out.ids[r] = carry
			out.present[r] = true
		}
	}
	return out
}
