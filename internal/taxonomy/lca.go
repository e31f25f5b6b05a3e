package taxonomy

import "fmt"

// LCA computes the last common ancestor of ids against db.
//
// Zero-valued ids are dropped unconditionally; they stand for "no
// annotation" and never take part in consensus. The unknown policy then
// applies to remaining ids absent from the database. With zero ids left the
// result is absent; a single id is returned unchanged without a lineage
// walk. Otherwise the full root→leaf ancestor chains are walked in lock
// step and the deepest position where every chain carries the same taxon
// wins; if no position ever agrees, the root is returned.
func LCA[ID comparable](db Database[ID], ids []ID, policy UnknownPolicy) (ID, bool, error) {
	var zero ID

	kept := make([]ID, 0, len(ids))
	for _, id := range ids {
		if id != zero {
			kept = append(kept, id)
		}
	}

	valid := kept[:0]
	unknown := false
	for _, id := range kept {
		if db.Contains(id) {
			valid = append(valid, id)
		} else {
			unknown = true
		}
	}

	if unknown {
		switch policy {
		case UnknownIgnore:
			// keep going with the valid subset
		case UnknownError:
			return zero, false, ErrUnknownTaxon
		case UnknownRoot:
			return db.Root(), true, nil
		case UnknownNone:
			return zero, false, nil
		default:
			return zero, false, fmt.Errorf("invalid unknown-taxon policy %d", policy)
		}
	}

	switch len(valid) {
	case 0:
		return zero, false, nil
	case 1:
		return valid[0], true, nil
	}

	lineages := make([][]ID, len(valid))
	for i, id := range valid {
		lineages[i] = db.Parents(id)
	}
	if lca, ok := CommonAncestor(lineages); ok {
		return lca, true, nil
	}
	return db.Root(), true, nil
}

// CommonAncestor walks root→leaf ancestor chains in lock step and returns
// the value at the deepest position where all chains agree. Chains are
// gap-free, so the walk stops at the first disagreement; at most one
// consensus value can exist per position, leaving nothing to tie-break.
func CommonAncestor[ID comparable](lineages [][]ID) (ID, bool) {
	var lca ID
	found := false
	if len(lineages) == 0 {
		return lca, false
	}

	minLen := len(lineages[0])
	for _, lin := range lineages[1:] {
		if len(lin) < minLen {
			minLen = len(lin)
		}
	}

	for i := 0; i < minLen; i++ {
		v := lineages[0][i]
		agree := true
		for _, lin := range lineages[1:] {
			if lin[i] != v {
				agree = false
				break
			}
		}
		if !agree {
			break
		}
		lca, found = v, true
	}
	return lca, found
}

// CommonAncestorLineages is CommonAncestor over standard lineages, which
// may carry gaps. A rank at which any lineage has an absent slot is skipped
// rather than terminating the walk, so consensus can resume at a deeper
// rank; NCBI lineages need this, GTDB lineages never have gaps.
func CommonAncestorLineages[ID comparable](lineages []Lineage[ID]) (ID, bool) {
	var lca ID
	found := false
	if len(lineages) == 0 {
		return lca, false
	}

rank:
	for r := Superkingdom; r <= Species; r++ {
		v, ok := lineages[0].At(r)
		if !ok {
			continue
		}
		for _, lin := range lineages[1:] {
			w, ok := lin.At(r)
			if !ok {
				continue rank
			}
			if w != v {
				break rank
			}
		}
		lca, found = v, true
	}
	return lca, found
}
