package catalog

// Record is the shape fed to Dedupe. It covers both raw catalog entries and
// scored retrieval hits; MergedIDs carries identifiers absorbed by an
// earlier dedupe pass so the operation stays idempotent.
type Record struct {
	ElementID   string
	ElementType string
	Name        string
	Score       float64
	MergedIDs   []string
}

// Group is one semantic element: every input record whose normalized
// (type, name) identity matched, with the highest-scoring record kept as
// representative.
type Group struct {
	Identity       Identity
	ElementIDs     []string
	Representative Record
}

// Record flattens the group back into Record shape. Feeding the result of
// Dedupe back through Dedupe yields the same groups.
func (g Group) Record() Record {
	merged := make([]string, 0, len(g.ElementIDs))
	for _, id := range g.ElementIDs {
		if id != g.Representative.ElementID {
			merged = append(merged, id)
		}
	}
	return Record{
		ElementID:   g.Representative.ElementID,
		ElementType: g.Representative.ElementType,
		Name:        g.Representative.Name,
		Score:       g.Representative.Score,
		MergedIDs:   merged,
	}
}

// Dedupe groups records by normalized identity. Each input element ID lands
// in exactly one group. Group order follows first appearance of each
// identity; within a group the id order follows first appearance of each
// id. The representative is the highest-scoring record, first seen winning
// ties.
func Dedupe(records []Record) []Group {
	groups := make([]Group, 0, len(records))
	index := make(map[Identity]int, len(records))

	for _, rec := range records {
		identity := NormalizedIdentity(rec.ElementType, rec.Name)

		idx, ok := index[identity]
		if !ok {
			index[identity] = len(groups)
			groups = append(groups, Group{
				Identity:       identity,
				Representative: rec,
			})
			idx = len(groups) - 1
		}

		g := &groups[idx]
		g.ElementIDs = appendUnique(g.ElementIDs, rec.ElementID)
		for _, id := range rec.MergedIDs {
			g.ElementIDs = appendUnique(g.ElementIDs, id)
		}

		if rec.Score > g.Representative.Score {
			g.Representative = rec
		}
	}

	return groups
}

func appendUnique(ids []string, id string) []string {
	if id == "" {
		return ids
	}
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
