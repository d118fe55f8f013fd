package matrix

// Index maps ids to matrix positions and back.
type Index[K comparable] struct {
	ids []K
	pos map[K]int
}

// NewIndex builds an index from ids in order. Duplicate ids keep their first position.
func NewIndex[K comparable](ids []K) *Index[K] {
	idx := &Index[K]{ids: make([]K, 0, len(ids)), pos: make(map[K]int, len(ids))}
	for _, id := range ids {
		if _, ok := idx.pos[id]; ok {
			continue
		}
		idx.pos[id] = len(idx.ids)
		idx.ids = append(idx.ids, id)
	}
	return idx
}

func (x *Index[K]) Len() int { return len(x.ids) }

func (x *Index[K]) Pos(id K) (int, bool) {
	p, ok := x.pos[id]
	return p, ok
}

func (x *Index[K]) ID(i int) K { return x.ids[i] }

// IDs returns a copy of the ids in position order.
func (x *Index[K]) IDs() []K {
	out := make([]K, len(x.ids))
	copy(out, x.ids)
	return out
}

// Positions resolves ids to positions, skipping ids not in the index.
func (x *Index[K]) Positions(ids []K) []int {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if p, ok := x.pos[id]; ok {
			out = append(out, p)
		}
	}
	return out
}
