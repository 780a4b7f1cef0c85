package profile

import "slices"

// EventSet is the merged result of resolving one or more profiles: three
// deduplicated lists preserving first-occurrence order.
type EventSet struct {
	Kernel  []string
	UST     []string
	Preload []string
}

// Merge folds a profile's events into the set. Events already present are
// neither re-added nor reordered, so merging is idempotent.
func (e *EventSet) Merge(p *Profile) {
	e.Kernel = mergeUnique(e.Kernel, p.Kernel)
	e.UST = mergeUnique(e.UST, p.UST)
	e.Preload = mergeUnique(e.Preload, p.Preload)
}

// Empty reports whether the set enables no events on either domain.
// Preload entries alone do not make a set non-empty.
func (e *EventSet) Empty() bool {
	return len(e.Kernel) == 0 && len(e.UST) == 0
}

// mergeUnique appends the elements of src not already present in dst,
// preserving order of first appearance.
func mergeUnique(dst, src []string) []string {
	for _, s := range src {
		if !slices.Contains(dst, s) {
			dst = append(dst, s)
		}
	}

	return dst
}
