// Package sarray holds the shared slice views the push/pull engine passes
// around. A view never owns its backing array: segments alias the parent, and
// the caller keeps the memory alive until the request that borrowed it has
// completed.
package sarray

import "sort"

type Keys []uint64

type Vals []float32

type Lens []int32

// Segment returns the [begin, end) sub-view. It shares storage with k.
func (k Keys) Segment(begin, end int) Keys {
	return k[begin:end]
}

func (v Vals) Segment(begin, end int) Vals {
	return v[begin:end]
}

func (l Lens) Segment(begin, end int) Lens {
	return l[begin:end]
}

// Total sums the lengths.
func (l Lens) Total() int {
	n := 0
	for _, x := range l {
		n += int(x)
	}
	return n
}

// LowerBound returns the index of the first key >= bound.
func (k Keys) LowerBound(bound uint64) int {
	return sort.Search(len(k), func(i int) bool { return k[i] >= bound })
}

// FindRange returns the index span of keys whose values fall in [lo, hi).
// keys must be sorted in increasing order.
func FindRange(keys Keys, lo, hi uint64) (begin, end int) {
	begin = keys.LowerBound(lo)
	end = begin + keys[begin:].LowerBound(hi)
	return
}
