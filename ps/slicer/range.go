package slicer

import (
	"sort"

	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinyps/ps/kvpairs"
	"github.com/pingcap-incubator/tinyps/ps/sarray"
	"github.com/pingcap-incubator/tinyps/ps/topology"
)

// RangeSlicer is the default policy: destination i gets the index span of
// keys falling inside ranges[i], found by binary search. Slices alias the
// input buffers, no payload bytes are copied. Ranges must be contiguous.
type RangeSlicer struct{}

func NewRangeSlicer() *RangeSlicer {
	return &RangeSlicer{}
}

func (s *RangeSlicer) Slice(send kvpairs.KVPairs, ranges []topology.Range) ([]Sliced, error) {
	n := len(ranges)
	sliced := make([]Sliced, n)

	// pos[i] is the index of the first key belonging to ranges[i].
	pos := make([]int, n+1)
	begin := 0
	for i := 0; i < n; i++ {
		if i == 0 {
			pos[0] = send.Keys.LowerBound(ranges[0].Begin)
			begin = pos[0]
		} else if ranges[i-1].End != ranges[i].Begin {
			return nil, errors.Errorf("ranges are not contiguous: ranges[%d].End=%d ranges[%d].Begin=%d",
				i-1, ranges[i-1].End, i, ranges[i].Begin)
		}
		span := send.Keys[begin:].LowerBound(ranges[i].End)
		begin += span
		pos[i+1] = pos[i] + span
	}
	if pos[0] != 0 || pos[n] != len(send.Keys) {
		return nil, errors.Errorf("%d keys fall outside the destination topology",
			pos[0]+len(send.Keys)-pos[n])
	}
	if send.Empty() {
		return sliced, nil
	}

	k := 0
	if len(send.Lens) == 0 {
		k = send.ValWidth()
	}

	valBegin, valEnd := 0, 0
	for i := 0; i < n; i++ {
		if pos[i+1] == pos[i] {
			continue
		}
		sliced[i].Keep = true
		kv := &sliced[i].KV
		kv.Keys = send.Keys.Segment(pos[i], pos[i+1])
		if len(send.Lens) != 0 {
			kv.Lens = send.Lens.Segment(pos[i], pos[i+1])
			valEnd += kv.Lens.Total()
			kv.Vals = send.Vals.Segment(valBegin, valEnd)
			valBegin = valEnd
		} else {
			kv.Vals = send.Vals.Segment(pos[i]*k, pos[i+1]*k)
		}
	}
	return sliced, nil
}

// Merge re-assembles range-partitioned replies: ranges are disjoint and
// contiguous, so sorting the parts by first key and concatenating reproduces
// the requested key order exactly.
func (s *RangeSlicer) Merge(keys sarray.Keys, parts []kvpairs.KVPairs, vals *sarray.Vals, lens *sarray.Lens) error {
	totalKey, totalVal := 0, 0
	for i := range parts {
		p := &parts[i]
		if p.Empty() {
			return errors.New("empty partial reply")
		}
		begin, end := sarray.FindRange(keys, p.Keys[0], p.Keys[len(p.Keys)-1]+1)
		if end-begin != len(p.Keys) {
			return errors.Errorf("unmatched keys size from one server: got %d keys, requested span is %d",
				len(p.Keys), end-begin)
		}
		if lens != nil && len(p.Lens) != len(p.Keys) {
			return errors.Errorf("partial reply carries %d lens for %d keys", len(p.Lens), len(p.Keys))
		}
		totalKey += len(p.Keys)
		totalVal += len(p.Vals)
	}
	if totalKey != len(keys) {
		return errors.Errorf("merged %d keys, requested %d: lost some servers?", totalKey, len(keys))
	}

	sort.Slice(parts, func(i, j int) bool {
		return parts[i].Keys[0] < parts[j].Keys[0]
	})

	if err := allocVals(vals, totalVal); err != nil {
		return err
	}
	var lensOut sarray.Lens
	if lens != nil {
		if err := allocLens(lens, len(keys)); err != nil {
			return err
		}
		lensOut = *lens
	}

	valOff, lenOff := 0, 0
	for i := range parts {
		p := &parts[i]
		copy((*vals)[valOff:], p.Vals)
		valOff += len(p.Vals)
		if lensOut != nil {
			copy(lensOut[lenOff:], p.Lens)
			lenOff += len(p.Lens)
		}
	}
	return nil
}
