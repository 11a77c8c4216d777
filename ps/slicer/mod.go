package slicer

import (
	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinyps/ps/kvpairs"
	"github.com/pingcap-incubator/tinyps/ps/sarray"
	"github.com/pingcap-incubator/tinyps/ps/topology"
)

// ModSlicer routes key K to destination K % numServers, regardless of range
// ownership. Group membership is not contiguous in key order, so matching
// keys and values are copied into freshly built per-destination buffers.
// Used when routing must not correlate with the numeric structure of keys.
type ModSlicer struct {
	numServers int
}

func NewModSlicer(numServers int) *ModSlicer {
	return &ModSlicer{numServers: numServers}
}

func (s *ModSlicer) Slice(send kvpairs.KVPairs, ranges []topology.Range) ([]Sliced, error) {
	n := s.numServers
	if len(ranges) != n {
		return nil, errors.Errorf("topology has %d ranges, mod slicer expects %d", len(ranges), n)
	}
	sliced := make([]Sliced, n)
	if send.Empty() {
		return sliced, nil
	}

	k := 0
	if len(send.Lens) == 0 {
		k = send.ValWidth()
	}

	valBegin, valEnd := 0, 0
	for i, key := range send.Keys {
		d := int(key % uint64(n))
		sliced[d].Keep = true
		kv := &sliced[d].KV
		kv.Keys = append(kv.Keys, key)
		if len(send.Lens) != 0 {
			kv.Lens = append(kv.Lens, send.Lens[i])
			valEnd += int(send.Lens[i])
			kv.Vals = append(kv.Vals, send.Vals.Segment(valBegin, valEnd)...)
			valBegin = valEnd
		} else {
			kv.Vals = append(kv.Vals, send.Vals.Segment(i*k, (i+1)*k)...)
		}
	}
	return sliced, nil
}

// Merge walks the requested keys in order and consumes each owning part at
// its cursor. Within a part, keys appear in the order the request scan first
// met them, so a single forward cursor per part suffices.
func (s *ModSlicer) Merge(keys sarray.Keys, parts []kvpairs.KVPairs, vals *sarray.Vals, lens *sarray.Lens) error {
	n := uint64(s.numServers)

	perServer := make([]int, s.numServers)
	for _, key := range keys {
		perServer[key%n]++
	}
	totalKey, totalVal := 0, 0
	for i := range parts {
		p := &parts[i]
		if p.Empty() {
			return errors.New("empty partial reply")
		}
		if len(p.Keys) != perServer[p.Keys[0]%n] {
			return errors.Errorf("unmatched keys size from one server: got %d keys, expected %d",
				len(p.Keys), perServer[p.Keys[0]%n])
		}
		if len(p.Lens) != 0 && len(p.Lens) != len(p.Keys) {
			return errors.Errorf("partial reply carries %d lens for %d keys", len(p.Lens), len(p.Keys))
		}
		totalKey += len(p.Keys)
		totalVal += len(p.Vals)
	}
	if totalKey != len(keys) {
		return errors.Errorf("merged %d keys, requested %d: lost some servers?", totalKey, len(keys))
	}

	if err := allocVals(vals, totalVal); err != nil {
		return err
	}
	if lens != nil {
		if err := allocLens(lens, len(keys)); err != nil {
			return err
		}
	}

	keyCursor := make([]int, len(parts))
	valCursor := make([]int, len(parts))
	valOff := 0
	for i, key := range keys {
		found := false
		for j := range parts {
			p := &parts[j]
			if keyCursor[j] >= len(p.Keys) || p.Keys[keyCursor[j]] != key {
				continue
			}
			w := 0
			if len(p.Lens) == 0 {
				w = p.ValWidth()
			} else {
				w = int(p.Lens[keyCursor[j]])
			}
			copy((*vals)[valOff:], p.Vals.Segment(valCursor[j], valCursor[j]+w))
			valOff += w
			if lens != nil {
				(*lens)[i] = int32(w)
			}
			valCursor[j] += w
			keyCursor[j]++
			found = true
			break
		}
		if !found {
			return errors.Errorf("no matched part for key %d when merging", key)
		}
	}
	return nil
}
