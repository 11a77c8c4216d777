// Package slicer partitions one key-value list across the destination
// servers and re-assembles pulled partial replies. Partitioning and merging
// are coupled: a merge only makes sense against the key-to-destination rule
// that produced the parts, so each policy carries both halves.
package slicer

import (
	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinyps/ps/kvpairs"
	"github.com/pingcap-incubator/tinyps/ps/sarray"
	"github.com/pingcap-incubator/tinyps/ps/topology"
)

// Sliced is the per-destination output slot. Keep=false marks a destination
// that receives no keys and must not be sent to.
type Sliced struct {
	Keep bool
	KV   kvpairs.KVPairs
}

// Slicer splits a request across destinations and merges the corresponding
// partial replies back into caller-supplied output buffers.
type Slicer interface {
	// Slice partitions send by ranges, one output slot per destination.
	Slice(send kvpairs.KVPairs, ranges []topology.Range) ([]Sliced, error)
	// Merge fills vals (and lens when non-nil) with the partial replies in
	// the order keys were requested. Output buffers are allocated when
	// empty, otherwise their sizes must already match. Any mismatch between
	// parts and keys is a protocol violation.
	Merge(keys sarray.Keys, parts []kvpairs.KVPairs, vals *sarray.Vals, lens *sarray.Lens) error
}

// New returns the policy registered under name, as spelled in the config
// file: "range" or "mod".
func New(name string, numServers int) (Slicer, error) {
	switch name {
	case "range":
		return NewRangeSlicer(), nil
	case "mod":
		return NewModSlicer(numServers), nil
	}
	return nil, errors.Errorf("unknown slicer policy %q", name)
}

func allocVals(vals *sarray.Vals, total int) error {
	if len(*vals) == 0 {
		*vals = make(sarray.Vals, total)
	} else if len(*vals) != total {
		return errors.Errorf("vals buffer size %d does not match pulled size %d", len(*vals), total)
	}
	return nil
}

func allocLens(lens *sarray.Lens, numKeys int) error {
	if len(*lens) == 0 {
		*lens = make(sarray.Lens, numKeys)
	} else if len(*lens) != numKeys {
		return errors.Errorf("lens buffer size %d does not match key count %d", len(*lens), numKeys)
	}
	return nil
}
