// Package topology describes how the key space is assigned to server nodes.
// Membership changes are outside this engine; a topology is built once and
// injected into workers and transports.
package topology

import (
	"math"

	"github.com/pingcap/errors"
)

// MaxKey is the upper bound of the key space.
const MaxKey uint64 = math.MaxUint64

// ServerRankOffset maps a server rank to its node id. Node ids 1..7 are
// reserved for group addressing, servers start at 8 and take even ids.
const ServerRankOffset = 8

// Range is a half-open key span [Begin, End).
type Range struct {
	Begin uint64
	End   uint64
}

func (r Range) Size() uint64 {
	return r.End - r.Begin
}

func (r Range) Contains(key uint64) bool {
	return key >= r.Begin && key < r.End
}

// Topology supplies the per-server key ranges and the rank to node id
// mapping. Ranges are ordered by rank.
type Topology interface {
	ServerKeyRanges() []Range
	NumServers() int
	ServerRankToID(rank int) uint64
}

// CheckContiguous verifies ranges[i-1].End == ranges[i].Begin for all i.
// The range partitioning policy requires it.
func CheckContiguous(ranges []Range) error {
	for i := 1; i < len(ranges); i++ {
		if ranges[i-1].End != ranges[i].Begin {
			return errors.Errorf("ranges are not contiguous: ranges[%d].End=%d ranges[%d].Begin=%d",
				i-1, ranges[i-1].End, i, ranges[i].Begin)
		}
	}
	return nil
}

// StaticTopology is a fixed assignment of key ranges to server ranks.
type StaticTopology struct {
	ranges []Range
}

// NewStaticTopology splits [0, MaxKey) evenly across numServers contiguous
// ranges, one per rank.
func NewStaticTopology(numServers int) (*StaticTopology, error) {
	if numServers <= 0 {
		return nil, errors.Errorf("invalid server count %d", numServers)
	}
	chunk := MaxKey / uint64(numServers)
	ranges := make([]Range, numServers)
	for i := range ranges {
		ranges[i] = Range{Begin: chunk * uint64(i), End: chunk * uint64(i+1)}
	}
	return &StaticTopology{ranges: ranges}, nil
}

// NewStaticTopologyWithRanges builds a topology from explicit per-rank
// ranges, e.g. when the deployment pins uneven key ownership.
func NewStaticTopologyWithRanges(ranges []Range) (*StaticTopology, error) {
	if len(ranges) == 0 {
		return nil, errors.New("topology needs at least one range")
	}
	out := make([]Range, len(ranges))
	copy(out, ranges)
	return &StaticTopology{ranges: out}, nil
}

func (t *StaticTopology) ServerKeyRanges() []Range {
	return t.ranges
}

func (t *StaticTopology) NumServers() int {
	return len(t.ranges)
}

func (t *StaticTopology) ServerRankToID(rank int) uint64 {
	return ServerRankOffset + uint64(rank)*2
}

// ServerIDToRank is the inverse of ServerRankToID.
func ServerIDToRank(id uint64) int {
	return int(id-ServerRankOffset) / 2
}
