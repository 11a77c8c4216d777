package slicer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pingcap-incubator/tinyps/ps/kvpairs"
	"github.com/pingcap-incubator/tinyps/ps/sarray"
	"github.com/pingcap-incubator/tinyps/ps/topology"
)

func TestNew(t *testing.T) {
	s, err := New("range", 2)
	require.Nil(t, err)
	assert.IsType(t, &RangeSlicer{}, s)

	s, err = New("mod", 2)
	require.Nil(t, err)
	assert.IsType(t, &ModSlicer{}, s)

	_, err = New("hash", 2)
	assert.NotNil(t, err)
}

func TestRangeSlice(t *testing.T) {
	send := kvpairs.KVPairs{
		Keys: sarray.Keys{10, 20, 30},
		Vals: sarray.Vals{1.0, 2.0, 3.0},
	}
	ranges := []topology.Range{{Begin: 0, End: 25}, {Begin: 25, End: topology.MaxKey}}

	sliced, err := NewRangeSlicer().Slice(send, ranges)
	require.Nil(t, err)
	require.Len(t, sliced, 2)

	require.True(t, sliced[0].Keep)
	assert.Equal(t, sarray.Keys{10, 20}, sliced[0].KV.Keys)
	assert.Equal(t, sarray.Vals{1.0, 2.0}, sliced[0].KV.Vals)

	require.True(t, sliced[1].Keep)
	assert.Equal(t, sarray.Keys{30}, sliced[1].KV.Keys)
	assert.Equal(t, sarray.Vals{3.0}, sliced[1].KV.Vals)
}

func TestRangeSliceZeroCopy(t *testing.T) {
	send := kvpairs.KVPairs{
		Keys: sarray.Keys{1, 2, 3, 4},
		Vals: sarray.Vals{1, 2, 3, 4},
	}
	ranges := []topology.Range{{Begin: 0, End: 3}, {Begin: 3, End: 10}}
	sliced, err := NewRangeSlicer().Slice(send, ranges)
	require.Nil(t, err)

	// Slices alias the input, they are views not copies.
	sliced[0].KV.Vals[0] = 100
	assert.Equal(t, float32(100), send.Vals[0])
}

func TestRangeSliceRoundTrip(t *testing.T) {
	send := kvpairs.KVPairs{
		Keys: sarray.Keys{1, 5, 9, 12, 13, 20},
		Vals: sarray.Vals{1, 1, 5, 5, 9, 9, 12, 12, 13, 13, 20, 20},
	}
	ranges := []topology.Range{{Begin: 0, End: 6}, {Begin: 6, End: 10}, {Begin: 10, End: 13}, {Begin: 13, End: 30}}
	sliced, err := NewRangeSlicer().Slice(send, ranges)
	require.Nil(t, err)

	var keys sarray.Keys
	var vals sarray.Vals
	for _, s := range sliced {
		if !s.Keep {
			assert.Empty(t, s.KV.Keys)
			continue
		}
		keys = append(keys, s.KV.Keys...)
		vals = append(vals, s.KV.Vals...)
	}
	assert.Equal(t, send.Keys, keys)
	assert.Equal(t, send.Vals, vals)
}

func TestRangeSliceRoundTripLens(t *testing.T) {
	send := kvpairs.KVPairs{
		Keys: sarray.Keys{1, 5, 9},
		Vals: sarray.Vals{1, 5, 5, 9, 9, 9},
		Lens: sarray.Lens{1, 2, 3},
	}
	ranges := []topology.Range{{Begin: 0, End: 4}, {Begin: 4, End: 8}, {Begin: 8, End: 16}}
	sliced, err := NewRangeSlicer().Slice(send, ranges)
	require.Nil(t, err)

	var vals sarray.Vals
	var lens sarray.Lens
	for _, s := range sliced {
		vals = append(vals, s.KV.Vals...)
		lens = append(lens, s.KV.Lens...)
	}
	assert.Equal(t, send.Vals, vals)
	assert.Equal(t, send.Lens, lens)
}

func TestRangeSliceEmptyDestinations(t *testing.T) {
	send := kvpairs.KVPairs{Keys: sarray.Keys{100}, Vals: sarray.Vals{1}}
	ranges := []topology.Range{{Begin: 0, End: 50}, {Begin: 50, End: 99}, {Begin: 99, End: 200}}
	sliced, err := NewRangeSlicer().Slice(send, ranges)
	require.Nil(t, err)
	assert.False(t, sliced[0].Keep)
	assert.False(t, sliced[1].Keep)
	assert.True(t, sliced[2].Keep)
}

func TestRangeSliceEmptySend(t *testing.T) {
	sliced, err := NewRangeSlicer().Slice(kvpairs.KVPairs{}, []topology.Range{{Begin: 0, End: 5}, {Begin: 5, End: 10}})
	require.Nil(t, err)
	for _, s := range sliced {
		assert.False(t, s.Keep)
		assert.True(t, s.KV.Empty())
	}
}

func TestRangeSliceNonContiguous(t *testing.T) {
	send := kvpairs.KVPairs{Keys: sarray.Keys{1, 7}, Vals: sarray.Vals{1, 7}}
	ranges := []topology.Range{{Begin: 0, End: 5}, {Begin: 6, End: 10}}
	_, err := NewRangeSlicer().Slice(send, ranges)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "not contiguous")
}

func TestRangeSliceKeyOutsideTopology(t *testing.T) {
	send := kvpairs.KVPairs{Keys: sarray.Keys{1, 100}, Vals: sarray.Vals{1, 100}}
	ranges := []topology.Range{{Begin: 0, End: 5}, {Begin: 5, End: 10}}
	_, err := NewRangeSlicer().Slice(send, ranges)
	assert.NotNil(t, err)
}

func TestRangeMergeOrder(t *testing.T) {
	keys := sarray.Keys{10, 20, 30}
	// Reply from the second destination arrives first.
	parts := []kvpairs.KVPairs{
		{Keys: sarray.Keys{30}, Vals: sarray.Vals{3}},
		{Keys: sarray.Keys{10, 20}, Vals: sarray.Vals{1, 2}},
	}
	var vals sarray.Vals
	require.Nil(t, NewRangeSlicer().Merge(keys, parts, &vals, nil))
	assert.Equal(t, sarray.Vals{1, 2, 3}, vals)

	// And in the other order.
	parts = []kvpairs.KVPairs{
		{Keys: sarray.Keys{10, 20}, Vals: sarray.Vals{1, 2}},
		{Keys: sarray.Keys{30}, Vals: sarray.Vals{3}},
	}
	vals = nil
	require.Nil(t, NewRangeSlicer().Merge(keys, parts, &vals, nil))
	assert.Equal(t, sarray.Vals{1, 2, 3}, vals)
}

func TestRangeMergeLens(t *testing.T) {
	keys := sarray.Keys{1, 5, 9}
	parts := []kvpairs.KVPairs{
		{Keys: sarray.Keys{9}, Vals: sarray.Vals{9, 9, 9}, Lens: sarray.Lens{3}},
		{Keys: sarray.Keys{1, 5}, Vals: sarray.Vals{1, 5, 5}, Lens: sarray.Lens{1, 2}},
	}
	var vals sarray.Vals
	var lens sarray.Lens
	require.Nil(t, NewRangeSlicer().Merge(keys, parts, &vals, &lens))
	assert.Equal(t, sarray.Vals{1, 5, 5, 9, 9, 9}, vals)
	assert.Equal(t, sarray.Lens{1, 2, 3}, lens)
}

func TestRangeMergeUnmatchedKeys(t *testing.T) {
	keys := sarray.Keys{10, 20, 30}
	parts := []kvpairs.KVPairs{
		{Keys: sarray.Keys{10}, Vals: sarray.Vals{1}},
		{Keys: sarray.Keys{30}, Vals: sarray.Vals{3}},
	}
	var vals sarray.Vals
	err := NewRangeSlicer().Merge(keys, parts, &vals, nil)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "lost some servers")
}

func TestRangeMergeOutputSizeMismatch(t *testing.T) {
	keys := sarray.Keys{10}
	parts := []kvpairs.KVPairs{{Keys: sarray.Keys{10}, Vals: sarray.Vals{1, 2}}}
	vals := make(sarray.Vals, 5)
	err := NewRangeSlicer().Merge(keys, parts, &vals, nil)
	assert.NotNil(t, err)
}

func TestModSliceAssignment(t *testing.T) {
	send := kvpairs.KVPairs{
		Keys: sarray.Keys{0, 1, 2, 3, 4, 5},
		Vals: sarray.Vals{0, 1, 2, 3, 4, 5},
	}
	topo, err := topology.NewStaticTopology(3)
	require.Nil(t, err)

	sliced, err := NewModSlicer(3).Slice(send, topo.ServerKeyRanges())
	require.Nil(t, err)
	require.Len(t, sliced, 3)

	assert.Equal(t, sarray.Keys{0, 3}, sliced[0].KV.Keys)
	assert.Equal(t, sarray.Keys{1, 4}, sliced[1].KV.Keys)
	assert.Equal(t, sarray.Keys{2, 5}, sliced[2].KV.Keys)
	assert.Equal(t, sarray.Vals{0, 3}, sliced[0].KV.Vals)
	assert.Equal(t, sarray.Vals{1, 4}, sliced[1].KV.Vals)
	assert.Equal(t, sarray.Vals{2, 5}, sliced[2].KV.Vals)
	for _, s := range sliced {
		assert.True(t, s.Keep)
	}
}

func TestModSliceCopies(t *testing.T) {
	send := kvpairs.KVPairs{Keys: sarray.Keys{0, 1}, Vals: sarray.Vals{10, 11}}
	topo, err := topology.NewStaticTopology(2)
	require.Nil(t, err)

	sliced, err := NewModSlicer(2).Slice(send, topo.ServerKeyRanges())
	require.Nil(t, err)

	// Mod groups are materialized, mutating them must not touch the input.
	sliced[0].KV.Vals[0] = 99
	assert.Equal(t, float32(10), send.Vals[0])
}

func TestModSliceLens(t *testing.T) {
	send := kvpairs.KVPairs{
		Keys: sarray.Keys{0, 1, 2},
		Vals: sarray.Vals{0, 1, 1, 2, 2, 2},
		Lens: sarray.Lens{1, 2, 3},
	}
	topo, err := topology.NewStaticTopology(2)
	require.Nil(t, err)

	sliced, err := NewModSlicer(2).Slice(send, topo.ServerKeyRanges())
	require.Nil(t, err)
	assert.Equal(t, sarray.Keys{0, 2}, sliced[0].KV.Keys)
	assert.Equal(t, sarray.Vals{0, 2, 2, 2}, sliced[0].KV.Vals)
	assert.Equal(t, sarray.Lens{1, 3}, sliced[0].KV.Lens)
	assert.Equal(t, sarray.Keys{1}, sliced[1].KV.Keys)
	assert.Equal(t, sarray.Vals{1, 1}, sliced[1].KV.Vals)
	assert.Equal(t, sarray.Lens{2}, sliced[1].KV.Lens)
}

func TestModSliceEmptySend(t *testing.T) {
	topo, err := topology.NewStaticTopology(3)
	require.Nil(t, err)
	sliced, err := NewModSlicer(3).Slice(kvpairs.KVPairs{}, topo.ServerKeyRanges())
	require.Nil(t, err)
	for _, s := range sliced {
		assert.False(t, s.Keep)
	}
}

func TestModMergeRequestOrder(t *testing.T) {
	keys := sarray.Keys{0, 1, 2, 3, 4, 5}
	// Parts in arbitrary arrival order.
	parts := []kvpairs.KVPairs{
		{Keys: sarray.Keys{2, 5}, Vals: sarray.Vals{2, 5}},
		{Keys: sarray.Keys{0, 3}, Vals: sarray.Vals{0, 3}},
		{Keys: sarray.Keys{1, 4}, Vals: sarray.Vals{1, 4}},
	}
	var vals sarray.Vals
	require.Nil(t, NewModSlicer(3).Merge(keys, parts, &vals, nil))
	assert.Equal(t, sarray.Vals{0, 1, 2, 3, 4, 5}, vals)
}

func TestModMergeLens(t *testing.T) {
	keys := sarray.Keys{0, 1, 2}
	parts := []kvpairs.KVPairs{
		{Keys: sarray.Keys{1}, Vals: sarray.Vals{1, 1}, Lens: sarray.Lens{2}},
		{Keys: sarray.Keys{0, 2}, Vals: sarray.Vals{0, 2, 2, 2}, Lens: sarray.Lens{1, 3}},
	}
	var vals sarray.Vals
	var lens sarray.Lens
	require.Nil(t, NewModSlicer(2).Merge(keys, parts, &vals, &lens))
	assert.Equal(t, sarray.Vals{0, 1, 1, 2, 2, 2}, vals)
	assert.Equal(t, sarray.Lens{1, 2, 3}, lens)
}

func TestModMergeMissingOwner(t *testing.T) {
	keys := sarray.Keys{0, 1}
	parts := []kvpairs.KVPairs{
		{Keys: sarray.Keys{0}, Vals: sarray.Vals{0}},
	}
	var vals sarray.Vals
	err := NewModSlicer(2).Merge(keys, parts, &vals, nil)
	assert.NotNil(t, err)
}
