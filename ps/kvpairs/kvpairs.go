// Package kvpairs defines the partitionable payload unit: a list of unique,
// sorted keys with their values and optional per-key value lengths.
package kvpairs

import (
	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinyps/ps/sarray"
)

// KVPairs is one key-value list. If Lens is empty every key has the uniform
// value width len(Vals)/len(Keys); otherwise Lens[i] is the value length of
// the i-th key and Vals is the concatenation of the per-key segments in key
// order.
type KVPairs struct {
	Keys sarray.Keys
	Vals sarray.Vals
	Lens sarray.Lens
}

func (kv *KVPairs) Empty() bool {
	return len(kv.Keys) == 0
}

// ValWidth returns the uniform per-key value width. Only meaningful when
// Lens is empty.
func (kv *KVPairs) ValWidth() int {
	if len(kv.Keys) == 0 {
		return 0
	}
	return len(kv.Vals) / len(kv.Keys)
}

// Validate checks the list invariants. A violation means corrupted input and
// the request must not reach the network.
func (kv *KVPairs) Validate() error {
	for i := 1; i < len(kv.Keys); i++ {
		if kv.Keys[i-1] >= kv.Keys[i] {
			return errors.Errorf("keys must be unique and sorted in increasing order, keys[%d]=%d keys[%d]=%d",
				i-1, kv.Keys[i-1], i, kv.Keys[i])
		}
	}
	if len(kv.Keys) == 0 {
		if len(kv.Vals) != 0 || len(kv.Lens) != 0 {
			return errors.New("vals and lens must be empty when keys is empty")
		}
		return nil
	}
	if len(kv.Lens) == 0 {
		if len(kv.Vals)%len(kv.Keys) != 0 {
			return errors.Errorf("vals size %d is not a multiple of keys size %d",
				len(kv.Vals), len(kv.Keys))
		}
		return nil
	}
	if len(kv.Lens) != len(kv.Keys) {
		return errors.Errorf("lens size %d does not match keys size %d",
			len(kv.Lens), len(kv.Keys))
	}
	if total := kv.Lens.Total(); total != len(kv.Vals) {
		return errors.Errorf("lens total %d does not match vals size %d",
			total, len(kv.Vals))
	}
	return nil
}
