// Package storeop provides ready-made server handles backed by explicit,
// per-instance stores: an in-memory map and a badger-backed persistent
// store. Nothing here is ambient; two servers in one process never share
// state unless handed the same Store.
package storeop

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/coocood/badger"
	"github.com/pingcap/errors"
)

// Store is the value state a handle operates on. Missing keys read as zero.
type Store interface {
	Get(key uint64) (float32, error)
	Add(key uint64, delta float32) error
	Close() error
}

// MemStore keeps values in a map.
type MemStore struct {
	mu    sync.RWMutex
	store map[uint64]float32
}

func NewMemStore() *MemStore {
	return &MemStore{store: make(map[uint64]float32)}
}

func (s *MemStore) Get(key uint64) (float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store[key], nil
}

func (s *MemStore) Add(key uint64, delta float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store[key] += delta
	return nil
}

func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.store)
}

func (s *MemStore) Close() error {
	return nil
}

// BadgerStore persists values in a badger DB. Keys are big-endian encoded,
// values are the float32 bit pattern.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &BadgerStore{db: db}, nil
}

func encodeKey(key uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, key)
	return buf
}

func encodeVal(val float32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, math.Float32bits(val))
	return buf
}

func decodeVal(buf []byte) (float32, error) {
	if len(buf) != 4 {
		return 0, errors.Errorf("malformed value of %d bytes", len(buf))
	}
	return math.Float32frombits(binary.BigEndian.Uint32(buf)), nil
}

func getTxn(txn *badger.Txn, key uint64) (float32, error) {
	item, err := txn.Get(encodeKey(key))
	if err == badger.ErrKeyNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, errors.WithStack(err)
	}
	buf, err := item.Value()
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return decodeVal(buf)
}

func (s *BadgerStore) Get(key uint64) (float32, error) {
	var val float32
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		val, err = getTxn(txn, key)
		return err
	})
	return val, err
}

// Add reads, sums and writes back in one transaction.
func (s *BadgerStore) Add(key uint64, delta float32) error {
	return s.db.Update(func(txn *badger.Txn) error {
		old, err := getTxn(txn, key)
		if err != nil {
			return err
		}
		return txn.Set(encodeKey(key), encodeVal(old+delta))
	})
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
