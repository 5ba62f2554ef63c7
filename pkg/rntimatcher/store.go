package rntimatcher

import (
	"encoding/binary"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// winnerBucket holds the persisted per-cell winner ring so a restart
// does not forget the last believed RNTI mid-session.
const winnerBucket = "rnti_winners"

// Store persists each cell's winner ring across restarts (§4.4).
type Store struct {
	db *bolt.DB
}

// OpenStore opens (creating if absent) the bbolt database at path.
func OpenStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("rntimatcher: opening winner store: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(winnerBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("rntimatcher: initializing winner bucket: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Load reads the persisted ring for a cell, returning the zero ring if
// none was ever saved.
func (s *Store) Load(cellID uint8) (winnerRing, error) {
	var ring winnerRing
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(winnerBucket))
		raw := b.Get(cellKey(cellID))
		if raw == nil {
			return nil
		}
		return decodeRing(raw, &ring)
	})
	return ring, err
}

// Save persists the ring for a cell.
func (s *Store) Save(cellID uint8, ring winnerRing) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(winnerBucket))
		return b.Put(cellKey(cellID), encodeRing(ring))
	})
}

func cellKey(cellID uint8) []byte {
	return []byte{cellID}
}

func encodeRing(r winnerRing) []byte {
	buf := make([]byte, 1+len(r.entries)*2+len(r.filled))
	buf[0] = byte(r.next)
	off := 1
	for i, v := range r.entries {
		binary.LittleEndian.PutUint16(buf[off:off+2], v)
		off += 2
	}
	for _, f := range r.filled {
		if f {
			buf[off] = 1
		}
		off++
	}
	return buf
}

func decodeRing(raw []byte, r *winnerRing) error {
	want := 1 + len(r.entries)*2 + len(r.filled)
	if len(raw) != want {
		return fmt.Errorf("rntimatcher: winner ring record is %d bytes, want %d", len(raw), want)
	}
	r.next = int(raw[0])
	off := 1
	for i := range r.entries {
		r.entries[i] = binary.LittleEndian.Uint16(raw[off : off+2])
		off += 2
	}
	for i := range r.filled {
		r.filled[i] = raw[off] == 1
		off++
	}
	return nil
}
