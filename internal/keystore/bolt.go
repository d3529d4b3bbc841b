package keystore

import (
	"fmt"

	bolt "go.etcd.io/bbolt"

	"courier/internal/domain"
)

var slotsBucket = []byte("slots")

// Bolt persists slots in a single-bucket bbolt file.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the key store file at path with 0600
// permissions and ensures the slots bucket exists.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrStorageUnavailable, path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(slotsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: create bucket: %v", domain.ErrStorageUnavailable, err)
	}
	return &Bolt{db: db}, nil
}

// Close releases the underlying bbolt file.
func (s *Bolt) Close() error { return s.db.Close() }

// Save writes value under slot, replacing any previous value.
func (s *Bolt) Save(slot domain.Slot, value []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(slotsBucket).Put([]byte(slot), value)
	})
	if err != nil {
		return fmt.Errorf("%w: save %s: %v", domain.ErrStorageUnavailable, slot, err)
	}
	return nil
}

// Load reads the value stored under slot; a missing slot is
// domain.ErrSlotNotFound.
func (s *Bolt) Load(slot domain.Slot) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(slotsBucket).Get([]byte(slot))
		if v == nil {
			return domain.ErrSlotNotFound
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Exists reports whether slot holds a value.
func (s *Bolt) Exists(slot domain.Slot) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(slotsBucket).Get([]byte(slot)) != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: exists %s: %v", domain.ErrStorageUnavailable, slot, err)
	}
	return found, nil
}

// Delete removes slot; deleting a missing slot is not an error.
func (s *Bolt) Delete(slot domain.Slot) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(slotsBucket).Delete([]byte(slot))
	})
	if err != nil {
		return fmt.Errorf("%w: delete %s: %v", domain.ErrStorageUnavailable, slot, err)
	}
	return nil
}

// DeleteAll wipes every slot. Used by the engine's Clear.
func (s *Bolt) DeleteAll() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(slotsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(slotsBucket)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: delete all: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// Compile-time assertion that Bolt implements domain.KeyStore.
var _ domain.KeyStore = (*Bolt)(nil)
