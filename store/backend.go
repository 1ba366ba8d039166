package store

import (
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

// Provider hands out one Backend per namespace, e.g. per editor session.
type Provider interface {
	Backend(namespace string) (Backend, error)
	Drop(namespace string) error
}

// MemoryBackend keeps values in a map.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

func (m *MemoryBackend) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryBackend) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// MemoryProvider keeps a MemoryBackend per namespace for the life of the process.
type MemoryProvider struct {
	mu       sync.Mutex
	backends map[string]*MemoryBackend
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{backends: make(map[string]*MemoryBackend)}
}

func (p *MemoryProvider) Backend(namespace string) (Backend, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.backends[namespace]
	if !ok {
		b = NewMemoryBackend()
		p.backends[namespace] = b
	}
	return b, nil
}

func (p *MemoryProvider) Drop(namespace string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.backends, namespace)
	return nil
}

var bucketEditor = []byte("editor")

// BoltBackend stores values in one bbolt bucket. Backends returned by
// Backend share the database of the one opened with NewBoltBackend.
type BoltBackend struct {
	db     *bbolt.DB
	bucket []byte
	owner  bool
}

func NewBoltBackend(path string) (*BoltBackend, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEditor)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltBackend{db: db, bucket: bucketEditor, owner: true}, nil
}

func sessionBucket(namespace string) []byte {
	return []byte("session/" + namespace)
}

// Backend returns a backend over the bucket of namespace.
func (b *BoltBackend) Backend(namespace string) (Backend, error) {
	name := sessionBucket(namespace)
	err := b.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &BoltBackend{db: b.db, bucket: name}, nil
}

// Drop deletes the bucket of namespace.
func (b *BoltBackend) Drop(namespace string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		err := tx.DeleteBucket(sessionBucket(namespace))
		if err == bbolt.ErrBucketNotFound {
			return nil
		}
		return err
	})
}

func (b *BoltBackend) Get(key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(b.bucket)
		if bucket == nil {
			return fmt.Errorf("bucket %s missing", b.bucket)
		}
		data := bucket.Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		value = string(data)
		return nil
	})
	return value, found, err
}

func (b *BoltBackend) Set(key, value string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(b.bucket)
		if bucket == nil {
			return fmt.Errorf("bucket %s missing", b.bucket)
		}
		return bucket.Put([]byte(key), []byte(value))
	})
}

// Close closes the database. It is a no-op on namespace backends.
func (b *BoltBackend) Close() error {
	if !b.owner {
		return nil
	}
	return b.db.Close()
}
