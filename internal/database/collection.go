package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrStorage is matched by every *StorageError.
var ErrStorage = errors.New("storage failure")

// ErrNoBlob is returned by a Backend when the named collection has never been written.
var ErrNoBlob = errors.New("collection blob not found")

// StorageError reports an I/O or decode failure on a collection's backing blob.
type StorageError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// Backend reads and writes whole collection blobs by name.
type Backend interface {
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
}

// Collection is a named, ordered sequence of records stored as a single blob.
// Every operation runs under the collection's own mutex.
type Collection[T any] struct {
	name    string
	backend Backend
	mu      sync.Mutex
}

func NewCollection[T any](name string, backend Backend) *Collection[T] {
	return &Collection[T]{name: name, backend: backend}
}

func (c *Collection[T]) Name() string { return c.name }

// Load returns the stored records. A collection that was never saved is empty.
func (c *Collection[T]) Load() ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load()
}

// Save replaces the stored records wholesale.
func (c *Collection[T]) Save(items []T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.save(items)
}

// Tx is the in-memory copy of a collection handed to an Update callback.
type Tx[T any] struct {
	Items []T
	dirty bool
}

// MarkDirty schedules the items to be written back when the callback returns.
func (tx *Tx[T]) MarkDirty() { tx.dirty = true }

// Update loads the collection, runs fn and writes the items back if fn marked
// the transaction dirty, all inside one critical section. Dirty items are
// persisted even when fn returns an error; fn's error is returned unless the
// write itself fails.
func (c *Collection[T]) Update(fn func(tx *Tx[T]) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.load()
	if err != nil {
		return err
	}
	tx := &Tx[T]{Items: items}
	fnErr := fn(tx)
	if tx.dirty {
		if err := c.save(tx.Items); err != nil {
			return err
		}
	}
	return fnErr
}

// View runs fn over a freshly loaded copy of the collection under its lock.
func (c *Collection[T]) View(fn func(items []T) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.load()
	if err != nil {
		return err
	}
	return fn(items)
}

func (c *Collection[T]) load() ([]T, error) {
	data, err := c.backend.Read(c.name)
	if errors.Is(err, ErrNoBlob) {
		return []T{}, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "read", Collection: c.Name(), Err: err}
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, &StorageError{Op: "decode", Collection: c.Name(), Err: err}
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (c *Collection[T]) save(items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return &StorageError{Op: "encode", Collection: c.Name(), Err: err}
	}
	if err := c.backend.Write(c.name, data); err != nil {
		return &StorageError{Op: "write", Collection: c.Name(), Err: err}
	}
	return nil
}
