package sensorconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/dexatek/cdu-gateway/internal/cduerr"
)

// Store holds one JSON-backed config list under an RCU discipline (design/045_CDU_Gateway_Concurrency_Model.md §5):
// a writer builds the replacement slice off to the side, persists it, then
// atomically swaps the pointer; readers (the acquisition engine) always see
// a complete, consistent snapshot for the duration of one pipeline
// iteration, never a partially-written list.
type Store[T any] struct {
	path string
	ptr  atomic.Pointer[[]T]
}

// NewStore creates a Store backed by path and loads its initial contents. A
// missing file is not an error: the store starts with an empty list,
// matching first-boot behavior.
func NewStore[T any](path string) (*Store[T], error) {
	s := &Store[T]{path: path}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load replaces the in-memory list by re-reading path.
func (s *Store[T]) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			empty := []T{}
			s.ptr.Store(&empty)
			return nil
		}
		return fmt.Errorf("sensorconfig: read %s: %w", s.path, err)
	}
	var list []T
	if err := json.Unmarshal(data, &list); err != nil {
		return &cduerr.ParseError{Kind: cduerr.MalformedJSON, Err: err}
	}
	s.ptr.Store(&list)
	return nil
}

// Get returns the current list. The returned slice must not be mutated by
// the caller; Set always installs a fresh slice.
func (s *Store[T]) Get() []T {
	p := s.ptr.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Set validates (via validate, which may be nil), persists the new list to
// disk, and atomically installs it.
func (s *Store[T]) Set(list []T, validate func([]T) error) error {
	if validate != nil {
		if err := validate(list); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("sensorconfig: marshal: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("sensorconfig: write %s: %w", s.path, err)
	}
	cp := append([]T(nil), list...)
	s.ptr.Store(&cp)
	return nil
}

// ObjectStore is Store's single-object counterpart, used for SystemConfig.
type ObjectStore[T any] struct {
	path string
	ptr  atomic.Pointer[T]
}

// NewObjectStore creates an ObjectStore backed by path and loads it. A
// missing file leaves the zero value installed.
func NewObjectStore[T any](path string) (*ObjectStore[T], error) {
	s := &ObjectStore[T]{path: path}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ObjectStore[T]) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			var zero T
			s.ptr.Store(&zero)
			return nil
		}
		return fmt.Errorf("sensorconfig: read %s: %w", s.path, err)
	}
	var obj T
	if err := json.Unmarshal(data, &obj); err != nil {
		return &cduerr.ParseError{Kind: cduerr.MalformedJSON, Err: err}
	}
	s.ptr.Store(&obj)
	return nil
}

func (s *ObjectStore[T]) Get() T {
	p := s.ptr.Load()
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

func (s *ObjectStore[T]) Set(obj T) error {
	data, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return fmt.Errorf("sensorconfig: marshal: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("sensorconfig: write %s: %w", s.path, err)
	}
	cp := obj
	s.ptr.Store(&cp)
	return nil
}
