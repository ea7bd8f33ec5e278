// Package controllogic implements the control-logic registry (component G):
// a small number of named, independently-stateful routines exposed to the
// Redfish OEM bridge (K) as opaque, 1-based-indexed instances.
package controllogic

import (
	"encoding/json"
	"fmt"
)

// Instance is one control-logic routine. ReadToJSON produces a snapshot of
// its current state; WriteFromJSON consumes a JSON request to mutate it.
// The registry is the only boundary the core contracts with — callers never
// see concrete instance types (design/038_CDU_Gateway_Control_Logic.md §4.G: "individual instances are
// opaque").
type Instance interface {
	Name() string
	ReadToJSON() (json.RawMessage, error)
	WriteFromJSON(data []byte) error
}

// Registry holds a fixed, ordered set of instances, addressed by 1-based
// index.
type Registry struct {
	instances []Instance
}

// NewRegistry builds a Registry over instances, in the given order.
func NewRegistry(instances ...Instance) *Registry {
	return &Registry{instances: instances}
}

// Count reports how many instances the registry holds.
func (r *Registry) Count() int {
	return len(r.instances)
}

func (r *Registry) at(index int) (Instance, error) {
	if index < 1 || index > len(r.instances) {
		return nil, fmt.Errorf("controllogic: index %d out of range [1,%d]", index, len(r.instances))
	}
	return r.instances[index-1], nil
}

// ReadJSON produces instance index's current-state snapshot.
func (r *Registry) ReadJSON(index int) (json.RawMessage, error) {
	inst, err := r.at(index)
	if err != nil {
		return nil, err
	}
	return inst.ReadToJSON()
}

// WriteJSON dispatches data to instance index's WriteFromJSON.
func (r *Registry) WriteJSON(index int, data []byte) error {
	inst, err := r.at(index)
	if err != nil {
		return err
	}
	return inst.WriteFromJSON(data)
}

// Name returns the name of instance index, or "" if out of range — used by
// the OEM bridge to label collection members without exposing the instance
// itself.
func (r *Registry) Name(index int) string {
	inst, err := r.at(index)
	if err != nil {
		return ""
	}
	return inst.Name()
}
