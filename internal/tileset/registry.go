package tileset

import (
	"errors"
	"fmt"
)

// ErrUnknownVoxels is returned when a voxel grid matches no registered
// prototype under any rotation.
var ErrUnknownVoxels = errors.New("tileset: voxel grid matches no registered prototype")

// Registry is an ordered, immutable collection of prototypes. It is
// constructed once by the caller and shared read-only with the
// generator; there is no package-level registry state.
type Registry struct {
	name   string
	protos []*Prototype
}

// NewRegistry builds a registry from the given prototypes. Prototype
// indices are assigned from their position in the slice, so callers can
// pass freshly constructed prototypes without setting Index themselves.
func NewRegistry(protos []*Prototype) (*Registry, error) {
	for i, p := range protos {
		if p == nil {
			return nil, fmt.Errorf("tileset: prototype %d is nil", i)
		}
		if p.Meta.Weight < 0 {
			return nil, fmt.Errorf("tileset: prototype %q has negative weight", p.Name)
		}
		for _, r := range p.Rotations {
			if r < 0 || r > 3 {
				return nil, fmt.Errorf("tileset: prototype %q has invalid rotation %d", p.Name, r)
			}
		}
		for _, c := range p.Meta.RequiredAboveEmpty {
			if !c.InBounds() {
				return nil, fmt.Errorf("tileset: prototype %q has out-of-bounds required_above_empty voxel (%d,%d,%d)",
					p.Name, c.X, c.Y, c.Z)
			}
		}
		if p.IsStair() && p.Meta.Dir != 1 && p.Meta.Dir != -1 {
			return nil, fmt.Errorf("tileset: stair prototype %q needs travel dir +1 or -1", p.Name)
		}
		p.Index = i
	}
	return &Registry{protos: protos}, nil
}

// Name returns the tileset name, or an empty string for registries
// built directly from prototypes.
func (r *Registry) Name() string {
	return r.name
}

// Len returns the number of registered prototypes.
func (r *Registry) Len() int {
	return len(r.protos)
}

// Get returns the prototype at the given index, or nil if out of range.
func (r *Registry) Get(index int) *Prototype {
	if index < 0 || index >= len(r.protos) {
		return nil
	}
	return r.protos[index]
}

// All returns the ordered prototype list. Callers must not mutate it.
func (r *Registry) All() []*Prototype {
	return r.protos
}

// IdentifyRotation classifies a voxel grid back to the prototype and Y
// rotation that produce it. The search prefers lower prototype indices
// and lower rotation counts, so a grid identical under several
// rotations resolves deterministically.
func (r *Registry) IdentifyRotation(v VoxelGrid) (index, rotation int, err error) {
	for _, p := range r.protos {
		for turns := 0; turns < 4; turns++ {
			if p.Voxels.RotateY(turns) == v {
				return p.Index, turns, nil
			}
		}
	}
	return 0, 0, ErrUnknownVoxels
}
