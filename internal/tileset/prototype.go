package tileset

// Role classifies a prototype for rule building.
type Role int

const (
	RoleNone Role = iota
	RoleStair
)

// String returns the string representation of a Role.
func (r Role) String() string {
	switch r {
	case RoleStair:
		return "stair"
	default:
		return "none"
	}
}

// StairRole pairs the two halves of a staircase that must stack vertically.
type StairRole int

const (
	StairNone StairRole = iota
	StairLower
	StairUpper
)

// String returns the string representation of a StairRole.
func (r StairRole) String() string {
	switch r {
	case StairLower:
		return "lower"
	case StairUpper:
		return "upper"
	default:
		return "none"
	}
}

// TravelAxis is the horizontal axis a stair climbs along.
type TravelAxis int

const (
	TravelX TravelAxis = iota
	TravelZ
)

// String returns the string representation of a TravelAxis.
func (a TravelAxis) String() string {
	switch a {
	case TravelZ:
		return "z"
	default:
		return "x"
	}
}

// Meta holds the rule-building metadata attached to a prototype.
type Meta struct {
	// Role marks special prototypes; stairs get extra adjacency handling.
	Role Role

	// Axis and Dir describe the travel direction of a stair: the axis it
	// climbs along and whether it ascends toward the positive (+1) or
	// negative (-1) end of that axis. Ignored for non-stairs.
	Axis TravelAxis
	Dir  int

	// StairRole pairs lower and upper stair halves vertically.
	StairRole StairRole

	// Weight biases the solver's collapse sampling. Zero means default (1).
	Weight float64

	// RequiredAboveEmpty lists voxels that must be empty in the prototype
	// placed directly above a lower stair half (headroom for the climb).
	RequiredAboveEmpty []VoxelCoord

	// RequireSolidBelow demands a fully solid face beneath this prototype
	// instead of accepting an open face.
	RequireSolidBelow bool
}

// Prototype is a single placeable tile variant. Prototypes are immutable
// once registered; the generator only ever reads them.
type Prototype struct {
	// Index is the prototype's position in its registry. Rules and wave
	// domains refer to prototypes by this index.
	Index int

	// TileID identifies the authored tile this prototype was derived
	// from. Several rotation variants share one TileID.
	TileID int

	// Name is the authored tile name, for diagnostics and rendering.
	Name string

	// Voxels is the prototype's 3x3x3 occupancy volume.
	Voxels VoxelGrid

	// Rotations lists the Y rotations (quarter turns) considered when
	// matching this prototype's faces against a neighbor. Empty means
	// only the identity rotation.
	Rotations []int

	// Rotation is this variant's own yaw in quarter turns, carried
	// through to placed tiles so the renderer can orient the mesh.
	Rotation int

	Meta Meta
}

// IsStair returns true if the prototype participates in stair rules.
func (p *Prototype) IsStair() bool {
	return p.Meta.Role == RoleStair
}

// WeightOrDefault returns the sampling weight, defaulting to 1.
func (p *Prototype) WeightOrDefault() float64 {
	if p.Meta.Weight > 0 {
		return p.Meta.Weight
	}
	return 1
}

// RotationList returns the face-matching rotations, defaulting to the
// identity rotation when none are declared.
func (p *Prototype) RotationList() []int {
	if len(p.Rotations) == 0 {
		return []int{0}
	}
	return p.Rotations
}
