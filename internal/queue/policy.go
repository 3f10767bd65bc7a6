package queue

// CascadePolicy selects how a mutation treats the rest of the chain.
type CascadePolicy string

const (
	// PolicyLocked keeps the chain packed: every mutation shifts all
	// following events so no slack beyond the configured gap appears.
	PolicyLocked CascadePolicy = "locked"
	// PolicyRespecting leaves stored start times alone and only pushes
	// events that would otherwise overlap.
	PolicyRespecting CascadePolicy = "respecting"
)

// Valid reports whether the policy is a known variant.
func (p CascadePolicy) Valid() bool {
	return p == PolicyLocked || p == PolicyRespecting
}
