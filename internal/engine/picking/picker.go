package picking

import (
	"github.com/Faultbox/navscene/internal/scene"
)

// ScenePicker is the default pick capability. It tests the ray against each
// object's world-space collider box and returns the nearest hit.
type ScenePicker struct {
	// IncludeHidden lets hidden objects be picked.
	IncludeHidden bool
}

// Pick returns the nearest object hit by ray, or nil.
func (p ScenePicker) Pick(sc *scene.Scene, ray Ray) *scene.Object {
	var (
		best     *scene.Object
		bestDist float32
	)
	for _, obj := range sc.Objects() {
		if obj.Hidden && !p.IncludeHidden {
			continue
		}
		t, hit := ray.IntersectAABB(FromBounds(obj.WorldBounds()))
		if !hit {
			continue
		}
		if best == nil || t < bestDist {
			best, bestDist = obj, t
		}
	}
	return best
}
