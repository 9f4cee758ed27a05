package scene

import (
	"errors"
)

// ErrUnknownObject is returned when an ID does not name a live object.
var ErrUnknownObject = errors.New("unknown object")

// Scene is the ordered set of live objects plus the current selection.
// The selection is held by ID so a deleted object is never kept alive.
//
// A Scene is not safe for concurrent use; it is mutated only from the tick
// loop and background work operates on Snapshot copies.
type Scene struct {
	objects  []*Object
	selected string
}

// New creates an empty scene.
func New() *Scene {
	return &Scene{}
}

// Add appends obj to the live set.
func (s *Scene) Add(obj *Object) {
	s.objects = append(s.objects, obj)
}

// Remove deletes the object with the given ID. The selection is cleared
// when it pointed at that object.
func (s *Scene) Remove(id string) bool {
	for i, obj := range s.objects {
		if obj.ID != id {
			continue
		}
		s.objects = append(s.objects[:i], s.objects[i+1:]...)
		if s.selected == id {
			s.selected = ""
		}
		return true
	}
	return false
}

// Get returns the object with the given ID, or nil.
func (s *Scene) Get(id string) *Object {
	for _, obj := range s.objects {
		if obj.ID == id {
			return obj
		}
	}
	return nil
}

// Objects returns the live objects in insertion order.
// The slice is a copy; the objects are not.
func (s *Scene) Objects() []*Object {
	out := make([]*Object, len(s.objects))
	copy(out, s.objects)
	return out
}

// Len returns the number of live objects.
func (s *Scene) Len() int {
	return len(s.objects)
}

// Count returns the number of live objects of kind k.
func (s *Scene) Count(k Kind) int {
	n := 0
	for _, obj := range s.objects {
		if obj.Kind == k {
			n++
		}
	}
	return n
}

// Select makes the object with the given ID the selection.
func (s *Scene) Select(id string) error {
	if s.Get(id) == nil {
		return ErrUnknownObject
	}
	s.selected = id
	return nil
}

// ClearSelection drops the selection.
func (s *Scene) ClearSelection() {
	s.selected = ""
}

// SelectedID returns the selected object ID, or "".
func (s *Scene) SelectedID() string {
	return s.selected
}

// Selected resolves the selection, returning nil when nothing is selected.
func (s *Scene) Selected() *Object {
	if s.selected == "" {
		return nil
	}
	obj := s.Get(s.selected)
	if obj == nil {
		s.selected = ""
	}
	return obj
}

// Replace swaps in a new object set and clears the selection.
func (s *Scene) Replace(objects []*Object) {
	s.objects = append([]*Object(nil), objects...)
	s.selected = ""
}

// Clear removes every object.
func (s *Scene) Clear() {
	s.Replace(nil)
}

// Snapshot returns a deep copy of the scene for use off the tick loop.
func (s *Scene) Snapshot() *Scene {
	c := &Scene{
		objects:  make([]*Object, len(s.objects)),
		selected: s.selected,
	}
	for i, obj := range s.objects {
		c.objects[i] = obj.Clone()
	}
	return c
}
