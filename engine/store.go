/*
store.go - Indexed collection of scheduled templates

PURPOSE:
  TemplateStore owns every ScheduledTemplate of the currently open file.
  It hands out stable integer ids, keeps insertion order for display, and
  tracks the parent->children relation of splits.

ID CONTRACT:
  Create assigns max-seen + 1. Ids are never reused within a session, even
  after deletion, so external references (ledger rows, saved files) stay
  valid. SetFromFile feeds the max-seen counter so templates created after
  a load never collide with loaded ones.

MODIFIED FLAG:
  Every mutating operation marks the store modified. The persistence
  collaborator polls Modified() to decide whether the file needs saving;
  this is a required observable side effect, not an optimization.

SEE ALSO:
  - projector.go: reads templates, never writes
  - store/sqlite: persistence collaborator
*/
package engine

// TemplateStore is an insertion-ordered, id-indexed collection of
// scheduled templates. It is not safe for concurrent use; the engine is
// single-threaded by design (driven from one event loop).
type TemplateStore struct {
	byID     map[int]*ScheduledTemplate
	order    []int
	maxID    int
	modified bool
}

func NewTemplateStore() *TemplateStore {
	return &TemplateStore{byID: make(map[int]*ScheduledTemplate)}
}

// Create inserts the template and assigns the next unused id.
func (s *TemplateStore) Create(t ScheduledTemplate) int {
	s.maxID++
	t.ID = s.maxID
	s.byID[t.ID] = &t
	s.order = append(s.order, t.ID)
	s.modified = true
	return t.ID
}

// SetFromFile inserts a template keeping its original id, and bumps the
// max-seen counter so later Create calls never collide. Used on load only.
func (s *TemplateStore) SetFromFile(t ScheduledTemplate) {
	if t.ID <= 0 {
		return
	}
	if _, exists := s.byID[t.ID]; !exists {
		s.order = append(s.order, t.ID)
	}
	s.byID[t.ID] = &t
	if t.ID > s.maxID {
		s.maxID = t.ID
	}
}

// Update replaces the template in place. Unknown ids are a silent no-op.
func (s *TemplateStore) Update(id int, t ScheduledTemplate) {
	if _, ok := s.byID[id]; !ok {
		return
	}
	t.ID = id
	s.byID[id] = &t
	s.modified = true
}

// Delete removes the template. With cascade, all children whose MotherID
// is id (transitively) are removed first. Unknown ids are a silent no-op.
func (s *TemplateStore) Delete(id int, cascade bool) {
	if _, ok := s.byID[id]; !ok {
		return
	}
	if cascade {
		// collect-then-remove: never mutate while walking
		for _, child := range s.ChildrenOf(id) {
			s.Delete(child, true)
		}
	}
	delete(s.byID, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.modified = true
}

// Get returns the template, or nil if the id is unknown.
func (s *TemplateStore) Get(id int) *ScheduledTemplate {
	return s.byID[id]
}

// ChildrenOf returns the ids of the split children of id, insertion order.
func (s *TemplateStore) ChildrenOf(id int) []int {
	var children []int
	for _, candidate := range s.order {
		if t := s.byID[candidate]; t != nil && t.MotherID == id {
			children = append(children, candidate)
		}
	}
	return children
}

// All returns every template in insertion order.
func (s *TemplateStore) All() []*ScheduledTemplate {
	out := make([]*ScheduledTemplate, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Len returns the number of stored templates.
func (s *TemplateStore) Len() int { return len(s.byID) }

// MaxID returns the highest id ever seen (ids below it are never handed out).
func (s *TemplateStore) MaxID() int { return s.maxID }

// Modified reports whether the store changed since the last ClearModified.
func (s *TemplateStore) Modified() bool { return s.modified }

func (s *TemplateStore) ClearModified() { s.modified = false }

// AdvanceOne moves the template's date one recurrence cycle forward,
// implementing "delete only this occurrence". When the series is over
// (once-only, malformed custom rule, or past the hard limit) the template
// and its children are removed instead.
func (s *TemplateStore) AdvanceOne(id int) {
	t := s.byID[id]
	if t == nil {
		return
	}
	// the hard limit still applies; the display window does not,
	// occurrences beyond it exist even when not shown
	next, ok := NextDate(t.Date, t.Rule(), t.LimitDate, Date{})
	if !ok {
		s.Delete(id, true)
		return
	}
	t.Date = next
	s.modified = true
}
