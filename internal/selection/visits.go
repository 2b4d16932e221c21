package selection

import (
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/spinplate/internal/model"
)

// AddVisit prepends a visit so the history stays most-recent-first.
func (s *Store) AddVisit(v model.VisitRecord) error {
	if v.ID == "" {
		return eris.Wrap(ErrInvalidVisit, "selection: visit id is required")
	}
	if err := validateRating(v.UserRating); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.visits = append([]model.VisitRecord{v}, s.visits...)
	return nil
}

// RemoveVisit deletes the visit with the given id.
func (s *Store) RemoveVisit(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.visitIndex(id)
	if idx < 0 {
		return eris.Wrapf(ErrVisitNotFound, "selection: remove %s", id)
	}
	s.visits = slices.Delete(slices.Clone(s.visits), idx, idx+1)
	return nil
}

// UpdateVisitRating sets the rating and, when notes is non-nil, the notes.
// Omitted notes keep their previous value.
func (s *Store) UpdateVisitRating(id string, rating int, notes *string) error {
	if err := validateRating(rating); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.visitIndex(id)
	if idx < 0 {
		return eris.Wrapf(ErrVisitNotFound, "selection: update %s", id)
	}
	next := slices.Clone(s.visits)
	next[idx].UserRating = rating
	if notes != nil {
		next[idx].Notes = *notes
	}
	s.visits = next
	return nil
}

// Visit returns one visit by id.
func (s *Store) Visit(id string) (model.VisitRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.visitIndex(id)
	if idx < 0 {
		return model.VisitRecord{}, eris.Wrapf(ErrVisitNotFound, "selection: get %s", id)
	}
	return s.visits[idx], nil
}

// Visits returns a copy of the history, most recent first.
func (s *Store) Visits() []model.VisitRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.visits)
}

// History returns the durable slice of state.
func (s *Store) History() model.History {
	return model.History{Version: model.HistoryVersion, Visits: s.Visits()}
}

// Restore replaces the visit history, typically with what a store loaded
// at startup.
func (s *Store) Restore(h model.History) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visits = slices.Clone(h.Visits)
}

func (s *Store) visitIndex(id string) int {
	return slices.IndexFunc(s.visits, func(v model.VisitRecord) bool { return v.ID == id })
}

func validateRating(r int) error {
	if r < 0 || r > model.MaxUserRating {
		return eris.Wrapf(ErrInvalidVisit, "selection: rating %d out of range 0..%d", r, model.MaxUserRating)
	}
	return nil
}
