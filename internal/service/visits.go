package service

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/spinplate/internal/model"
	"github.com/sells-group/spinplate/internal/selection"
)

// AddVisit records a visit, filling in the id and timestamp when absent,
// and persists the history.
func (s *Service) AddVisit(ctx context.Context, v model.VisitRecord) (model.VisitRecord, error) {
	if v.ID == "" {
		v.ID = s.newID()
	}
	if v.VisitedAt.IsZero() {
		v.VisitedAt = s.now().UTC()
	}
	if v.CandidateID == "" {
		return model.VisitRecord{}, eris.Wrap(selection.ErrInvalidVisit, "service: candidate_id is required")
	}
	if c, ok := s.candidate(v.CandidateID); ok {
		if v.DiningTypeAtVisit == "" {
			v.DiningTypeAtVisit = c.DiningType
		}
		if v.CandidateName == "" {
			v.CandidateName = c.Name
		}
	}
	if v.DiningTypeAtVisit == "" {
		v.DiningTypeAtVisit = model.DiningBoth
	}

	err := s.mutate(ctx, func() error {
		return eris.Wrap(s.selection.AddVisit(v), "service: add visit")
	})
	if err != nil {
		return model.VisitRecord{}, err
	}
	return v, nil
}

// RemoveVisit deletes a visit and persists the history.
func (s *Service) RemoveVisit(ctx context.Context, id string) error {
	return s.mutate(ctx, func() error {
		return eris.Wrap(s.selection.RemoveVisit(id), "service: remove visit")
	})
}

// UpdateVisitRating changes a visit's rating and, when notes is non-nil,
// its notes, then persists the history.
func (s *Service) UpdateVisitRating(ctx context.Context, id string, rating int, notes *string) (model.VisitRecord, error) {
	var updated model.VisitRecord
	err := s.mutate(ctx, func() error {
		if err := s.selection.UpdateVisitRating(id, rating, notes); err != nil {
			return eris.Wrap(err, "service: update visit")
		}
		v, err := s.selection.Visit(id)
		updated = v
		return err
	})
	if err != nil {
		return model.VisitRecord{}, err
	}
	return updated, nil
}

// Visits returns the history, most recent first.
func (s *Service) Visits() []model.VisitRecord {
	return s.selection.Visits()
}

// mutate applies fn to the visit history and saves the result. Mutations
// and their saves are serialized; a failed save restores the prior history.
func (s *Service) mutate(ctx context.Context, fn func() error) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	prev := s.selection.History()
	if err := fn(); err != nil {
		return err
	}
	if s.history == nil {
		return nil
	}

	h := s.selection.History()
	if err := s.history.Save(ctx, h); err != nil {
		s.selection.Restore(prev)
		zap.L().Error("persist visit history failed", zap.Int("visits", len(h.Visits)), zap.Error(err))
		return eris.Wrap(err, "service: persist history")
	}
	return nil
}

func (s *Service) candidate(id string) (model.Candidate, bool) {
	for _, c := range s.selection.Candidates() {
		if c.ID == id {
			return c, true
		}
	}
	return model.Candidate{}, false
}
