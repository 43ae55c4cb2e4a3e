package encounter

import (
	"context"

	"github.com/carelink/carelink/internal/correlate"
	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Encounter, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// ListByPatient lists a single patient's encounters. The patient id is a
// directory UUID; anything else never hits the store.
func (s *Service) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Encounter, int, error) {
	if _, err := uuid.Parse(patientID); err != nil {
		return nil, 0, correlate.Validationf("invalid patient id %q", patientID)
	}
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}
