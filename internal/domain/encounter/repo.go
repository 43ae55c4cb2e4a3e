package encounter

import "context"

type Repository interface {
	List(ctx context.Context, limit, offset int) ([]*Encounter, int, error)
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Encounter, int, error)
}
