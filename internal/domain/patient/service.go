package patient

import (
	"context"
	"fmt"

	"github.com/carelink/carelink/internal/config"
	"github.com/carelink/carelink/internal/correlate"
	"github.com/carelink/carelink/internal/platform/directory"
)

// Directory is the slice of the identity directory the patient pipelines
// need.
type Directory interface {
	FindByAttribute(ctx context.Context, key, value string) ([]*directory.Identity, error)
}

// Service runs the patient query pipelines. The registry source holds
// accounts and demographics under numeric keys; the records source holds the
// condition log, which references registry keys.
type Service struct {
	registry  correlate.TabularSource
	records   correlate.TabularSource
	dir       Directory
	schema    config.Schema
	chunkSize int
}

func NewService(registry, records correlate.TabularSource, dir Directory, schema config.Schema, chunkSize int) *Service {
	return &Service{
		registry:  registry,
		records:   records,
		dir:       dir,
		schema:    schema,
		chunkSize: chunkSize,
	}
}

// registrySelect is the joined demographics query. The join is keyed on the
// account id; the original generation of this service joined these tables
// without a key, which produced a cross product.
func (s *Service) registrySelect(where string) string {
	return fmt.Sprintf(
		`SELECT p.%[2]s AS patient_id, u.%[3]s AS user_id, u.user_name, u.email, p.address, p.age, p.gender
		 FROM %[1]s p JOIN %[4]s u ON p.%[3]s = u.%[3]s
		 WHERE %[5]s
		 ORDER BY p.%[2]s`,
		s.schema.PatientTable, s.schema.PatientKeyColumn, s.schema.UserKeyColumn,
		s.schema.UserTable, where,
	)
}

func (s *Service) queryRegistry(ctx context.Context, where string, args ...any) ([]*Patient, error) {
	rows, err := s.registry.Execute(ctx, s.registrySelect(where), args...)
	if err != nil {
		return nil, err
	}
	out := make([]*Patient, 0, len(rows))
	for _, row := range rows {
		out = append(out, patientFromRow(row))
	}
	return out, nil
}

// ByName returns the patients owned by the account with the given username.
func (s *Service) ByName(ctx context.Context, name string) ([]*Patient, error) {
	if name == "" {
		return nil, correlate.Validationf("name must not be empty")
	}
	return s.queryRegistry(ctx, "u.user_name = $1", name)
}

// ByGender returns patients with the given gender.
func (s *Service) ByGender(ctx context.Context, gender string) ([]*Patient, error) {
	if gender == "" {
		return nil, correlate.Validationf("gender must not be empty")
	}
	return s.queryRegistry(ctx, "p.gender = $1", gender)
}

// ByAge returns patients of the given age.
func (s *Service) ByAge(ctx context.Context, age int) ([]*Patient, error) {
	if age < 0 {
		return nil, correlate.Validationf("age must not be negative")
	}
	return s.queryRegistry(ctx, "p.age = $1", age)
}

// ByCondition correlates the records store's condition log with registry
// demographics. Identity fields are mandatory: a logged patient id with no
// registry counterpart is dropped from the result.
func (s *Service) ByCondition(ctx context.Context, condition string) ([]correlate.Result, error) {
	if condition == "" {
		return nil, correlate.Validationf("condition must not be empty")
	}

	logRows, err := s.records.Execute(ctx, fmt.Sprintf(
		`SELECT %[2]s AS patient_id, condition_name
		 FROM %[1]s WHERE condition_name = $1 ORDER BY %[2]s`,
		s.schema.ConditionTable, s.schema.PatientKeyColumn,
	), condition)
	if err != nil {
		return nil, err
	}

	keys := correlate.ExtractKeys(logRows, "patient_id")
	if keys.Len() == 0 {
		return []correlate.Result{}, nil
	}

	xref, _, err := correlate.ResolveTable(ctx, s.registry, fmt.Sprintf(
		`SELECT p.%[2]s AS patient_id, u.user_name, u.email, p.address, p.age, p.gender
		 FROM %[1]s p JOIN %[4]s u ON p.%[3]s = u.%[3]s
		 WHERE p.%[2]s IN (%%s)`,
		s.schema.PatientTable, s.schema.PatientKeyColumn, s.schema.UserKeyColumn,
		s.schema.UserTable,
	), "patient_id", keys, s.chunkSize)
	if err != nil {
		return nil, err
	}

	return correlate.Assemble(logRows, xref, correlate.Projection{
		JoinKey: "patient_id",
		Fields: []correlate.Field{
			{Name: "patient_id", From: "patient_id", Source: correlate.FromPrimary},
			{Name: "condition_name", From: "condition_name", Source: correlate.FromPrimary},
			{Name: "user_name", From: "user_name", Source: correlate.FromXref, Mandatory: true},
			{Name: "email", From: "email", Source: correlate.FromXref, Mandatory: true},
			{Name: "address", From: "address", Source: correlate.FromXref},
			{Name: "age", From: "age", Source: correlate.FromXref},
			{Name: "gender", From: "gender", Source: correlate.FromXref},
		},
	}), nil
}

// ByAttribute searches the directory for identities carrying the given
// attribute value.
func (s *Service) ByAttribute(ctx context.Context, key, value string) ([]*DirectoryPatient, error) {
	if key == "" || value == "" {
		return nil, correlate.Validationf("attribute key and value must not be empty")
	}

	ids, err := s.dir.FindByAttribute(ctx, key, value)
	if err != nil {
		return nil, correlate.Queryf(err)
	}

	out := make([]*DirectoryPatient, 0, len(ids))
	for _, id := range ids {
		p := &DirectoryPatient{
			ID:       id.ID,
			Username: id.Username,
			Name:     id.DisplayName(),
			Email:    id.Email,
		}
		p.Age, _ = id.Attr("age")
		p.Gender, _ = id.Attr("gender")
		p.Address, _ = id.Attr("address")
		out = append(out, p)
	}
	return out, nil
}
