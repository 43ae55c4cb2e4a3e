package practitioner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carelink/carelink/internal/config"
	"github.com/carelink/carelink/internal/correlate"
	"github.com/carelink/carelink/internal/platform/directory"
)

// Directory is the slice of the identity directory the practitioner
// pipelines need: anchor lookup by username and per-id patient resolution.
type Directory interface {
	FindByUsername(ctx context.Context, username string, exact bool) ([]*directory.Identity, error)
	GetByID(ctx context.Context, id string) (*directory.Identity, error)
}

// Service runs the practitioner query pipelines. Encounters live in the
// records store keyed by directory UUIDs; the roster lives entirely in the
// directory as a multi-valued attribute on the doctor.
type Service struct {
	records     correlate.TabularSource
	dir         Directory
	schema      config.Schema
	concurrency int
}

func NewService(records correlate.TabularSource, dir Directory, schema config.Schema, concurrency int) *Service {
	return &Service{
		records:     records,
		dir:         dir,
		schema:      schema,
		concurrency: concurrency,
	}
}

// anchor finds the doctor identity for a username. A miss is reported as
// directory.ErrNotFound so callers can map it to an empty result.
func (s *Service) anchor(ctx context.Context, name string) (*directory.Identity, error) {
	if name == "" {
		return nil, correlate.Validationf("practitioner name must not be empty")
	}
	ids, err := s.dir.FindByUsername(ctx, name, true)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, directory.ErrNotFound
		}
		return nil, correlate.Queryf(err)
	}
	if len(ids) == 0 {
		return nil, directory.ErrNotFound
	}
	return ids[0], nil
}

// Roster returns the patients listed on the doctor's roster attribute,
// resolved against the directory. Usernames that no longer resolve are
// skipped; the roster only reports patients that exist.
func (s *Service) Roster(ctx context.Context, name string) ([]correlate.Result, error) {
	doc, err := s.anchor(ctx, name)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return []correlate.Result{}, nil
		}
		return nil, err
	}

	usernames := doc.AttrAll("patients")
	keys := correlate.NewKeySet()
	primary := make([]correlate.Row, 0, len(usernames))
	for _, u := range usernames {
		if keys.Add(correlate.TextualKey(u)) {
			primary = append(primary, correlate.Row{"username": u})
		}
	}

	xref, _ := correlate.ResolveEach(ctx, keys, func(ctx context.Context, k correlate.Key) (correlate.Record, error) {
		ids, err := s.dir.FindByUsername(ctx, k.Text(), true)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, directory.ErrNotFound
		}
		return identityRecord(ids[0]), nil
	}, s.concurrency)

	org, _ := doc.Attr("organizationName")
	return correlate.Assemble(primary, xref, correlate.Projection{
		JoinKey: "username",
		Fields: []correlate.Field{
			{Name: "user_name", From: "username", Source: correlate.FromPrimary},
			{Name: "id", From: "id", Source: correlate.FromXref, Mandatory: true},
			{Name: "name", From: "name", Source: correlate.FromXref},
			{Name: "email", From: "email", Source: correlate.FromXref},
			{Name: "age", From: "age", Source: correlate.FromXref},
			{Name: "gender", From: "gender", Source: correlate.FromXref},
		},
		Constants: map[string]any{
			"doctor_name":  doc.DisplayName(),
			"organization": org,
		},
	}), nil
}

// EncountersOn returns the doctor's encounters within the given calendar
// day, each annotated with the patient's display name when the directory
// still knows the patient.
func (s *Service) EncountersOn(ctx context.Context, name, day string) ([]correlate.Result, error) {
	start, end, err := correlate.ParseDay(day)
	if err != nil {
		return nil, err
	}
	return s.encounters(ctx, name, start, end)
}

// EncountersBetween is the range variant; to may be empty, meaning one day
// past from.
func (s *Service) EncountersBetween(ctx context.Context, name, from, to string) ([]correlate.Result, error) {
	start, end, err := correlate.ParseRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.encounters(ctx, name, start, end)
}

func (s *Service) encounters(ctx context.Context, name string, start, end time.Time) ([]correlate.Result, error) {
	doc, err := s.anchor(ctx, name)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return []correlate.Result{}, nil
		}
		return nil, err
	}

	rows, err := s.records.Execute(ctx, fmt.Sprintf(
		`SELECT e.id, e.date_time, e.%[2]s AS patient_id, o.note
		 FROM %[1]s e LEFT JOIN %[3]s o ON o.encounter_id = e.id
		 WHERE e.%[4]s = $1 AND e.date_time >= $2 AND e.date_time < $3
		 ORDER BY e.date_time`,
		s.schema.EncounterTable, s.schema.EncounterPatientColumn,
		s.schema.ObservationTable, s.schema.EncounterDoctorColumn,
	), doc.ID, start, end)
	if err != nil {
		return nil, err
	}

	keys := correlate.ExtractKeys(rows, "patient_id")
	xref, _ := correlate.ResolveEach(ctx, keys, func(ctx context.Context, k correlate.Key) (correlate.Record, error) {
		id, err := s.dir.GetByID(ctx, k.Text())
		if err != nil {
			return nil, err
		}
		return identityRecord(id), nil
	}, s.concurrency)

	return correlate.Assemble(rows, xref, correlate.Projection{
		JoinKey: "patient_id",
		Fields: []correlate.Field{
			{Name: "encounter_id", From: "id", Source: correlate.FromPrimary},
			{Name: "date_time", From: "date_time", Source: correlate.FromPrimary},
			{Name: "patient_id", From: "patient_id", Source: correlate.FromPrimary},
			{Name: "note", From: "note", Source: correlate.FromPrimary},
			{Name: "patient_name", From: "name", Source: correlate.FromXref},
		},
		Constants: map[string]any{"doctor_name": doc.DisplayName()},
	}), nil
}

// identityRecord projects a directory identity into a cross-reference
// record. Absent attributes stay absent.
func identityRecord(id *directory.Identity) correlate.Record {
	rec := correlate.Record{
		"id":   id.ID,
		"name": id.DisplayName(),
	}
	if id.Email != "" {
		rec["email"] = id.Email
	}
	if v, ok := id.Attr("age"); ok {
		rec["age"] = v
	}
	if v, ok := id.Attr("gender"); ok {
		rec["gender"] = v
	}
	return rec
}
