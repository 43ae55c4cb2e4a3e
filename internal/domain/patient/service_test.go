package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/carelink/carelink/internal/config"
	"github.com/carelink/carelink/internal/correlate"
	"github.com/carelink/carelink/internal/platform/directory"
)

var errConnRefused = errors.New("connection refused")

func testSchema() config.Schema {
	return config.Schema{
		UserTable:              "user_account",
		PatientTable:           "patient",
		EncounterTable:         "encounter",
		ObservationTable:       "observation",
		ConditionTable:         "condition_log",
		UserKeyColumn:          "user_id",
		PatientKeyColumn:       "patient_id",
		EncounterDoctorColumn:  "doctor_id",
		EncounterPatientColumn: "patient_id",
	}
}

// fakeSource replays canned row sets and records every executed query.
type fakeSource struct {
	rows    [][]correlate.Row
	queries []string
	args    [][]any
	err     error
}

func (f *fakeSource) Execute(_ context.Context, sql string, args ...any) ([]correlate.Row, error) {
	f.queries = append(f.queries, sql)
	f.args = append(f.args, args)
	if f.err != nil {
		return nil, correlate.Queryf(f.err)
	}
	i := len(f.queries) - 1
	if i >= len(f.rows) {
		return nil, nil
	}
	return f.rows[i], nil
}

type fakeDirectory struct {
	byAttribute map[string][]*directory.Identity
	err         error
}

func (f *fakeDirectory) FindByAttribute(_ context.Context, key, value string) ([]*directory.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byAttribute[key+"="+value], nil
}

func registryRow(patientID, userID int64, username string) correlate.Row {
	return correlate.Row{
		"patient_id": patientID,
		"user_id":    userID,
		"user_name":  username,
		"email":      username + "@clinic.test",
		"address":    "1 Main St",
		"age":        int64(40),
		"gender":     "female",
	}
}

func TestByName(t *testing.T) {
	registry := &fakeSource{rows: [][]correlate.Row{{registryRow(7, 3, "jdoe")}}}
	svc := NewService(registry, &fakeSource{}, &fakeDirectory{}, testSchema(), 0)

	patients, err := svc.ByName(context.Background(), "jdoe")
	if err != nil {
		t.Fatalf("ByName: %v", err)
	}
	if len(patients) != 1 {
		t.Fatalf("got %d patients, want 1", len(patients))
	}
	p := patients[0]
	if p.PatientID != 7 || p.UserID != 3 || p.Username != "jdoe" || p.Age != 40 {
		t.Errorf("unexpected patient: %+v", p)
	}
	if got := registry.args[0][0]; got != "jdoe" {
		t.Errorf("query arg = %v", got)
	}
}

func TestByNameEmpty(t *testing.T) {
	svc := NewService(&fakeSource{}, &fakeSource{}, &fakeDirectory{}, testSchema(), 0)
	_, err := svc.ByName(context.Background(), "")
	if !correlate.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestByAgeNegative(t *testing.T) {
	svc := NewService(&fakeSource{}, &fakeSource{}, &fakeDirectory{}, testSchema(), 0)
	_, err := svc.ByAge(context.Background(), -1)
	if !correlate.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestByGenderUsesKeyedJoin(t *testing.T) {
	registry := &fakeSource{}
	svc := NewService(registry, &fakeSource{}, &fakeDirectory{}, testSchema(), 0)

	if _, err := svc.ByGender(context.Background(), "male"); err != nil {
		t.Fatalf("ByGender: %v", err)
	}
	q := registry.queries[0]
	want := "ON p.user_id = u.user_id"
	if !strings.Contains(q, want) {
		t.Errorf("query missing keyed join %q:\n%s", want, q)
	}
}

func TestByCondition(t *testing.T) {
	// Two log entries for patient 7 and one for patient 9; the registry only
	// knows patient 7, so patient 9's rows are dropped (mandatory identity).
	records := &fakeSource{rows: [][]correlate.Row{{
		{"patient_id": int64(7), "condition_name": "asthma"},
		{"patient_id": int64(9), "condition_name": "asthma"},
		{"patient_id": int64(7), "condition_name": "asthma"},
	}}}
	registry := &fakeSource{rows: [][]correlate.Row{{
		{"patient_id": int64(7), "user_name": "jdoe", "email": "jdoe@clinic.test",
			"address": "1 Main St", "age": int64(40), "gender": "female"},
	}}}
	svc := NewService(registry, records, &fakeDirectory{}, testSchema(), 0)

	results, err := svc.ByCondition(context.Background(), "asthma")
	if err != nil {
		t.Fatalf("ByCondition: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if r["user_name"] != "jdoe" || r["condition_name"] != "asthma" {
			t.Errorf("unexpected result: %v", r)
		}
	}

	// Both log entries reference patient 7, so the registry is asked for one
	// key only.
	if len(registry.args) != 1 || len(registry.args[0]) != 1 {
		t.Fatalf("registry args = %v, want a single deduplicated key", registry.args)
	}
	if registry.args[0][0] != int64(7) {
		t.Errorf("registry key = %v, want 7", registry.args[0][0])
	}
}

func TestByConditionNoMatches(t *testing.T) {
	records := &fakeSource{rows: [][]correlate.Row{nil}}
	registry := &fakeSource{}
	svc := NewService(registry, records, &fakeDirectory{}, testSchema(), 0)

	results, err := svc.ByCondition(context.Background(), "rare")
	if err != nil {
		t.Fatalf("ByCondition: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("got %d results, want 0", len(results))
	}
	if len(registry.queries) != 0 {
		t.Errorf("registry queried %d times for an empty key set", len(registry.queries))
	}
}

func TestByConditionStoreFailure(t *testing.T) {
	records := &fakeSource{err: fmt.Errorf("records store: %w", errConnRefused)}
	svc := NewService(&fakeSource{}, records, &fakeDirectory{}, testSchema(), 0)

	_, err := svc.ByCondition(context.Background(), "asthma")
	var qe *correlate.QueryError
	if !errors.As(err, &qe) {
		t.Fatalf("expected QueryError, got %v", err)
	}
}

func TestByAttribute(t *testing.T) {
	dir := &fakeDirectory{byAttribute: map[string][]*directory.Identity{
		"city=Athens": {
			{
				ID: "uuid-1", Username: "jdoe", FirstName: "Jane", LastName: "Doe",
				Email:      "jdoe@clinic.test",
				Attributes: map[string][]string{"age": {"40"}, "city": {"Athens"}},
			},
			{ID: "uuid-2", Username: "bare"},
		},
	}}
	svc := NewService(&fakeSource{}, &fakeSource{}, dir, testSchema(), 0)

	patients, err := svc.ByAttribute(context.Background(), "city", "Athens")
	if err != nil {
		t.Fatalf("ByAttribute: %v", err)
	}
	if len(patients) != 2 {
		t.Fatalf("got %d patients, want 2", len(patients))
	}
	if patients[0].Name != "Jane Doe" || patients[0].Age != "40" {
		t.Errorf("unexpected projection: %+v", patients[0])
	}
	// Missing attributes stay empty, username stands in for the name.
	if patients[1].Name != "bare" || patients[1].Age != "" {
		t.Errorf("unexpected projection: %+v", patients[1])
	}
}
