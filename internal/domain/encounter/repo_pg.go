package encounter

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelink/carelink/internal/config"
	"github.com/carelink/carelink/internal/correlate"
)

type repoPG struct {
	pool   *pgxpool.Pool
	schema config.Schema
}

func NewRepo(pool *pgxpool.Pool, schema config.Schema) Repository {
	return &repoPG{pool: pool, schema: schema}
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Encounter, int, error) {
	return r.list(ctx, "", nil, limit, offset)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Encounter, int, error) {
	where := fmt.Sprintf("WHERE e.%s = $1", r.schema.EncounterPatientColumn)
	return r.list(ctx, where, []any{patientID}, limit, offset)
}

func (r *repoPG) list(ctx context.Context, where string, args []any, limit, offset int) ([]*Encounter, int, error) {
	var total int
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s e %s", r.schema.EncounterTable, where)
	if err := r.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, correlate.Queryf(err)
	}

	sql := fmt.Sprintf(
		`SELECT e.id, e.date_time, e.%[2]s, e.%[3]s, o.note
		 FROM %[1]s e LEFT JOIN %[4]s o ON o.encounter_id = e.id
		 %[5]s
		 ORDER BY e.date_time DESC
		 LIMIT $%[6]d OFFSET $%[7]d`,
		r.schema.EncounterTable, r.schema.EncounterDoctorColumn,
		r.schema.EncounterPatientColumn, r.schema.ObservationTable,
		where, len(args)+1, len(args)+2,
	)
	rows, err := r.pool.Query(ctx, sql, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, correlate.Queryf(err)
	}
	defer rows.Close()

	var encounters []*Encounter
	for rows.Next() {
		var enc Encounter
		if err := rows.Scan(&enc.ID, &enc.DateTime, &enc.DoctorID, &enc.PatientID, &enc.Note); err != nil {
			return nil, 0, correlate.Queryf(err)
		}
		encounters = append(encounters, &enc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, correlate.Queryf(err)
	}
	return encounters, total, nil
}
