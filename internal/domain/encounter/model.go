package encounter

import "time"

// Encounter is one visit row from the records store. Doctor and patient ids
// are directory UUIDs, not registry keys. Note comes from the attached
// observation and may be absent.
type Encounter struct {
	ID        int64     `json:"id"`
	DateTime  time.Time `json:"date_time"`
	DoctorID  string    `json:"doctor_id"`
	PatientID string    `json:"patient_id"`
	Note      *string   `json:"note"`
}
