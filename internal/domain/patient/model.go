package patient

import "github.com/carelink/carelink/internal/correlate"

// Patient is the denormalized registry view: demographics from the patient
// table joined with the owning account row.
type Patient struct {
	PatientID int64  `json:"patient_id"`
	UserID    int64  `json:"user_id"`
	Username  string `json:"user_name"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	Age       int64  `json:"age"`
	Gender    string `json:"gender"`
}

func patientFromRow(row correlate.Row) *Patient {
	p := &Patient{
		Username: row.String("user_name"),
		Email:    row.String("email"),
		Address:  row.String("address"),
		Gender:   row.String("gender"),
	}
	if k, ok := row.Key("patient_id"); ok {
		p.PatientID = k.Int64()
	}
	if k, ok := row.Key("user_id"); ok {
		p.UserID = k.Int64()
	}
	if k, ok := row.Key("age"); ok {
		p.Age = k.Int64()
	}
	return p
}

// DirectoryPatient is the projection of a directory identity used by the
// attribute search. Unknown attributes stay empty.
type DirectoryPatient struct {
	ID       string `json:"id"`
	Username string `json:"user_name"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Age      string `json:"age,omitempty"`
	Gender   string `json:"gender,omitempty"`
	Address  string `json:"address,omitempty"`
}
