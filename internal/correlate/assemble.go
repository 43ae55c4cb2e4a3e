package correlate

// FieldSource says where a projected field's value comes from.
type FieldSource int

const (
	// FromPrimary reads a column of the primary row.
	FromPrimary FieldSource = iota
	// FromXref reads an attribute of the resolved cross-reference record.
	FromXref
)

// Field declares one output field of a projection.
type Field struct {
	Name      string      // output name
	From      string      // primary column or xref attribute name
	Source    FieldSource
	Mandatory bool // xref only: drop the whole row when unresolved
}

// Projection declares how primary rows and cross-reference records join
// into the denormalized output.
type Projection struct {
	// JoinKey is the primary column holding the cross-reference key.
	JoinKey string
	Fields  []Field
	// Constants are emitted verbatim on every output row (e.g. the anchor
	// doctor's name, identical across an encounter listing).
	Constants map[string]any
}

// Result is one denormalized output record.
type Result map[string]any

// Assemble joins the primary row stream with the cross-reference mapping.
// The primary side drives: output order is exactly the primary order, with
// rows removed when a mandatory cross-reference field cannot be filled.
// Optional xref fields are emitted as null when unknown. Inputs are never
// mutated.
func Assemble(primary []Row, xref map[Key]Record, p Projection) []Result {
	out := make([]Result, 0, len(primary))

rowLoop:
	for _, row := range primary {
		var rec Record
		if k, ok := row.Key(p.JoinKey); ok {
			rec = xref[k]
		}

		res := make(Result, len(p.Fields)+len(p.Constants))
		for name, v := range p.Constants {
			res[name] = v
		}
		for _, f := range p.Fields {
			switch f.Source {
			case FromPrimary:
				res[f.Name] = row[f.From]
			case FromXref:
				if v, ok := rec.Get(f.From); ok {
					res[f.Name] = v
				} else if f.Mandatory {
					continue rowLoop
				} else {
					res[f.Name] = nil
				}
			}
		}
		out = append(out, res)
	}
	return out
}
