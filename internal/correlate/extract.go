package correlate

// ExtractKeys collects the distinct foreign keys referenced under field by
// the given rows. Rows where the field is NULL or absent are skipped. Pure
// function of its input.
func ExtractKeys(rows []Row, field string) *KeySet {
	set := NewKeySet()
	for _, row := range rows {
		if k, ok := row.Key(field); ok {
			set.Add(k)
		}
	}
	return set
}
