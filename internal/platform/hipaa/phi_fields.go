package hipaa

// Field-level encryption policy for the patients table, per the HIPAA Safe
// Harbor de-identification standard (45 CFR 164.514(b)(2)): direct identifiers
// are encrypted at rest, everything else stays plaintext.
//
// The clinical columns (age, bmi, avg_glucose_level, stroke, hypertension,
// heart_disease and the categorical screening attributes) stay unencrypted:
// the aggregation queries (AVG, GROUP BY) run inside the database and cannot
// work over ciphertext. Those columns carry no direct identifier on their
// own; the record is identifying only through name, which is the column the
// encryptor covers.

// EncryptedPatientColumns returns the patients-table columns that must pass
// through the FieldEncryptor on write and read.
func EncryptedPatientColumns() []string {
	return []string{"name"}
}

// PlaintextColumns returns the columns that must stay unencrypted because the
// database computes aggregates over them. A column added to the schema goes
// into exactly one of the two lists.
func PlaintextColumns() []string {
	return []string{
		"age",
		"bmi",
		"avg_glucose_level",
		"stroke",
		"hypertension",
		"heart_disease",
		"gender",
		"ever_married",
		"work_type",
		"residence_type",
		"smoking_status",
	}
}

// IsEncryptedColumn reports whether a patients-table column is covered by the
// field-encryption policy.
func IsEncryptedColumn(column string) bool {
	for _, c := range EncryptedPatientColumns() {
		if c == column {
			return true
		}
	}
	return false
}
