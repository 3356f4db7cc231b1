package patient

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patients table. One row per stroke-screening record:
// demographics, risk factors, and the clinical measurements shown on the
// dashboard. RecordID carries the external dataset id for imported rows and
// is nil for records created through the API.
type Patient struct {
	ID              uuid.UUID `db:"id" json:"id"`
	RecordID        *int64    `db:"record_id" json:"record_id,omitempty"`
	Name            string    `db:"name" json:"name"`
	Gender          string    `db:"gender" json:"gender"`
	Age             int       `db:"age" json:"age"`
	Hypertension    int       `db:"hypertension" json:"hypertension"`
	HeartDisease    int       `db:"heart_disease" json:"heart_disease"`
	EverMarried     string    `db:"ever_married" json:"ever_married"`
	WorkType        string    `db:"work_type" json:"work_type"`
	ResidenceType   string    `db:"residence_type" json:"residence_type"`
	AvgGlucoseLevel *float64  `db:"avg_glucose_level" json:"avg_glucose_level"`
	BMI             *float64  `db:"bmi" json:"bmi"`
	SmokingStatus   string    `db:"smoking_status" json:"smoking_status"`
	Stroke          int       `db:"stroke" json:"stroke"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Categorical vocabularies from the screening dataset. Empty values are
// accepted (field not captured); anything else must match.
var (
	genders         = vocabulary{"Male", "Female", "Other"}
	everMarried     = vocabulary{"Yes", "No"}
	workTypes       = vocabulary{"Private", "Self-employed", "Govt_job", "children", "Never_worked"}
	residenceTypes  = vocabulary{"Urban", "Rural"}
	smokingStatuses = vocabulary{"formerly smoked", "never smoked", "smokes", "Unknown"}
)

type vocabulary []string

func (v vocabulary) contains(value string) bool {
	for _, s := range v {
		if s == value {
			return true
		}
	}
	return false
}

// Validate checks a full record before it is written. It returns a
// *ValidationError naming the first offending field.
func (p *Patient) Validate() error {
	if p.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if p.Age < 0 {
		return &ValidationError{Field: "age", Reason: "must not be negative"}
	}
	if p.Hypertension != 0 && p.Hypertension != 1 {
		return &ValidationError{Field: "hypertension", Reason: "must be 0 or 1"}
	}
	if p.HeartDisease != 0 && p.HeartDisease != 1 {
		return &ValidationError{Field: "heart_disease", Reason: "must be 0 or 1"}
	}
	if p.Stroke != 0 && p.Stroke != 1 {
		return &ValidationError{Field: "stroke", Reason: "must be 0 or 1"}
	}
	if p.AvgGlucoseLevel != nil && *p.AvgGlucoseLevel < 0 {
		return &ValidationError{Field: "avg_glucose_level", Reason: "must not be negative"}
	}
	if p.BMI != nil && *p.BMI < 0 {
		return &ValidationError{Field: "bmi", Reason: "must not be negative"}
	}
	if p.Gender != "" && !genders.contains(p.Gender) {
		return &ValidationError{Field: "gender", Reason: fmt.Sprintf("unknown value %q", p.Gender)}
	}
	if p.EverMarried != "" && !everMarried.contains(p.EverMarried) {
		return &ValidationError{Field: "ever_married", Reason: fmt.Sprintf("unknown value %q", p.EverMarried)}
	}
	if p.WorkType != "" && !workTypes.contains(p.WorkType) {
		return &ValidationError{Field: "work_type", Reason: fmt.Sprintf("unknown value %q", p.WorkType)}
	}
	if p.ResidenceType != "" && !residenceTypes.contains(p.ResidenceType) {
		return &ValidationError{Field: "residence_type", Reason: fmt.Sprintf("unknown value %q", p.ResidenceType)}
	}
	if p.SmokingStatus != "" && !smokingStatuses.contains(p.SmokingStatus) {
		return &ValidationError{Field: "smoking_status", Reason: fmt.Sprintf("unknown value %q", p.SmokingStatus)}
	}
	return nil
}

// Patch carries a partial update. Nil fields are left unchanged; the record
// id and external record_id are immutable.
type Patch struct {
	Name            *string  `json:"name"`
	Gender          *string  `json:"gender"`
	Age             *int     `json:"age"`
	Hypertension    *int     `json:"hypertension"`
	HeartDisease    *int     `json:"heart_disease"`
	EverMarried     *string  `json:"ever_married"`
	WorkType        *string  `json:"work_type"`
	ResidenceType   *string  `json:"residence_type"`
	AvgGlucoseLevel *float64 `json:"avg_glucose_level"`
	BMI             *float64 `json:"bmi"`
	SmokingStatus   *string  `json:"smoking_status"`
	Stroke          *int     `json:"stroke"`
}

// Apply copies the provided fields onto dst.
func (patch *Patch) Apply(dst *Patient) {
	if patch.Name != nil {
		dst.Name = *patch.Name
	}
	if patch.Gender != nil {
		dst.Gender = *patch.Gender
	}
	if patch.Age != nil {
		dst.Age = *patch.Age
	}
	if patch.Hypertension != nil {
		dst.Hypertension = *patch.Hypertension
	}
	if patch.HeartDisease != nil {
		dst.HeartDisease = *patch.HeartDisease
	}
	if patch.EverMarried != nil {
		dst.EverMarried = *patch.EverMarried
	}
	if patch.WorkType != nil {
		dst.WorkType = *patch.WorkType
	}
	if patch.ResidenceType != nil {
		dst.ResidenceType = *patch.ResidenceType
	}
	if patch.AvgGlucoseLevel != nil {
		dst.AvgGlucoseLevel = patch.AvgGlucoseLevel
	}
	if patch.BMI != nil {
		dst.BMI = patch.BMI
	}
	if patch.SmokingStatus != nil {
		dst.SmokingStatus = *patch.SmokingStatus
	}
	if patch.Stroke != nil {
		dst.Stroke = *patch.Stroke
	}
}
