package stats

// Average is the mean over the non-null values of one clinical column. Mean
// is nil when no value exists; Count reports how many values contributed.
type Average struct {
	Mean  *float64 `json:"mean"`
	Count int64    `json:"count"`
}

// StrokeBucket counts the records carrying one stroke category code.
type StrokeBucket struct {
	Stroke int   `json:"stroke"`
	Count  int64 `json:"count"`
}

// Overview is the dashboard aggregate document.
type Overview struct {
	AverageBMI         Average        `json:"average_bmi"`
	AverageGlucose     Average        `json:"average_glucose"`
	StrokeDistribution []StrokeBucket `json:"stroke_distribution"`
}
