package stats

import "context"

// Repository reads aggregate views over the patient table.
type Repository interface {
	AverageBMI(ctx context.Context) (Average, error)
	AverageGlucose(ctx context.Context) (Average, error)
	StrokeDistribution(ctx context.Context) ([]StrokeBucket, error)
}
