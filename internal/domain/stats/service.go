package stats

import "context"

// Service exposes read-only aggregates over the patient table.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) AverageBMI(ctx context.Context) (Average, error) {
	return s.repo.AverageBMI(ctx)
}

func (s *Service) AverageGlucose(ctx context.Context) (Average, error) {
	return s.repo.AverageGlucose(ctx)
}

func (s *Service) StrokeDistribution(ctx context.Context) ([]StrokeBucket, error) {
	return s.repo.StrokeDistribution(ctx)
}

// Overview collects every aggregate into one document.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	bmi, err := s.repo.AverageBMI(ctx)
	if err != nil {
		return nil, err
	}
	glucose, err := s.repo.AverageGlucose(ctx)
	if err != nil {
		return nil, err
	}
	dist, err := s.repo.StrokeDistribution(ctx)
	if err != nil {
		return nil, err
	}
	if dist == nil {
		dist = []StrokeBucket{}
	}
	return &Overview{
		AverageBMI:         bmi,
		AverageGlucose:     glucose,
		StrokeDistribution: dist,
	}, nil
}
