package patient

import (
	"context"

	"github.com/google/uuid"

	"github.com/caredash/caredash/pkg/pagination"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.repo.Create(ctx, p)
}

// Get resolves a raw path id. A malformed id is reported as
// ErrInvalidPatientID, never as not-found.
func (s *Service) Get(ctx context.Context, rawID string) (*Patient, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, ErrInvalidPatientID
	}
	return s.repo.GetByID(ctx, id)
}

// Update applies a partial update. Only the fields present in the patch
// change; the merged record is validated as a whole before the write.
func (s *Service) Update(ctx context.Context, rawID string, patch *Patch) (*Patient, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, ErrInvalidPatientID
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(p)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return ErrInvalidPatientID
	}
	return s.repo.Delete(ctx, id)
}

// List returns one page of records in insertion order. Page is 1-based and
// pageSize is clamped to [1, 100]; a page past the end yields no items but
// still reports the real total.
func (s *Service) List(ctx context.Context, page, pageSize int) ([]*Patient, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}
	if pageSize > pagination.MaxPageSize {
		pageSize = pagination.MaxPageSize
	}
	return s.repo.List(ctx, pageSize, (page-1)*pageSize)
}
