package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByRecordID(ctx context.Context, recordID int64) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)

	// UpsertByRecordID inserts the record, or replaces the existing row
	// carrying the same record_id. Reports whether a new row was created.
	UpsertByRecordID(ctx context.Context, p *Patient) (bool, error)
}
