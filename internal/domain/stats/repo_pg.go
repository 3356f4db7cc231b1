package stats

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caredash/caredash/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

// NewRepo returns a Postgres-backed aggregation repository.
func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) AverageBMI(ctx context.Context) (Average, error) {
	return r.average(ctx, `SELECT AVG(bmi), COUNT(bmi) FROM patients`)
}

func (r *repoPG) AverageGlucose(ctx context.Context) (Average, error) {
	return r.average(ctx, `SELECT AVG(avg_glucose_level), COUNT(avg_glucose_level) FROM patients`)
}

// average runs one AVG/COUNT query. AVG over zero rows is SQL NULL, which
// scans into a nil Mean.
func (r *repoPG) average(ctx context.Context, sql string) (Average, error) {
	var avg Average
	if err := r.conn(ctx).QueryRow(ctx, sql).Scan(&avg.Mean, &avg.Count); err != nil {
		return Average{}, err
	}
	return avg, nil
}

func (r *repoPG) StrokeDistribution(ctx context.Context) ([]StrokeBucket, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT stroke, COUNT(*) FROM patients GROUP BY stroke ORDER BY stroke`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	buckets := []StrokeBucket{}
	for rows.Next() {
		var b StrokeBucket
		if err := rows.Scan(&b.Stroke, &b.Count); err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
