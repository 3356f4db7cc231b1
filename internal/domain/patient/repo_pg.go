package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caredash/caredash/internal/platform/db"
	"github.com/caredash/caredash/internal/platform/hipaa"
)

type repoPG struct {
	pool      *pgxpool.Pool
	encryptor hipaa.FieldEncryptor
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

// NewRepoWithEncryption creates a patient repository with field-level
// encryption of the identifying name column. The encryptor is applied before
// storage and reversed after retrieval; clinical numeric columns stay
// plaintext so SQL aggregation keeps working. Pass nil to disable encryption
// (equivalent to NewRepo).
func NewRepoWithEncryption(pool *pgxpool.Pool, enc hipaa.FieldEncryptor) Repository {
	return &repoPG{pool: pool, encryptor: enc}
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, record_id, name, gender, age, hypertension, heart_disease,
	ever_married, work_type, residence_type, avg_glucose_level, bmi,
	smoking_status, stroke, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()

	// Encrypt the name before storage, then restore the original for the caller.
	if err := r.encryptPatient(p); err != nil {
		return fmt.Errorf("patient create: %w", err)
	}
	defer r.decryptPatient(p) //nolint:errcheck // best-effort restore

	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (
			id, record_id, name, gender, age, hypertension, heart_disease,
			ever_married, work_type, residence_type, avg_glucose_level, bmi,
			smoking_status, stroke
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING created_at, updated_at`,
		p.ID, p.RecordID, p.Name, p.Gender, p.Age, p.Hypertension, p.HeartDisease,
		p.EverMarried, p.WorkType, p.ResidenceType, p.AvgGlucoseLevel, p.BMI,
		p.SmokingStatus, p.Stroke,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateRecordID
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	if err := r.decryptPatient(p); err != nil {
		return nil, fmt.Errorf("patient get by id: %w", err)
	}
	return p, nil
}

func (r *repoPG) GetByRecordID(ctx context.Context, recordID int64) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE record_id = $1`, recordID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	if err := r.decryptPatient(p); err != nil {
		return nil, fmt.Errorf("patient get by record id: %w", err)
	}
	return p, nil
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	// Encrypt the name before storage, then restore the original for the caller.
	if err := r.encryptPatient(p); err != nil {
		return fmt.Errorf("patient update: %w", err)
	}
	defer r.decryptPatient(p) //nolint:errcheck // best-effort restore

	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE patients SET
			name=$2, gender=$3, age=$4, hypertension=$5, heart_disease=$6,
			ever_married=$7, work_type=$8, residence_type=$9, avg_glucose_level=$10,
			bmi=$11, smoking_status=$12, stroke=$13, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Name, p.Gender, p.Age, p.Hypertension, p.HeartDisease,
		p.EverMarried, p.WorkType, p.ResidenceType, p.AvgGlucoseLevel, p.BMI,
		p.SmokingStatus, p.Stroke,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrPatientNotFound
	}
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patients ORDER BY created_at, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatientRows(rows)
		if err != nil {
			return nil, 0, err
		}
		if err := r.decryptPatient(p); err != nil {
			return nil, 0, fmt.Errorf("patient list: %w", err)
		}
		patients = append(patients, p)
	}
	return patients, total, nil
}

func (r *repoPG) UpsertByRecordID(ctx context.Context, p *Patient) (bool, error) {
	if p.RecordID == nil {
		return false, fmt.Errorf("patient upsert: record_id is required")
	}
	p.ID = uuid.New()

	// Encrypt the name before storage, then restore the original for the caller.
	if err := r.encryptPatient(p); err != nil {
		return false, fmt.Errorf("patient upsert: %w", err)
	}
	defer r.decryptPatient(p) //nolint:errcheck // best-effort restore

	// xmax is zero only on rows created by this statement; the existing row
	// keeps its id and created_at when the insert turns into an update.
	var inserted bool
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (
			id, record_id, name, gender, age, hypertension, heart_disease,
			ever_married, work_type, residence_type, avg_glucose_level, bmi,
			smoking_status, stroke
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (record_id) WHERE record_id IS NOT NULL DO UPDATE SET
			name=EXCLUDED.name, gender=EXCLUDED.gender, age=EXCLUDED.age,
			hypertension=EXCLUDED.hypertension, heart_disease=EXCLUDED.heart_disease,
			ever_married=EXCLUDED.ever_married, work_type=EXCLUDED.work_type,
			residence_type=EXCLUDED.residence_type, avg_glucose_level=EXCLUDED.avg_glucose_level,
			bmi=EXCLUDED.bmi, smoking_status=EXCLUDED.smoking_status,
			stroke=EXCLUDED.stroke, updated_at=NOW()
		RETURNING id, (xmax = 0), created_at, updated_at`,
		p.ID, p.RecordID, p.Name, p.Gender, p.Age, p.Hypertension, p.HeartDisease,
		p.EverMarried, p.WorkType, p.ResidenceType, p.AvgGlucoseLevel, p.BMI,
		p.SmokingStatus, p.Stroke,
	).Scan(&p.ID, &inserted, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// -- Field Encryption Helpers --

func (r *repoPG) encryptPatient(p *Patient) error {
	if r.encryptor == nil || p.Name == "" {
		return nil
	}
	encrypted, err := r.encryptor.Encrypt(p.Name)
	if err != nil {
		return fmt.Errorf("encrypting name: %w", err)
	}
	p.Name = encrypted
	return nil
}

func (r *repoPG) decryptPatient(p *Patient) error {
	if r.encryptor == nil || p.Name == "" {
		return nil
	}
	decrypted, err := r.encryptor.Decrypt(p.Name)
	if err != nil {
		return fmt.Errorf("decrypting name: %w", err)
	}
	p.Name = decrypted
	return nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.RecordID, &p.Name, &p.Gender, &p.Age, &p.Hypertension, &p.HeartDisease,
		&p.EverMarried, &p.WorkType, &p.ResidenceType, &p.AvgGlucoseLevel, &p.BMI,
		&p.SmokingStatus, &p.Stroke, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPatientRows(rows pgx.Rows) (*Patient, error) {
	var p Patient
	err := rows.Scan(
		&p.ID, &p.RecordID, &p.Name, &p.Gender, &p.Age, &p.Hypertension, &p.HeartDisease,
		&p.EverMarried, &p.WorkType, &p.ResidenceType, &p.AvgGlucoseLevel, &p.BMI,
		&p.SmokingStatus, &p.Stroke, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
