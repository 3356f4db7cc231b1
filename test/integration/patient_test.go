package integration

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/caredash/caredash/internal/domain/patient"
	"github.com/caredash/caredash/internal/platform/hipaa"
)

func TestPatientCRUD(t *testing.T) {
	ctx := context.Background()
	truncateTables(t, ctx)
	repo := patient.NewRepo(globalDB.Pool)

	created := seedPatient(t, ctx, repo, screeningRecord("Alice Stone", 40, ptrFloat(27.5), ptrFloat(95), 0))
	if created.ID.String() == "" || created.CreatedAt.IsZero() {
		t.Fatalf("create did not fill generated fields: %+v", created)
	}

	got, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.Name != "Alice Stone" || got.Age != 40 || *got.BMI != 27.5 {
		t.Errorf("round trip mismatch: %+v", got)
	}

	got.BMI = ptrFloat(28.1)
	got.SmokingStatus = "formerly smoked"
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}

	updated, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if *updated.BMI != 28.1 || updated.SmokingStatus != "formerly smoked" {
		t.Errorf("update not persisted: %+v", updated)
	}
	if updated.UpdatedAt.Before(updated.CreatedAt) {
		t.Errorf("updated_at %v before created_at %v", updated.UpdatedAt, updated.CreatedAt)
	}

	if err := repo.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, created.ID); !errors.Is(err, patient.ErrPatientNotFound) {
		t.Errorf("get after delete = %v, want ErrPatientNotFound", err)
	}
	if err := repo.Delete(ctx, created.ID); !errors.Is(err, patient.ErrPatientNotFound) {
		t.Errorf("second delete = %v, want ErrPatientNotFound", err)
	}
}

func TestPatientUpsertByRecordID(t *testing.T) {
	ctx := context.Background()
	truncateTables(t, ctx)
	repo := patient.NewRepo(globalDB.Pool)

	p := screeningRecord("", 67, ptrFloat(36.6), ptrFloat(228.69), 1)
	p.RecordID = ptrInt64(9046)

	inserted, err := repo.UpsertByRecordID(ctx, p)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if !inserted {
		t.Error("first upsert should report an insert")
	}
	firstID := p.ID
	firstCreatedAt := p.CreatedAt

	again := screeningRecord("", 68, ptrFloat(36.9), ptrFloat(230.01), 1)
	again.RecordID = ptrInt64(9046)

	inserted, err = repo.UpsertByRecordID(ctx, again)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if inserted {
		t.Error("second upsert should report an update")
	}
	if again.ID != firstID {
		t.Errorf("upsert changed row identity: %s != %s", again.ID, firstID)
	}
	if !again.CreatedAt.Equal(firstCreatedAt) {
		t.Errorf("upsert changed created_at: %v != %v", again.CreatedAt, firstCreatedAt)
	}

	stored, err := repo.GetByRecordID(ctx, 9046)
	if err != nil {
		t.Fatalf("get by record id: %v", err)
	}
	if stored.Age != 68 {
		t.Errorf("age = %d, want 68 after upsert", stored.Age)
	}
}

func TestPatientDuplicateRecordID(t *testing.T) {
	ctx := context.Background()
	truncateTables(t, ctx)
	repo := patient.NewRepo(globalDB.Pool)

	p := screeningRecord("First", 30, nil, nil, 0)
	p.RecordID = ptrInt64(77)
	seedPatient(t, ctx, repo, p)

	dup := screeningRecord("Second", 31, nil, nil, 0)
	dup.RecordID = ptrInt64(77)
	if err := repo.Create(ctx, dup); !errors.Is(err, patient.ErrDuplicateRecordID) {
		t.Errorf("create duplicate = %v, want ErrDuplicateRecordID", err)
	}
}

func TestPatientList_Pages(t *testing.T) {
	ctx := context.Background()
	truncateTables(t, ctx)
	repo := patient.NewRepo(globalDB.Pool)

	names := []string{"P1", "P2", "P3", "P4", "P5"}
	for i, name := range names {
		seedPatient(t, ctx, repo, screeningRecord(name, 20+i, nil, nil, 0))
	}

	seen := make(map[string]bool)
	wantSizes := []int{2, 2, 1}
	for page := 0; page < 3; page++ {
		patients, total, err := repo.List(ctx, 2, page*2)
		if err != nil {
			t.Fatalf("list page %d: %v", page, err)
		}
		if total != 5 {
			t.Errorf("total = %d, want 5", total)
		}
		if len(patients) != wantSizes[page] {
			t.Errorf("page %d has %d rows, want %d", page, len(patients), wantSizes[page])
		}
		for _, p := range patients {
			if seen[p.Name] {
				t.Errorf("patient %s appeared on two pages", p.Name)
			}
			seen[p.Name] = true
		}
	}
	if len(seen) != 5 {
		t.Errorf("pages covered %d distinct patients, want 5", len(seen))
	}
}

// The name column is the only identifying field and must not be readable in
// the database when an encryptor is configured.
func TestPatientNameEncryptedAtRest(t *testing.T) {
	ctx := context.Background()
	truncateTables(t, ctx)

	key := bytes.Repeat([]byte{0x42}, 32)
	enc, err := hipaa.NewRotatingEncryptor(key, 1)
	if err != nil {
		t.Fatalf("create encryptor: %v", err)
	}
	repo := patient.NewRepoWithEncryption(globalDB.Pool, enc)

	created := seedPatient(t, ctx, repo, screeningRecord("Alice Stone", 40, ptrFloat(27.5), ptrFloat(95), 0))
	if created.Name != "Alice Stone" {
		t.Errorf("create mutated the caller's name: %q", created.Name)
	}

	var stored string
	if err := globalDB.Pool.QueryRow(ctx, `SELECT name FROM patients WHERE id = $1`, created.ID).Scan(&stored); err != nil {
		t.Fatalf("read raw name: %v", err)
	}
	if stored == "Alice Stone" {
		t.Error("name stored in plaintext despite encryption")
	}
	if plain, err := enc.Decrypt(stored); err != nil || plain != "Alice Stone" {
		t.Errorf("stored ciphertext does not decrypt back: %q, %v", plain, err)
	}

	got, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.Name != "Alice Stone" {
		t.Errorf("read did not decrypt name: %q", got.Name)
	}

	// Aggregation columns must remain queryable in SQL.
	var avg float64
	if err := globalDB.Pool.QueryRow(ctx, `SELECT AVG(bmi) FROM patients`).Scan(&avg); err != nil {
		t.Fatalf("aggregate over plaintext column: %v", err)
	}
	if avg != 27.5 {
		t.Errorf("avg bmi = %v, want 27.5", avg)
	}
}
