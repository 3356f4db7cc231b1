// Package importer bulk-loads the stroke screening dataset CSV into the
// patients table. Each run wraps every row in a single transaction, so a
// half-imported file never becomes visible.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/caredash/caredash/internal/domain/patient"
	"github.com/caredash/caredash/internal/platform/db"
)

// datasetHeader is the exact column order of the screening dataset export.
// The capital R in Residence_type is how the source file spells it.
var datasetHeader = []string{
	"id", "gender", "age", "hypertension", "heart_disease", "ever_married",
	"work_type", "Residence_type", "avg_glucose_level", "bmi",
	"smoking_status", "stroke",
}

// Summary reports what happened to each row of the file.
type Summary struct {
	Inserted int
	Updated  int
	Skipped  int
}

type Importer struct {
	pool   *pgxpool.Pool
	repo   patient.Repository
	logger zerolog.Logger
}

func New(pool *pgxpool.Pool, repo patient.Repository, logger zerolog.Logger) *Importer {
	return &Importer{pool: pool, repo: repo, logger: logger}
}

// ImportFile opens path and imports its contents.
func (imp *Importer) ImportFile(ctx context.Context, path string) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return imp.Import(ctx, f)
}

// Import reads the CSV from r and upserts every row by its external record
// id. Rows whose id, age or stroke column cannot be parsed are skipped with
// a warning; storage errors abort the import and roll the transaction back.
func (imp *Importer) Import(ctx context.Context, r io.Reader) (*Summary, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	sum := &Summary{}
	if err := db.WithTx(ctx, imp.pool, func(ctx context.Context) error {
		return imp.importRows(ctx, reader, sum)
	}); err != nil {
		return nil, err
	}

	imp.logger.Info().
		Int("inserted", sum.Inserted).
		Int("updated", sum.Updated).
		Int("skipped", sum.Skipped).
		Msg("import complete")
	return sum, nil
}

func (imp *Importer) importRows(ctx context.Context, reader *csv.Reader, sum *Summary) error {
	line := 1 // the header
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		if err != nil {
			// A row with the wrong number of fields is skippable; the
			// reader stays usable after ErrFieldCount.
			if errors.Is(err, csv.ErrFieldCount) {
				imp.logger.Warn().Int("line", line).Msg("skipping row with wrong field count")
				sum.Skipped++
				continue
			}
			return fmt.Errorf("read csv row: %w", err)
		}

		p, err := parseRow(row)
		if err != nil {
			imp.logger.Warn().Int("line", line).Err(err).Msg("skipping unparseable row")
			sum.Skipped++
			continue
		}

		inserted, err := imp.repo.UpsertByRecordID(ctx, p)
		if err != nil {
			return fmt.Errorf("upsert record %d: %w", *p.RecordID, err)
		}
		if inserted {
			sum.Inserted++
		} else {
			sum.Updated++
		}
	}
}

func validateHeader(header []string) error {
	if len(header) > 0 {
		// Spreadsheet exports often prefix the first cell with a UTF-8 BOM.
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}
	if len(header) != len(datasetHeader) {
		return fmt.Errorf("csv header has %d columns, want %d", len(header), len(datasetHeader))
	}
	for i, col := range header {
		if strings.TrimSpace(col) != datasetHeader[i] {
			return fmt.Errorf("csv header column %d is %q, want %q", i+1, col, datasetHeader[i])
		}
	}
	return nil
}

// parseRow converts one CSV record into a Patient. The id, age and stroke
// columns must parse; everything else degrades to NULL or the zero value the
// same way the upstream feed treats missing data.
func parseRow(row []string) (*patient.Patient, error) {
	p := &patient.Patient{}

	id := cleanValue(row[0])
	if id == nil {
		return nil, fmt.Errorf("id: missing")
	}
	recordID, err := strconv.ParseInt(*id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("id %q: not an integer", *id)
	}
	p.RecordID = &recordID

	if v := cleanValue(row[1]); v != nil {
		p.Gender = *v
	}

	age := cleanValue(row[2])
	if age == nil {
		return nil, fmt.Errorf("age: missing")
	}
	// Infants appear in the dataset with fractional ages; truncate them.
	ageF, err := strconv.ParseFloat(*age, 64)
	if err != nil {
		return nil, fmt.Errorf("age %q: not a number", *age)
	}
	p.Age = int(ageF)

	p.Hypertension = parseFlag(row[3])
	p.HeartDisease = parseFlag(row[4])

	if v := cleanValue(row[5]); v != nil {
		p.EverMarried = *v
	}
	if v := cleanValue(row[6]); v != nil {
		p.WorkType = *v
	}
	if v := cleanValue(row[7]); v != nil {
		p.ResidenceType = *v
	}

	p.AvgGlucoseLevel = parseOptionalFloat(row[8])
	p.BMI = parseOptionalFloat(row[9])

	if v := cleanValue(row[10]); v != nil {
		p.SmokingStatus = *v
	}

	stroke := cleanValue(row[11])
	if stroke == nil {
		return nil, fmt.Errorf("stroke: missing")
	}
	p.Stroke, err = strconv.Atoi(*stroke)
	if err != nil {
		return nil, fmt.Errorf("stroke %q: not an integer", *stroke)
	}

	return p, nil
}

// cleanValue trims the cell and maps the feed's null tokens to nil.
func cleanValue(raw string) *string {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "", "nan", "n/a", "none", "null":
		return nil
	}
	return &s
}

// parseFlag reads a 0/1 risk-factor column; anything unparseable counts as 0,
// matching how the feed treats absent measurements.
func parseFlag(raw string) int {
	v := cleanValue(raw)
	if v == nil {
		return 0
	}
	n, err := strconv.Atoi(*v)
	if err != nil {
		return 0
	}
	return n
}

func parseOptionalFloat(raw string) *float64 {
	v := cleanValue(raw)
	if v == nil {
		return nil
	}
	f, err := strconv.ParseFloat(*v, 64)
	if err != nil {
		return nil
	}
	return &f
}
