package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"datalens/internal/common"
)

// HealthStats gives the high-level overview of the CDC survey data exposed
// both to the API and to the explorer's get_database_statistics tool.
type HealthStats struct {
	TotalPatients    int     `json:"total_patients"`
	DiabeticPatients int     `json:"diabetic_patients"`
	DiabetesRatePct  float64 `json:"diabetes_rate_pct"`
	AvgBMI           float64 `json:"avg_bmi"`
	HighBPRatePct    float64 `json:"high_bp_rate_pct"`
	SmokerRatePct    float64 `json:"smoker_rate_pct"`
}

// HealthStats computes aggregate statistics over patient_health_data. Only
// aggregates are returned, never individual records.
func (s *Store) HealthStats(ctx context.Context) (*HealthStats, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("dataset store not initialised")
	}
	stats := &HealthStats{}
	if err := s.db.GetContext(ctx, &stats.TotalPatients, `SELECT COUNT(*) FROM patient_health_data`); err != nil {
		return nil, fmt.Errorf("count patients: %w", err)
	}
	if stats.TotalPatients == 0 {
		return stats, nil
	}
	if err := s.db.GetContext(ctx, &stats.DiabeticPatients,
		`SELECT COALESCE(SUM(Diabetes_binary), 0) FROM patient_health_data`); err != nil {
		return nil, fmt.Errorf("count diabetic patients: %w", err)
	}
	if err := s.db.GetContext(ctx, &stats.AvgBMI,
		`SELECT ROUND(AVG(BMI), 1) FROM patient_health_data`); err != nil {
		return nil, fmt.Errorf("average bmi: %w", err)
	}
	var highBP, smokers int
	if err := s.db.GetContext(ctx, &highBP, `SELECT COALESCE(SUM(HighBP), 0) FROM patient_health_data`); err != nil {
		return nil, fmt.Errorf("count high bp: %w", err)
	}
	if err := s.db.GetContext(ctx, &smokers, `SELECT COALESCE(SUM(Smoker), 0) FROM patient_health_data`); err != nil {
		return nil, fmt.Errorf("count smokers: %w", err)
	}
	total := float64(stats.TotalPatients)
	stats.DiabetesRatePct = roundTo(float64(stats.DiabeticPatients)/total*100, 2)
	stats.HighBPRatePct = roundTo(float64(highBP)/total*100, 1)
	stats.SmokerRatePct = roundTo(float64(smokers)/total*100, 1)
	return stats, nil
}

var healthViewStatements = []string{
	`DROP VIEW IF EXISTS diabetes_by_age;`,
	`CREATE VIEW diabetes_by_age AS
        SELECT
                Age as age_group,
                COUNT(*) as total_patients,
                SUM(Diabetes_binary) as diabetic_patients,
                ROUND(AVG(Diabetes_binary) * 100, 2) as diabetes_rate_pct,
                ROUND(AVG(BMI), 1) as avg_bmi,
                ROUND(AVG(HighBP) * 100, 1) as high_bp_pct
        FROM patient_health_data
        GROUP BY Age
        ORDER BY Age;`,
	`DROP VIEW IF EXISTS health_risk_summary;`,
	`CREATE VIEW health_risk_summary AS
        SELECT
                GenHlth as general_health_rating,
                COUNT(*) as patient_count,
                ROUND(AVG(BMI), 1) as avg_bmi,
                ROUND(AVG(HighBP) * 100, 1) as high_bp_rate,
                ROUND(AVG(HighChol) * 100, 1) as high_cholesterol_rate,
                ROUND(AVG(Diabetes_binary) * 100, 2) as diabetes_rate
        FROM patient_health_data
        GROUP BY GenHlth
        ORDER BY GenHlth;`,
}

const importBatchSize = 500

// ImportHealthCSV loads a CDC BRFSS export into patient_health_data. The
// table is rebuilt from the CSV header: every survey column becomes a REAL
// column, and a patient_id is assigned from the row order. Reporting views
// used by common questions are recreated afterwards.
func (s *Store) ImportHealthCSV(ctx context.Context, csvPath string) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("dataset store not initialised")
	}
	logger := common.Logger()
	file, err := os.Open(csvPath)
	if err != nil {
		return 0, fmt.Errorf("open health csv: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.ReuseRecord = true
	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read csv header: %w", err)
	}
	columns := make([]string, 0, len(header))
	for _, raw := range header {
		name := sanitizeColumn(raw)
		if name == "" {
			return 0, fmt.Errorf("invalid csv column name %q", raw)
		}
		columns = append(columns, name)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	defs := make([]string, 0, len(columns)+1)
	defs = append(defs, "patient_id INTEGER PRIMARY KEY")
	for _, col := range columns {
		defs = append(defs, fmt.Sprintf("%s REAL", col))
	}
	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS patient_health_data`); err != nil {
		return 0, fmt.Errorf("drop patient table: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("CREATE TABLE patient_health_data (%s)", strings.Join(defs, ", "))); err != nil {
		return 0, fmt.Errorf("create patient table: %w", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)+1), ", ")
	insert := fmt.Sprintf("INSERT INTO patient_health_data (patient_id, %s) VALUES (%s)",
		strings.Join(columns, ", "), placeholders)
	stmt, err := tx.PreparexContext(ctx, insert)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	imported := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read csv row %d: %w", imported+1, err)
		}
		if len(record) != len(columns) {
			return 0, fmt.Errorf("csv row %d has %d fields, want %d", imported+1, len(record), len(columns))
		}
		args := make([]any, 0, len(columns)+1)
		args = append(args, imported+1)
		for i, field := range record {
			value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return 0, fmt.Errorf("csv row %d column %s: %w", imported+1, columns[i], err)
			}
			args = append(args, value)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert csv row %d: %w", imported+1, err)
		}
		imported++
		if imported%importBatchSize == 0 {
			logger.Debug("dataset: health import progress", "rows", imported)
		}
	}

	for i, view := range healthViewStatements {
		if _, err := tx.ExecContext(ctx, view); err != nil {
			return 0, fmt.Errorf("health view statement %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	s.invalidateSchema()
	logger.Info("dataset: health data imported", "rows", imported, "columns", len(columns))
	return imported, nil
}

// sanitizeColumn keeps only identifier-safe characters from a CSV header
// field. The result is interpolated into DDL, so anything else is dropped.
func sanitizeColumn(raw string) string {
	var builder strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			builder.WriteRune(r)
		}
	}
	name := builder.String()
	if name == "" {
		return ""
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "c_" + name
	}
	return name
}
