package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// DBConfig is the optional Postgres run store.
type DBConfig struct {
	URL    string
	Schema string
	Tag    string
}

// storedRate is one group row of a persisted run. Population and Rate
// may be absent (count-only groups such as months or the
// unknown-entity bucket).
type storedRate struct {
	GroupKey   string
	GroupName  string
	Count      int
	Population float64
	Rate       float64
	HasRate    bool
	Rank       int
}

// reportRun is the persistable form of any report: its kind, the
// parameters it was built with and its group rows.
type reportRun struct {
	Kind       string
	Year       int
	SecondYear int
	Entity     int
	Rows       []storedRate
}

func (r AnnualReport) run(kind string) reportRun {
	run := reportRun{Kind: kind, Entity: r.Entity}
	for _, row := range r.Years {
		run.Rows = append(run.Rows, storedRate{
			GroupKey:   fmt.Sprintf("%d", row.Year),
			GroupName:  r.EntityName,
			Count:      row.Count,
			Population: row.Population,
			Rate:       row.Rate,
			HasRate:    true,
		})
	}
	return run
}

func (r MonthlyReport) run() reportRun {
	run := reportRun{Kind: "mensual", Year: r.Year, Entity: r.Entity}
	for _, row := range r.Months {
		run.Rows = append(run.Rows,
			storedRate{GroupKey: fmt.Sprintf("desaparecidos/%02d", row.Month), GroupName: row.Name, Count: row.Missing},
			storedRate{GroupKey: fmt.Sprintf("homicidios/%02d", row.Month), GroupName: row.Name, Count: row.Homicides},
		)
	}
	return run
}

func (r StateMapReport) run() reportRun {
	run := reportRun{Kind: "estatal", Year: r.Year}
	for _, row := range r.Rows {
		run.Rows = append(run.Rows, storedRate{
			GroupKey:   fmt.Sprintf("%02d", row.Entity),
			GroupName:  row.Name,
			Count:      row.Total,
			Population: row.Population,
			Rate:       row.Rate,
			HasRate:    true,
		})
	}
	return run
}

func (r MunicipalMapReport) run() reportRun {
	run := reportRun{Kind: "municipal", Year: r.Year}
	for _, row := range r.Rows {
		run.Rows = append(run.Rows, storedRate{
			GroupKey:   row.Key,
			GroupName:  row.Name,
			Count:      row.Count,
			Population: row.Population,
			Rate:       row.Rate,
			HasRate:    true,
		})
	}
	return run
}

func (r MunicipalRankingReport) run() reportRun {
	run := reportRun{Kind: "ranking-" + r.By, Year: r.Year}
	for _, row := range r.Rows {
		run.Rows = append(run.Rows, storedRate{
			GroupKey:   row.Key,
			GroupName:  row.Name,
			Count:      row.Count,
			Population: row.Population,
			Rate:       row.Rate,
			HasRate:    true,
			Rank:       row.Rank,
		})
	}
	return run
}

func (r YearlyChangeReport) run() reportRun {
	run := reportRun{Kind: "comparacion", Year: r.FirstYear, SecondYear: r.SecondYear}
	for _, row := range r.Rows {
		entry := storedRate{
			GroupKey:  fmt.Sprintf("%02d", row.Entity),
			GroupName: row.Name,
			Count:     row.SecondCount,
		}
		if row.Valid {
			entry.Rate = row.Change
			entry.HasRate = true
		}
		run.Rows = append(run.Rows, entry)
	}
	return run
}

func (r AgeSexReport) run() reportRun {
	run := reportRun{Kind: "tasa-edad", Year: r.Year}
	for _, row := range r.Rows {
		men := storedRate{GroupKey: "hombres/" + row.Band, GroupName: row.Band, Count: row.Men, Population: row.MenPopulation}
		if row.MenRate != nil {
			men.Rate = *row.MenRate
			men.HasRate = true
		}
		women := storedRate{GroupKey: "mujeres/" + row.Band, GroupName: row.Band, Count: row.Women, Population: row.WomenPopulation}
		if row.WomenRate != nil {
			women.Rate = *row.WomenRate
			women.HasRate = true
		}
		run.Rows = append(run.Rows, men, women)
	}
	return run
}

func dbURLFromEnv() string {
	if value := strings.TrimSpace(os.Getenv("RNPDNO_REPORTS_DB_URL")); value != "" {
		return value
	}
	return strings.TrimSpace(os.Getenv("DATABASE_URL"))
}

func sanitizeSchema(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.New("db schema is required")
	}
	valid := regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	if !valid.MatchString(value) {
		return "", fmt.Errorf("invalid schema name: %s", value)
	}
	return value, nil
}

// storeRun persists one report run and its group rows in a single
// transaction, creating the schema and tables on first use.
func storeRun(run reportRun, cfg DBConfig) (string, error) {
	schema, err := sanitizeSchema(cfg.Schema)
	if err != nil {
		return "", err
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return "", err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return "", err
	}
	if err := ensureSchema(ctx, db, schema); err != nil {
		return "", err
	}
	return storeRunTx(ctx, db, run, schema, cfg.Tag)
}

// seedRun initializes the schema and stores the run only when no runs
// exist yet. Returns an empty run id when data is already present.
func seedRun(run reportRun, cfg DBConfig) (string, error) {
	schema, err := sanitizeSchema(cfg.Schema)
	if err != nil {
		return "", err
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return "", err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return "", err
	}
	if err := ensureSchema(ctx, db, schema); err != nil {
		return "", err
	}

	var count int
	if err := db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s.incidence_runs`, schema)).Scan(&count); err != nil {
		return "", err
	}
	if count > 0 {
		fmt.Println("Incidence data already present; skipping seed.")
		return "", nil
	}

	return storeRunTx(ctx, db, run, schema, cfg.Tag)
}

func storeRunTx(ctx context.Context, db *sql.DB, run reportRun, schema string, tag string) (string, error) {
	runID := uuid.New()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s.incidence_runs (
			id, kind, report_year, second_year, entity_code, row_count, run_tag
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7
		)`, schema),
		runID,
		run.Kind,
		nullInt(run.Year),
		nullInt(run.SecondYear),
		run.Entity,
		len(run.Rows),
		nullString(tag),
	)
	if err != nil {
		_ = tx.Rollback()
		return "", err
	}

	insertRateSQL := fmt.Sprintf(`
		INSERT INTO %s.incidence_rates (
			id, run_id, group_key, group_name, victim_count, population, rate, rank_pos
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8
		)`, schema)

	for _, row := range run.Rows {
		var storedRateValue sql.NullFloat64
		if row.HasRate {
			storedRateValue = sql.NullFloat64{Float64: round2(row.Rate), Valid: true}
		}
		_, err = tx.ExecContext(ctx, insertRateSQL,
			uuid.New(),
			runID,
			row.GroupKey,
			nullString(row.GroupName),
			row.Count,
			nullFloat(row.Population),
			storedRateValue,
			nullInt(row.Rank),
		)
		if err != nil {
			_ = tx.Rollback()
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return runID.String(), nil
}

func ensureSchema(ctx context.Context, db *sql.DB, schema string) error {
	if _, err := db.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, schema)); err != nil {
		return err
	}

	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.incidence_runs (
			id uuid PRIMARY KEY,
			kind text NOT NULL,
			report_year integer,
			second_year integer,
			entity_code integer NOT NULL,
			row_count integer NOT NULL,
			run_tag text,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, schema))
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.incidence_rates (
			id uuid PRIMARY KEY,
			run_id uuid NOT NULL REFERENCES %s.incidence_runs(id) ON DELETE CASCADE,
			group_key text NOT NULL,
			group_name text,
			victim_count integer NOT NULL,
			population numeric(14,2),
			rate numeric(12,2),
			rank_pos integer,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, schema, schema))
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_incidence_rates_run_idx ON %s.incidence_rates (run_id)`, schema, schema))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_incidence_runs_kind_idx ON %s.incidence_runs (kind)`, schema, schema))
	return err
}

func nullString(value string) sql.NullString {
	if strings.TrimSpace(value) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func nullInt(value int) sql.NullInt64 {
	if value == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(value), Valid: true}
}

func nullFloat(value float64) sql.NullFloat64 {
	if value <= 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: value, Valid: true}
}
