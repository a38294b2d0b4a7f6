package main

import (
	"database/sql"
	"testing"
)

func TestAnnualReportRun(t *testing.T) {
	report := AnnualReport{
		Entity:     9,
		EntityName: "Ciudad de México",
		Years: []AnnualRow{
			{Year: 2023, Count: 10, Population: 100000, Rate: 10},
			{Year: 2024, Count: 12, Population: 100000, Rate: 12},
		},
	}

	run := report.run("anual")
	if run.Kind != "anual" || run.Entity != 9 {
		t.Fatalf("unexpected run header: %+v", run)
	}
	if len(run.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(run.Rows))
	}
	first := run.Rows[0]
	if first.GroupKey != "2023" || !first.HasRate || !floatEqual(first.Rate, 10) {
		t.Fatalf("unexpected year row: %+v", first)
	}
}

func TestMonthlyReportRunCountOnlyGroups(t *testing.T) {
	report := MonthlyReport{
		Entity: 25,
		Year:   2024,
		Months: []MonthRow{
			{Month: 1, Name: "Enero", Missing: 3, Homicides: 7},
			{Month: 2, Name: "Febrero", Missing: 0, Homicides: 0},
		},
	}

	run := report.run()
	if run.Kind != "mensual" || run.Year != 2024 || run.Entity != 25 {
		t.Fatalf("unexpected run header: %+v", run)
	}
	if len(run.Rows) != 4 {
		t.Fatalf("expected one row per series per month, got %d", len(run.Rows))
	}
	if run.Rows[0].GroupKey != "desaparecidos/01" || run.Rows[1].GroupKey != "homicidios/01" {
		t.Fatalf("unexpected group keys: %s, %s", run.Rows[0].GroupKey, run.Rows[1].GroupKey)
	}
	for _, row := range run.Rows {
		if row.HasRate {
			t.Fatalf("monthly groups are count-only, got rate on %s", row.GroupKey)
		}
		if row.Population != 0 {
			t.Fatalf("monthly groups carry no denominator, got %f", row.Population)
		}
	}
}

func TestAgeSexReportRunNilRates(t *testing.T) {
	menRate := 2.0
	report := AgeSexReport{
		Year: 2024,
		Rows: []AgeSexRow{
			{Band: "0-4", Men: 1, Women: 0},
			{Band: "20-24", Men: 1, Women: 2, MenPopulation: 50000, WomenPopulation: 48000, MenRate: &menRate},
		},
	}

	run := report.run()
	if len(run.Rows) != 4 {
		t.Fatalf("expected one row per sex per band, got %d", len(run.Rows))
	}
	noDenominator := run.Rows[0]
	if noDenominator.GroupKey != "hombres/0-4" || noDenominator.HasRate {
		t.Fatalf("band without denominator must store no rate: %+v", noDenominator)
	}
	withRate := run.Rows[2]
	if withRate.GroupKey != "hombres/20-24" || !withRate.HasRate || !floatEqual(withRate.Rate, 2.0) {
		t.Fatalf("unexpected banded row: %+v", withRate)
	}
	women := run.Rows[3]
	if women.GroupKey != "mujeres/20-24" || women.HasRate {
		t.Fatalf("missing women rate must stay unstored: %+v", women)
	}
}

func TestRankingReportRunCarriesRank(t *testing.T) {
	report := MunicipalRankingReport{
		Year: 2024,
		By:   "rate",
		Rows: []RankedRow{
			{Rank: 1, RateRow: RateRow{Key: "09003", Name: "Coyoacán, Ciudad de México", Count: 9, Population: 100000, Rate: 9}},
			{Rank: 2, RateRow: RateRow{Key: "25006", Name: "Culiacán, Sinaloa", Count: 4, Population: 60000, Rate: 6.67}},
		},
	}

	run := report.run()
	if run.Kind != "ranking-rate" {
		t.Fatalf("unexpected kind: %s", run.Kind)
	}
	if run.Rows[0].Rank != 1 || run.Rows[1].Rank != 2 {
		t.Fatalf("rank positions not carried: %+v", run.Rows)
	}
	if !run.Rows[0].HasRate || !floatEqual(run.Rows[0].Rate, 9) {
		t.Fatalf("unexpected top row: %+v", run.Rows[0])
	}
}

func TestYearlyChangeReportRunInvalidRows(t *testing.T) {
	report := YearlyChangeReport{
		FirstYear:  2023,
		SecondYear: 2024,
		Rows: []ChangeRow{
			{Entity: 9, Name: "Ciudad de México", FirstCount: 10, SecondCount: 12, Change: 20, Valid: true},
			{Entity: 1, Name: "Aguascalientes", FirstCount: 0, SecondCount: 3},
		},
	}

	run := report.run()
	if run.Kind != "comparacion" || run.Year != 2023 || run.SecondYear != 2024 {
		t.Fatalf("unexpected run header: %+v", run)
	}
	if !run.Rows[0].HasRate || !floatEqual(run.Rows[0].Rate, 20) {
		t.Fatalf("valid change must store the percent: %+v", run.Rows[0])
	}
	if run.Rows[1].HasRate {
		t.Fatalf("zero-base change must store no percent: %+v", run.Rows[1])
	}
	if run.Rows[1].Count != 3 {
		t.Fatalf("change rows store the second-year count, got %d", run.Rows[1].Count)
	}
}

func TestNullHelpers(t *testing.T) {
	if nullString("") != (sql.NullString{}) || nullString("  ") != (sql.NullString{}) {
		t.Fatalf("blank strings must be NULL")
	}
	if got := nullString("x"); !got.Valid || got.String != "x" {
		t.Fatalf("unexpected: %+v", got)
	}
	if nullInt(0) != (sql.NullInt64{}) {
		t.Fatalf("zero int must be NULL")
	}
	if got := nullInt(7); !got.Valid || got.Int64 != 7 {
		t.Fatalf("unexpected: %+v", got)
	}
	if nullFloat(0) != (sql.NullFloat64{}) {
		t.Fatalf("zero float must be NULL")
	}
	if got := nullFloat(1.5); !got.Valid || got.Float64 != 1.5 {
		t.Fatalf("unexpected: %+v", got)
	}
}

func TestSanitizeSchema(t *testing.T) {
	if _, err := sanitizeSchema("rnpdno_reports"); err != nil {
		t.Fatalf("valid schema rejected: %v", err)
	}
	for _, value := range []string{"", "1bad", "bad-name", "bad;drop"} {
		if _, err := sanitizeSchema(value); err == nil {
			t.Fatalf("expected error for %q", value)
		}
	}
}
