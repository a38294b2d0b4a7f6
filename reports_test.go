package main

import (
	"os"
	"path/filepath"
	"testing"
)

func victimFixture() []VictimRecord {
	return []VictimRecord{
		// V-1 has an earlier update superseded by the second row.
		{VictimID: "V-1", Sex: "", EntityCode: 1, Municipality: "001", Disappeared: date(2024, 3, 1)},
		{VictimID: "V-1", Sex: SexMale, EntityCode: 1, Municipality: "001", BirthDate: date(2000, 6, 15), Disappeared: date(2024, 5, 1)},
		{VictimID: "V-2", Sex: SexFemale, EntityCode: 1, Municipality: "001", BirthDate: date(1990, 1, 1), Disappeared: date(2024, 4, 1)},
		{VictimID: "V-3", Sex: "", EntityCode: 1, Municipality: "002", Registered: date(2024, 6, 1)},
		{VictimID: "V-4", Sex: SexMale, EntityCode: EntityUnknown, Disappeared: date(2024, 7, 1)},
		{VictimID: "V-5", Sex: SexMale, EntityCode: 9, Municipality: "003", Disappeared: date(2023, 2, 1)},
		{VictimID: "V-6", Sex: SexFemale, EntityCode: 9, Municipality: "003", Disappeared: date(2024, 8, 1)},
	}
}

func TestBuildAnnualReport(t *testing.T) {
	pop := loadPopulationFixture(t)
	report := buildAnnualReport(victimFixture(), pop, 9, 20)

	if len(report.Years) != 2 {
		t.Fatalf("expected 2 observed years, got %d", len(report.Years))
	}
	if report.Years[0].Year != 2023 || report.Years[0].Count != 1 {
		t.Fatalf("unexpected first row: %+v", report.Years[0])
	}
	if !floatEqual(report.Years[0].Rate, 1.0/100000*100000) {
		t.Fatalf("unexpected 2023 rate: %f", report.Years[0].Rate)
	}
	if report.TotalCount != 2 {
		t.Fatalf("expected cumulative total 2, got %d", report.TotalCount)
	}

	// maxYears keeps the most recent years.
	capped := buildAnnualReport(victimFixture(), pop, 9, 1)
	if len(capped.Years) != 1 || capped.Years[0].Year != 2024 {
		t.Fatalf("expected only 2024, got %+v", capped.Years)
	}
	if capped.TotalCount != 1 {
		t.Fatalf("cumulative total follows the kept years, got %d", capped.TotalCount)
	}
}

func TestBuildAnnualReportNational(t *testing.T) {
	pop := loadPopulationFixture(t)
	report := buildAnnualReport(victimFixture(), pop, EntityNational, 20)

	if report.EntityName != "México" {
		t.Fatalf("unexpected entity name: %s", report.EntityName)
	}
	// 2024 has five canonical victims nationally (V-1 deduped).
	last := report.Years[len(report.Years)-1]
	if last.Year != 2024 || last.Count != 5 {
		t.Fatalf("unexpected national 2024 row: %+v", last)
	}
	if !floatEqual(last.Population, 260000) {
		t.Fatalf("national denominator wrong: %f", last.Population)
	}
}

func TestBuildMonthlyReport(t *testing.T) {
	series := []HomicideRow{
		{Period: date(2024, 1, 1), Entity: 1, Crime: "Homicidio doloso", Total: 5},
		{Period: date(2024, 5, 1), Entity: 1, Crime: "Feminicidio", Total: 2},
		{Period: date(2024, 5, 1), Entity: 9, Crime: "Homicidio doloso", Total: 9},
	}

	report := buildMonthlyReport(victimFixture(), series, 1, 2024)
	if len(report.Months) != 12 {
		t.Fatalf("expected the fixed 12-month axis, got %d", len(report.Months))
	}
	if report.MissingTotal != 3 {
		t.Fatalf("expected 3 missing persons in entity 1, got %d", report.MissingTotal)
	}
	if report.HomicideTotal != 7 {
		t.Fatalf("expected 7 homicides in entity 1, got %d", report.HomicideTotal)
	}
	if report.Months[4].Missing != 1 || report.Months[4].Homicides != 2 {
		t.Fatalf("unexpected May row: %+v", report.Months[4])
	}
	if report.Months[9].Missing != 0 || report.Months[9].Homicides != 0 {
		t.Fatalf("empty months must stay zero: %+v", report.Months[9])
	}
}

func TestBuildStateMapReport(t *testing.T) {
	pop := loadPopulationFixture(t)
	report := buildStateMapReport(victimFixture(), pop, 2024, 0.95, 13)

	// Five canonical 2024 victims land in entities 1 (3), 9 (1), 99 (1);
	// V-5 is 2023. The national count keeps the unknown-entity victim.
	if report.NationalCount != 5 {
		t.Fatalf("expected national count 5, got %d", report.NationalCount)
	}
	if !floatEqual(report.NationalRate, 5.0/260000*100000) {
		t.Fatalf("unexpected national rate: %f", report.NationalRate)
	}

	// Entity 99 has no denominator and is absent from the rate rows.
	if len(report.Rows) != 2 {
		t.Fatalf("expected 2 rate rows, got %d", len(report.Rows))
	}
	top := report.Rows[0]
	if top.Entity != 1 || top.Total != 3 || top.Men != 1 || top.Women != 1 {
		t.Fatalf("unexpected top row: %+v", top)
	}
	if !floatEqual(top.Rate, 3.0/100000*100000) {
		t.Fatalf("unexpected top rate: %f", top.Rate)
	}
	if len(report.Scale.Ticks) != 13 {
		t.Fatalf("expected 13 scale ticks, got %d", len(report.Scale.Ticks))
	}
}

func TestBuildMunicipalMapReport(t *testing.T) {
	pop := loadPopulationFixture(t)
	report := buildMunicipalMapReport(victimFixture(), pop, 2024, 0.95, 13)

	// 2024 composite codes: 01001 ×2, 01002 ×1, 09003 ×1; V-4 has no
	// municipality and stays out of the municipal counts.
	if report.NationalCount != 4 {
		t.Fatalf("expected national count 4, got %d", report.NationalCount)
	}
	if len(report.Rows) != 3 {
		t.Fatalf("expected 3 rate rows, got %d", len(report.Rows))
	}
	if report.Rows[0].Key != "01001" || report.Rows[0].Count != 2 {
		t.Fatalf("unexpected top municipality: %+v", report.Rows[0])
	}
	if report.Rows[0].Name != "Aguascalientes, Aguascalientes" {
		t.Fatalf("municipality name not joined: %q", report.Rows[0].Name)
	}
	if !floatEqual(report.Stats.Max, report.Rows[0].Rate) {
		t.Fatalf("stats max should equal the top rate")
	}
}

func TestBuildMunicipalRanking(t *testing.T) {
	pop := loadPopulationFixture(t)

	byRate := buildMunicipalRanking(victimFixture(), pop, 2024, "rate", 30, 60000)
	// Only 09003 meets the 60k cutoff.
	if len(byRate.Rows) != 1 {
		t.Fatalf("expected 1 row above the cutoff, got %d", len(byRate.Rows))
	}
	if byRate.Rows[0].Key != "09003" || byRate.Rows[0].Rank != 1 {
		t.Fatalf("unexpected ranking row: %+v", byRate.Rows[0])
	}

	byVolume := buildMunicipalRanking(victimFixture(), pop, 2024, "volume", 30, 60000)
	if byVolume.MinPopulation != 0 {
		t.Fatalf("volume ranking must not apply the population cutoff")
	}
	if len(byVolume.Rows) != 3 || byVolume.Rows[0].Key != "01001" {
		t.Fatalf("unexpected volume ranking: %+v", byVolume.Rows)
	}
}

func TestBuildYearlyChangeReport(t *testing.T) {
	report := buildYearlyChangeReport(victimFixture(), 2023, 2024)
	if report.FirstYear != 2023 || report.SecondYear != 2024 {
		t.Fatalf("unexpected years: %+v", report)
	}

	byEntity := make(map[int]ChangeRow)
	for _, row := range report.Rows {
		byEntity[row.Entity] = row
	}
	if row := byEntity[9]; !row.Valid || row.FirstCount != 1 || row.SecondCount != 1 {
		t.Fatalf("entity 9 change wrong: %+v", row)
	}
	if row := byEntity[1]; row.Valid || row.SecondCount != 3 {
		t.Fatalf("entity 1 zero-base change must be invalid: %+v", row)
	}
	national := byEntity[EntityNational]
	if national.FirstCount != 1 || national.SecondCount != 5 {
		t.Fatalf("national row wrong: %+v", national)
	}
}

func TestBuildAgeSexReport(t *testing.T) {
	menCSV := "Edad,2024\n20-24,50000\n30-34,40000\n"
	womenCSV := "Edad,2024\n20-24,48000\n30-34,39000\n"

	menPop, err := loadAgeBandPopulation(writeTempCSV(t, "hombres.csv", menCSV))
	if err != nil {
		t.Fatalf("load men: %v", err)
	}
	womenPop, err := loadAgeBandPopulation(writeTempCSV(t, "mujeres.csv", womenCSV))
	if err != nil {
		t.Fatalf("load women: %v", err)
	}

	report := buildAgeSexReport(victimFixture(), menPop, womenPop, 2024)
	if len(report.Rows) != 18 {
		t.Fatalf("expected the full 18-band axis, got %d", len(report.Rows))
	}

	var band20to24, band30to34 AgeSexRow
	for _, row := range report.Rows {
		switch row.Band {
		case "20-24":
			band20to24 = row
		case "30-34":
			band30to34 = row
		}
	}

	// V-1's canonical row: born 2000, event 2024 → year-subtraction
	// age 24.
	if band20to24.Men != 1 {
		t.Fatalf("expected 1 man in 20-24, got %+v", band20to24)
	}
	if band20to24.MenRate == nil || !floatEqual(*band20to24.MenRate, 1.0/50000*100000) {
		t.Fatalf("unexpected 20-24 male rate: %+v", band20to24.MenRate)
	}

	// V-2: born 1990, event 2024 → 34.
	if band30to34.Women != 1 {
		t.Fatalf("expected 1 woman in 30-34, got %+v", band30to34)
	}
	if band30to34.WomenRate == nil || !floatEqual(*band30to34.WomenRate, 1.0/39000*100000) {
		t.Fatalf("unexpected 30-34 female rate: %+v", band30to34.WomenRate)
	}

	// Bands absent from the denominator tables keep counts but no rate.
	first := report.Rows[0]
	if first.MenRate != nil || first.WomenRate != nil {
		t.Fatalf("band without denominator must have nil rates: %+v", first)
	}

	if report.MenTotal != 1 || report.WomenTotal != 1 {
		t.Fatalf("unexpected totals: %d men, %d women", report.MenTotal, report.WomenTotal)
	}
}

func TestAnnualHomicideReport(t *testing.T) {
	pop := loadPopulationFixture(t)
	series := []HomicideRow{
		{Period: date(2023, 1, 1), Entity: 9, Crime: "Homicidio doloso", Total: 10},
		{Period: date(2024, 1, 1), Entity: 9, Crime: "Homicidio doloso", Total: 12},
		{Period: date(2024, 2, 1), Entity: 9, Crime: "Feminicidio", Total: 3},
		{Period: date(2024, 2, 1), Entity: 1, Crime: "Homicidio doloso", Total: 4},
	}

	report := buildAnnualHomicideReport(series, pop, 9)
	if len(report.Years) != 2 {
		t.Fatalf("expected 2 years, got %d", len(report.Years))
	}
	last := report.Years[1]
	if last.Year != 2024 || last.Count != 15 {
		t.Fatalf("unexpected 2024 row: %+v", last)
	}
	if !floatEqual(last.Rate, 15.0/100000*100000) {
		t.Fatalf("unexpected rate: %f", last.Rate)
	}
	if report.TotalCount != 25 {
		t.Fatalf("expected cumulative 25, got %d", report.TotalCount)
	}
}

func TestWriteJSONCreatesNestedOutputDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "mensual_25_2024.json")
	if err := writeJSON(MonthlyReport{Entity: 25, Year: 2024}, path); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat: %v", err)
	}
}
