package main

import (
	"testing"
)

const populationFixture = "CVE,Municipio,Entidad,2023,2024\n" +
	"01001,Aguascalientes,Aguascalientes,40000,50000\n" +
	"01002,Jesús María,Aguascalientes,45000,50000\n" +
	"09003,Coyoacán,Ciudad de México,100000,100000\n" +
	"25006,Culiacán,Sinaloa,,60000\n"

func loadPopulationFixture(t *testing.T) *PopulationTable {
	t.Helper()
	table, err := loadPopulationTable(writeTempCSV(t, "poblacion.csv", populationFixture))
	if err != nil {
		t.Fatalf("load population: %v", err)
	}
	return table
}

func TestPopulationEntityRollup(t *testing.T) {
	table := loadPopulationFixture(t)

	byEntity := table.ByEntity(2024)
	if !floatEqual(byEntity[1], 100000) {
		t.Fatalf("expected entity 1 rollup 100000, got %f", byEntity[1])
	}
	if !floatEqual(byEntity[9], 100000) || !floatEqual(byEntity[25], 60000) {
		t.Fatalf("unexpected entity rollup: %v", byEntity)
	}
	if !floatEqual(table.National(2024), 260000) {
		t.Fatalf("expected national 260000, got %f", table.National(2024))
	}

	// The empty 2023 cell for Culiacán is missing, not zero.
	if _, ok := table.ByEntity(2023)[25]; ok {
		t.Fatalf("missing cell should not produce a denominator")
	}

	if value, ok := table.EntityOrNational(EntityNational, 2024); !ok || !floatEqual(value, 260000) {
		t.Fatalf("national denominator wrong: %f", value)
	}
	if value, ok := table.EntityOrNational(9, 2024); !ok || !floatEqual(value, 100000) {
		t.Fatalf("entity denominator wrong: %f", value)
	}
	if _, ok := table.EntityOrNational(EntityUnknown, 2024); ok {
		t.Fatalf("unknown entity must have no denominator")
	}
}

func TestPopulationByMunicipality(t *testing.T) {
	table := loadPopulationFixture(t)
	byMunicipality := table.ByMunicipality(2024)
	if !floatEqual(byMunicipality["09003"], 100000) {
		t.Fatalf("unexpected municipal population: %v", byMunicipality)
	}
	if name, ok := table.MunicipalityName("25006"); !ok || name != "Culiacán, Sinaloa" {
		t.Fatalf("unexpected municipality name: %q", name)
	}
	if _, ok := table.MunicipalityName("99999"); ok {
		t.Fatalf("unknown code should have no name")
	}
}

func TestLoadAgeBandPopulation(t *testing.T) {
	csvData := "Edad,2023,2024\n" +
		"0-4,120000,110000\n" +
		"20-24,52000,50000\n" +
		"≥85,9000,10000\n"

	table, err := loadAgeBandPopulation(writeTempCSV(t, "mujeres.csv", csvData))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !floatEqual(table["20-24"][2024], 50000) {
		t.Fatalf("unexpected band population: %v", table["20-24"])
	}
	if !floatEqual(table["≥85"][2023], 9000) {
		t.Fatalf("unexpected open band population: %v", table["≥85"])
	}
}

func TestLoadHomicideSeriesFiltersViolentDeaths(t *testing.T) {
	csvData := "PERIODO,CVE_ENT,DELITO,TOTAL\n" +
		"2024-01-01,1,Homicidio doloso,5\n" +
		"2024-01-01,1,Robo,99\n" +
		"2024-02-01,1,Feminicidio,2\n" +
		"2024-03-01,1,Homicidio culposo,40\n"

	rows, err := loadHomicideSeries(writeTempCSV(t, "timeseries.csv", csvData))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 violent-death rows, got %d", len(rows))
	}
	if rows[0].Total != 5 || rows[1].Crime != "Feminicidio" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}
