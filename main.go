package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultTopN          = 30
	defaultMinPopulation = 50000
	defaultScaleCap      = 0.95
	defaultScaleTicks    = 13
	defaultMaxYears      = 20
)

func main() {
	reportKind := flag.String("report", "", "Report to build: annual, annual-homicides, monthly, state-map, municipal-map, top-municipalities, yearly-change, age-sex")
	dataPath := flag.String("data", "data.csv", "Path to the victim registry CSV")
	populationPath := flag.String("population", "assets/poblacion.csv", "Path to the municipal population CSV")
	menPopulationPath := flag.String("men-population", "assets/poblacion_quinquenal/hombres.csv", "Path to the male five-year population CSV")
	womenPopulationPath := flag.String("women-population", "assets/poblacion_quinquenal/mujeres.csv", "Path to the female five-year population CSV")
	homicidesPath := flag.String("homicides", "assets/timeseries_victimas.csv", "Path to the SESNSP victim time series CSV")
	entityFlag := flag.String("entity", "", "Entity code or name; empty or 0 for national")
	year := flag.Int("year", 0, "Report year")
	firstYear := flag.Int("first-year", 0, "Base year for yearly-change")
	secondYear := flag.Int("second-year", 0, "Target year for yearly-change")
	rankBy := flag.String("by", "rate", "Ranking order for top-municipalities: rate or volume")
	topN := flag.Int("top", defaultTopN, "Number of ranked rows to keep")
	minPopulation := flag.Float64("min-population", defaultMinPopulation, "Minimum population for rate rankings")
	scaleCap := flag.Float64("scale-cap", defaultScaleCap, "Upper quantile for the color-scale maximum")
	scaleTicks := flag.Int("scale-ticks", defaultScaleTicks, "Number of color-scale legend ticks")
	maxYears := flag.Int("max-years", defaultMaxYears, "Most recent years kept in the annual trend")
	outDir := flag.String("out", ".", "Directory for renderer-input tables")
	csvOut := flag.Bool("csv", false, "Also write ranking reports as CSV")
	dbEnabled := flag.Bool("db", false, "Store the run in Postgres (requires RNPDNO_REPORTS_DB_URL or DATABASE_URL)")
	dbSchema := flag.String("db-schema", "rnpdno_reports", "Postgres schema for the run store")
	dbTag := flag.String("db-tag", "", "Optional label for this run")
	initDB := flag.Bool("init-db", false, "Initialize database schema and seed data if empty")
	flag.Parse()

	if *reportKind == "" {
		exitWithError(errors.New("--report is required"))
	}

	entity, err := resolveEntity(*entityFlag)
	if err != nil {
		exitWithError(err)
	}

	var run reportRun
	var outName string

	switch *reportKind {
	case "annual":
		victims := mustLoadVictims(*dataPath)
		pop := mustLoadPopulation(*populationPath)
		report := buildAnnualReport(victims, pop, entity, *maxYears)
		printAnnualReport(report, "missing-persons")
		outName = fmt.Sprintf("anual_%d.json", entity)
		mustWriteJSON(report, filepath.Join(*outDir, outName))
		run = report.run("anual")

	case "annual-homicides":
		series := mustLoadHomicides(*homicidesPath)
		pop := mustLoadPopulation(*populationPath)
		report := buildAnnualHomicideReport(series, pop, entity)
		printAnnualReport(report, "homicide")
		outName = fmt.Sprintf("anual_homicidios_%d.json", entity)
		mustWriteJSON(report, filepath.Join(*outDir, outName))
		run = report.run("anual-homicidios")

	case "monthly":
		requireYear(*year)
		victims := mustLoadVictims(*dataPath)
		series := mustLoadHomicides(*homicidesPath)
		report := buildMonthlyReport(victims, series, entity, *year)
		printMonthlyReport(report)
		outName = fmt.Sprintf("mensual_%d_%d.json", entity, *year)
		mustWriteJSON(report, filepath.Join(*outDir, outName))
		run = report.run()

	case "state-map":
		requireYear(*year)
		victims := mustLoadVictims(*dataPath)
		pop := mustLoadPopulation(*populationPath)
		report := buildStateMapReport(victims, pop, *year, *scaleCap, *scaleTicks)
		printStateMapReport(report)
		outName = fmt.Sprintf("estatal_%d.json", *year)
		mustWriteJSON(report, filepath.Join(*outDir, outName))
		run = report.run()

	case "municipal-map":
		requireYear(*year)
		victims := mustLoadVictims(*dataPath)
		pop := mustLoadPopulation(*populationPath)
		report := buildMunicipalMapReport(victims, pop, *year, *scaleCap, *scaleTicks)
		printMunicipalMapReport(report)
		outName = fmt.Sprintf("municipal_%d.json", *year)
		mustWriteJSON(report, filepath.Join(*outDir, outName))
		run = report.run()

	case "top-municipalities":
		requireYear(*year)
		if *rankBy != "rate" && *rankBy != "volume" {
			exitWithError(fmt.Errorf("invalid --by value: %s", *rankBy))
		}
		victims := mustLoadVictims(*dataPath)
		pop := mustLoadPopulation(*populationPath)
		report := buildMunicipalRanking(victims, pop, *year, *rankBy, *topN, *minPopulation)
		printMunicipalRanking(report)
		if *rankBy == "volume" {
			outName = fmt.Sprintf("tabla_absolutos_%d.json", *year)
		} else {
			outName = fmt.Sprintf("tabla_tasa_%d.json", *year)
		}
		mustWriteJSON(report, filepath.Join(*outDir, outName))
		if *csvOut {
			csvName := strings.TrimSuffix(outName, ".json") + ".csv"
			if err := writeRankingCSV(report, filepath.Join(*outDir, csvName)); err != nil {
				exitWithError(err)
			}
			fmt.Printf("Ranking CSV saved to %s\n", csvName)
		}
		run = report.run()

	case "yearly-change":
		if *firstYear <= 0 || *secondYear <= 0 {
			exitWithError(errors.New("--first-year and --second-year are required"))
		}
		victims := mustLoadVictims(*dataPath)
		report := buildYearlyChangeReport(victims, *firstYear, *secondYear)
		printYearlyChangeReport(report)
		outName = fmt.Sprintf("comparacion_entidad_%d_%d.json", *firstYear, *secondYear)
		mustWriteJSON(report, filepath.Join(*outDir, outName))
		run = report.run()

	case "age-sex":
		requireYear(*year)
		victims := mustLoadVictims(*dataPath)
		menPop, err := loadAgeBandPopulation(*menPopulationPath)
		if err != nil {
			exitWithError(err)
		}
		womenPop, err := loadAgeBandPopulation(*womenPopulationPath)
		if err != nil {
			exitWithError(err)
		}
		report := buildAgeSexReport(victims, menPop, womenPop, *year)
		printAgeSexReport(report)
		outName = fmt.Sprintf("tasa_edad_%d.json", *year)
		mustWriteJSON(report, filepath.Join(*outDir, outName))
		run = report.run()

	default:
		exitWithError(fmt.Errorf("unknown report: %s", *reportKind))
	}

	fmt.Printf("\nRenderer table saved to %s\n", outName)

	if *dbEnabled || *initDB {
		dbURL := dbURLFromEnv()
		if dbURL == "" {
			exitWithError(errors.New("database URL missing; set RNPDNO_REPORTS_DB_URL or DATABASE_URL"))
		}
		cfg := DBConfig{URL: dbURL, Schema: *dbSchema, Tag: *dbTag}
		seeded := false
		if *initDB {
			runID, err := seedRun(run, cfg)
			if err != nil {
				exitWithError(err)
			}
			if runID != "" {
				seeded = true
				fmt.Printf("Seeded Postgres with initial report run (run_id=%s)\n", runID)
			}
		}
		if *dbEnabled {
			if seeded {
				fmt.Println("Skipped duplicate insert; current report already used for seed.")
			} else {
				runID, err := storeRun(run, cfg)
				if err != nil {
					exitWithError(err)
				}
				fmt.Printf("Stored run in Postgres (run_id=%s)\n", runID)
			}
		}
	}
}

func requireYear(year int) {
	if year <= 0 {
		exitWithError(errors.New("--year is required"))
	}
}

func mustLoadVictims(path string) []VictimRecord {
	records, invalidRows, err := loadVictimRecords(path)
	if err != nil {
		exitWithError(err)
	}
	if invalidRows > 0 {
		fmt.Printf("Invalid rows skipped: %d\n", invalidRows)
	}
	return records
}

func mustLoadPopulation(path string) *PopulationTable {
	table, err := loadPopulationTable(path)
	if err != nil {
		exitWithError(err)
	}
	return table
}

func mustLoadHomicides(path string) []HomicideRow {
	series, err := loadHomicideSeries(path)
	if err != nil {
		exitWithError(err)
	}
	return series
}

func mustWriteJSON(value any, path string) {
	if err := writeJSON(value, path); err != nil {
		exitWithError(err)
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
