package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// AnnualRow is one year of the incidence trend.
type AnnualRow struct {
	Year       int     `json:"year"`
	Count      int     `json:"count"`
	Population float64 `json:"population"`
	Rate       float64 `json:"rate"`
}

// AnnualReport is the yearly missing-persons trend for one entity (or
// national): observed years only, capped to the most recent maxYears.
type AnnualReport struct {
	Entity     int         `json:"entity"`
	EntityName string      `json:"entity_name"`
	Years      []AnnualRow `json:"years"`
	TotalCount int         `json:"total_count"`
}

func buildAnnualReport(victims []VictimRecord, pop *PopulationTable, entity int, maxYears int) AnnualReport {
	canonical := filterByEntity(dedupeVictims(victims), entity)
	counts := countByYear(canonical)

	years := make([]int, 0, len(counts))
	for year := range counts {
		years = append(years, year)
	}
	sort.Ints(years)

	report := AnnualReport{Entity: entity, EntityName: entityName(entity)}
	for _, year := range years {
		population, ok := pop.EntityOrNational(entity, year)
		if !ok {
			continue
		}
		report.Years = append(report.Years, AnnualRow{
			Year:       year,
			Count:      counts[year],
			Population: population,
			Rate:       rate(counts[year], population),
		})
	}
	if maxYears > 0 && len(report.Years) > maxYears {
		report.Years = report.Years[len(report.Years)-maxYears:]
	}
	for _, row := range report.Years {
		report.TotalCount += row.Count
	}
	return report
}

// buildAnnualHomicideReport is the homicide counterpart of the yearly
// trend, fed by the SESNSP victim series instead of the registry.
func buildAnnualHomicideReport(series []HomicideRow, pop *PopulationTable, entity int) AnnualReport {
	counts := homicidesByYear(filterHomicidesByEntity(series, entity))

	years := make([]int, 0, len(counts))
	for year := range counts {
		years = append(years, year)
	}
	sort.Ints(years)

	report := AnnualReport{Entity: entity, EntityName: entityName(entity)}
	for _, year := range years {
		population, ok := pop.EntityOrNational(entity, year)
		if !ok {
			continue
		}
		report.Years = append(report.Years, AnnualRow{
			Year:       year,
			Count:      counts[year],
			Population: population,
			Rate:       rate(counts[year], population),
		})
	}
	for _, row := range report.Years {
		report.TotalCount += row.Count
	}
	return report
}

// MonthRow pairs the two series for one month of the fixed axis.
type MonthRow struct {
	Month     int    `json:"month"`
	Name      string `json:"name"`
	Missing   int    `json:"missing"`
	Homicides int    `json:"homicides"`
}

// MonthlyReport compares monthly missing-persons and violent-death
// counts for one year and entity. All 12 months are present, zero
// counts included.
type MonthlyReport struct {
	Entity        int        `json:"entity"`
	EntityName    string     `json:"entity_name"`
	Year          int        `json:"year"`
	Months        []MonthRow `json:"months"`
	MissingTotal  int        `json:"missing_total"`
	HomicideTotal int        `json:"homicide_total"`
}

func buildMonthlyReport(victims []VictimRecord, series []HomicideRow, entity int, year int) MonthlyReport {
	canonical := filterByEntity(dedupeVictims(victims), entity)
	missing := countByMonth(canonical, year)
	homicides := homicidesByMonth(filterHomicidesByEntity(series, entity), year)

	report := MonthlyReport{Entity: entity, EntityName: entityName(entity), Year: year}
	for i := 0; i < 12; i++ {
		report.Months = append(report.Months, MonthRow{
			Month:     i + 1,
			Name:      monthNames[i],
			Missing:   missing[i],
			Homicides: homicides[i],
		})
		report.MissingTotal += missing[i]
		report.HomicideTotal += homicides[i]
	}
	return report
}

// StateRow is one entity of the state map table: totals split by sex
// plus the incidence rate. Total includes victims with undetermined
// sex.
type StateRow struct {
	Entity     int     `json:"entity"`
	Name       string  `json:"name"`
	Men        int     `json:"men"`
	Women      int     `json:"women"`
	Total      int     `json:"total"`
	Population float64 `json:"population"`
	Rate       float64 `json:"rate"`
}

// StateMapReport feeds the state choropleth and its companion table.
// National figures cover every record of the year, including entities
// without a denominator (such as the unknown-entity bucket).
type StateMapReport struct {
	Year               int         `json:"year"`
	Rows               []StateRow  `json:"rows"`
	NationalCount      int         `json:"national_count"`
	NationalPopulation float64     `json:"national_population"`
	NationalRate       float64     `json:"national_rate"`
	Scale              ScaleBounds `json:"scale"`
}

func buildStateMapReport(victims []VictimRecord, pop *PopulationTable, year int, scaleCap float64, scaleTicks int) StateMapReport {
	canonical := filterByYear(dedupeVictims(victims), year)
	counts := countByEntitySex(canonical)
	entityPop := pop.ByEntity(year)

	report := StateMapReport{Year: year, NationalPopulation: pop.National(year)}
	for entity, count := range counts {
		report.NationalCount += count.Total
		population, ok := entityPop[entity]
		if !ok || population <= 0 {
			continue
		}
		report.Rows = append(report.Rows, StateRow{
			Entity:     entity,
			Name:       entityName(entity),
			Men:        count.Men,
			Women:      count.Women,
			Total:      count.Total,
			Population: population,
			Rate:       rate(count.Total, population),
		})
	}
	sort.Slice(report.Rows, func(i, j int) bool {
		if report.Rows[i].Rate != report.Rows[j].Rate {
			return report.Rows[i].Rate > report.Rows[j].Rate
		}
		return report.Rows[i].Entity < report.Rows[j].Entity
	})
	if report.NationalPopulation > 0 {
		report.NationalRate = rate(report.NationalCount, report.NationalPopulation)
	}

	rates := make([]float64, len(report.Rows))
	for i, row := range report.Rows {
		rates[i] = row.Rate
	}
	report.Scale = deriveScale(rates, scaleCap, scaleTicks)
	return report
}

// MunicipalMapReport feeds the municipal choropleth: per-municipality
// rates, the national rate and the descriptive-statistics annotation.
type MunicipalMapReport struct {
	Year               int              `json:"year"`
	Rows               []RateRow        `json:"rows"`
	NationalCount      int              `json:"national_count"`
	NationalPopulation float64          `json:"national_population"`
	NationalRate       float64          `json:"national_rate"`
	Stats              DescriptiveStats `json:"stats"`
	Scale              ScaleBounds      `json:"scale"`
}

func buildMunicipalMapReport(victims []VictimRecord, pop *PopulationTable, year int, scaleCap float64, scaleTicks int) MunicipalMapReport {
	canonical := filterByYear(dedupeVictims(victims), year)
	counts := countByMunicipality(canonical)

	report := MunicipalMapReport{Year: year, NationalPopulation: pop.National(year)}
	for _, count := range counts {
		report.NationalCount += count
	}
	if report.NationalPopulation > 0 {
		report.NationalRate = rate(report.NationalCount, report.NationalPopulation)
	}

	report.Rows = buildRateRows(counts, pop.ByMunicipality(year))
	for i := range report.Rows {
		if name, ok := pop.MunicipalityName(report.Rows[i].Key); ok {
			report.Rows[i].Name = name
		}
	}

	rates := make([]float64, len(report.Rows))
	for i, row := range report.Rows {
		rates[i] = row.Rate
	}
	report.Stats = describeRates(rates)
	report.Scale = deriveScale(rates, scaleCap, scaleTicks)
	return report
}

// MunicipalRankingReport is the top-N leaderboard, either by rate with
// the minimum-population cutoff or by raw count without one.
type MunicipalRankingReport struct {
	Year          int         `json:"year"`
	By            string      `json:"by"`
	TopN          int         `json:"top_n"`
	MinPopulation float64     `json:"min_population,omitempty"`
	Rows          []RankedRow `json:"rows"`
}

func buildMunicipalRanking(victims []VictimRecord, pop *PopulationTable, year int, by string, topN int, minPopulation float64) MunicipalRankingReport {
	canonical := filterByYear(dedupeVictims(victims), year)
	rows := buildRateRows(countByMunicipality(canonical), pop.ByMunicipality(year))
	for i := range rows {
		if name, ok := pop.MunicipalityName(rows[i].Key); ok {
			rows[i].Name = name
		}
	}

	report := MunicipalRankingReport{Year: year, By: by, TopN: topN}
	if by == "volume" {
		report.Rows = rankByCount(rows, topN)
	} else {
		report.By = "rate"
		report.MinPopulation = minPopulation
		report.Rows = rankByRate(rows, topN, minPopulation)
	}
	return report
}

// YearlyChangeReport compares per-entity counts between two years,
// national row included.
type YearlyChangeReport struct {
	FirstYear  int         `json:"first_year"`
	SecondYear int         `json:"second_year"`
	Rows       []ChangeRow `json:"rows"`
}

func buildYearlyChangeReport(victims []VictimRecord, firstYear int, secondYear int) YearlyChangeReport {
	canonical := dedupeVictims(victims)
	return YearlyChangeReport{
		FirstYear:  firstYear,
		SecondYear: secondYear,
		Rows: buildChangeTable(
			countByEntity(filterByYear(canonical, firstYear)),
			countByEntity(filterByYear(canonical, secondYear)),
		),
	}
}

// AgeSexRow is one five-year band with counts and rates per sex. Rates
// are nil where the band has no denominator for the year.
type AgeSexRow struct {
	Band            string   `json:"band"`
	Men             int      `json:"men"`
	Women           int      `json:"women"`
	MenPopulation   float64  `json:"men_population"`
	WomenPopulation float64  `json:"women_population"`
	MenRate         *float64 `json:"men_rate"`
	WomenRate       *float64 `json:"women_rate"`
}

// AgeSexReport is the demographic scatter input: the full fixed band
// axis with per-sex incidence rates for one year.
type AgeSexReport struct {
	Year       int         `json:"year"`
	Rows       []AgeSexRow `json:"rows"`
	MenTotal   int         `json:"men_total"`
	WomenTotal int         `json:"women_total"`
}

func buildAgeSexReport(victims []VictimRecord, menPop, womenPop map[string]map[int]float64, year int) AgeSexReport {
	canonical := filterByYear(dedupeVictims(victims), year)
	bands := ageBands()
	counts := countByAgeBand(canonical, bands)

	report := AgeSexReport{Year: year}
	for i, band := range bands {
		row := AgeSexRow{
			Band:  band.Label,
			Men:   counts[i].Men,
			Women: counts[i].Women,
		}
		if population, ok := menPop[band.Label][year]; ok && population > 0 {
			row.MenPopulation = population
			menRate := rate(row.Men, population)
			row.MenRate = &menRate
		}
		if population, ok := womenPop[band.Label][year]; ok && population > 0 {
			row.WomenPopulation = population
			womenRate := rate(row.Women, population)
			row.WomenRate = &womenRate
		}
		report.MenTotal += row.Men
		report.WomenTotal += row.Women
		report.Rows = append(report.Rows, row)
	}
	return report
}

const reportRule = 44

func printHeader(title string) {
	fmt.Println(title)
	fmt.Println(strings.Repeat("=", reportRule))
}

func printAnnualReport(report AnnualReport, source string) {
	printHeader(fmt.Sprintf("Yearly %s incidence: %s", source, report.EntityName))
	for _, row := range report.Years {
		numPrinter.Printf("%d | %d victims | rate %.2f\n", row.Year, row.Count, row.Rate)
	}
	numPrinter.Printf("Cumulative total: %d victims\n", report.TotalCount)
}

func printMonthlyReport(report MonthlyReport) {
	printHeader(fmt.Sprintf("Monthly comparison %d: %s", report.Year, report.EntityName))
	for _, row := range report.Months {
		numPrinter.Printf("%-11s | missing %d | homicides %d\n", row.Name, row.Missing, row.Homicides)
	}
	numPrinter.Printf("Totals: %d missing | %d homicides\n", report.MissingTotal, report.HomicideTotal)
}

func printStateMapReport(report StateMapReport) {
	printHeader(fmt.Sprintf("State incidence map %d", report.Year))
	numPrinter.Printf("National rate: %.2f (%d victims)\n", report.NationalRate, report.NationalCount)
	fmt.Printf("Scale: %.2f to %.2f (%d ticks)\n", report.Scale.Min, report.Scale.Max, len(report.Scale.Ticks))
	for _, row := range report.Rows {
		numPrinter.Printf("%s | men %d | women %d | total %d | rate %.2f\n",
			row.Name, row.Men, row.Women, row.Total, row.Rate)
	}
}

func printMunicipalMapReport(report MunicipalMapReport) {
	printHeader(fmt.Sprintf("Municipal incidence map %d", report.Year))
	numPrinter.Printf("National rate: %.1f (%d victims)\n", report.NationalRate, report.NationalCount)
	numPrinter.Printf("Municipalities with rates: %d\n", len(report.Rows))
	numPrinter.Printf("Rates: mean %.1f | median %.1f | sd %.1f | p95 %.1f | max %.1f\n",
		report.Stats.Mean, report.Stats.Median, report.Stats.StdDev, report.Stats.P95, report.Stats.Max)
	fmt.Printf("Scale: %.2f to %.2f (%d ticks)\n", report.Scale.Min, report.Scale.Max, len(report.Scale.Ticks))
}

func printMunicipalRanking(report MunicipalRankingReport) {
	title := fmt.Sprintf("Top %d municipalities by %s (%d)", report.TopN, report.By, report.Year)
	printHeader(title)
	if report.MinPopulation > 0 {
		numPrinter.Printf("Minimum population: %.0f\n", report.MinPopulation)
	}
	for _, row := range report.Rows {
		name := row.Name
		if name == "" {
			name = row.Key
		}
		numPrinter.Printf("%2d. %s | %d cases | rate %.2f\n", row.Rank, name, row.Count, row.Rate)
	}
}

func printYearlyChangeReport(report YearlyChangeReport) {
	printHeader(fmt.Sprintf("Yearly change %d vs. %d", report.FirstYear, report.SecondYear))
	for _, row := range report.Rows {
		if !row.Valid {
			numPrinter.Printf("%s | n/a (%d → %d)\n", row.Name, row.FirstCount, row.SecondCount)
			continue
		}
		numPrinter.Printf("%s | %.1f%% (%d → %d)\n", row.Name, row.Change, row.FirstCount, row.SecondCount)
	}
}

func printAgeSexReport(report AgeSexReport) {
	printHeader(fmt.Sprintf("Incidence by age band and sex (%d)", report.Year))
	for _, row := range report.Rows {
		men, women := "n/a", "n/a"
		if row.MenRate != nil {
			men = numPrinter.Sprintf("%.2f", *row.MenRate)
		}
		if row.WomenRate != nil {
			women = numPrinter.Sprintf("%.2f", *row.WomenRate)
		}
		fmt.Printf("%-5s | men %s | women %s\n", row.Band, men, women)
	}
	numPrinter.Printf("Totals: %d men | %d women\n", report.MenTotal, report.WomenTotal)
}

// writeJSON writes one renderer-input table. Filenames are
// deterministic per report kind and parameters, so distinct runs never
// clobber each other.
func writeJSON(value any, path string) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// writeRankingCSV writes the leaderboard as CSV for spreadsheet use.
func writeRankingCSV(report MunicipalRankingReport, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"rank", "code", "name", "count", "population", "rate"}); err != nil {
		return err
	}
	for _, row := range report.Rows {
		record := []string{
			strconv.Itoa(row.Rank),
			row.Key,
			row.Name,
			strconv.Itoa(row.Count),
			strconv.FormatFloat(row.Population, 'f', 0, 64),
			strconv.FormatFloat(row.Rate, 'f', 2, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
