package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// MunicipalPopulation is one row of the CONAPO projection table: a
// five-digit municipal code and its estimated population per year.
type MunicipalPopulation struct {
	Code         string
	Municipality string
	Entity       string
	ByYear       map[int]float64
}

// PopulationTable holds the municipal projections and derives the
// coarser entity and national denominators from them. Denominators are
// external ground truth: a code or year with no entry yields an
// undefined rate downstream, never zero.
type PopulationTable struct {
	rows []MunicipalPopulation
}

// loadPopulationTable reads assets/poblacion.csv: CVE, Municipio,
// Entidad, then one numeric column per year. Cells that do not coerce
// to a number are treated as missing.
func loadPopulationTable(path string) (*PopulationTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("unable to read header: %w", err)
	}

	colMap := normalizeHeaders(headers)
	codeIdx, ok := findColumn(colMap, []string{"cve", "cvegeo", "code"})
	if !ok {
		return nil, errors.New("missing CVE column")
	}
	municipalityIdx, _ := findColumn(colMap, []string{"municipio", "municipality"})
	entityIdx, _ := findColumn(colMap, []string{"entidad", "entity"})

	yearCols := yearColumns(headers)
	if len(yearCols) == 0 {
		return nil, errors.New("no year columns found")
	}

	table := &PopulationTable{}
	for {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("unable to read CSV: %w", err)
		}

		code := getValue(row, codeIdx)
		if code == "" {
			continue
		}

		entry := MunicipalPopulation{
			Code:         code,
			Municipality: getValue(row, municipalityIdx),
			Entity:       getValue(row, entityIdx),
			ByYear:       make(map[int]float64, len(yearCols)),
		}
		for year, idx := range yearCols {
			value, err := cast.ToFloat64E(strings.ReplaceAll(getValue(row, idx), ",", ""))
			if err != nil {
				continue
			}
			entry.ByYear[year] = value
		}
		table.rows = append(table.rows, entry)
	}

	return table, nil
}

// yearColumns maps each header that parses as a calendar year to its
// column index.
func yearColumns(headers []string) map[int]int {
	result := make(map[int]int)
	for idx, header := range headers {
		year, err := strconv.Atoi(strings.TrimSpace(header))
		if err != nil || year < 1900 || year > 2200 {
			continue
		}
		if _, exists := result[year]; !exists {
			result[year] = idx
		}
	}
	return result
}

// ByMunicipality returns population per five-digit municipal code for
// one year. Codes without a value for that year are absent.
func (t *PopulationTable) ByMunicipality(year int) map[string]float64 {
	result := make(map[string]float64, len(t.rows))
	for _, row := range t.rows {
		if value, ok := row.ByYear[year]; ok {
			result[row.Code] += value
		}
	}
	return result
}

// ByEntity rolls the municipal rows up to entity level by the first two
// digits of the code.
func (t *PopulationTable) ByEntity(year int) map[int]float64 {
	result := make(map[int]float64)
	for _, row := range t.rows {
		if len(row.Code) < 2 {
			continue
		}
		entity, err := strconv.Atoi(row.Code[:2])
		if err != nil {
			continue
		}
		if value, ok := row.ByYear[year]; ok {
			result[entity] += value
		}
	}
	return result
}

// National sums every municipal row for one year.
func (t *PopulationTable) National(year int) float64 {
	total := 0.0
	for _, row := range t.rows {
		total += row.ByYear[year]
	}
	return total
}

// EntityOrNational picks the denominator matching an entity filter.
func (t *PopulationTable) EntityOrNational(entity int, year int) (float64, bool) {
	if entity == EntityNational {
		value := t.National(year)
		return value, value > 0
	}
	value, ok := t.ByEntity(year)[entity]
	return value, ok && value > 0
}

// MunicipalityName renders the "Municipio, Entidad" label used by the
// ranking tables.
func (t *PopulationTable) MunicipalityName(code string) (string, bool) {
	for _, row := range t.rows {
		if row.Code == code {
			if row.Municipality == "" || row.Entity == "" {
				return "", false
			}
			return row.Municipality + ", " + row.Entity, true
		}
	}
	return "", false
}

// loadAgeBandPopulation reads one five-year population table
// (hombres.csv or mujeres.csv): age-band label in the first column,
// then one column per year.
func loadAgeBandPopulation(path string) (map[string]map[int]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("unable to read header: %w", err)
	}
	yearCols := yearColumns(headers)
	if len(yearCols) == 0 {
		return nil, errors.New("no year columns found")
	}

	result := make(map[string]map[int]float64)
	for {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("unable to read CSV: %w", err)
		}
		label := getValue(row, 0)
		if label == "" {
			continue
		}
		byYear := make(map[int]float64, len(yearCols))
		for year, idx := range yearCols {
			value, err := cast.ToFloat64E(strings.ReplaceAll(getValue(row, idx), ",", ""))
			if err != nil {
				continue
			}
			byYear[year] = value
		}
		result[label] = byYear
	}
	return result, nil
}

// violentDeathCrimes is the label set that, together, covers all
// violent deaths in the SESNSP series.
var violentDeathCrimes = map[string]bool{
	"Homicidio doloso": true,
	"Feminicidio":      true,
}

// HomicideRow is one period/entity/crime observation of the SESNSP
// victim time series.
type HomicideRow struct {
	Period time.Time
	Entity int
	Crime  string
	Total  int
}

// loadHomicideSeries reads assets/timeseries_victimas.csv and keeps
// only violent-death crimes. Rows with an unparseable period are
// skipped.
func loadHomicideSeries(path string) ([]HomicideRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("unable to read header: %w", err)
	}

	colMap := normalizeHeaders(headers)
	periodIdx, ok := findColumn(colMap, []string{"periodo", "period"})
	if !ok {
		return nil, errors.New("missing PERIODO column")
	}
	entityIdx, ok := findColumn(colMap, []string{"cve_ent", "entity_code"})
	if !ok {
		return nil, errors.New("missing CVE_ENT column")
	}
	crimeIdx, ok := findColumn(colMap, []string{"delito", "crime"})
	if !ok {
		return nil, errors.New("missing DELITO column")
	}
	totalIdx, ok := findColumn(colMap, []string{"total"})
	if !ok {
		return nil, errors.New("missing TOTAL column")
	}

	var rows []HomicideRow
	for {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("unable to read CSV: %w", err)
		}

		crime := getValue(row, crimeIdx)
		if !violentDeathCrimes[crime] {
			continue
		}
		period, err := parseDate(getValue(row, periodIdx))
		if err != nil {
			continue
		}
		total, err := cast.ToIntE(getValue(row, totalIdx))
		if err != nil {
			continue
		}
		rows = append(rows, HomicideRow{
			Period: period,
			Entity: parseEntityCode(getValue(row, entityIdx)),
			Crime:  crime,
			Total:  total,
		})
	}
	return rows, nil
}
