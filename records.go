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
)

// confidentialSentinel marks redacted cells in the registry export.
// It is converted to the missing value once, at ingestion.
const confidentialSentinel = "CONFIDENCIAL"

const (
	SexMale   = "HOMBRE"
	SexFemale = "MUJER"
)

// VictimRecord is one victim-update row from the registry. Zero time
// values and empty strings mean missing. Multiple rows may share a
// VictimID; dedupeVictims keeps the last one.
type VictimRecord struct {
	VictimID     string
	Sex          string
	BirthDate    time.Time
	Disappeared  time.Time
	Registered   time.Time
	EntityCode   int    // -1 when missing
	Municipality string // three-digit code within the entity, "" when missing
}

// ResolvedDate prefers the disappearance date and falls back to the
// registration date. Zero means neither is available.
func (r VictimRecord) ResolvedDate() time.Time {
	if !r.Disappeared.IsZero() {
		return r.Disappeared
	}
	return r.Registered
}

// CompositeCode joins the entity and municipality codes into the
// five-digit municipal key used by the population table.
func (r VictimRecord) CompositeCode() (string, bool) {
	if r.EntityCode < 0 || r.Municipality == "" {
		return "", false
	}
	return fmt.Sprintf("%02d%s", r.EntityCode, r.Municipality), true
}

// loadVictimRecords reads the victim registry CSV. Confidential cells
// are redacted and unparseable dates resolve to missing rather than
// failing the load; rows without a victim id are counted as invalid and
// skipped.
func loadVictimRecords(path string) ([]VictimRecord, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("unable to read header: %w", err)
	}

	colMap := normalizeHeaders(headers)
	idIdx, ok := findColumn(colMap, []string{"id_victima", "victim_id", "id"})
	if !ok {
		return nil, 0, errors.New("missing ID_VICTIMA column")
	}
	sexIdx, _ := findColumn(colMap, []string{"sexo", "sex"})
	birthIdx, _ := findColumn(colMap, []string{"fecha_nacimiento", "birth_date"})
	disappearedIdx, _ := findColumn(colMap, []string{"fecha_desaparicion", "disappearance_date"})
	registeredIdx, _ := findColumn(colMap, []string{"fecha_registro", "registration_date"})
	entityIdx, _ := findColumn(colMap, []string{"cve_ent", "entity_code"})
	municipalityIdx, _ := findColumn(colMap, []string{"cve_mun", "municipality_code"})

	var records []VictimRecord
	invalidRows := 0

	for {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, 0, fmt.Errorf("unable to read CSV: %w", err)
		}
		if len(row) == 0 {
			continue
		}

		victimID := redact(getValue(row, idIdx))
		if victimID == "" {
			invalidRows++
			continue
		}

		record := VictimRecord{
			VictimID:     victimID,
			Sex:          redact(getValue(row, sexIdx)),
			BirthDate:    parseDateOrZero(redact(getValue(row, birthIdx))),
			Disappeared:  parseDateOrZero(redact(getValue(row, disappearedIdx))),
			Registered:   parseDateOrZero(redact(getValue(row, registeredIdx))),
			EntityCode:   parseEntityCode(redact(getValue(row, entityIdx))),
			Municipality: normalizeMunicipality(redact(getValue(row, municipalityIdx))),
		}
		records = append(records, record)
	}

	return records, invalidRows, nil
}

// redact converts the confidential sentinel to the missing value.
func redact(value string) string {
	if strings.EqualFold(value, confidentialSentinel) {
		return ""
	}
	return value
}

// dedupeVictims keeps exactly one record per victim id: the last one in
// input order. Output preserves first-appearance order, so running it
// on an already-deduplicated slice returns the same slice content.
func dedupeVictims(records []VictimRecord) []VictimRecord {
	latest := make(map[string]VictimRecord, len(records))
	order := make([]string, 0, len(records))
	for _, record := range records {
		if _, seen := latest[record.VictimID]; !seen {
			order = append(order, record.VictimID)
		}
		latest[record.VictimID] = record
	}

	result := make([]VictimRecord, 0, len(order))
	for _, id := range order {
		result = append(result, latest[id])
	}
	return result
}

// filterByEntity keeps records from one entity. EntityNational means no
// filter.
func filterByEntity(records []VictimRecord, entity int) []VictimRecord {
	if entity == EntityNational {
		return records
	}
	var result []VictimRecord
	for _, record := range records {
		if record.EntityCode == entity {
			result = append(result, record)
		}
	}
	return result
}

// filterByYear keeps records whose resolved date falls in year. Records
// with no resolvable date are excluded.
func filterByYear(records []VictimRecord, year int) []VictimRecord {
	var result []VictimRecord
	for _, record := range records {
		resolved := record.ResolvedDate()
		if resolved.IsZero() || resolved.Year() != year {
			continue
		}
		result = append(result, record)
	}
	return result
}

func parseEntityCode(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return -1
	}
	code, err := strconv.Atoi(value)
	if err != nil || code < 0 {
		return -1
	}
	return code
}

// normalizeMunicipality pads municipality codes to the three digits
// used in the composite municipal key.
func normalizeMunicipality(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if _, err := strconv.Atoi(value); err != nil {
		return ""
	}
	for len(value) < 3 {
		value = "0" + value
	}
	return value
}

// parseDateOrZero is the forgiving form of parseDate: anything that
// does not parse resolves to the zero time.
func parseDateOrZero(value string) time.Time {
	parsed, err := parseDate(value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty date")
	}
	layouts := []string{
		"2006-01-02",
		"2006/01/02",
		"02/01/2006",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05Z07:00",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format: %s", value)
}

func normalizeHeaders(headers []string) map[string]int {
	result := make(map[string]int, len(headers))
	for idx, header := range headers {
		normalized := normalizeHeader(header)
		if _, exists := result[normalized]; !exists {
			result[normalized] = idx
		}
	}
	return result
}

func normalizeHeader(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.ReplaceAll(value, " ", "")
	value = strings.ReplaceAll(value, "_", "")
	value = strings.ReplaceAll(value, "-", "")
	return value
}

func findColumn(headers map[string]int, names []string) (int, bool) {
	for _, name := range names {
		if idx, ok := headers[normalizeHeader(name)]; ok {
			return idx, true
		}
	}
	return -1, false
}

func getValue(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
