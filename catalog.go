package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// EntityNational requests national figures: no entity filter is
	// applied and denominators cover the whole country.
	EntityNational = 0

	// EntityUnknown is the registry's code for records whose entity of
	// occurrence could not be determined. It is a valid bucket, not an
	// error, but it has no population denominator.
	EntityUnknown = 99
)

// entityNames maps the registry's numeric entity keys to their names.
// 0 is the national aggregate and 99 the unknown-entity bucket.
var entityNames = map[int]string{
	0:  "México",
	1:  "Aguascalientes",
	2:  "Baja California",
	3:  "Baja California Sur",
	4:  "Campeche",
	5:  "Coahuila",
	6:  "Colima",
	7:  "Chiapas",
	8:  "Chihuahua",
	9:  "Ciudad de México",
	10: "Durango",
	11: "Guanajuato",
	12: "Guerrero",
	13: "Hidalgo",
	14: "Jalisco",
	15: "Estado de México",
	16: "Michoacán",
	17: "Morelos",
	18: "Nayarit",
	19: "Nuevo León",
	20: "Oaxaca",
	21: "Puebla",
	22: "Querétaro",
	23: "Quintana Roo",
	24: "San Luis Potosí",
	25: "Sinaloa",
	26: "Sonora",
	27: "Tabasco",
	28: "Tamaulipas",
	29: "Tlaxcala",
	30: "Veracruz",
	31: "Yucatán",
	32: "Zacatecas",
	99: "Se desconoce",
}

// monthNames holds the fixed 12-month axis labels, January first.
var monthNames = [12]string{
	"Enero",
	"Febrero",
	"Marzo",
	"Abril",
	"Mayo",
	"Junio",
	"Julio",
	"Agosto",
	"Septiembre",
	"Octubre",
	"Noviembre",
	"Diciembre",
}

// AgeBand is a five-year age range. Max < 0 marks the open-ended top
// band.
type AgeBand struct {
	Min   int
	Max   int
	Label string
}

// ageBands returns the 18 fixed bands: 0-4, 5-9, ... 80-84, ≥85. The
// labels match the index of the five-year population tables.
func ageBands() []AgeBand {
	bands := make([]AgeBand, 0, 18)
	for lo := 0; lo <= 80; lo += 5 {
		bands = append(bands, AgeBand{Min: lo, Max: lo + 4, Label: fmt.Sprintf("%d-%d", lo, lo+4)})
	}
	bands = append(bands, AgeBand{Min: 85, Max: -1, Label: "≥85"})
	return bands
}

// bandIndexForAge returns the index of the band containing age, or
// false for negative ages.
func bandIndexForAge(bands []AgeBand, age int) (int, bool) {
	if age < 0 {
		return 0, false
	}
	for i, band := range bands {
		if age < band.Min {
			continue
		}
		if band.Max < 0 || age <= band.Max {
			return i, true
		}
	}
	return 0, false
}

func entityName(code int) string {
	if name, ok := entityNames[code]; ok {
		return name
	}
	return fmt.Sprintf("Entidad %d", code)
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldName lowercases a name and strips diacritics so lookups accept
// both "Michoacán" and "michoacan".
func foldName(value string) string {
	folded, _, err := transform.String(accentStripper, value)
	if err != nil {
		folded = value
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// resolveEntity accepts an entity as a numeric code or a name. An empty
// value means national.
func resolveEntity(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return EntityNational, nil
	}
	if code, err := strconv.Atoi(value); err == nil {
		if _, ok := entityNames[code]; !ok {
			return 0, fmt.Errorf("unknown entity code: %d", code)
		}
		return code, nil
	}
	folded := foldName(value)
	codes := make([]int, 0, len(entityNames))
	for code := range entityNames {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		if foldName(entityNames[code]) == folded {
			return code, nil
		}
	}
	return 0, fmt.Errorf("unknown entity: %s", value)
}

// numPrinter renders numbers with thousands separators for report text
// and scale labels, matching the renderer's "1,234" figure style.
var numPrinter = message.NewPrinter(language.English)

// formatScaleValue follows the legend convention: one decimal below 10,
// grouped integers from 10 up.
func formatScaleValue(value float64) string {
	if value >= 10 {
		return numPrinter.Sprintf("%.0f", value)
	}
	return numPrinter.Sprintf("%.1f", value)
}
