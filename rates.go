package main

import (
	"math"
	"sort"
)

const per100k = 100000.0

// RateRow joins a group's victim count with its population denominator.
// Rows only exist where the denominator is known and positive.
type RateRow struct {
	Key        string  `json:"key"`
	Name       string  `json:"name,omitempty"`
	Count      int     `json:"count"`
	Population float64 `json:"population"`
	Rate       float64 `json:"rate"`
}

// rate computes incidence per 100,000. Callers guarantee population > 0.
func rate(count int, population float64) float64 {
	return float64(count) / population * per100k
}

// buildRateRows joins counts with denominators. Keys with a missing or
// zero denominator are dropped, not zero-filled; they would otherwise
// surface as infinite or meaningless rates in ranking and scaling.
func buildRateRows(counts map[string]int, population map[string]float64) []RateRow {
	rows := make([]RateRow, 0, len(counts))
	for key, count := range counts {
		pop, ok := population[key]
		if !ok || pop <= 0 {
			continue
		}
		rows = append(rows, RateRow{
			Key:        key,
			Count:      count,
			Population: pop,
			Rate:       rate(count, pop),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Rate != rows[j].Rate {
			return rows[i].Rate > rows[j].Rate
		}
		return rows[i].Key < rows[j].Key
	})
	return rows
}

// quantile returns the q-th quantile of values using linear
// interpolation between order statistics, the same scheme as the
// renderer's percentile labels expect (95th of 1..100 is 95.05).
func quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64{}, values...)
	sort.Float64s(sorted)
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*frac
}

// ScaleBounds is the choropleth color-scale derivation: minimum
// observed rate to the percentile-capped maximum, with evenly spaced
// legend ticks. The last label carries the "at least" qualifier since
// the true maximum may exceed the cap.
type ScaleBounds struct {
	Min    float64   `json:"min"`
	Max    float64   `json:"max"`
	Ticks  []float64 `json:"ticks"`
	Labels []string  `json:"labels"`
}

// deriveScale computes scale bounds over the observed rates.
// capQuantile is the upper quantile (0.95 by default) and tickCount the
// number of legend ticks (13 by default).
func deriveScale(rates []float64, capQuantile float64, tickCount int) ScaleBounds {
	if len(rates) == 0 || tickCount < 2 {
		return ScaleBounds{}
	}
	sorted := append([]float64{}, rates...)
	sort.Float64s(sorted)

	bounds := ScaleBounds{
		Min:    sorted[0],
		Max:    quantile(sorted, capQuantile),
		Ticks:  make([]float64, tickCount),
		Labels: make([]string, tickCount),
	}
	step := (bounds.Max - bounds.Min) / float64(tickCount-1)
	for i := range bounds.Ticks {
		bounds.Ticks[i] = bounds.Min + step*float64(i)
		bounds.Labels[i] = formatScaleValue(bounds.Ticks[i])
	}
	bounds.Labels[tickCount-1] = "≥" + bounds.Labels[tickCount-1]
	return bounds
}

// RankedRow is one leaderboard entry with its dense rank.
type RankedRow struct {
	Rank int `json:"rank"`
	RateRow
}

// rankByRate sorts descending by rate, drops rows below the
// minimum-population cutoff (small denominators produce statistically
// unstable extremes) and keeps the first n.
func rankByRate(rows []RateRow, n int, minPopulation float64) []RankedRow {
	filtered := make([]RateRow, 0, len(rows))
	for _, row := range rows {
		if row.Population < minPopulation {
			continue
		}
		filtered = append(filtered, row)
	}
	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].Rate != filtered[j].Rate {
			return filtered[i].Rate > filtered[j].Rate
		}
		return filtered[i].Key < filtered[j].Key
	})
	return takeRanked(filtered, n)
}

// rankByCount sorts descending by raw count; no population cutoff, this
// is the "most affected by volume" view.
func rankByCount(rows []RateRow, n int) []RankedRow {
	sorted := append([]RateRow{}, rows...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Count != sorted[j].Count {
			return sorted[i].Count > sorted[j].Count
		}
		return sorted[i].Key < sorted[j].Key
	})
	return takeRanked(sorted, n)
}

func takeRanked(rows []RateRow, n int) []RankedRow {
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	result := make([]RankedRow, len(rows))
	for i, row := range rows {
		result[i] = RankedRow{Rank: i + 1, RateRow: row}
	}
	return result
}

// DescriptiveStats summarizes the municipal rate distribution for the
// map annotation block.
type DescriptiveStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	P25    float64 `json:"p25"`
	P75    float64 `json:"p75"`
	P95    float64 `json:"p95"`
	Max    float64 `json:"max"`
}

func describeRates(rates []float64) DescriptiveStats {
	if len(rates) == 0 {
		return DescriptiveStats{}
	}
	sorted := append([]float64{}, rates...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, value := range sorted {
		sum += value
	}
	mean := sum / float64(len(sorted))

	variance := 0.0
	for _, value := range sorted {
		variance += (value - mean) * (value - mean)
	}
	stdDev := 0.0
	if len(sorted) > 1 {
		// Sample standard deviation, matching the source stats block.
		stdDev = math.Sqrt(variance / float64(len(sorted)-1))
	}

	return DescriptiveStats{
		Mean:   mean,
		Median: quantile(sorted, 0.5),
		StdDev: stdDev,
		P25:    quantile(sorted, 0.25),
		P75:    quantile(sorted, 0.75),
		P95:    quantile(sorted, 0.95),
		Max:    sorted[len(sorted)-1],
	}
}

// ChangeRow compares one entity's counts between two years. Valid is
// false when the base count is zero and the percent change is
// undefined.
type ChangeRow struct {
	Entity      int     `json:"entity"`
	Name        string  `json:"name"`
	FirstCount  int     `json:"first_count"`
	SecondCount int     `json:"second_count"`
	Change      float64 `json:"change_pct"`
	Valid       bool    `json:"valid"`
}

// buildChangeTable pivots per-entity counts for two years, appends the
// national row and sorts descending by percent change with undefined
// rows last.
func buildChangeTable(first map[int]int, second map[int]int) []ChangeRow {
	entities := make(map[int]bool)
	for entity := range first {
		entities[entity] = true
	}
	for entity := range second {
		entities[entity] = true
	}

	rows := make([]ChangeRow, 0, len(entities)+1)
	firstTotal, secondTotal := 0, 0
	for entity := range entities {
		row := ChangeRow{
			Entity:      entity,
			Name:        entityName(entity),
			FirstCount:  first[entity],
			SecondCount: second[entity],
		}
		firstTotal += row.FirstCount
		secondTotal += row.SecondCount
		if row.FirstCount > 0 {
			row.Change = float64(row.SecondCount-row.FirstCount) / float64(row.FirstCount) * 100
			row.Valid = true
		}
		rows = append(rows, row)
	}

	national := ChangeRow{
		Entity:      EntityNational,
		Name:        "Nacional",
		FirstCount:  firstTotal,
		SecondCount: secondTotal,
	}
	if national.FirstCount > 0 {
		national.Change = float64(national.SecondCount-national.FirstCount) / float64(national.FirstCount) * 100
		national.Valid = true
	}
	rows = append(rows, national)

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Valid != rows[j].Valid {
			return rows[i].Valid
		}
		if rows[i].Change != rows[j].Change {
			return rows[i].Change > rows[j].Change
		}
		return rows[i].Entity < rows[j].Entity
	})
	return rows
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
