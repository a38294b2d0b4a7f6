package main

// countByYear counts canonical records per calendar year of the
// resolved date. Records with no resolvable date are excluded; the
// yearly axis carries only observed years.
func countByYear(records []VictimRecord) map[int]int {
	result := make(map[int]int)
	for _, record := range records {
		resolved := record.ResolvedDate()
		if resolved.IsZero() {
			continue
		}
		result[resolved.Year()]++
	}
	return result
}

// countByMonth counts records of one year on the fixed 12-month axis.
// Months with no records stay zero.
func countByMonth(records []VictimRecord, year int) [12]int {
	var result [12]int
	for _, record := range records {
		resolved := record.ResolvedDate()
		if resolved.IsZero() || resolved.Year() != year {
			continue
		}
		result[int(resolved.Month())-1]++
	}
	return result
}

// EntitySexCount holds per-entity victim counts split by sex. Total
// covers every victim in the entity, including those whose sex is
// redacted or undetermined, so Men+Women may undercount it.
type EntitySexCount struct {
	Men   int
	Women int
	Total int
}

// countByEntitySex buckets records per entity of occurrence. Records
// with no entity code are excluded; the unknown-entity code 99 is a
// regular bucket.
func countByEntitySex(records []VictimRecord) map[int]EntitySexCount {
	result := make(map[int]EntitySexCount)
	for _, record := range records {
		if record.EntityCode < 0 {
			continue
		}
		entry := result[record.EntityCode]
		entry.Total++
		switch record.Sex {
		case SexMale:
			entry.Men++
		case SexFemale:
			entry.Women++
		}
		result[record.EntityCode] = entry
	}
	return result
}

// countByEntity counts records per entity of occurrence.
func countByEntity(records []VictimRecord) map[int]int {
	result := make(map[int]int)
	for _, record := range records {
		if record.EntityCode < 0 {
			continue
		}
		result[record.EntityCode]++
	}
	return result
}

// countByMunicipality counts records per five-digit composite code.
// Records missing either code component are excluded.
func countByMunicipality(records []VictimRecord) map[string]int {
	result := make(map[string]int)
	for _, record := range records {
		code, ok := record.CompositeCode()
		if !ok {
			continue
		}
		result[code]++
	}
	return result
}

// AgeSexCount holds victim counts for one age band, split by sex.
type AgeSexCount struct {
	Men   int
	Women int
}

// countByAgeBand buckets records into the fixed five-year bands using
// age at the event. Age is the resolved-date year minus the birth year:
// plain year subtraction, so a victim whose birthday falls later in the
// event year is counted one year older than their exact age. Records
// missing either date are excluded.
func countByAgeBand(records []VictimRecord, bands []AgeBand) []AgeSexCount {
	result := make([]AgeSexCount, len(bands))
	for _, record := range records {
		resolved := record.ResolvedDate()
		if resolved.IsZero() || record.BirthDate.IsZero() {
			continue
		}
		age := resolved.Year() - record.BirthDate.Year()
		idx, ok := bandIndexForAge(bands, age)
		if !ok {
			continue
		}
		switch record.Sex {
		case SexMale:
			result[idx].Men++
		case SexFemale:
			result[idx].Women++
		}
	}
	return result
}

// filterHomicidesByEntity keeps series rows for one entity;
// EntityNational keeps everything.
func filterHomicidesByEntity(rows []HomicideRow, entity int) []HomicideRow {
	if entity == EntityNational {
		return rows
	}
	var result []HomicideRow
	for _, row := range rows {
		if row.Entity == entity {
			result = append(result, row)
		}
	}
	return result
}

// homicidesByYear sums victim totals per year of the series period.
func homicidesByYear(rows []HomicideRow) map[int]int {
	result := make(map[int]int)
	for _, row := range rows {
		result[row.Period.Year()] += row.Total
	}
	return result
}

// homicidesByMonth sums victim totals of one year on the fixed
// 12-month axis.
func homicidesByMonth(rows []HomicideRow, year int) [12]int {
	var result [12]int
	for _, row := range rows {
		if row.Period.Year() != year {
			continue
		}
		result[int(row.Period.Month())-1] += row.Total
	}
	return result
}
