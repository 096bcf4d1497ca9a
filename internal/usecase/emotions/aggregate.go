package emotions

import (
	"math"
	"sort"

	"reflexion-api/internal/domain"
)

const dayLayout = "2006-01-02"

// DailyEmotions содержит нормализованные эмоции за один календарный день (UTC).
type DailyEmotions struct {
	Date   string             `json:"date"`
	Counts map[string]float64 `json:"counts"`
	Total  int                `json:"total"`
}

// Round2 округляет до двух знаков после запятой.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// NormalizeCounts переводит сырые счётчики в доли от total.
// Нулевые счётчики пропускаются, при total == 0 возвращается пустая карта.
func NormalizeCounts(counts map[string]int, total int) map[string]float64 {
	out := make(map[string]float64, len(counts))
	if total <= 0 {
		return out
	}
	for name, count := range counts {
		if count <= 0 {
			continue
		}
		out[name] = Round2(float64(count) / float64(total))
	}
	return out
}

// GroupByDay группирует журнал по дате UTC и нормализует каждый день
// по его собственному числу упоминаний.
func GroupByDay(logs []domain.EmotionLog) []DailyEmotions {
	tallies := make(map[string]map[string]int)
	totals := make(map[string]int)
	for _, entry := range logs {
		day := entry.Timestamp.UTC().Format(dayLayout)
		tally, ok := tallies[day]
		if !ok {
			tally = make(map[string]int)
			tallies[day] = tally
		}
		for _, e := range entry.Emotions {
			key := Normalize(e)
			if key == "" {
				continue
			}
			tally[key]++
			totals[day]++
		}
	}

	days := make([]string, 0, len(tallies))
	for day := range tallies {
		days = append(days, day)
	}
	sort.Strings(days)

	out := make([]DailyEmotions, 0, len(days))
	for _, day := range days {
		out = append(out, DailyEmotions{
			Date:   day,
			Counts: NormalizeCounts(tallies[day], totals[day]),
			Total:  totals[day],
		})
	}
	return out
}
