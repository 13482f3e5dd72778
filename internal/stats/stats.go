package stats

import (
	"math"
	"sort"
	"time"

	"guestlens/internal/model"
)

// Daily is the per-day audience summary rendered by the stats view.
type Daily struct {
	Date         string       `json:"date"`
	Views        int          `json:"views"`
	Visitors     int          `json:"visitors"`
	Demographics Demographics `json:"demographics"`
}

type Demographics struct {
	MalePercent   int         `json:"male"`
	FemalePercent int         `json:"female"`
	AgeGroups     AgeGroups   `json:"ageGroups"`
	TopCities     []CityCount `json:"topCities"`
}

// AgeGroups holds percentage shares among guests with a known age.
type AgeGroups struct {
	From18to24 int `json:"18-24"`
	From25to34 int `json:"25-34"`
	From35to44 int `json:"35-44"`
	Over45     int `json:"45+"`
}

type CityCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

const topCityLimit = 5

// FromGuests derives a daily summary from one ranked guest list. Views are an
// estimate: every visitor counts once, plus a probability-weighted repeat
// factor for high-confidence guests.
func FromGuests(date time.Time, guests []model.Guest) Daily {
	d := Daily{
		Date:     date.UTC().Format("2006-01-02"),
		Visitors: len(guests),
	}

	probSum := 0
	male, female := 0, 0
	ages := [4]int{}
	agesKnown := 0
	cities := make(map[string]int)

	for _, g := range guests {
		probSum += g.Probability
		switch g.Profile.Sex {
		case 2:
			male++
		case 1:
			female++
		}
		if age := g.Profile.Age; age >= 18 {
			switch {
			case age <= 24:
				ages[0]++
			case age <= 34:
				ages[1]++
			case age <= 44:
				ages[2]++
			default:
				ages[3]++
			}
			agesKnown++
		}
		if g.Profile.City != "" {
			cities[g.Profile.City]++
		}
	}

	d.Views = d.Visitors + probSum/100

	if male+female > 0 {
		d.Demographics.MalePercent = percent(male, male+female)
		d.Demographics.FemalePercent = 100 - d.Demographics.MalePercent
	} else {
		d.Demographics.MalePercent = 50
		d.Demographics.FemalePercent = 50
	}

	if agesKnown > 0 {
		d.Demographics.AgeGroups = AgeGroups{
			From18to24: percent(ages[0], agesKnown),
			From25to34: percent(ages[1], agesKnown),
			From35to44: percent(ages[2], agesKnown),
			Over45:     percent(ages[3], agesKnown),
		}
	}

	d.Demographics.TopCities = topCities(cities)
	return d
}

func percent(part, whole int) int {
	return int(math.Round(100 * float64(part) / float64(whole)))
}

// topCities ranks cities by count descending, name ascending on ties so the
// output is stable across runs.
func topCities(counts map[string]int) []CityCount {
	out := make([]CityCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, CityCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > topCityLimit {
		out = out[:topCityLimit]
	}
	return out
}
