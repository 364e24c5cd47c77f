package asset

import (
	"math"
	"sort"
	"strings"
)

// Summary holds the headline KPIs for a set of records.
type Summary struct {
	Total             int
	Alert             int
	Warning           int
	Operational       int
	Stopped           int
	AverageEfficiency float64
	Groups            []GroupSummary
}

// GroupSummary aggregates the records sharing an area (or a tag prefix when
// the summary is scoped to a single area).
type GroupSummary struct {
	Name              string
	Count             int
	AverageEfficiency float64
	AverageDays       float64
}

// Summarize computes KPIs over records. An empty area covers every record and
// groups by area; a named area filters to it and groups by tag prefix (the
// text before the first "/").
func Summarize(records []Record, area string) Summary {
	var s Summary

	type acc struct {
		eff, days float64
		n         int
	}
	groups := make(map[string]*acc)
	var order []string
	var effSum float64

	for _, r := range records {
		if area != "" && r.Area != area {
			continue
		}
		s.Total++
		switch r.Status {
		case StatusAlert:
			s.Alert++
		case StatusWarning:
			s.Warning++
		case StatusOperational:
			s.Operational++
		default:
			s.Stopped++
		}
		effSum += r.EfficiencyPercent

		key := r.Area
		if key == "" {
			key = "Indefinido"
		}
		if area != "" {
			key = r.Tag
			if key == "" {
				key = "S/N"
			}
		}
		key, _, _ = strings.Cut(key, "/")

		g, ok := groups[key]
		if !ok {
			g = &acc{}
			groups[key] = g
			order = append(order, key)
		}
		g.eff += r.EfficiencyPercent
		g.days += float64(r.DaysSinceService)
		g.n++
	}

	if s.Total > 0 {
		s.AverageEfficiency = round1(effSum / float64(s.Total))
	}

	s.Groups = make([]GroupSummary, 0, len(order))
	for _, name := range order {
		g := groups[name]
		s.Groups = append(s.Groups, GroupSummary{
			Name:              name,
			Count:             g.n,
			AverageEfficiency: round1(g.eff / float64(g.n)),
			AverageDays:       round1(g.days / float64(g.n)),
		})
	}
	sort.SliceStable(s.Groups, func(i, j int) bool {
		return s.Groups[i].AverageEfficiency < s.Groups[j].AverageEfficiency
	})

	return s
}

// Areas returns the distinct non-empty areas, sorted.
func Areas(records []Record) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		if r.Area == "" || seen[r.Area] {
			continue
		}
		seen[r.Area] = true
		out = append(out, r.Area)
	}
	sort.Strings(out)
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
