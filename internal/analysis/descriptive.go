package analysis

import (
	"sort"

	"github.com/paritylens/paritylens/internal/classifier"
	"github.com/paritylens/paritylens/internal/dataset"
	"github.com/paritylens/paritylens/internal/models"
)

// ComputeGroupStats summarizes the analyzed rows per group: size, population
// share, observed recidivism rate, and mean decile score. It runs over the
// rows a run actually kept, so the summary and the fairness metrics describe
// the same population. Groups are ordered largest first, matching the
// equivalent store query.
func ComputeGroupStats(rows []dataset.Screening, groupOf func(dataset.Screening) string) []models.GroupStat {
	type agg struct {
		n          int
		reoffended int
		decileSum  int
	}

	byGroup := make(map[string]*agg)
	for _, row := range rows {
		g := groupOf(row)
		a := byGroup[g]
		if a == nil {
			a = &agg{}
			byGroup[g] = a
		}
		a.n++
		if row.Recidivated() {
			a.reoffended++
		}
		a.decileSum += row.DecileScore
	}

	stats := make([]models.GroupStat, 0, len(byGroup))
	total := len(rows)
	for g, a := range byGroup {
		stats = append(stats, models.GroupStat{
			Group:      g,
			Count:      a.n,
			Share:      float64(a.n) / float64(total),
			BaseRate:   float64(a.reoffended) / float64(a.n),
			MeanDecile: float64(a.decileSum) / float64(a.n),
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Group < stats[j].Group
	})
	return stats
}

// ComputeCrossTab tabulates score labels against observed outcomes. Labels
// appear in risk order, with any label outside the published trichotomy
// sorted after them.
func ComputeCrossTab(rows []dataset.Screening) []models.ScoreOutcomeCell {
	type counts struct {
		reoffended int
		desisted   int
	}

	byLabel := make(map[string]*counts)
	for _, row := range rows {
		c := byLabel[row.ScoreText]
		if c == nil {
			c = &counts{}
			byLabel[row.ScoreText] = c
		}
		if row.Recidivated() {
			c.reoffended++
		} else {
			c.desisted++
		}
	}

	ordered := []string{classifier.LabelLow, classifier.LabelMedium, classifier.LabelHigh}
	cells := make([]models.ScoreOutcomeCell, 0, len(byLabel))
	for _, label := range ordered {
		if c, ok := byLabel[label]; ok {
			cells = append(cells, models.ScoreOutcomeCell{
				Label:      label,
				Reoffended: c.reoffended,
				Desisted:   c.desisted,
			})
			delete(byLabel, label)
		}
	}

	rest := make([]string, 0, len(byLabel))
	for label := range byLabel {
		rest = append(rest, label)
	}
	sort.Strings(rest)
	for _, label := range rest {
		c := byLabel[label]
		cells = append(cells, models.ScoreOutcomeCell{
			Label:      label,
			Reoffended: c.reoffended,
			Desisted:   c.desisted,
		})
	}
	return cells
}
