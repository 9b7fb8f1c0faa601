package charting

import (
	"sort"
	"time"

	"github.com/salemadams/cash-dash/internal/core"
)

// Series is one line of a chart: a group key and one value per label.
type Series struct {
	Key    string    `json:"key"`
	Label  string    `json:"label"`
	Color  string    `json:"borderColor"`
	Values []float64 `json:"data"`
}

// LineChart holds bucket labels and one series per group, in first-seen order.
type LineChart struct {
	Labels []string    `json:"labels"`
	Edges  []time.Time `json:"-"`
	Series []Series    `json:"datasets"`
}

// Lookup returns the series for key.
func (c LineChart) Lookup(key string) (Series, bool) {
	for _, s := range c.Series {
		if s.Key == key {
			return s, true
		}
	}
	return Series{}, false
}

// Labels walks from start to end by interval and returns the label of each
// step together with its bucket edge (midnight of the labelled day).
// Month steps keep the day of month and let the calendar roll over when that
// day does not exist (Jan 31 + 1 month is Mar 2 or Mar 3). When a step
// overshoots end, end itself closes the series unless it carries the same
// label as the last step.
func Labels(start, end time.Time, interval Interval, opts Options) ([]string, []time.Time) {
	if !interval.Valid() {
		return nil, nil
	}
	loc := opts.location()
	layout := opts.layout()
	current := start.In(loc)
	end = end.In(loc)

	var (
		labels []string
		edges  []time.Time
	)
	for !current.After(end) {
		labels = append(labels, current.Format(layout))
		edges = append(edges, midnight(current))

		if interval == Month {
			y, m, d := current.Date()
			current = time.Date(y, m+1, d, 0, 0, 0, 0, loc)
		} else {
			current = current.Add(interval.Width())
		}

		if current.After(end) {
			endLabel := end.Format(layout)
			if labels[len(labels)-1] != endLabel {
				labels = append(labels, endLabel)
				edges = append(edges, midnight(end))
			}
			break
		}
	}
	return labels, edges
}

// BucketCount is an upper bound on the number of labels Labels produces for
// the range. Ranges longer than time.Duration can hold saturate rather than
// wrap.
func BucketCount(start, end time.Time, interval Interval) int {
	if !interval.Valid() || end.Before(start) {
		return 0
	}
	if interval == Month {
		sy, sm, _ := start.Date()
		ey, em, _ := end.Date()
		return (ey-sy)*12 + int(em-sm) + 2
	}
	return int(end.Sub(start)/interval.Width()) + 2
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Bucket aggregates transactions into a line chart. Each value is the sum of
// absolute amounts whose timestamp falls in [edge-width, edge) and whose group
// key matches the series. In category mode income and savings never produce a
// series.
func Bucket(txs []core.Transaction, start, end time.Time, interval Interval, groupBy GroupBy, opts Options) LineChart {
	labels, edges := Labels(start, end, interval, opts)
	chart := LineChart{Labels: labels, Edges: edges, Series: []Series{}}
	if len(labels) == 0 {
		chart.Labels = []string{}
		return chart
	}

	sorted := sortByDate(txs)
	keyOf := groupKey(groupBy)

	index := make(map[string]int)
	for _, t := range sorted {
		k, ok := keyOf(t)
		if !ok {
			continue
		}
		if _, seen := index[k]; seen {
			continue
		}
		index[k] = len(chart.Series)
		chart.Series = append(chart.Series, Series{
			Key:    k,
			Label:  Capitalize(k),
			Color:  ColorFor(k),
			Values: make([]float64, len(labels)),
		})
	}
	if len(chart.Series) == 0 {
		return chart
	}

	width := interval.Width()
	for i, edge := range edges {
		lo := edge.Add(-width)
		first := sort.Search(len(sorted), func(j int) bool {
			return !sorted[j].Date.Time().Before(lo)
		})
		for j := first; j < len(sorted) && sorted[j].Date.Time().Before(edge); j++ {
			k, ok := keyOf(sorted[j])
			if !ok {
				continue
			}
			chart.Series[index[k]].Values[i] += sorted[j].AbsAmount()
		}
	}
	return chart
}

func groupKey(groupBy GroupBy) func(core.Transaction) (string, bool) {
	if groupBy == GroupByCategory {
		return func(t core.Transaction) (string, bool) {
			if t.Type == core.Income || t.Type == core.Savings {
				return "", false
			}
			return t.Category, t.Category != ""
		}
	}
	return func(t core.Transaction) (string, bool) {
		return string(t.Type), t.Type != ""
	}
}

// sortByDate returns a date-ascending copy; equal dates keep input order.
func sortByDate(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Time().Before(out[j].Date.Time())
	})
	return out
}
