package pipeline

import (
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/theirongolddev/gwlens/internal/model"
)

// DefaultTopN is the width of every ranking chart.
const DefaultTopN = 5

// Metric extracts the ranking value from an entity.
type Metric[T any] func(T) float64

// ByRequests ranks models by request volume.
func ByRequests(m model.ModelAggregate) float64 { return float64(m.Requests) }

// ByCost ranks models by spend.
func ByCost(m model.ModelAggregate) float64 { return m.Cost }

// TopNEntries returns at most n entities sorted descending by metric.
// Ties are broken by key so the order is stable across map iterations.
func TopNEntries[T any](entries map[string]T, n int, metric Metric[T]) []model.Ranked[T] {
	if n <= 0 || len(entries) == 0 {
		return []model.Ranked[T]{}
	}

	keys := lo.Keys(entries)
	sort.Slice(keys, func(i, j int) bool {
		mi, mj := metric(entries[keys[i]]), metric(entries[keys[j]])
		if mi != mj {
			return mi > mj
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}

	ranked := make([]model.Ranked[T], 0, n)
	for i, k := range keys {
		ranked = append(ranked, model.Ranked[T]{Key: k, Value: entries[k], Slot: i + 1})
	}
	return ranked
}

// TopN is TopNEntries padded with placeholders to exactly n slots.
func TopN[T any](entries map[string]T, n int, metric Metric[T]) []model.Ranked[T] {
	return Pad(TopNEntries(entries, n, metric), n)
}

// Pad appends zero-valued placeholder slots until ranked has n entries.
func Pad[T any](ranked []model.Ranked[T], n int) []model.Ranked[T] {
	filler := 0
	for len(ranked) < n {
		filler++
		ranked = append(ranked, model.Ranked[T]{
			Placeholder: true,
			Slot:        len(ranked) + 1,
			Filler:      filler,
		})
	}
	return ranked
}

// Share returns part/total, or 0 when total is not positive.
func Share(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return part / total
}

// AllocateDaily estimates one entity's requests for a day from its share of
// the whole window.
//
// This is an approximation, not a conservation law: estimates for all
// entities on a day need not sum to dayRequests, and rounding error
// accumulates across entities.
func AllocateDaily(dayRequests int64, share float64) int64 {
	if share <= 0 || dayRequests <= 0 {
		return 0
	}
	return roundInt(float64(dayRequests) * share)
}

// roundInt rounds half up, matching how chart consumers round.
func roundInt(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int64(math.Floor(v + 0.5))
}

func clamp(v, floor, ceil float64) float64 {
	if v < floor {
		return floor
	}
	if v > ceil {
		return ceil
	}
	return v
}
