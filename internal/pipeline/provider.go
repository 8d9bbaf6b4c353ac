package pipeline

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/theirongolddev/gwlens/internal/model"
)

// UnknownProvider groups models whose identifier yields an empty provider.
const UnknownProvider = "unknown"

const (
	latencyPenalty = 0.1
	errorPenalty   = 0.5
)

// ProviderKey derives a provider from a model identifier: the text before
// the first '-', else before the first ':', else the whole identifier.
//
//	"openai-gpt-4o" -> "openai"
//	"together:qwen" -> "together"
//	"free"          -> "free"
func ProviderKey(modelID string) string {
	p := modelID
	if i := strings.IndexByte(modelID, '-'); i >= 0 {
		p = modelID[:i]
	} else if i := strings.IndexByte(modelID, ':'); i >= 0 {
		p = modelID[:i]
	}
	if p == "" {
		return UnknownProvider
	}
	return p
}

// SanitizeKey replaces every character outside [A-Za-z0-9] with '_' so the
// result can be used as a chart data key.
func SanitizeKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// seriesKeys sanitizes names into chart keys. Names that collide after
// sanitizing get a numeric suffix so no series overwrites another.
func seriesKeys(names []string) []model.SeriesKey {
	seen := make(map[string]int, len(names))
	keys := make([]model.SeriesKey, 0, len(names))
	for _, name := range names {
		key := SanitizeKey(name)
		seen[key]++
		if n := seen[key]; n > 1 {
			key += "_" + strconv.Itoa(n)
		}
		keys = append(keys, model.SeriesKey{Name: name, Key: key})
	}
	return keys
}

// ProviderRollups groups the model breakdown by ProviderKey.
//
// Error counts are estimated per model from the gateway-wide error rate, since
// the snapshot has no per-model errors. Latency is request-weighted. The
// performance score is 100 - (avgLatency*0.1 + errorRate*0.5), rounded and
// clamped to [0, 100]. Results are ordered by requests, then provider name.
func ProviderRollups(snap *model.AnalyticsSnapshot) []model.ProviderRollup {
	if !snap.HasBreakdown() {
		return []model.ProviderRollup{}
	}

	modelIDs := make([]string, 0, len(snap.ModelBreakdown))
	for id := range snap.ModelBreakdown {
		modelIDs = append(modelIDs, id)
	}
	sort.Strings(modelIDs)

	overallErrorRate := snap.Summary.ErrorRate / 100
	groups := make(map[string]*model.ProviderRollup)
	for _, id := range modelIDs {
		m := snap.ModelBreakdown[id]
		provider := ProviderKey(id)
		g, ok := groups[provider]
		if !ok {
			g = &model.ProviderRollup{Provider: provider}
			groups[provider] = g
		}
		g.Models = append(g.Models, id)
		g.Requests += m.Requests
		g.LatencySum += m.AvgLatency * float64(m.Requests)
		g.ErrorCount += roundInt(float64(m.Requests) * overallErrorRate)
	}

	rollups := make([]model.ProviderRollup, 0, len(groups))
	for _, g := range groups {
		if g.Requests > 0 {
			g.AvgLatency = g.LatencySum / float64(g.Requests)
			g.ErrorRatePercent = float64(g.ErrorCount) / float64(g.Requests) * 100
		}
		score := 100 - (g.AvgLatency*latencyPenalty + g.ErrorRatePercent*errorPenalty)
		g.PerformanceScore = int(clamp(float64(roundInt(score)), 0, 100))
		rollups = append(rollups, *g)
	}
	sort.Slice(rollups, func(i, j int) bool {
		if rollups[i].Requests != rollups[j].Requests {
			return rollups[i].Requests > rollups[j].Requests
		}
		return rollups[i].Provider < rollups[j].Provider
	})

	keys := seriesKeys(providerNames(rollups))
	for i := range rollups {
		rollups[i].Key = keys[i].Key
	}
	return rollups
}

// ProviderSeries returns chart series descriptors for the first n rollups,
// which ProviderRollups orders by requests. Names are capitalized for display;
// keys match ProviderRollup.Key.
func ProviderSeries(rollups []model.ProviderRollup, n int) []model.SeriesKey {
	keys := make([]model.SeriesKey, 0, min(len(rollups), max(n, 0)))
	for _, r := range rollups {
		if len(keys) == n {
			break
		}
		keys = append(keys, model.SeriesKey{Name: capitalize(r.Provider), Key: r.Key})
	}
	return keys
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func providerNames(rollups []model.ProviderRollup) []string {
	names := make([]string, len(rollups))
	for i, r := range rollups {
		names[i] = r.Provider
	}
	return names
}
