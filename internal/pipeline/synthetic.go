package pipeline

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/theirongolddev/gwlens/internal/model"
)

// ProviderSlots are the time-of-day labels of the provider performance chart.
var ProviderSlots = []string{"00:00", "04:00", "08:00", "12:00", "16:00", "20:00"}

const (
	usageWindowDays = 7
	jitterSpan      = 5.0
)

// Jitter supplies the noise added to provider performance scores.
type Jitter interface {
	// Offset returns a value in [-5, 5].
	Offset() float64
}

// NoJitter adds no noise.
type NoJitter struct{}

// Offset implements Jitter.
func (NoJitter) Offset() float64 { return 0 }

// SeededJitter draws uniform noise from a seeded PCG source. It is not safe
// for concurrent use.
type SeededJitter struct {
	rng *rand.Rand
}

// NewSeededJitter returns a reproducible Jitter for seed.
func NewSeededJitter(seed uint64) *SeededJitter {
	return &SeededJitter{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Offset implements Jitter.
func (j *SeededJitter) Offset() float64 {
	return j.rng.Float64()*2*jitterSpan - jitterSpan
}

// UsagePattern spreads the recent average daily volume over 24 hours with a
// fixed diurnal shape. The output is synthetic: the snapshot has no hourly data.
//
// Hours 0-5 get 3% of a day; 6-11 ramp from 5% by 3 points per hour; 12-17
// follow 14% plus a 4-point sine bump; 18-23 fall from 12% by 2 points per hour.
func UsagePattern(points []model.DayPoint) []model.HourlyPoint {
	if len(points) == 0 {
		return []model.HourlyPoint{}
	}
	recent := points
	if len(recent) > usageWindowDays {
		recent = recent[len(recent)-usageWindowDays:]
	}
	var sum int64
	for _, p := range recent {
		sum += p.Requests
	}
	avgDaily := roundInt(float64(sum) / float64(len(recent)))
	if avgDaily <= 0 {
		return []model.HourlyPoint{}
	}

	hours := make([]model.HourlyPoint, 24)
	for h := range hours {
		hours[h] = model.HourlyPoint{
			Hour:      h,
			Label:     fmt.Sprintf("%02d:00", h),
			Requests:  max(0, roundInt(float64(avgDaily)*hourlyFraction(h))),
			Synthetic: true,
		}
	}
	return hours
}

func hourlyFraction(hour int) float64 {
	h := float64(hour)
	switch {
	case hour < 6:
		return 0.03
	case hour < 12:
		return 0.05 + (h-6)*0.03
	case hour < 18:
		return 0.14 + math.Sin((h-12)*math.Pi/6)*0.04
	default:
		return 0.12 - (h-18)*0.02
	}
}

// ProviderPerformance replicates each provider's score across ProviderSlots,
// adding independent noise from j to every cell and clamping to [0, 100].
// The time axis is synthetic; no per-slot measurements exist.
func ProviderPerformance(rollups []model.ProviderRollup, j Jitter) []model.ProviderPerformancePoint {
	if len(rollups) == 0 {
		return []model.ProviderPerformancePoint{}
	}
	if j == nil {
		j = NoJitter{}
	}
	out := make([]model.ProviderPerformancePoint, 0, len(ProviderSlots))
	for _, slot := range ProviderSlots {
		scores := make(map[string]float64, len(rollups))
		for _, r := range rollups {
			scores[r.Key] = clamp(float64(r.PerformanceScore)+j.Offset(), 0, 100)
		}
		out = append(out, model.ProviderPerformancePoint{Time: slot, Scores: scores})
	}
	return out
}
