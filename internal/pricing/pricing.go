// Package pricing maps a requested media variant to an integer credit price.
// The tables encode business policy and are kept as named, overridable
// configuration rather than literals buried in code.
package pricing

import (
	"math"

	"github.com/cesargomez89/fetchpay/internal/domain"
)

// SizeStep prices size bands: the multiplier applies to sizes at or below
// MaxSizeMB. Steps must be ordered by ascending MaxSizeMB.
type SizeStep struct {
	MaxSizeMB  int64
	Multiplier float64
}

// Policy holds every tunable of the calculator.
type Policy struct {
	// ResolutionOrder ranks quality descriptors from worst to best. A
	// descriptor absent from this list counts as worse than nothing for
	// free-tier eligibility and is priced at the top tier.
	ResolutionOrder []string

	// BaseCost is the per-tier base price in credits.
	BaseCost map[string]int64

	// FreeMaxResolution and FreeMaxSizeMB bound the free tier: video at or
	// below both downloads for 0 credits.
	FreeMaxResolution string
	FreeMaxSizeMB     int64

	// SizeSteps scale the base price with file size; OversizeMultiplier
	// applies beyond the last step.
	SizeSteps          []SizeStep
	OversizeMultiplier float64

	// AudioStepMB prices audio independently: one credit per started step,
	// minimum one credit.
	AudioStepMB int64
}

// DefaultPolicy returns the documented default price tables.
func DefaultPolicy() Policy {
	return Policy{
		ResolutionOrder: []string{"144p", "240p", "360p", "480p", "720p", "1080p", "1440p", "4K", "8K"},
		BaseCost: map[string]int64{
			"480p":  1,
			"720p":  3,
			"1080p": 6,
			"1440p": 9,
			"4K":    12,
		},
		FreeMaxResolution: "720p",
		FreeMaxSizeMB:     100,
		SizeSteps: []SizeStep{
			{MaxSizeMB: 50, Multiplier: 1},
			{MaxSizeMB: 200, Multiplier: 1.5},
			{MaxSizeMB: 500, Multiplier: 2},
			{MaxSizeMB: 1024, Multiplier: 3},
			{MaxSizeMB: 2048, Multiplier: 4},
		},
		OversizeMultiplier: 5,
		AudioStepMB:        50,
	}
}

// Price returns the credit price for one variant. It is total and
// deterministic: malformed or unknown quality strings never panic, they are
// simply ineligible for the free tier and fall back to a table edge.
func (p Policy) Price(kind domain.VariantKind, quality string, sizeMB int64) int64 {
	if kind == domain.VariantAudio {
		return p.audioPrice(sizeMB)
	}
	return p.videoPrice(quality, sizeMB)
}

// PriceVariant is a convenience wrapper over Price.
func (p Policy) PriceVariant(v domain.Variant) int64 {
	return p.Price(v.Kind, v.Quality, v.SizeMB)
}

func (p Policy) audioPrice(sizeMB int64) int64 {
	if p.AudioStepMB <= 0 {
		return 1
	}
	cost := sizeMB/p.AudioStepMB + 1
	if cost < 1 {
		cost = 1
	}
	return cost
}

func (p Policy) videoPrice(quality string, sizeMB int64) int64 {
	if sizeMB <= p.FreeMaxSizeMB && p.resolutionLEQ(quality, p.FreeMaxResolution) {
		return 0
	}

	base, ok := p.BaseCost[quality]
	if !ok {
		// Unknown tiers: below the cheapest known tier pays its price,
		// everything else pays the top tier.
		if low, found := p.lowestPricedTier(); found && p.resolutionLEQ(quality, low) {
			base = p.BaseCost[low]
		} else {
			base = p.maxBaseCost()
		}
	}

	// Half-to-even keeps .5 products stable: 3 x 1.5 prices at 4, not 5.
	return int64(math.RoundToEven(float64(base) * p.sizeMultiplier(sizeMB)))
}

// resolutionLEQ reports whether r1 ranks at or below r2 in the ordinal
// quality list. Descriptors missing from the list compare false.
func (p Policy) resolutionLEQ(r1, r2 string) bool {
	i1 := p.resolutionIndex(r1)
	i2 := p.resolutionIndex(r2)
	if i1 < 0 || i2 < 0 {
		return false
	}
	return i1 <= i2
}

func (p Policy) resolutionIndex(r string) int {
	for i, known := range p.ResolutionOrder {
		if known == r {
			return i
		}
	}
	return -1
}

// lowestPricedTier returns the worst-ranked tier that has a base price.
func (p Policy) lowestPricedTier() (string, bool) {
	for _, tier := range p.ResolutionOrder {
		if _, ok := p.BaseCost[tier]; ok {
			return tier, true
		}
	}
	return "", false
}

func (p Policy) maxBaseCost() int64 {
	var max int64
	for _, cost := range p.BaseCost {
		if cost > max {
			max = cost
		}
	}
	return max
}

func (p Policy) sizeMultiplier(sizeMB int64) float64 {
	for _, step := range p.SizeSteps {
		if sizeMB <= step.MaxSizeMB {
			return step.Multiplier
		}
	}
	return p.OversizeMultiplier
}
