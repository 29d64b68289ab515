// Package impact derives the simplified impact-risk metrics for a single
// close approach. Everything here is pure and deterministic.
package impact

import (
	"fmt"
	"math"
	"strings"
)

const (
	// BulkDensityKgM3 is the assumed density of every body.
	BulkDensityKgM3 = 3000.0

	// JoulesPerMegaton is the divisor used to express kinetic energy in
	// megatons. The TNT-equivalent value is 4.184e15; 1e15 is what the
	// historical data set was computed with and is kept for comparability.
	JoulesPerMegaton = 1e15

	// EarthRadiusKm is the mean Earth radius.
	EarthRadiusKm = 6371.0
	// KmPerAU is the IAU astronomical unit in kilometres.
	KmPerAU = 149597870.7
)

// Category is a coarse severity bucket derived from kinetic energy.
type Category string

const (
	CategoryMinimal      Category = "Minimal"
	CategorySmall        Category = "Small"
	CategoryModerate     Category = "Moderate"
	CategoryLarge        Category = "Large"
	CategoryMajor        Category = "Major"
	CategoryCatastrophic Category = "Catastrophic"
)

// Categories lists every category from least to most severe.
var Categories = []Category{
	CategoryMinimal,
	CategorySmall,
	CategoryModerate,
	CategoryLarge,
	CategoryMajor,
	CategoryCatastrophic,
}

// Severity returns the position of c in Categories, or -1 if unknown.
func (c Category) Severity() int {
	for i, known := range Categories {
		if known == c {
			return i
		}
	}
	return -1
}

// ThreatLevel is the ordered risk label of one approach: low < medium < high.
type ThreatLevel string

const (
	ThreatLow    ThreatLevel = "low"
	ThreatMedium ThreatLevel = "medium"
	ThreatHigh   ThreatLevel = "high"
)

// ThreatLevels lists every level from lowest to highest.
var ThreatLevels = []ThreatLevel{ThreatLow, ThreatMedium, ThreatHigh}

// Rank orders threat levels: low=0, medium=1, high=2. Unknown values rank -1.
func (t ThreatLevel) Rank() int {
	switch t {
	case ThreatLow:
		return 0
	case ThreatMedium:
		return 1
	case ThreatHigh:
		return 2
	default:
		return -1
	}
}

// AtLeast returns the levels whose rank is >= t.
func (t ThreatLevel) AtLeast() []ThreatLevel {
	var out []ThreatLevel
	for _, l := range ThreatLevels {
		if l.Rank() >= t.Rank() {
			out = append(out, l)
		}
	}
	return out
}

// ParseThreatLevel accepts "low", "medium" or "high" in any case.
func ParseThreatLevel(s string) (ThreatLevel, error) {
	t := ThreatLevel(strings.ToLower(strings.TrimSpace(s)))
	if t.Rank() < 0 {
		return "", fmt.Errorf("unknown threat level %q", s)
	}
	return t, nil
}

// KineticEnergyMegatons treats the body as a sphere of BulkDensityKgM3 and
// returns ½·m·v² in megatons. Non-positive or non-finite inputs yield 0.
func KineticEnergyMegatons(diameterKm, velocityKmS float64) float64 {
	if !positive(diameterKm) || !positive(velocityKmS) {
		return 0
	}
	radiusM := diameterKm * 1000 / 2
	mass := 4.0 / 3.0 * math.Pi * math.Pow(radiusM, 3) * BulkDensityKgM3
	v := velocityKmS * 1000
	return 0.5 * mass * v * v / JoulesPerMegaton
}

// CategoryFor buckets an energy value. Each boundary belongs to the higher
// bucket: 0.001 is Small, 0.01 is Moderate and so on.
func CategoryFor(energyMt float64) Category {
	switch {
	case energyMt < 0.001:
		return CategoryMinimal
	case energyMt < 0.01:
		return CategorySmall
	case energyMt < 0.1:
		return CategoryModerate
	case energyMt < 1:
		return CategoryLarge
	case energyMt < 10:
		return CategoryMajor
	default:
		return CategoryCatastrophic
	}
}

// Threat derives the threat level. A non-hazardous object is always low.
func Threat(isHazardous bool, missDistanceAU, diameterKm float64) ThreatLevel {
	if !isHazardous {
		return ThreatLow
	}
	if missDistanceAU < 0.05 && diameterKm > 140 {
		return ThreatHigh
	}
	if missDistanceAU < 0.1 && diameterKm > 100 {
		return ThreatMedium
	}
	return ThreatLow
}

// ImpactProbability is the crude cross-section ratio
//
//	min(1, π(R_earth + d·1000)² / (π·miss²))
//
// NOTE: the diameter term is scaled by 1000 while R_earth and miss are in
// km, so the units do not agree. The formula is reproduced as-is; do not
// "fix" it without revisiting every stored assessment.
//
// A non-positive miss distance is treated as a certain intersection.
func ImpactProbability(missDistanceKm, diameterKm float64) float64 {
	if math.IsNaN(missDistanceKm) || missDistanceKm <= 0 {
		return 1
	}
	if !positive(diameterKm) {
		diameterKm = 0
	}
	crossSection := math.Pi * math.Pow(EarthRadiusKm+diameterKm*1000, 2)
	missArea := math.Pi * math.Pow(missDistanceKm, 2)
	return math.Min(crossSection/missArea, 1)
}

// KmToAU converts kilometres to astronomical units.
func KmToAU(km float64) float64 {
	return km / KmPerAU
}

// Input is the per-approach data needed to assess one approach.
type Input struct {
	IsHazardous    bool
	DiameterKm     float64
	VelocityKmS    float64
	MissDistanceKm float64
}

// Result holds every derived metric for one approach.
type Result struct {
	KineticEnergyMegatons float64
	Category              Category
	ThreatLevel           ThreatLevel
	ImpactProbability     float64
}

// Assess applies all four metrics to one approach.
func Assess(in Input) Result {
	energy := KineticEnergyMegatons(in.DiameterKm, in.VelocityKmS)
	return Result{
		KineticEnergyMegatons: energy,
		Category:              CategoryFor(energy),
		ThreatLevel:           Threat(in.IsHazardous, KmToAU(in.MissDistanceKm), in.DiameterKm),
		ImpactProbability:     ImpactProbability(in.MissDistanceKm, in.DiameterKm),
	}
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
