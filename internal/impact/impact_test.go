package impact

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKineticEnergyMegatons_ZeroInputs(t *testing.T) {
	for _, v := range []float64{0, 0.5, 12, 70} {
		assert.Zero(t, KineticEnergyMegatons(0, v), "diameter 0, velocity %v", v)
	}
	for _, d := range []float64{0, 0.01, 0.2, 5} {
		assert.Zero(t, KineticEnergyMegatons(d, 0), "diameter %v, velocity 0", d)
	}
}

func TestKineticEnergyMegatons_InvalidInputs(t *testing.T) {
	assert.Zero(t, KineticEnergyMegatons(-1, 10))
	assert.Zero(t, KineticEnergyMegatons(1, -10))
	assert.Zero(t, KineticEnergyMegatons(math.NaN(), 10))
	assert.Zero(t, KineticEnergyMegatons(1, math.Inf(1)))
}

func TestKineticEnergyMegatons_KnownValues(t *testing.T) {
	// 1 km at 1 km/s: m = 4/3·π·500³·3000 = 5e11·π kg, E = ½·m·1e6 / 1e15
	assert.InDelta(t, 250*math.Pi, KineticEnergyMegatons(1, 1), 1e-9)

	// 0.2 km at 20 km/s: m = 4π·1e9 kg, E = ½·m·4e8 / 1e15
	assert.InDelta(t, 2513.2741228, KineticEnergyMegatons(0.2, 20), 1e-6)
}

func TestKineticEnergyMegatons_UsesApproximateDivisor(t *testing.T) {
	// Dividing by 4.184e15 would give a value 4.184x smaller.
	e := KineticEnergyMegatons(1, 1)
	assert.InDelta(t, 0.5*(5e11*math.Pi)*1e6/1e15, e, 1e-9)
	assert.NotEqual(t, 0.5*(5e11*math.Pi)*1e6/4.184e15, e)
}

func TestCategoryFor_Boundaries(t *testing.T) {
	tests := []struct {
		energy float64
		want   Category
	}{
		{0, CategoryMinimal},
		{0.0009999, CategoryMinimal},
		{0.001, CategorySmall},
		{0.0099999, CategorySmall},
		{0.01, CategoryModerate},
		{0.0999999, CategoryModerate},
		{0.1, CategoryLarge},
		{0.9999999, CategoryLarge},
		{1, CategoryMajor},
		{9.9999999, CategoryMajor},
		{10, CategoryCatastrophic},
		{1e9, CategoryCatastrophic},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CategoryFor(tt.energy), "energy %v", tt.energy)
	}
}

func TestCategoryFor_Monotonic(t *testing.T) {
	prev := -1
	for e := 1e-7; e < 1e6; e *= 1.37 {
		sev := CategoryFor(e).Severity()
		require.GreaterOrEqual(t, sev, prev, "severity dropped at energy %v", e)
		prev = sev
	}
	assert.Equal(t, CategoryCatastrophic.Severity(), prev)
}

func TestThreat_NonHazardousAlwaysLow(t *testing.T) {
	for _, au := range []float64{0, 0.001, 0.04, 0.08, 0.5, 10} {
		for _, d := range []float64{0, 50, 120, 150, 10000} {
			assert.Equal(t, ThreatLow, Threat(false, au, d), "au=%v d=%v", au, d)
		}
	}
}

func TestThreat_Hazardous(t *testing.T) {
	assert.Equal(t, ThreatHigh, Threat(true, 0.04, 150))
	assert.Equal(t, ThreatMedium, Threat(true, 0.08, 120))
	assert.Equal(t, ThreatLow, Threat(true, 0.2, 50))

	// high is checked first: a close, large body is never reported as medium.
	assert.Equal(t, ThreatHigh, Threat(true, 0.01, 500))
	// close but only medium-sized
	assert.Equal(t, ThreatMedium, Threat(true, 0.04, 120))
	// boundaries are exclusive
	assert.Equal(t, ThreatMedium, Threat(true, 0.05, 150))
	assert.Equal(t, ThreatLow, Threat(true, 0.1, 150))
	assert.Equal(t, ThreatLow, Threat(true, 0.04, 100))
}

func TestImpactProbability_Bounded(t *testing.T) {
	for _, miss := range []float64{1, 100, 6371, 1e4, 1e6, 5e7, 1e9} {
		for _, d := range []float64{0, 0.001, 0.2, 1, 10} {
			p := ImpactProbability(miss, d)
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 1.0)
		}
	}
}

func TestImpactProbability_MonotonicInMissDistance(t *testing.T) {
	for _, d := range []float64{0.01, 0.2, 3} {
		prev := math.Inf(1)
		for miss := 10.0; miss < 1e10; miss *= 1.5 {
			p := ImpactProbability(miss, d)
			require.LessOrEqual(t, p, prev, "d=%v miss=%v", d, miss)
			prev = p
		}
	}
}

func TestImpactProbability_KeepsDiameterScaling(t *testing.T) {
	// The diameter is multiplied by 1000 before being added to the Earth
	// radius in km. With d = 0.2 the cross-section radius is 6571, not 6371.2.
	got := ImpactProbability(5e7, 0.2)
	assert.InDelta(t, 6571.0*6571.0/(5e7*5e7), got, 1e-15)
}

func TestImpactProbability_DegenerateMissDistance(t *testing.T) {
	assert.Equal(t, 1.0, ImpactProbability(0, 0.2))
	assert.Equal(t, 1.0, ImpactProbability(-5, 0.2))
}

func TestAssess_EndToEndExample(t *testing.T) {
	// diameter 0.1..0.3 km -> avg 0.2 km, 20 km/s, 50,000,000 km, hazardous
	res := Assess(Input{IsHazardous: true, DiameterKm: 0.2, VelocityKmS: 20, MissDistanceKm: 5e7})

	assert.InDelta(t, 2513.2741228, res.KineticEnergyMegatons, 1e-6)
	assert.Equal(t, CategoryCatastrophic, res.Category)
	assert.InDelta(t, 0.3342, KmToAU(5e7), 1e-4)
	assert.Equal(t, ThreatLow, res.ThreatLevel)
	assert.InDelta(t, 1.72712e-8, res.ImpactProbability, 1e-12)
}

func TestParseThreatLevel(t *testing.T) {
	lvl, err := ParseThreatLevel(" HIGH ")
	require.NoError(t, err)
	assert.Equal(t, ThreatHigh, lvl)

	_, err = ParseThreatLevel("severe")
	require.Error(t, err)
}

func TestThreatLevel_AtLeast(t *testing.T) {
	assert.Equal(t, []ThreatLevel{ThreatLow, ThreatMedium, ThreatHigh}, ThreatLow.AtLeast())
	assert.Equal(t, []ThreatLevel{ThreatMedium, ThreatHigh}, ThreatMedium.AtLeast())
	assert.Equal(t, []ThreatLevel{ThreatHigh}, ThreatHigh.AtLeast())
}
