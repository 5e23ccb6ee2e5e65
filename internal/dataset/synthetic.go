// Package dataset produces the synthetic training set the yield models are
// fitted on. The parametric formula encodes agronomic priors (moisture and
// organic matter raise yield, pH deviation from 6.5 lowers it, rainfall has a
// mild linear effect) and is the only ground truth available until real
// measurements are ingested. Models trained on it should not be assumed to
// be accurate beyond that relationship.
package dataset

import (
	"math"
	"math/rand/v2"

	"agri-yield/internal/features"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	DefaultSamples = 1000
	DefaultSeed    = 42

	// MinYield is the floor applied to every generated target.
	MinYield = 0.1

	noiseSigma = 0.3
)

// baseYield holds tons per hectare indexed by crop code.
var baseYield = []float64{3.0, 4.0, 5.0, 2.5}

// Generate draws n labeled samples. Two calls with the same n and seed return
// identical data. n <= 0 falls back to DefaultSamples.
//
// Each column is drawn in full before the next, so adding samples never
// perturbs the draws of an earlier column.
func Generate(n int, seed uint64) (*mat.Dense, []float64) {
	if n <= 0 {
		n = DefaultSamples
	}

	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	rng := rand.New(src)

	crops := make([]float64, n)
	for i := range crops {
		crops[i] = float64(rng.IntN(len(baseYield)))
	}
	area := draw(n, distuv.Uniform{Min: 0.1, Max: 5.0, Src: src})
	ph := draw(n, distuv.Normal{Mu: 6.5, Sigma: 0.8, Src: src})
	moisture := draw(n, distuv.Uniform{Min: 10, Max: 40, Src: src})
	organic := draw(n, distuv.Uniform{Min: 0.5, Max: 4.0, Src: src})
	temp := draw(n, distuv.Normal{Mu: 25, Sigma: 3, Src: src})
	rainfall := draw(n, distuv.Uniform{Min: 0, Max: 200, Src: src})
	noise := draw(n, distuv.Normal{Mu: 0, Sigma: noiseSigma, Src: src})

	X := mat.NewDense(n, features.NumFeatures, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		X.Set(i, features.ColArea, area[i])
		X.Set(i, features.ColSoilPH, ph[i])
		X.Set(i, features.ColSoilMoisture, moisture[i])
		X.Set(i, features.ColOrganicMatter, organic[i])
		X.Set(i, features.ColAvgTemp, temp[i])
		X.Set(i, features.ColRainfall, rainfall[i])
		X.Set(i, features.ColCropCode, crops[i])

		y[i] = math.Max(MinYield, Yield(int(crops[i]), moisture[i], ph[i], organic[i], rainfall[i])+noise[i])
	}
	return X, y
}

// Yield is the noise-free synthetic yield for one sample.
func Yield(cropCode int, moisture, ph, organic, rainfall float64) float64 {
	return baseYield[cropCode] *
		(moisture / 30) *
		(1 - math.Abs(ph-6.5)/10) *
		(1 + organic/10) *
		(1 + (rainfall-50)/300)
}

type sampler interface {
	Rand() float64
}

func draw(n int, s sampler) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = s.Rand()
	}
	return out
}
