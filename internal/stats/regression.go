package stats

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// singularDeterminant is the collinearity guard for the 2x2 covariance system.
const singularDeterminant = 1e-6

// downweightedThreshold counts a row as downweighted below this weight.
const downweightedThreshold = 0.999

// WeightFunc maps a day to its fit-time weight. Rows with weight <= 0 are dropped.
type WeightFunc func(Day) float64

// Residual is one row's contribution to a fitted model.
type Residual struct {
	ISO              string  `json:"iso"`
	Parcels          float64 `json:"parcels"`
	Letters          float64 `json:"letters"`
	RouteMinutes     float64 `json:"routeMinutes"`
	PredictedMinutes float64 `json:"predictedMinutes"`
	ResidualMinutes  float64 `json:"residualMinutes"`
	Weight           float64 `json:"weight"`
}

// WeightingSummary describes the weights used in a fit.
type WeightingSummary struct {
	Enabled           bool    `json:"enabled"`
	SumWeights        float64 `json:"sumWeights"`
	AverageWeight     float64 `json:"averageWeight"`
	DownweightedCount int     `json:"downweightedCount"`
}

// RegressionModel is a weighted fit of route minutes ~ a + bp*parcels + bl*letters.
type RegressionModel struct {
	A         float64          `json:"a"`
	BP        float64          `json:"bp"`
	BL        float64          `json:"bl"`
	R2        float64          `json:"r2"`
	N         int              `json:"n"`
	Residuals []Residual       `json:"residuals"`
	Weighting WeightingSummary `json:"weighting"`
}

// Predict returns modeled route minutes for a volume.
func (m RegressionModel) Predict(parcels, letters float64) float64 {
	return m.A + m.BP*parcels + m.BL*letters
}

// DisplayR2 clamps R² to [0, 1].
func (m RegressionModel) DisplayR2() float64 {
	return Clamp(m.R2, 0, 1)
}

type sample struct {
	iso     string
	p, l, y float64
	w       float64
}

// FitRegression solves the weighted normal equations for the two-predictor
// model. It returns nil when there is no usable data or when parcels and
// letters are collinear across the sample. Days without a route duration are
// skipped. A nil weight function weights every day 1.
func FitRegression(days []Day, weight WeightFunc) *RegressionModel {
	// 1. Collect weighted samples
	samples := make([]sample, 0, len(days))
	for _, d := range days {
		y, ok := d.RouteMinutes()
		if !ok {
			continue
		}
		w := 1.0
		if weight != nil {
			w = weight(d)
		}
		if !(w > 0) {
			continue
		}
		samples = append(samples, sample{
			iso: d.Date,
			p:   float64(d.Parcels),
			l:   float64(d.Letters),
			y:   y,
			w:   w,
		})
	}

	// 2. Require mass
	sw := 0.0
	for _, s := range samples {
		sw += s.w
	}
	if len(samples) == 0 || sw == 0 {
		return nil
	}

	// 3. Weighted means and centered sums
	ps := make([]float64, len(samples))
	ls := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	ws := make([]float64, len(samples))
	for i, s := range samples {
		ps[i], ls[i], ys[i], ws[i] = s.p, s.l, s.y, s.w
	}
	mp := stat.Mean(ps, ws)
	ml := stat.Mean(ls, ws)
	my := stat.Mean(ys, ws)

	var cpp, cll, cpl, cpy, cly, sst float64
	for _, s := range samples {
		dp, dl, dy := s.p-mp, s.l-ml, s.y-my
		cpp += s.w * dp * dp
		cll += s.w * dl * dl
		cpl += s.w * dp * dl
		cpy += s.w * dp * dy
		cly += s.w * dl * dy
		sst += s.w * dy * dy
	}

	// 4. Collinearity guard
	cov := mat.NewSymDense(2, []float64{cpp, cpl, cpl, cll})
	if math.Abs(mat.Det(cov)) < singularDeterminant {
		return nil
	}

	// 5. Solve
	var beta mat.VecDense
	if err := beta.SolveVec(cov, mat.NewVecDense(2, []float64{cpy, cly})); err != nil {
		return nil
	}
	model := &RegressionModel{N: len(samples)}
	model.BP = beta.AtVec(0)
	model.BL = beta.AtVec(1)
	model.A = my - model.BP*mp - model.BL*ml

	// 6. Residuals and goodness of fit
	model.Residuals = make([]Residual, 0, len(samples))
	ssr := 0.0
	downweighted := 0
	for _, s := range samples {
		pred := model.Predict(s.p, s.l)
		res := s.y - pred
		ssr += s.w * res * res
		if s.w < downweightedThreshold {
			downweighted++
		}
		model.Residuals = append(model.Residuals, Residual{
			ISO:              s.iso,
			Parcels:          s.p,
			Letters:          s.l,
			RouteMinutes:     s.y,
			PredictedMinutes: pred,
			ResidualMinutes:  res,
			Weight:           s.w,
		})
	}
	if sst > 0 {
		model.R2 = 1 - ssr/sst
	}

	model.Weighting = WeightingSummary{
		Enabled:           weight != nil,
		SumWeights:        sw,
		AverageWeight:     sw / float64(len(samples)),
		DownweightedCount: downweighted,
	}

	return model
}
