// Package predict fits a binary L2-regularised logistic regression on tweet
// embeddings and scores new texts with it.
//
// The objective is
//
//	0.5*||w||^2 + C * sum_i log(1 + exp(-s_i*(w.x_i + b)))
//
// with s_i in {-1, +1}. The intercept b is not penalised. It is minimised with
// L-BFGS starting from zero weights, so identical data always gives the same model.
package predict

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/patric-chuzhbe/twitoff/internal/models"
	"github.com/patric-chuzhbe/twitoff/internal/vector"
)

// LogisticRegression holds the fitting parameters.
type LogisticRegression struct {
	// C is the inverse regularisation strength.
	C float64

	// MaxIterations bounds the L-BFGS major iterations.
	MaxIterations int
}

// Model is a fitted classifier.
type Model struct {
	Weights   []float64
	Intercept float64
}

// NewLogisticRegression returns a regression with C = 1.
func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{
		C:             1,
		MaxIterations: 1000,
	}
}

// Fit trains on the rows of x with labels y (0 or 1).
func (lr *LogisticRegression) Fit(x [][]float64, y []float64) (*Model, error) {
	if len(x) == 0 {
		return nil, models.ErrNoTweets
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("%d samples but %d labels", len(x), len(y))
	}
	dimension := len(x[0])
	for _, row := range x {
		if len(row) != dimension {
			return nil, models.ErrDimensionMismatch
		}
	}

	problem := optimize.Problem{
		Func: func(params []float64) float64 {
			weights, intercept := params[:dimension], params[dimension]
			loss := 0.5 * floats.Dot(weights, weights)
			for i, row := range x {
				z := floats.Dot(weights, row) + intercept
				loss += lr.C * (softplus(z) - y[i]*z)
			}
			return loss
		},
		Grad: func(grad, params []float64) {
			weights, intercept := params[:dimension], params[dimension]
			copy(grad[:dimension], weights)
			grad[dimension] = 0
			for i, row := range x {
				residual := lr.C * (sigmoid(floats.Dot(weights, row)+intercept) - y[i])
				floats.AddScaled(grad[:dimension], residual, row)
				grad[dimension] += residual
			}
		},
	}

	settings := &optimize.Settings{
		GradientThreshold: 1e-8,
		MajorIterations:   lr.MaxIterations,
	}

	result, err := optimize.Minimize(problem, make([]float64, dimension+1), settings, &optimize.LBFGS{})
	if result == nil {
		return nil, fmt.Errorf("fitting logistic regression: %w", err)
	}
	// A failed final line search still leaves the best location in result.X.
	params := result.X
	if floats.HasNaN(params) {
		return nil, fmt.Errorf("fitting logistic regression: diverged: %v", err)
	}

	return &Model{
		Weights:   append([]float64(nil), params[:dimension]...),
		Intercept: params[dimension],
	}, nil
}

// PredictProba returns P(label = 1 | x).
func (m *Model) PredictProba(x []float64) (float64, error) {
	if len(x) != len(m.Weights) {
		return 0, models.ErrDimensionMismatch
	}

	return sigmoid(floats.Dot(m.Weights, x) + m.Intercept), nil
}

// Predictor scores a text embedding against the tweets of two users.
type Predictor struct {
	regression *LogisticRegression
}

// NewPredictor returns a predictor fitting with NewLogisticRegression.
func NewPredictor() *Predictor {
	return &Predictor{regression: NewLogisticRegression()}
}

// Predict fits a model labelling first as 0 and second as 1 and returns the
// probability that query belongs to second.
func (p *Predictor) Predict(first, second [][]float32, query []float32) (float64, error) {
	if len(first) == 0 || len(second) == 0 {
		return 0, models.ErrNoTweets
	}

	x := make([][]float64, 0, len(first)+len(second))
	y := make([]float64, 0, len(first)+len(second))
	for _, embedding := range first {
		x = append(x, vector.ToFloat64(embedding))
		y = append(y, 0)
	}
	for _, embedding := range second {
		x = append(x, vector.ToFloat64(embedding))
		y = append(y, 1)
	}

	model, err := p.regression.Fit(x, y)
	if err != nil {
		return 0, err
	}

	return model.PredictProba(vector.ToFloat64(query))
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus is log(1 + exp(z)) without overflow.
func softplus(z float64) float64 {
	return math.Max(z, 0) + math.Log1p(math.Exp(-math.Abs(z)))
}
