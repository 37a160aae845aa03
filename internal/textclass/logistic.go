package textclass

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// ErrTooFewClasses is returned when the training labels hold a single class.
var ErrTooFewClasses = errors.New("need at least two classes")

// LogisticRegression is an L2-regularized logistic regression fitted with
// L-BFGS. Two classes use a single sigmoid; more use a softmax over one
// weight vector per class. Intercepts are not penalized. Fitting starts from
// zero weights, so results are deterministic.
type LogisticRegression struct {
	weights  []float64 // nClasses x nFeatures, or nFeatures for the binary model
	bias     []float64
	C        float64
	Tol      float64
	MaxIter  int
	nClasses int
	nFeat    int
}

// NewLogisticRegression returns a model with the given inverse regularization
// strength and iteration cap.
func NewLogisticRegression(c float64, maxIter int) *LogisticRegression {
	if c <= 0 {
		c = 1.0
	}
	if maxIter <= 0 {
		maxIter = 100
	}
	return &LogisticRegression{C: c, MaxIter: maxIter, Tol: 1e-4}
}

// Fit trains on X with labels y in [0, nClasses).
func (lr *LogisticRegression) Fit(x *Matrix, y []int, nClasses int) error {
	if x.Len() == 0 {
		return errors.New("no training rows")
	}
	if x.Len() != len(y) {
		return fmt.Errorf("got %d rows and %d labels", x.Len(), len(y))
	}
	if nClasses < 2 {
		return ErrTooFewClasses
	}
	for i, label := range y {
		if label < 0 || label >= nClasses {
			return fmt.Errorf("label %d at row %d outside [0, %d)", label, i, nClasses)
		}
	}

	lr.nClasses = nClasses
	lr.nFeat = x.Cols

	outputs := nClasses
	if nClasses == 2 {
		outputs = 1
	}

	obj := &objective{x: x, y: y, outputs: outputs, nFeat: x.Cols, c: lr.C}
	problem := optimize.Problem{
		Func: func(params []float64) float64 {
			return obj.eval(params, nil)
		},
		Grad: func(grad, params []float64) {
			obj.eval(params, grad)
		},
	}
	settings := &optimize.Settings{
		GradientThreshold: lr.Tol,
		MajorIterations:   lr.MaxIter,
	}

	init := make([]float64, outputs*(x.Cols+1))
	result, err := optimize.Minimize(problem, init, settings, &optimize.LBFGS{Store: 10})
	if result == nil {
		return fmt.Errorf("optimizer failed: %w", err)
	}
	if err != nil {
		slog.Warn("Logistic regression did not converge cleanly",
			"status", result.Status.String(),
			"iterations", result.MajorIterations,
			"error", err)
	}

	params := result.X
	lr.weights = append([]float64(nil), params[:outputs*x.Cols]...)
	lr.bias = append([]float64(nil), params[outputs*x.Cols:]...)
	return nil
}

// PredictProba returns one probability vector per row, indexed by class.
func (lr *LogisticRegression) PredictProba(x *Matrix) ([][]float64, error) {
	if lr.weights == nil {
		return nil, errors.New("model is not fitted")
	}
	if x.Cols != lr.nFeat {
		return nil, fmt.Errorf("got %d features, model has %d", x.Cols, lr.nFeat)
	}

	out := make([][]float64, x.Len())
	for i, row := range x.Rows {
		p := make([]float64, lr.nClasses)
		if lr.nClasses == 2 {
			p1 := sigmoid(row.dot(lr.weights) + lr.bias[0])
			p[0], p[1] = 1-p1, p1
		} else {
			for k := 0; k < lr.nClasses; k++ {
				p[k] = row.dot(lr.weights[k*lr.nFeat:(k+1)*lr.nFeat]) + lr.bias[k]
			}
			softmax(p)
		}
		out[i] = p
	}
	return out, nil
}

// Predict returns the most probable class per row; ties go to the lower class.
func (lr *LogisticRegression) Predict(x *Matrix) ([]int, error) {
	proba, err := lr.PredictProba(x)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(proba))
	for i, p := range proba {
		out[i] = floats.MaxIdx(p)
	}
	return out, nil
}

// objective is the mean log-loss plus an L2 penalty of 1/(2*C*n) on the weights.
type objective struct {
	x       *Matrix
	y       []int
	outputs int
	nFeat   int
	c       float64
}

// eval returns the objective at params and, when grad is non-nil, fills it.
func (o *objective) eval(params, grad []float64) float64 {
	n := float64(o.x.Len())
	wLen := o.outputs * o.nFeat
	w, b := params[:wLen], params[wLen:]

	if grad != nil {
		for i := range grad {
			grad[i] = 0
		}
	}

	var loss float64
	z := make([]float64, o.outputs)
	for i, row := range o.x.Rows {
		if o.outputs == 1 {
			zi := row.dot(w) + b[0]
			yi := float64(o.y[i])
			loss += logOnePlusExp(zi) - yi*zi
			if grad != nil {
				d := (sigmoid(zi) - yi) / n
				row.addScaled(grad[:wLen], d)
				grad[wLen] += d
			}
			continue
		}

		for k := 0; k < o.outputs; k++ {
			z[k] = row.dot(w[k*o.nFeat:(k+1)*o.nFeat]) + b[k]
		}
		lse := logSumExp(z)
		loss += lse - z[o.y[i]]
		if grad != nil {
			for k := 0; k < o.outputs; k++ {
				d := math.Exp(z[k] - lse)
				if k == o.y[i] {
					d--
				}
				d /= n
				row.addScaled(grad[k*o.nFeat:(k+1)*o.nFeat], d)
				grad[wLen+k] += d
			}
		}
	}

	alpha := 1 / (o.c * n)
	penalty := 0.5 * alpha * floats.Dot(w, w)
	if grad != nil {
		floats.AddScaled(grad[:wLen], alpha, w)
	}
	return loss/n + penalty
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// logOnePlusExp computes log(1 + e^z) without overflow.
func logOnePlusExp(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

func logSumExp(z []float64) float64 {
	m := floats.Max(z)
	var s float64
	for _, v := range z {
		s += math.Exp(v - m)
	}
	return m + math.Log(s)
}

// softmax normalizes z in place.
func softmax(z []float64) {
	lse := logSumExp(z)
	for i := range z {
		z[i] = math.Exp(z[i] - lse)
	}
}
