package forecast

import (
	"math"

	"github.com/sirupsen/logrus"
)

const (
	// defaultLambda is the L2 strength used for both price models.
	defaultLambda = 1.0
	// trainFraction is the leading share of rows used for fitting; the
	// trailing remainder is the chronological holdout.
	trainFraction = 0.8
	// minHoldoutRows is the minimum input size before a holdout split is
	// worth carving off.
	minHoldoutRows = 5
)

// Train fits a single regression model on a log-transformed target. Rows
// are split chronologically, never shuffled: the holdout must represent
// strictly later time than the training rows, otherwise future information
// leaks into evaluation. Empty input is an InsufficientDataError.
func Train(features [][]float64, target []float64) (*RidgeModel, error) {
	n := len(features)
	if n == 0 {
		return nil, NewInsufficientDataErrorf("no training rows after filtering")
	}

	split := n
	if n >= minHoldoutRows {
		split = int(float64(n) * trainFraction)
	}

	model, err := fitRidge(features[:split], target[:split], defaultLambda)
	if err != nil {
		return nil, err
	}

	if split < n {
		rmse := holdoutRMSE(model, features[split:], target[split:])
		logrus.WithFields(logrus.Fields{
			"train_rows":   split,
			"holdout_rows": n - split,
			"holdout_rmse": rmse,
		}).Info("Model trained")
	} else {
		logrus.WithField("train_rows", n).Info("Model trained without holdout")
	}
	return model, nil
}

// TrainPair fits the wholesale and retail models from one training set. The
// two calls share no state.
func TrainPair(ts *TrainingSet) (*ModelPair, error) {
	wholesale, err := Train(ts.Features, ts.LogWholesale)
	if err != nil {
		return nil, err
	}
	retail, err := Train(ts.Features, ts.LogRetail)
	if err != nil {
		return nil, err
	}
	return &ModelPair{Wholesale: wholesale, Retail: retail}, nil
}

func holdoutRMSE(model *RidgeModel, features [][]float64, target []float64) float64 {
	if len(features) == 0 {
		return 0
	}
	var sum float64
	for i, row := range features {
		pred, err := model.Predict(row)
		if err != nil {
			return math.NaN()
		}
		diff := pred - target[i]
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(features)))
}
