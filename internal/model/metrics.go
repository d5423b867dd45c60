package model

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// ClassMetrics is the precision/recall breakdown for one class.
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`
	Support   int     `json:"support"`
}

// Confusion counts predictions as [actual][predicted], i.e. [[tn fp] [fn tp]].
type Confusion [2][2]int

// Metrics summarizes held-out performance of one candidate.
type Metrics struct {
	Accuracy  float64         `json:"accuracy"`
	Classes   [2]ClassMetrics `json:"classes"`
	Confusion Confusion       `json:"confusion_matrix"`
}

// CVResult is the outcome of k-fold cross-validation.
type CVResult struct {
	Scores []float64 `json:"scores"`
	Mean   float64   `json:"mean"`
	Std    float64   `json:"std"`
}

// LabelName maps a class index to its name.
func LabelName(y int) string {
	if y == Malicious {
		return "malicious"
	}
	return "benign"
}

// Evaluate compares predictions against ground truth.
func Evaluate(truth, pred []int) Metrics {
	var m Metrics
	if len(truth) == 0 || len(truth) != len(pred) {
		return m
	}
	correct := 0
	for i := range truth {
		m.Confusion[truth[i]][pred[i]]++
		if truth[i] == pred[i] {
			correct++
		}
	}
	m.Accuracy = float64(correct) / float64(len(truth))

	for c := 0; c < 2; c++ {
		tp := m.Confusion[c][c]
		predicted := m.Confusion[0][c] + m.Confusion[1][c]
		actual := m.Confusion[c][0] + m.Confusion[c][1]
		cm := ClassMetrics{Label: LabelName(c), Support: actual}
		if predicted > 0 {
			cm.Precision = float64(tp) / float64(predicted)
		}
		if actual > 0 {
			cm.Recall = float64(tp) / float64(actual)
		}
		if cm.Precision+cm.Recall > 0 {
			cm.F1 = 2 * cm.Precision * cm.Recall / (cm.Precision + cm.Recall)
		}
		m.Classes[c] = cm
	}
	return m
}

func summarizeCV(scores []float64) CVResult {
	r := CVResult{Scores: scores}
	if len(scores) > 0 {
		r.Mean, r.Std = stat.PopMeanStdDev(scores, nil)
	}
	return r
}

// Report renders a classification report table.
func (m Metrics) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %9s %9s %9s %9s\n", "", "precision", "recall", "f1-score", "support")
	for _, c := range m.Classes {
		fmt.Fprintf(&b, "%-12s %9.2f %9.2f %9.2f %9d\n", c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
	fmt.Fprintf(&b, "%-12s %9s %9s %9.2f %9d\n", "accuracy", "", "", m.Accuracy, m.Classes[0].Support+m.Classes[1].Support)
	fmt.Fprintf(&b, "confusion: tn=%d fp=%d fn=%d tp=%d\n",
		m.Confusion[0][0], m.Confusion[0][1], m.Confusion[1][0], m.Confusion[1][1])
	return b.String()
}
