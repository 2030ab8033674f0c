// Package prediction holds the value objects built from inference service
// responses and the analytics derived from them.
package prediction

import (
	"fmt"
	"math"
)

// Kind identifies the concrete type of a prediction.
type Kind string

// Prediction kinds, named after the service's response types.
const (
	KindClassification  Kind = "ClassificationPrediction"
	KindObjectDetection Kind = "ObjectDetectionPrediction"
	KindSegmentation    Kind = "SegmentationPrediction"
	KindOcr             Kind = "OcrPrediction"
)

// Prediction is implemented by every prediction kind.
type Prediction interface {
	// Score is the confidence of the prediction, in [0, 1].
	Score() float64
	Kind() Kind
}

// AreaPrediction is a prediction that covers a region of the image.
// Classification and OCR predictions are not area predictions.
type AreaPrediction interface {
	Prediction
	// NumPredictedPixels is the number of image pixels covered by the
	// prediction.
	NumPredictedPixels() (int, error)
}

// Labeled is implemented by predictions carrying a label.
type Labeled interface {
	LabelName() string
	LabelIndex() int
}

// ClassificationPrediction is a single image-level class prediction.
type ClassificationPrediction struct {
	score      float64
	labelName  string
	labelIndex int
}

// NewClassificationPrediction validates and returns a classification
// prediction. The label index is a stable identifier into the label book;
// it is not cross-checked against the name.
func NewClassificationPrediction(score float64, labelName string, labelIndex int) (*ClassificationPrediction, error) {
	if err := validateScore(score); err != nil {
		return nil, err
	}
	if labelIndex < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLabelIndex, labelIndex)
	}
	return &ClassificationPrediction{
		score:      score,
		labelName:  labelName,
		labelIndex: labelIndex,
	}, nil
}

// Score is the confidence in [0, 1].
func (p *ClassificationPrediction) Score() float64 { return p.score }

// Kind returns KindClassification.
func (p *ClassificationPrediction) Kind() Kind { return KindClassification }

// LabelName is the predicted class name.
func (p *ClassificationPrediction) LabelName() string { return p.labelName }

// LabelIndex is the predicted class index in the label book.
func (p *ClassificationPrediction) LabelIndex() int { return p.labelIndex }

func validateScore(score float64) error {
	if math.IsNaN(score) || score < 0 || score > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidScore, score)
	}
	return nil
}
