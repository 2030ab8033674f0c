package prediction

import (
	"fmt"
	"math"
	"sync"
)

// BoundingBox is an axis-aligned box in pixel coordinates.
type BoundingBox struct {
	XMin int `json:"xmin"`
	YMin int `json:"ymin"`
	XMax int `json:"xmax"`
	YMax int `json:"ymax"`
}

// Validate checks XMin <= XMax and YMin <= YMax.
func (b BoundingBox) Validate() error {
	if b.XMin > b.XMax || b.YMin > b.YMax {
		return fmt.Errorf("%w: bounding box (%d, %d, %d, %d)", ErrInvalidGeometry, b.XMin, b.YMin, b.XMax, b.YMax)
	}
	return nil
}

// Width is XMax - XMin.
func (b BoundingBox) Width() int { return b.XMax - b.XMin }

// Height is YMax - YMin.
func (b BoundingBox) Height() int { return b.YMax - b.YMin }

// Area is Width * Height.
func (b BoundingBox) Area() int { return b.Width() * b.Height() }

// Center returns the centroid of the box.
func (b BoundingBox) Center() (x, y float64) {
	return float64(b.XMin+b.XMax) / 2, float64(b.YMin+b.YMax) / 2
}

// IOU returns the intersection over union of b and o, 0 when both boxes are
// degenerate.
func (b BoundingBox) IOU(o BoundingBox) float64 {
	iw := min(b.XMax, o.XMax) - max(b.XMin, o.XMin)
	ih := min(b.YMax, o.YMax) - max(b.YMin, o.YMin)
	if iw <= 0 || ih <= 0 {
		return 0
	}
	inter := float64(iw) * float64(ih)
	union := float64(b.Area()) + float64(o.Area()) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Distance returns the euclidean distance between the centers of b and o.
func (b BoundingBox) Distance(o BoundingBox) float64 {
	bx, by := b.Center()
	ox, oy := o.Center()
	return math.Hypot(ox-bx, oy-by)
}

// ObjectDetectionPrediction is a single bounding box prediction.
type ObjectDetectionPrediction struct {
	ClassificationPrediction
	id   string
	bbox BoundingBox

	areaOnce sync.Once
	area     int
}

// ObjectDetectionParams are the raw fields of an object detection
// prediction.
type ObjectDetectionParams struct {
	ID          string
	Score       float64
	LabelName   string
	LabelIndex  int
	BoundingBox BoundingBox
}

// NewObjectDetectionPrediction validates p and returns the prediction.
func NewObjectDetectionPrediction(p ObjectDetectionParams) (*ObjectDetectionPrediction, error) {
	cls, err := NewClassificationPrediction(p.Score, p.LabelName, p.LabelIndex)
	if err != nil {
		return nil, err
	}
	if err := p.BoundingBox.Validate(); err != nil {
		return nil, err
	}
	return &ObjectDetectionPrediction{
		ClassificationPrediction: *cls,
		id:                       p.ID,
		bbox:                     p.BoundingBox,
	}, nil
}

// Kind returns KindObjectDetection.
func (p *ObjectDetectionPrediction) Kind() Kind { return KindObjectDetection }

// ID is the unique identifier assigned by the service.
func (p *ObjectDetectionPrediction) ID() string { return p.id }

// BoundingBox is the predicted box in pixel coordinates.
func (p *ObjectDetectionPrediction) BoundingBox() BoundingBox { return p.bbox }

// NumPredictedPixels is the area of the bounding box. It never fails.
func (p *ObjectDetectionPrediction) NumPredictedPixels() (int, error) {
	p.areaOnce.Do(func() {
		p.area = p.bbox.Area()
	})
	return p.area, nil
}
