package prediction

import "image"

// OcrPrediction is a single piece of text found in an image.
type OcrPrediction struct {
	score    float64
	text     string
	location [4]image.Point
}

// NewOcrPrediction validates and returns an OCR prediction. location is the
// quadrilateral around the text.
func NewOcrPrediction(score float64, text string, location [4]image.Point) (*OcrPrediction, error) {
	if err := validateScore(score); err != nil {
		return nil, err
	}
	return &OcrPrediction{score: score, text: text, location: location}, nil
}

// Score is the confidence in [0, 1].
func (p *OcrPrediction) Score() float64 { return p.score }

// Kind returns KindOcr.
func (p *OcrPrediction) Kind() Kind { return KindOcr }

// Text is the recognized text.
func (p *OcrPrediction) Text() string { return p.text }

// Location is the quadrilateral around the text, in pixel coordinates.
func (p *OcrPrediction) Location() [4]image.Point { return p.location }

// Bounds returns the smallest rectangle containing the location polygon.
func (p *OcrPrediction) Bounds() image.Rectangle {
	r := image.Rectangle{Min: p.location[0], Max: p.location[0]}
	for _, pt := range p.location[1:] {
		r.Min.X = min(r.Min.X, pt.X)
		r.Min.Y = min(r.Min.Y, pt.Y)
		r.Max.X = max(r.Max.X, pt.X)
		r.Max.Y = max(r.Max.Y, pt.Y)
	}
	return r
}
