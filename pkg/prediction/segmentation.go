package prediction

import (
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/lestrrat-go/option"

	"github.com/landing-ai/landingai-go/pkg/rle"
)

// MaskShape is the (height, width) of a decoded segmentation mask.
type MaskShape struct {
	Height int
	Width  int
}

// Pixels returns Height * Width.
func (s MaskShape) Pixels() int { return s.Height * s.Width }

// Mask is a row-major two-dimensional mask of 0s and 1s. 1 means the pixel
// belongs to the predicted class.
type Mask struct {
	Height int
	Width  int
	Pix    []uint8
}

// At returns the value at (row, col).
func (m *Mask) At(row, col int) uint8 { return m.Pix[row*m.Width+col] }

// Row returns row i; it shares memory with the mask.
func (m *Mask) Row(i int) []uint8 { return m.Pix[i*m.Width : (i+1)*m.Width] }

// Rows returns a two-dimensional view sharing memory with the mask.
func (m *Mask) Rows() [][]uint8 {
	rows := make([][]uint8, m.Height)
	for i := range rows {
		rows[i] = m.Row(i)
	}
	return rows
}

// Count returns the number of 1s.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// IndexMask is a row-major mask holding 0 or the label index of the
// prediction. It is convenient for overlaying several masks into one.
type IndexMask struct {
	Height int
	Width  int
	Pix    []int
}

// At returns the value at (row, col).
func (m *IndexMask) At(row, col int) int { return m.Pix[row*m.Width+col] }

// BitmapDecoder parses an encoded bitmap into runs.
type BitmapDecoder func(bitmap string, m rle.EncodingMap) (rle.Runs, error)

// SegmentationOption configures a SegmentationPrediction.
type SegmentationOption interface {
	option.Interface
	segmentationOption()
}

type segmentationOption struct {
	option.Interface
}

func (*segmentationOption) segmentationOption() {}

type identColorSource struct{}
type identBitmapDecoder struct{}

// WithColorSource sets the source of the colored mask tint. Defaults to a
// process-wide random source.
func WithColorSource(cs ColorSource) SegmentationOption {
	return &segmentationOption{option.New(identColorSource{}, cs)}
}

// WithBitmapDecoder replaces rle.Parse as the bitmap decoder.
func WithBitmapDecoder(d BitmapDecoder) SegmentationOption {
	return &segmentationOption{option.New(identBitmapDecoder{}, d)}
}

// SegmentationParams are the raw fields of a segmentation prediction.
type SegmentationParams struct {
	ID          string
	Score       float64
	LabelName   string
	LabelIndex  int
	EncodedMask string
	EncodingMap rle.EncodingMap
	MaskShape   MaskShape
}

// SegmentationPrediction is a single segmentation mask prediction. The
// bitmap is decoded on first access of any derived value and every derived
// value is computed at most once. Returned masks are shared and must not be
// modified.
type SegmentationPrediction struct {
	ClassificationPrediction
	id          string
	encodedMask string
	encodingMap rle.EncodingMap
	shape       MaskShape
	colors      ColorSource
	decode      BitmapDecoder

	maskOnce sync.Once
	mask     *Mask
	maskErr  error

	indexOnce sync.Once
	indexMask *IndexMask

	coloredOnce sync.Once
	coloredMask *image.RGBA

	countOnce sync.Once
	count     int

	percentageOnce sync.Once
	percentage     float64
}

// NewSegmentationPrediction validates p and returns the prediction. Bitmap
// errors are reported by the mask accessors, not here.
func NewSegmentationPrediction(p SegmentationParams, opts ...SegmentationOption) (*SegmentationPrediction, error) {
	cls, err := NewClassificationPrediction(p.Score, p.LabelName, p.LabelIndex)
	if err != nil {
		return nil, err
	}
	if p.MaskShape.Height <= 0 || p.MaskShape.Width <= 0 {
		return nil, fmt.Errorf("%w: got (%d, %d)", ErrInvalidShape, p.MaskShape.Height, p.MaskShape.Width)
	}
	if p.MaskShape.Height > math.MaxInt/p.MaskShape.Width || p.MaskShape.Pixels() > rle.MaxDecodedLen {
		return nil, fmt.Errorf("%w: (%d, %d) exceeds %d pixels", ErrInvalidShape, p.MaskShape.Height, p.MaskShape.Width, rle.MaxDecodedLen)
	}

	encodingMap := make(rle.EncodingMap, len(p.EncodingMap))
	for k, v := range p.EncodingMap {
		encodingMap[k] = v
	}

	s := &SegmentationPrediction{
		ClassificationPrediction: *cls,
		id:                       p.ID,
		encodedMask:              p.EncodedMask,
		encodingMap:              encodingMap,
		shape:                    p.MaskShape,
		colors:                   defaultColorSource,
		decode:                   rle.Parse,
	}

	for _, o := range opts {
		switch o.Ident() {
		case identColorSource{}:
			s.colors = o.Value().(ColorSource)
		case identBitmapDecoder{}:
			s.decode = o.Value().(BitmapDecoder)
		}
	}

	return s, nil
}

// Kind returns KindSegmentation.
func (s *SegmentationPrediction) Kind() Kind { return KindSegmentation }

// ID is the unique identifier assigned by the service.
func (s *SegmentationPrediction) ID() string { return s.id }

// EncodedMask is the run-length encoded bitmap.
func (s *SegmentationPrediction) EncodedMask() string { return s.encodedMask }

// MaskShape is the (height, width) the bitmap decodes to.
func (s *SegmentationPrediction) MaskShape() MaskShape { return s.shape }

// BooleanMask returns the decoded (height, width) mask.
func (s *SegmentationPrediction) BooleanMask() (*Mask, error) {
	s.maskOnce.Do(func() {
		runs, err := s.decode(s.encodedMask, s.encodingMap)
		if err != nil {
			s.maskErr = err
			return
		}
		// compare before expanding so a bogus run length never allocates
		if n := runs.Len(); n != s.shape.Pixels() {
			s.maskErr = fmt.Errorf("%w: decoded %d bits, shape (%d, %d) needs %d",
				ErrShapeMismatch, n, s.shape.Height, s.shape.Width, s.shape.Pixels())
			return
		}
		s.mask = &Mask{
			Height: s.shape.Height,
			Width:  s.shape.Width,
			Pix:    runs.Expand(),
		}
	})
	return s.mask, s.maskErr
}

// IndexMask returns the boolean mask multiplied by the label index.
func (s *SegmentationPrediction) IndexMask() (*IndexMask, error) {
	mask, err := s.BooleanMask()
	if err != nil {
		return nil, err
	}
	s.indexOnce.Do(func() {
		pix := make([]int, len(mask.Pix))
		for i, v := range mask.Pix {
			pix[i] = int(v) * s.labelIndex
		}
		s.indexMask = &IndexMask{Height: mask.Height, Width: mask.Width, Pix: pix}
	})
	return s.indexMask, nil
}

// ColoredMask returns the mask as an opaque image where predicted pixels
// take a single color drawn once per prediction and the rest are black.
func (s *SegmentationPrediction) ColoredMask() (*image.RGBA, error) {
	mask, err := s.BooleanMask()
	if err != nil {
		return nil, err
	}
	s.coloredOnce.Do(func() {
		c := s.colors.Color()
		img := image.NewRGBA(image.Rect(0, 0, mask.Width, mask.Height))
		for i, v := range mask.Pix {
			px := img.Pix[i*4 : i*4+4 : i*4+4]
			if v != 0 {
				px[0], px[1], px[2] = c.R, c.G, c.B
			}
			px[3] = 0xff
		}
		s.coloredMask = img
	})
	return s.coloredMask, nil
}

// NumPredictedPixels is the number of pixels predicted as the class.
func (s *SegmentationPrediction) NumPredictedPixels() (int, error) {
	mask, err := s.BooleanMask()
	if err != nil {
		return 0, err
	}
	s.countOnce.Do(func() {
		s.count = mask.Count()
	})
	return s.count, nil
}

// PercentagePredictedPixels is NumPredictedPixels over the mask size, in
// [0, 1].
func (s *SegmentationPrediction) PercentagePredictedPixels() (float64, error) {
	n, err := s.NumPredictedPixels()
	if err != nil {
		return 0, err
	}
	s.percentageOnce.Do(func() {
		s.percentage = float64(n) / float64(s.shape.Pixels())
	})
	return s.percentage, nil
}
