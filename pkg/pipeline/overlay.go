package pipeline

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/landing-ai/landingai-go/pkg/prediction"
)

// OverlayImage is the OtherImages key OverlayPredictions stores its result
// under.
const OverlayImage = "overlay"

const maskOpacity = 0x80

// BoxColor outlines object detection and OCR predictions in overlays.
var BoxColor = color.RGBA{G: 0xff, A: 0xff}

// OverlayPredictions draws the predictions of every frame on a copy of its
// main image and stores the copy under OverlayImage. Segmentation masks are
// blended in their mask color, boxes are outlined in BoxColor. Masks whose
// shape differs from the image are scaled to it.
func (fs *FrameSet) OverlayPredictions() (*FrameSet, error) {
	for i, f := range fs.Frames {
		if f.Image == nil {
			return fs, fmt.Errorf("frame %d: %w", i, ErrNoImage)
		}
		overlay, err := overlayPredictions(f.Image, f.Predictions)
		if err != nil {
			return fs, fmt.Errorf("frame %d: %w", i, err)
		}
		f.OtherImages[OverlayImage] = overlay
	}
	return fs, nil
}

func overlayPredictions(img image.Image, preds []prediction.Prediction) (*image.RGBA, error) {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)

	for _, p := range preds {
		switch p := p.(type) {
		case *prediction.SegmentationPrediction:
			if err := blendMask(dst, p); err != nil {
				return nil, err
			}
		case *prediction.ObjectDetectionPrediction:
			box := p.BoundingBox()
			outline(dst, image.Rect(box.XMin, box.YMin, box.XMax, box.YMax), BoxColor)
		case *prediction.OcrPrediction:
			outline(dst, p.Bounds(), BoxColor)
		}
	}
	return dst, nil
}

func blendMask(dst *image.RGBA, seg *prediction.SegmentationPrediction) error {
	mask, err := seg.BooleanMask()
	if err != nil {
		return err
	}
	colored, err := seg.ColoredMask()
	if err != nil {
		return err
	}

	alpha := image.NewAlpha(image.Rect(0, 0, mask.Width, mask.Height))
	for i, v := range mask.Pix {
		if v == 1 {
			alpha.Pix[i] = maskOpacity
		}
	}

	var src image.Image = colored
	var m image.Image = alpha
	if !alpha.Rect.Eq(dst.Rect) {
		scaled := image.NewRGBA(dst.Rect)
		draw.NearestNeighbor.Scale(scaled, scaled.Rect, colored, colored.Rect, draw.Src, nil)
		scaledAlpha := image.NewAlpha(dst.Rect)
		draw.NearestNeighbor.Scale(scaledAlpha, scaledAlpha.Rect, alpha, alpha.Rect, draw.Src, nil)
		src, m = scaled, scaledAlpha
	}

	draw.DrawMask(dst, dst.Rect, src, image.Point{}, m, image.Point{}, draw.Over)
	return nil
}

// outline draws the one pixel border of r, clipped to dst.
func outline(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	if r.Empty() {
		return
	}
	u := image.NewUniform(c)
	for _, edge := range []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1),
		image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y),
		image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y),
	} {
		draw.Draw(dst, edge.Intersect(dst.Rect), u, image.Point{}, draw.Src)
	}
}
