package pipeline_test

import (
	"image"
	"image/color"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/stretchr/testify/require"

	"github.com/landing-ai/landingai-go/pkg/pipeline"
	"github.com/landing-ai/landingai-go/pkg/prediction"
	"github.com/landing-ai/landingai-go/pkg/rle"
)

var blue = prediction.FixedColor{B: 0xff, A: 0xff}

func segmentation(t *testing.T, bitmap string, shape prediction.MaskShape) prediction.Prediction {
	t.Helper()
	p, err := prediction.NewSegmentationPrediction(prediction.SegmentationParams{
		Score:       0.9,
		LabelName:   "scratch",
		EncodedMask: bitmap,
		EncodingMap: rle.DefaultEncodingMap,
		MaskShape:   shape,
	}, prediction.WithColorSource(blue))
	require.NoError(t, err)
	return p
}

// blended is src over dst at half opacity.
func blended(dst, src color.RGBA) color.RGBA {
	mix := func(d, s uint8) uint8 {
		return uint8((int(s)*0x80 + int(d)*(0xff-0x80) + 0x7f) / 0xff)
	}
	return color.RGBA{R: mix(dst.R, src.R), G: mix(dst.G, src.G), B: mix(dst.B, src.B), A: 0xff}
}

func checkNear(c *qt.C, got, want color.RGBA) {
	c.Helper()
	near := func(a, b uint8) bool { return a-b <= 1 || b-a <= 1 }
	c.Check(near(got.R, want.R) && near(got.G, want.G) && near(got.B, want.B) && got.A == want.A,
		qt.IsTrue, qt.Commentf("got %v, want %v", got, want))
}

func TestFrameSet_OverlayPredictions(t *testing.T) {
	c := qt.New(t)

	src := newImage(8, 8)
	frame := pipeline.NewFrame(src, nil)
	frame.Predictions = []prediction.Prediction{
		// first four pixels of the top row
		segmentation(t, "4N60Z", prediction.MaskShape{Height: 8, Width: 8}),
		screw(t, "1", 0.8, prediction.BoundingBox{XMin: 2, YMin: 4, XMax: 6, YMax: 8}),
	}

	fs, err := pipeline.FromFrame(frame).OverlayPredictions()
	c.Assert(err, qt.IsNil)

	overlay, ok := fs.Frames[0].OtherImages[pipeline.OverlayImage].(*image.RGBA)
	c.Assert(ok, qt.IsTrue)
	c.Assert(overlay.Bounds(), qt.Equals, image.Rect(0, 0, 8, 8))

	for x := 0; x < 4; x++ {
		checkNear(c, overlay.RGBAAt(x, 0), blended(src.RGBAAt(x, 0), color.RGBA(blue)))
	}
	c.Check(overlay.RGBAAt(4, 0), qt.Equals, src.RGBAAt(4, 0))
	c.Check(overlay.RGBAAt(0, 1), qt.Equals, src.RGBAAt(0, 1))

	// box outline
	for _, p := range []image.Point{{2, 4}, {5, 4}, {2, 7}, {5, 7}, {3, 4}, {5, 6}} {
		c.Check(overlay.RGBAAt(p.X, p.Y), qt.Equals, pipeline.BoxColor, qt.Commentf("%v", p))
	}
	c.Check(overlay.RGBAAt(3, 5), qt.Equals, src.RGBAAt(3, 5))
	c.Check(overlay.RGBAAt(6, 5), qt.Equals, src.RGBAAt(6, 5))

	// the main image is left untouched
	c.Check(frame.Image.(*image.RGBA).RGBAAt(2, 4), qt.Equals, color.RGBA{R: 2, G: 4, A: 0xff})
}

func TestFrameSet_OverlayPredictions_ScalesMask(t *testing.T) {
	c := qt.New(t)

	src := newImage(8, 8)
	frame := pipeline.NewFrame(src, nil)
	// top-left 2x2 of a 4x4 mask covers the top-left 4x4 of the image
	frame.Predictions = []prediction.Prediction{
		segmentation(t, "2N2Z2N10Z", prediction.MaskShape{Height: 4, Width: 4}),
	}

	fs, err := pipeline.FromFrame(frame).OverlayPredictions()
	c.Assert(err, qt.IsNil)
	overlay := fs.Frames[0].OtherImages[pipeline.OverlayImage].(*image.RGBA)

	checkNear(c, overlay.RGBAAt(3, 3), blended(src.RGBAAt(3, 3), color.RGBA(blue)))
	checkNear(c, overlay.RGBAAt(0, 0), blended(src.RGBAAt(0, 0), color.RGBA(blue)))
	c.Check(overlay.RGBAAt(4, 0), qt.Equals, src.RGBAAt(4, 0))
	c.Check(overlay.RGBAAt(0, 4), qt.Equals, src.RGBAAt(0, 4))
}

func TestFrameSet_OverlayPredictions_BadMask(t *testing.T) {
	c := qt.New(t)

	frame := pipeline.NewFrame(newImage(2, 2), nil)
	frame.Predictions = []prediction.Prediction{
		segmentation(t, "3N", prediction.MaskShape{Height: 2, Width: 2}),
	}

	_, err := pipeline.FromFrame(frame).OverlayPredictions()
	c.Check(err, qt.ErrorIs, prediction.ErrShapeMismatch)
	c.Check(frame.OtherImages, qt.HasLen, 0)
}
