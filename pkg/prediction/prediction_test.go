package prediction_test

import (
	"image"
	"math"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/stretchr/testify/require"

	"github.com/landing-ai/landingai-go/pkg/prediction"
)

func TestObjectDetectionPrediction_NumPredictedPixels(t *testing.T) {
	p, err := prediction.NewObjectDetectionPrediction(prediction.ObjectDetectionParams{
		ID:          "1",
		Score:       0.623112,
		LabelName:   "screw",
		LabelIndex:  0,
		BoundingBox: prediction.BoundingBox{XMin: 10, YMin: 10, XMax: 30, YMax: 40},
	})
	require.NoError(t, err)

	n, err := p.NumPredictedPixels()
	require.NoError(t, err)
	require.Equal(t, 600, n)

	n, err = p.NumPredictedPixels()
	require.NoError(t, err)
	require.Equal(t, 600, n)

	require.Equal(t, "1", p.ID())
	require.Equal(t, "screw", p.LabelName())
	require.Equal(t, 0, p.LabelIndex())
	require.Equal(t, prediction.KindObjectDetection, p.Kind())
}

func TestNewObjectDetectionPrediction_InvalidGeometry(t *testing.T) {
	c := qt.New(t)

	testCases := []struct {
		name string
		box  prediction.BoundingBox
	}{
		{name: "nok - xmin after xmax", box: prediction.BoundingBox{XMin: 31, YMin: 10, XMax: 30, YMax: 40}},
		{name: "nok - ymin after ymax", box: prediction.BoundingBox{XMin: 10, YMin: 41, XMax: 30, YMax: 40}},
	}

	for _, tc := range testCases {
		c.Run(tc.name, func(c *qt.C) {
			_, err := prediction.NewObjectDetectionPrediction(prediction.ObjectDetectionParams{
				Score:       0.5,
				BoundingBox: tc.box,
			})
			c.Check(err, qt.ErrorIs, prediction.ErrInvalidGeometry)
		})
	}

	// degenerate boxes are allowed
	p, err := prediction.NewObjectDetectionPrediction(prediction.ObjectDetectionParams{
		Score:       0.5,
		BoundingBox: prediction.BoundingBox{XMin: 5, YMin: 5, XMax: 5, YMax: 9},
	})
	c.Assert(err, qt.IsNil)
	n, _ := p.NumPredictedPixels()
	c.Check(n, qt.Equals, 0)
}

func TestBoundingBox_IOU(t *testing.T) {
	c := qt.New(t)

	a := prediction.BoundingBox{XMin: 0, YMin: 0, XMax: 10, YMax: 10}

	testCases := []struct {
		name     string
		other    prediction.BoundingBox
		expected float64
	}{
		{name: "identical", other: a, expected: 1},
		{name: "disjoint", other: prediction.BoundingBox{XMin: 20, YMin: 20, XMax: 30, YMax: 30}, expected: 0},
		{name: "touching edge", other: prediction.BoundingBox{XMin: 10, YMin: 0, XMax: 20, YMax: 10}, expected: 0},
		{name: "half overlap", other: prediction.BoundingBox{XMin: 5, YMin: 0, XMax: 15, YMax: 10}, expected: 50.0 / 150.0},
		{name: "contained", other: prediction.BoundingBox{XMin: 0, YMin: 0, XMax: 5, YMax: 5}, expected: 0.25},
		{name: "degenerate", other: prediction.BoundingBox{XMin: 3, YMin: 3, XMax: 3, YMax: 3}, expected: 0},
	}

	for _, tc := range testCases {
		c.Run(tc.name, func(c *qt.C) {
			c.Check(math.Abs(a.IOU(tc.other)-tc.expected) < 1e-9, qt.IsTrue, qt.Commentf("got %v", a.IOU(tc.other)))
			c.Check(a.IOU(tc.other), qt.Equals, tc.other.IOU(a))
		})
	}
}

func TestBoundingBox_Center(t *testing.T) {
	c := qt.New(t)

	x, y := prediction.BoundingBox{XMin: 0, YMin: 10, XMax: 5, YMax: 20}.Center()
	c.Check(x, qt.Equals, 2.5)
	c.Check(y, qt.Equals, 15.0)

	d := prediction.BoundingBox{XMin: 0, YMin: 0, XMax: 2, YMax: 2}.Distance(prediction.BoundingBox{XMin: 3, YMin: 4, XMax: 5, YMax: 6})
	c.Check(d, qt.Equals, 5.0)
}

func TestNewClassificationPrediction(t *testing.T) {
	c := qt.New(t)

	p, err := prediction.NewClassificationPrediction(1, "ok", 2)
	c.Assert(err, qt.IsNil)
	c.Check(p.Score(), qt.Equals, 1.0)
	c.Check(p.Kind(), qt.Equals, prediction.KindClassification)

	_, isArea := prediction.Prediction(p).(prediction.AreaPrediction)
	c.Check(isArea, qt.IsFalse)

	_, err = prediction.NewClassificationPrediction(math.NaN(), "ok", 2)
	c.Check(err, qt.ErrorIs, prediction.ErrInvalidScore)
	_, err = prediction.NewClassificationPrediction(-0.1, "ok", 2)
	c.Check(err, qt.ErrorIs, prediction.ErrInvalidScore)
	_, err = prediction.NewClassificationPrediction(0.3, "ok", -2)
	c.Check(err, qt.ErrorIs, prediction.ErrInvalidLabelIndex)
}

func TestOcrPrediction(t *testing.T) {
	c := qt.New(t)

	p, err := prediction.NewOcrPrediction(0.8, "LANDING", [4]image.Point{{10, 5}, {40, 6}, {41, 20}, {9, 19}})
	c.Assert(err, qt.IsNil)
	c.Check(p.Text(), qt.Equals, "LANDING")
	c.Check(p.Bounds(), qt.Equals, image.Rect(9, 5, 41, 20))

	_, isArea := prediction.Prediction(p).(prediction.AreaPrediction)
	c.Check(isArea, qt.IsFalse)
}
