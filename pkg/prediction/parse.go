package prediction

import (
	"encoding/json"
	"fmt"
	"image"
	"sort"

	"github.com/landing-ai/landingai-go/pkg/rle"
)

type rawClassification struct {
	Score      float64 `json:"score"`
	LabelIndex int     `json:"labelIndex"`
	LabelName  string  `json:"labelName"`
}

type rawDetection struct {
	rawClassification
	Coordinates BoundingBox `json:"coordinates"`
}

type rawBitmap struct {
	rawClassification
	Bitmap string `json:"bitmap"`
}

type rawSegmentation struct {
	ImageHeight int                  `json:"imageHeight"`
	ImageWidth  int                  `json:"imageWidth"`
	Bitmaps     map[string]rawBitmap `json:"bitmaps"`
	Encoding    *struct {
		Algorithm string `json:"algorithm"`
		Options   struct {
			Map rle.EncodingMap `json:"map"`
		} `json:"options"`
	} `json:"encoding"`
}

type rawResponse struct {
	Type                string          `json:"type"`
	BackboneType        string          `json:"backbonetype"`
	Predictions         json.RawMessage `json:"predictions"`
	BackbonePredictions json.RawMessage `json:"backbonepredictions"`
}

type rawOcr struct {
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
	Location []struct {
		X int `json:"x"`
		Y int `json:"y"`
	} `json:"location"`
}

// ParseResponse builds predictions from an inference service response body.
// Segmentation and detection results are ordered by prediction id. opts
// apply to every segmentation prediction.
func ParseResponse(body []byte, opts ...SegmentationOption) ([]Prediction, error) {
	var resp rawResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unable to decode prediction response: %w", err)
	}

	switch {
	case resp.BackboneType == string(KindSegmentation):
		return parseSegmentation(resp.BackbonePredictions, opts)
	case resp.Type == string(KindObjectDetection):
		return parseDetection(resp.BackbonePredictions)
	case resp.Type == string(KindClassification):
		return parseClassification(resp.Predictions)
	default:
		return nil, fmt.Errorf("%w: type %q backbone type %q", ErrUnknownPredictionType, resp.Type, resp.BackboneType)
	}
}

func parseClassification(raw json.RawMessage) ([]Prediction, error) {
	if isNull(raw) {
		return []Prediction{}, nil
	}
	var c rawClassification
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("unable to decode classification prediction: %w", err)
	}
	p, err := NewClassificationPrediction(c.Score, c.LabelName, c.LabelIndex)
	if err != nil {
		return nil, err
	}
	return []Prediction{p}, nil
}

func parseDetection(raw json.RawMessage) ([]Prediction, error) {
	var dets map[string]rawDetection
	if !isNull(raw) {
		if err := json.Unmarshal(raw, &dets); err != nil {
			return nil, fmt.Errorf("unable to decode detection predictions: %w", err)
		}
	}

	preds := make([]Prediction, 0, len(dets))
	for _, id := range sortedKeys(dets) {
		d := dets[id]
		p, err := NewObjectDetectionPrediction(ObjectDetectionParams{
			ID:          id,
			Score:       d.Score,
			LabelName:   d.LabelName,
			LabelIndex:  d.LabelIndex,
			BoundingBox: d.Coordinates,
		})
		if err != nil {
			return nil, fmt.Errorf("detection %s: %w", id, err)
		}
		preds = append(preds, p)
	}
	return preds, nil
}

func parseSegmentation(raw json.RawMessage, opts []SegmentationOption) ([]Prediction, error) {
	var seg rawSegmentation
	if !isNull(raw) {
		if err := json.Unmarshal(raw, &seg); err != nil {
			return nil, fmt.Errorf("unable to decode segmentation predictions: %w", err)
		}
	}

	encodingMap := rle.DefaultEncodingMap
	if seg.Encoding != nil && len(seg.Encoding.Options.Map) > 0 {
		encodingMap = seg.Encoding.Options.Map
	}

	preds := make([]Prediction, 0, len(seg.Bitmaps))
	for _, id := range sortedKeys(seg.Bitmaps) {
		b := seg.Bitmaps[id]
		p, err := NewSegmentationPrediction(SegmentationParams{
			ID:          id,
			Score:       b.Score,
			LabelName:   b.LabelName,
			LabelIndex:  b.LabelIndex,
			EncodedMask: b.Bitmap,
			EncodingMap: encodingMap,
			MaskShape:   MaskShape{Height: seg.ImageHeight, Width: seg.ImageWidth},
		}, opts...)
		if err != nil {
			return nil, fmt.Errorf("segmentation %s: %w", id, err)
		}
		preds = append(preds, p)
	}
	return preds, nil
}

// ParseOcrResponse builds OCR predictions from an OCR response body, a list
// of per-image lists of text predictions. Results are flattened in order.
func ParseOcrResponse(body []byte) ([]*OcrPrediction, error) {
	var resp [][]rawOcr
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unable to decode OCR response: %w", err)
	}

	var preds []*OcrPrediction
	for _, group := range resp {
		for _, r := range group {
			if len(r.Location) != 4 {
				return nil, fmt.Errorf("%w: OCR location has %d points, want 4", ErrInvalidGeometry, len(r.Location))
			}
			var loc [4]image.Point
			for i, pt := range r.Location {
				loc[i] = image.Pt(pt.X, pt.Y)
			}
			p, err := NewOcrPrediction(r.Score, r.Text, loc)
			if err != nil {
				return nil, err
			}
			preds = append(preds, p)
		}
	}
	return preds, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
