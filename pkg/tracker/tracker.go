// Package tracker associates per-frame detections into tracks with a greedy
// IOU matcher and derives traffic counts from them.
package tracker

import (
	"math"

	"github.com/gofrs/uuid"

	"github.com/landing-ai/landingai-go/pkg/prediction"
)

// Frame holds the detection boxes of a single video frame.
type Frame []prediction.BoundingBox

// FramesFromPredictions keeps the bounding boxes of the detection
// predictions of every frame.
func FramesFromPredictions(frames [][]prediction.Prediction) []Frame {
	out := make([]Frame, len(frames))
	for i, preds := range frames {
		out[i] = Frame{}
		for _, p := range preds {
			if d, ok := p.(*prediction.ObjectDetectionPrediction); ok {
				out[i] = append(out[i], d.BoundingBox())
			}
		}
	}
	return out
}

// Config holds the tracking thresholds.
type Config struct {
	// IOUThreshold is the minimum IOU for a detection to extend a track.
	IOUThreshold float64
	// MinTrackLength is the minimum number of detections of a real track.
	MinTrackLength int
	// ParkedDisplacement is the net centroid displacement, in pixels, under
	// which a track is considered parked.
	ParkedDisplacement float64
}

// DefaultConfig returns the thresholds used by the traffic counter.
func DefaultConfig() Config {
	return Config{
		IOUThreshold:       0.3,
		MinTrackLength:     5,
		ParkedDisplacement: 10,
	}
}

// Track is one object followed over consecutive frames.
type Track struct {
	UID        uuid.UUID
	StartFrame int
	Boxes      []prediction.BoundingBox
}

// Len returns the number of frames the track spans.
func (t *Track) Len() int { return len(t.Boxes) }

// EndFrame returns the last frame of the track.
func (t *Track) EndFrame() int { return t.StartFrame + len(t.Boxes) - 1 }

// Last returns the most recent box of the track.
func (t *Track) Last() prediction.BoundingBox { return t.Boxes[len(t.Boxes)-1] }

// Displacement returns the centroid movement from the first to the last box.
func (t *Track) Displacement() (dx, dy float64) {
	x0, y0 := t.Boxes[0].Center()
	x1, y1 := t.Last().Center()
	return x1 - x0, y1 - y0
}

// Result is the output of Track.
type Result struct {
	Tracks []*Track
	// Assignments[f][d] is the index in Tracks of detection d of frame f.
	Assignments [][]int
}

// Tracker runs the tracking pipeline with a fixed configuration.
type Tracker struct {
	cfg Config
}

// New returns a tracker using cfg.
func New(cfg Config) *Tracker {
	return &Tracker{cfg: cfg}
}

// Track associates detections of consecutive frames. Active tracks are
// visited in creation order and each takes the unclaimed detection with the
// highest IOU against its last box, provided it reaches the threshold.
// Tracks without a match end; unmatched detections start new tracks.
func (tr *Tracker) Track(frames []Frame) *Result {
	res := &Result{
		Tracks:      []*Track{},
		Assignments: make([][]int, len(frames)),
	}

	var active []int
	for f, dets := range frames {
		assigned := make([]int, len(dets))
		for i := range assigned {
			assigned[i] = -1
		}

		var next []int
		for _, ti := range active {
			t := res.Tracks[ti]
			best, bestIOU := -1, 0.0
			for d, box := range dets {
				if assigned[d] != -1 {
					continue
				}
				if iou := t.Last().IOU(box); iou >= tr.cfg.IOUThreshold && iou > bestIOU {
					best, bestIOU = d, iou
				}
			}
			if best == -1 {
				continue
			}
			t.Boxes = append(t.Boxes, dets[best])
			assigned[best] = ti
			next = append(next, ti)
		}

		for d, box := range dets {
			if assigned[d] != -1 {
				continue
			}
			res.Tracks = append(res.Tracks, &Track{
				UID:        uuid.Must(uuid.NewV4()),
				StartFrame: f,
				Boxes:      []prediction.BoundingBox{box},
			})
			assigned[d] = len(res.Tracks) - 1
			next = append(next, assigned[d])
		}

		res.Assignments[f] = assigned
		active = next
	}

	return res
}

// FilterParked removes tracks whose net centroid displacement is below the
// parked threshold and returns how many were removed.
func (tr *Tracker) FilterParked(tracks []*Track) ([]*Track, int) {
	kept := make([]*Track, 0, len(tracks))
	for _, t := range tracks {
		dx, dy := t.Displacement()
		if math.Hypot(dx, dy) < tr.cfg.ParkedDisplacement {
			continue
		}
		kept = append(kept, t)
	}
	return kept, len(tracks) - len(kept)
}

// FilterSpurious removes tracks shorter than the minimum track length and
// returns how many were removed.
func (tr *Tracker) FilterSpurious(tracks []*Track) ([]*Track, int) {
	kept := make([]*Track, 0, len(tracks))
	for _, t := range tracks {
		if t.Len() < tr.cfg.MinTrackLength {
			continue
		}
		kept = append(kept, t)
	}
	return kept, len(tracks) - len(kept)
}

// ClassifyDirection splits tracks whose dominant movement is vertical into
// northbound (up the image) and southbound (down the image). Tracks moving
// mostly horizontally, or not at all, are in neither.
func ClassifyDirection(tracks []*Track) (northbound, southbound []*Track) {
	for _, t := range tracks {
		dx, dy := t.Displacement()
		if math.Abs(dy) <= math.Abs(dx) {
			continue
		}
		if dy < 0 {
			northbound = append(northbound, t)
		} else {
			southbound = append(southbound, t)
		}
	}
	return northbound, southbound
}

// Counts summarizes a tracked sequence.
type Counts struct {
	Northbound int
	Southbound int
	Parked     int
	Spurious   int
}

// Count tracks frames, drops parked then spurious tracks and classifies the
// rest by direction.
func (tr *Tracker) Count(frames []Frame) Counts {
	res := tr.Track(frames)
	tracks, parked := tr.FilterParked(res.Tracks)
	tracks, spurious := tr.FilterSpurious(tracks)
	north, south := ClassifyDirection(tracks)
	return Counts{
		Northbound: len(north),
		Southbound: len(south),
		Parked:     parked,
		Spurious:   spurious,
	}
}
