package prediction

import (
	"image/color"
	"math/rand"
	"sync"
	"time"
)

// ColorSource provides the tint of a colored segmentation mask.
type ColorSource interface {
	Color() color.RGBA
}

type randomColorSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomColorSource returns a source drawing each channel independently
// and uniformly from [0, 255]. It is safe for concurrent use.
func NewRandomColorSource(seed int64) ColorSource {
	return &randomColorSource{rng: rand.New(rand.NewSource(seed))}
}

func (s *randomColorSource) Color() color.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return color.RGBA{
		R: uint8(s.rng.Intn(256)),
		G: uint8(s.rng.Intn(256)),
		B: uint8(s.rng.Intn(256)),
		A: 0xff,
	}
}

// FixedColor is a ColorSource that always returns the same color.
type FixedColor color.RGBA

func (f FixedColor) Color() color.RGBA { return color.RGBA(f) }

var defaultColorSource = NewRandomColorSource(time.Now().UnixNano())
