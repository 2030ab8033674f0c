// Package pipeline chains image acquisition, inference and post-processing
// over sets of frames.
package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"

	"github.com/landing-ai/landingai-go/pkg/prediction"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Predictor runs inference on an encoded image.
type Predictor interface {
	Predict(ctx context.Context, img []byte) ([]prediction.Prediction, error)
}

// Frame stores a main image, the images derived from it, its predictions
// and arbitrary metadata.
type Frame struct {
	Image       image.Image
	OtherImages map[string]image.Image
	Predictions []prediction.Prediction
	Metadata    map[string]any
}

// NewFrame returns a frame holding img.
func NewFrame(img image.Image, metadata map[string]any) *Frame {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &Frame{
		Image:       img,
		OtherImages: map[string]image.Image{},
		Metadata:    metadata,
	}
}

// RunPredict replaces the predictions of the frame with the ones returned by
// p for the PNG encoding of the main image.
func (f *Frame) RunPredict(ctx context.Context, p Predictor) error {
	b, err := encodePNG(f.Image)
	if err != nil {
		return err
	}
	preds, err := p.Predict(ctx, b)
	if err != nil {
		return err
	}
	f.Predictions = preds
	return nil
}

func (f *Frame) image(src string) (image.Image, error) {
	if src == "" {
		return f.Image, nil
	}
	img, ok := f.OtherImages[src]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoImage, src)
	}
	return img, nil
}

// FrameSet is an ordered collection of frames. It usually holds a single
// frame, but steps may extract more, e.g. one crop per detected object.
type FrameSet struct {
	Frames []*Frame
}

// FromImage reads the image file at path into a single-frame set.
func FromImage(path string, metadata map[string]any) (*FrameSet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return FromImageReader(file, metadata)
}

// FromImageReader decodes the image read from r into a single-frame set.
func FromImageReader(r io.Reader, metadata map[string]any) (*FrameSet, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		mimeType := strings.Split(mimetype.Detect(b).String(), ";")[0]
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, mimeType)
	}

	return &FrameSet{Frames: []*Frame{NewFrame(img, metadata)}}, nil
}

// FromFrame returns a set holding the given frames.
func FromFrame(frames ...*Frame) *FrameSet {
	return &FrameSet{Frames: frames}
}

// IsEmpty reports whether the set has no frames.
func (fs *FrameSet) IsEmpty() bool {
	return len(fs.Frames) == 0
}

// RunPredict runs p on every frame. It stops at the first failure.
func (fs *FrameSet) RunPredict(ctx context.Context, p Predictor) error {
	for i, f := range fs.Frames {
		if err := f.RunPredict(ctx, p); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return nil
}

// Resize scales every main image to width x height. A zero dimension is
// derived from the other one so that the aspect ratio of each frame is
// kept. With both dimensions zero the set is left unchanged.
func (fs *FrameSet) Resize(width, height int) *FrameSet {
	if width <= 0 && height <= 0 {
		return fs
	}
	for _, f := range fs.Frames {
		w, h := targetSize(f.Image.Bounds(), width, height)
		f.Image = scale(f.Image, w, h)
	}
	return fs
}

// Downsize behaves like Resize but only touches images larger than the
// requested dimensions.
func (fs *FrameSet) Downsize(width, height int) *FrameSet {
	if width <= 0 && height <= 0 {
		return fs
	}
	for _, f := range fs.Frames {
		b := f.Image.Bounds()
		w, h := targetSize(b, width, height)
		if b.Dx() > w || b.Dy() > h {
			f.Image = scale(f.Image, w, h)
		}
	}
	return fs
}

// Apply replaces every frame with the result of fn.
func (fs *FrameSet) Apply(fn func(*Frame) *Frame) *FrameSet {
	for i, f := range fs.Frames {
		fs.Frames[i] = fn(f)
	}
	return fs
}

// Filter keeps the frames for which keep returns true.
func (fs *FrameSet) Filter(keep func(*Frame) bool) *FrameSet {
	kept := fs.Frames[:0]
	for _, f := range fs.Frames {
		if keep(f) {
			kept = append(kept, f)
		}
	}
	clear(fs.Frames[len(kept):])
	fs.Frames = kept
	return fs
}

// SaveImage writes one PNG per frame named
// <prefix>_<timestamp>_<src>_<index>.png and returns the written paths. An
// empty src selects the main image, otherwise the derived image stored
// under that name.
func (fs *FrameSet) SaveImage(prefix, src string) ([]string, error) {
	timestamp := time.Now().Format("20060102-150405")

	paths := make([]string, 0, len(fs.Frames))
	for i, f := range fs.Frames {
		img, err := f.image(src)
		if err != nil {
			return paths, err
		}
		path := fmt.Sprintf("%s_%s_%s_%d.png", prefix, timestamp, src, i)
		if err := writePNG(path, img); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// ClassCounts returns the number of predictions per label name over all
// frames. Predictions without a label are ignored.
func ClassCounts(fs *FrameSet) map[string]int {
	counts := map[string]int{}
	for _, f := range fs.Frames {
		for _, p := range f.Predictions {
			if l, ok := p.(prediction.Labeled); ok {
				counts[l.LabelName()]++
			}
		}
	}
	return counts
}

func targetSize(b image.Rectangle, width, height int) (int, int) {
	switch {
	case width <= 0:
		width = max(1, height*b.Dx()/b.Dy())
	case height <= 0:
		height = max(1, width*b.Dy()/b.Dx())
	}
	return width, height
}

func scale(src image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(dst, dst.Rect, src, src.Bounds(), draw.Over, nil)
	return dst
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := png.Encode(w, img); err != nil {
		return nil, err
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writePNG(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
