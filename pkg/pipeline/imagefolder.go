package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// MetadataImagePath is the metadata key holding the file a frame was read
// from.
const MetadataImagePath = "image_path"

// ImageFolder iterates over local image files, yielding one FrameSet per
// file.
type ImageFolder struct {
	paths []string
	next  int
}

// NewImageFolder lists the regular files directly inside dir, sorted by
// name. Sub-directories are not traversed and non-image files are not
// filtered out; use NewImageFolderFromGlob for that.
func NewImageFolder(dir string) (*ImageFolder, error) {
	if dir == "" {
		return nil, ErrNoSource
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, dir)
		}
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	return &ImageFolder{paths: paths}, nil
}

// NewImageFolderFromFiles iterates over paths in the given order.
func NewImageFolderFromFiles(paths []string) (*ImageFolder, error) {
	if len(paths) == 0 {
		return nil, ErrNoSource
	}
	return &ImageFolder{paths: append([]string(nil), paths...)}, nil
}

// NewImageFolderFromGlob collects the files matching any of patterns, with
// "**" matching any number of directories. The union is sorted by path.
func NewImageFolderFromGlob(patterns ...string) (*ImageFolder, error) {
	if len(patterns) == 0 {
		return nil, ErrNoSource
	}

	var paths []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	return &ImageFolder{paths: paths}, nil
}

// Len returns the number of images.
func (f *ImageFolder) Len() int {
	return len(f.paths)
}

// ImagePaths returns the image paths in iteration order.
func (f *ImageFolder) ImagePaths() []string {
	return append([]string(nil), f.paths...)
}

// Next reads the next image. It returns io.EOF once every image was read.
func (f *ImageFolder) Next() (*FrameSet, error) {
	if f.next >= len(f.paths) {
		return nil, io.EOF
	}
	path := f.paths[f.next]
	f.next++

	fs, err := FromImage(path, map[string]any{MetadataImagePath: path})
	if err != nil {
		return nil, fmt.Errorf("unable to read image %s: %w", path, err)
	}
	return fs, nil
}

// Reset restarts the iteration from the first image.
func (f *ImageFolder) Reset() {
	f.next = 0
}
