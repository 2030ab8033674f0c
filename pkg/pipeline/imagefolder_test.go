package pipeline_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/landing-ai/landingai-go/pkg/pipeline"
)

func imageTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "b.png"), 2, 2)
	writeImage(t, filepath.Join(dir, "a.png"), 3, 3)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "nested", "deeper"), 0o700); err != nil {
		t.Fatal(err)
	}
	writeImage(t, filepath.Join(dir, "nested", "deeper", "c.png"), 4, 4)
	return dir
}

func TestNewImageFolder(t *testing.T) {
	c := qt.New(t)

	dir := imageTree(t)
	folder, err := pipeline.NewImageFolder(dir)
	c.Assert(err, qt.IsNil)
	c.Check(folder.ImagePaths(), qt.DeepEquals, []string{
		filepath.Join(dir, "a.png"),
		filepath.Join(dir, "b.png"),
		filepath.Join(dir, "notes.txt"),
	})

	fs, err := folder.Next()
	c.Assert(err, qt.IsNil)
	c.Check(fs.Frames[0].Metadata[pipeline.MetadataImagePath], qt.Equals, filepath.Join(dir, "a.png"))

	_, err = folder.Next()
	c.Assert(err, qt.IsNil)

	_, err = folder.Next()
	c.Check(err, qt.ErrorIs, pipeline.ErrUnsupportedImage)

	_, err = folder.Next()
	c.Check(err, qt.Equals, io.EOF)

	folder.Reset()
	_, err = folder.Next()
	c.Check(err, qt.IsNil)
}

func TestNewImageFolder_Errors(t *testing.T) {
	c := qt.New(t)

	_, err := pipeline.NewImageFolder("")
	c.Check(err, qt.ErrorIs, pipeline.ErrNoSource)

	_, err = pipeline.NewImageFolder(filepath.Join(t.TempDir(), "missing"))
	c.Check(err, qt.ErrorIs, pipeline.ErrSourceNotFound)

	_, err = pipeline.NewImageFolderFromFiles(nil)
	c.Check(err, qt.ErrorIs, pipeline.ErrNoSource)

	_, err = pipeline.NewImageFolderFromGlob()
	c.Check(err, qt.ErrorIs, pipeline.ErrNoSource)
}

func TestNewImageFolderFromGlob(t *testing.T) {
	c := qt.New(t)

	dir := imageTree(t)
	folder, err := pipeline.NewImageFolderFromGlob(
		filepath.Join(dir, "**", "*.png"),
	)
	c.Assert(err, qt.IsNil)
	c.Check(folder.ImagePaths(), qt.DeepEquals, []string{
		filepath.Join(dir, "a.png"),
		filepath.Join(dir, "b.png"),
		filepath.Join(dir, "nested", "deeper", "c.png"),
	})

	n := 0
	for {
		_, err := folder.Next()
		if err == io.EOF {
			break
		}
		c.Assert(err, qt.IsNil)
		n++
	}
	c.Check(n, qt.Equals, folder.Len())
}

func TestNewImageFolderFromFiles_KeepsOrder(t *testing.T) {
	c := qt.New(t)

	dir := imageTree(t)
	paths := []string{filepath.Join(dir, "b.png"), filepath.Join(dir, "a.png")}
	folder, err := pipeline.NewImageFolderFromFiles(paths)
	c.Assert(err, qt.IsNil)

	paths[0] = "mutated"
	c.Check(folder.ImagePaths()[0], qt.Equals, filepath.Join(dir, "b.png"))
	c.Check(folder.Len(), qt.Equals, 2)
}
