package pipeline

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrNoSource is returned when an image folder is built without any source.
	ErrNoSource = status.New(codes.InvalidArgument, "either a source folder, a file list or a glob pattern must be provided").Err()
	// ErrSourceNotFound is returned when an image folder source does not exist.
	ErrSourceNotFound = status.New(codes.NotFound, "image source does not exist").Err()
	// ErrUnsupportedImage is returned for image bytes no registered decoder reads.
	ErrUnsupportedImage = status.New(codes.InvalidArgument, "unsupported image format").Err()
	// ErrNoImage is returned when a frame has no image under the requested name.
	ErrNoImage = status.New(codes.NotFound, "frame has no such image").Err()
)
