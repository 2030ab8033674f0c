package rle

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrMalformedBitmap is returned when a bitmap string or its encoding map
// cannot be interpreted as `<run length><delimiter>` tokens.
var ErrMalformedBitmap = status.New(codes.InvalidArgument, "malformed bitmap").Err()
