package prediction

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrShapeMismatch is returned when a decoded bitmap has a different
	// number of bits than its mask shape.
	ErrShapeMismatch = status.New(codes.InvalidArgument, "decoded bitmap does not match the mask shape").Err()
	// ErrInvalidGeometry is returned for inverted bounding boxes.
	ErrInvalidGeometry = status.New(codes.InvalidArgument, "invalid prediction geometry").Err()
	// ErrInvalidShape is returned for mask shapes that are not positive or
	// are too large to decode.
	ErrInvalidShape = status.New(codes.InvalidArgument, "invalid mask shape").Err()
	// ErrInvalidScore is returned for scores outside [0, 1].
	ErrInvalidScore = status.New(codes.InvalidArgument, "score must be in [0, 1]").Err()
	// ErrInvalidLabelIndex is returned for negative label indexes.
	ErrInvalidLabelIndex = status.New(codes.InvalidArgument, "label index must not be negative").Err()
	// ErrUnknownPredictionType is returned when a response carries a type
	// ParseResponse cannot build.
	ErrUnknownPredictionType = status.New(codes.InvalidArgument, "unknown prediction type").Err()
)
