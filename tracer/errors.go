package tracer

import "errors"

var (
	// Returned (wrapped) when a buffer cannot be allocated or scene data
	// cannot be uploaded. It is fatal to the rendering session.
	ErrResourceUnavailable = errors.New("tracer: resource unavailable")

	ErrBufferSizeMismatch = errors.New("tracer: buffer dimensions do not match")
	ErrInvalidFrameIndex  = errors.New("tracer: frame index must be >= 1")
)
