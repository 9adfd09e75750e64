package nav

import "errors"

var (
	ErrUnknownCommand      = errors.New("unknown command")
	ErrUnknownDirection    = errors.New("unknown direction")
	ErrUnknownMode         = errors.New("unknown mode")
	ErrUnknownTarget       = errors.New("unknown target")
	ErrUnknownMarker       = errors.New("unknown marker")
	ErrIncompleteFreeSpace = errors.New("incomplete free space map")
	ErrNoDistance          = errors.New("marker distance not available")
)
