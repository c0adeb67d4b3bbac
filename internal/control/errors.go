package control

import (
	"errors"
	"fmt"
)

// Errors returned by Controller.Start.
var (
	ErrInvalidSpeed    = errors.New("invalid speed")
	ErrInterlockActive = errors.New("interlock active")
)

// SpeedError describes a speed that fell outside the accepted limits.
type SpeedError struct {
	Speed  int
	Limits Limits
}

func (e *SpeedError) Error() string {
	return fmt.Sprintf("speed %d outside %s", e.Speed, e.Limits)
}

// Is lets errors.Is match ErrInvalidSpeed.
func (e *SpeedError) Is(target error) bool {
	return target == ErrInvalidSpeed
}
