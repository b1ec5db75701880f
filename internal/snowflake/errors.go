package snowflake

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument     = errors.New("snowflake: invalid argument")
	ErrClockMovedBackwards = errors.New("snowflake: clock moved backwards")
	ErrTimestampOverflow   = errors.New("snowflake: timestamp out of range")
)

// ClockMovedBackwardsError reports a clock reading earlier than the timestamp
// of the last issued ID.
type ClockMovedBackwardsError struct {
	Last int64
	Now  int64
}

func (e *ClockMovedBackwardsError) Error() string {
	return fmt.Sprintf("snowflake: clock moved backwards by %dms (last %d, now %d)", e.Last-e.Now, e.Last, e.Now)
}

func (e *ClockMovedBackwardsError) Is(target error) bool {
	return target == ErrClockMovedBackwards
}

// TimestampOverflowError reports a clock reading that cannot be expressed as
// a 41-bit offset from Epoch.
type TimestampOverflowError struct {
	Now int64
}

func (e *TimestampOverflowError) Error() string {
	return fmt.Sprintf("snowflake: time %d is outside [%d, %d]", e.Now, Epoch, Epoch+MaxOffset)
}

func (e *TimestampOverflowError) Is(target error) bool {
	return target == ErrTimestampOverflow
}
