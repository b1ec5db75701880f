package snowflake

import "time"

//go:generate mockgen -destination=clock_mock_test.go -package=snowflake . Clock

// Clock is the wall clock a Generator reads.
type Clock interface {
	UnixMilli() int64
}

type systemClock struct{}

func (systemClock) UnixMilli() int64 {
	return time.Now().UnixMilli()
}

// SystemClock reads time.Now.
var SystemClock Clock = systemClock{}
