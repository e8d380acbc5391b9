package api

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// maxQueryHours is the largest hour count that still fits in a time.Duration.
var maxQueryHours = float64(math.MaxInt64 / int64(time.Hour))

// parseHours converts an hours query value into a duration. Non-finite values,
// negative values and values too large for a time.Duration are rejected, as is
// zero unless allowZero is set.
func parseHours(name, raw string, allowZero bool) (time.Duration, error) {
	hours, err := strconv.ParseFloat(raw, 64)
	switch {
	case err != nil,
		math.IsNaN(hours), math.IsInf(hours, 0),
		hours < 0, hours > maxQueryHours,
		hours == 0 && !allowZero:
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidQuery, name, raw)
	}
	return time.Duration(hours * float64(time.Hour)), nil
}
