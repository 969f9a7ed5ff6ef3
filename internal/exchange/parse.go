package exchange

import (
	"strconv"

	"sniper/internal/errs"
)

// parseFloatField parses the string-encoded numeric fields exchange feeds
// send price and size as.
func parseFloatField(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &errs.ParseError{Err: err}
	}
	return v, nil
}
