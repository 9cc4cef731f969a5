package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
)

// ParamValidator is a function type that validates a parameter.
type ParamValidator func(valueToTest int64) bool

func newComparisonValidator(valueInClosure int64, compareFn func(argValue, closedValue int64) bool) ParamValidator {
	return func(argValue int64) bool {
		return compareFn(argValue, valueInClosure)
	}
}

// gte returns a ParamValidator that checks if the argument is greater than or equal to the value captured in the closure.
func gte(valToCompareAgainst int64) ParamValidator {
	return newComparisonValidator(valToCompareAgainst, func(argValue, closedValue int64) bool {
		return argValue >= closedValue
	})
}

// ParseOptionalGte reads an optional integer query parameter that must be >= value.
// A missing parameter yields def.
func ParseOptionalGte(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string, def, value int64) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return int(def), true
	}
	intValue, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || !gte(value)(intValue) {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid %s number: %s", key, raw))
		return 0, false
	}
	return int(intValue), true
}

// ParseOptionalDecimal reads an optional non-negative decimal query parameter.
func ParseOptionalDecimal(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string) (*decimal.Decimal, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, true
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid %s amount: %s", key, raw))
		return nil, false
	}
	return &d, true
}

// ParseOptionalBool reads an optional boolean query parameter. A missing parameter yields nil.
func ParseOptionalBool(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string) (*bool, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, true
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid %s flag: %s", key, raw))
		return nil, false
	}
	return &b, true
}
