package domain

import "errors"

var (
	ErrNotFound                = errors.New("not_found")
	ErrInvalidState            = errors.New("invalid_state")
	ErrDuplicateReturn         = errors.New("duplicate_tax_return")
	ErrRecalculationInProgress = errors.New("recalculation_in_progress")

	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidDateRange  = errors.New("invalid_date_range")
	ErrInvalidPeriod     = errors.New("invalid_period")
	ErrInvalidPeriodType = errors.New("invalid_period_type")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidFormat     = errors.New("invalid_format")
)

// IsValidation reports whether err is caused by malformed caller input.
func IsValidation(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidID),
		errors.Is(err, ErrInvalidDateRange),
		errors.Is(err, ErrInvalidPeriod),
		errors.Is(err, ErrInvalidPeriodType),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidFormat):
		return true
	default:
		return false
	}
}
