package quality

import "errors"

// Gate failures. Each drops the offending datapoint.
var (
	ErrMissingKey          = errors.New("missing required key")
	ErrCapacityExceeded    = errors.New("net flow exceeds declared exchange capacity")
	ErrStepChangeExceeded  = errors.New("step change exceeds allowed difference")
	ErrMissingRequiredMode = errors.New("required production mode is missing")
	ErrFloorNotMet         = errors.New("total production below floor")
	ErrRangeViolated       = errors.New("value outside expected range")
	ErrAllZeros            = errors.New("every production mode is zero or absent")
)
