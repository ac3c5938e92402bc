package costing

import "fmt"

// ValidationKind classifies a rejected request.
type ValidationKind int

const (
	MissingOrInvalidItems ValidationKind = iota + 1
	InvalidBatchMultiplier
	InvalidCostInput
	AmbiguousOutputSource
	InvalidWasteFraction
	InvalidMarkup
	InvalidVat
	InconsistentToppingInputs
	InvalidRiskParameter
)

func (k ValidationKind) String() string {
	switch k {
	case MissingOrInvalidItems:
		return "MissingOrInvalidItems"
	case InvalidBatchMultiplier:
		return "InvalidBatchMultiplier"
	case InvalidCostInput:
		return "InvalidCostInput"
	case AmbiguousOutputSource:
		return "AmbiguousOutputSource"
	case InvalidWasteFraction:
		return "InvalidWasteFraction"
	case InvalidMarkup:
		return "InvalidMarkup"
	case InvalidVat:
		return "InvalidVat"
	case InconsistentToppingInputs:
		return "InconsistentToppingInputs"
	case InvalidRiskParameter:
		return "InvalidRiskParameter"
	default:
		return fmt.Sprintf("ValidationKind(%d)", int(k))
	}
}

// ValidationError is returned before any arithmetic runs.
type ValidationError struct {
	Kind    ValidationKind
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid batch request (%s): %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("invalid batch request (%s) %s: %s", e.Kind, e.Field, e.Message)
}

// Is matches any *ValidationError with the same Kind, so callers can write
// errors.Is(err, &costing.ValidationError{Kind: costing.InvalidVat}).
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Kind == e.Kind
}

func invalid(kind ValidationKind, field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Kind: kind, Field: field, Message: fmt.Sprintf(format, args...)}
}

// ComputationKind classifies a failure inside the pipeline.
type ComputationKind int

const (
	ZeroSellableUnits ComputationKind = iota + 1
	NegativeUnitCost
	MarginTooCloseToSingularity
	MissingRequest
	UndefinedMargin
)

func (k ComputationKind) String() string {
	switch k {
	case ZeroSellableUnits:
		return "ZeroSellableUnits"
	case NegativeUnitCost:
		return "NegativeUnitCost"
	case MarginTooCloseToSingularity:
		return "MarginTooCloseToSingularity"
	case MissingRequest:
		return "MissingRequest"
	case UndefinedMargin:
		return "UndefinedMargin"
	default:
		return fmt.Sprintf("ComputationKind(%d)", int(k))
	}
}

// ComputationError is returned when a valid request cannot be priced.
type ComputationError struct {
	Kind    ComputationKind
	Message string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("batch computation failed (%s): %s", e.Kind, e.Message)
}

// Is matches any *ComputationError with the same Kind.
func (e *ComputationError) Is(target error) bool {
	t, ok := target.(*ComputationError)
	return ok && t.Kind == e.Kind
}

func failed(kind ComputationKind, format string, args ...interface{}) *ComputationError {
	return &ComputationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
