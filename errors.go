package nutriplan

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrGenerationParse   = errors.New("generated text is not recoverable JSON")
	ErrSchema            = errors.New("plan does not match the expected shape")
	ErrValidationFailure = errors.New("plan failed guardrail validation")
	ErrTransport         = errors.New("generation transport failure")
	ErrUnknownFood       = errors.New("unknown food")
	ErrInvalidSwap       = errors.New("invalid swap")
	ErrInvalidProfile    = errors.New("invalid profile")
	ErrNoActivePlan      = errors.New("no active plan")
	ErrPlanNotFound      = errors.New("plan not found")
)

// GenerationParseError reports generator output that could not be read as JSON, even after brace extraction.
type GenerationParseError struct {
	Raw string
	Err error
}

func (e *GenerationParseError) Error() string {
	return fmt.Sprintf("%s: %v", ErrGenerationParse, e.Err)
}

func (e *GenerationParseError) Unwrap() []error { return []error{ErrGenerationParse, e.Err} }

// SchemaError lists the structural problems found in otherwise valid JSON.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSchema, strings.Join(e.Problems, "; "))
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// ValidationFailure is terminal for a generate request: nothing was persisted.
type ValidationFailure struct {
	Result ValidationResult
}

func (e *ValidationFailure) Error() string {
	return fmt.Sprintf("%s: %d problem(s): %s", ErrValidationFailure, len(e.Result.Problems), strings.Join(e.Result.Problems, "; "))
}

func (e *ValidationFailure) Unwrap() error { return ErrValidationFailure }

// TransportError wraps a failed generator call. It is never retried.
type TransportError struct {
	Attempt int
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s on attempt %d: %v", ErrTransport, e.Attempt, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }

// InvalidSwapError rejects a substitution request without touching the stored plan.
type InvalidSwapError struct {
	Reason string
}

func (e *InvalidSwapError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidSwap, e.Reason)
}

func (e *InvalidSwapError) Unwrap() error { return ErrInvalidSwap }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the profile against its input ranges.
func (p Profile) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			problems = append(problems, fmt.Sprintf("%s is required", fe.Field()))
		case "oneof":
			problems = append(problems, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		case "gte":
			problems = append(problems, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "lte", "max":
			problems = append(problems, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		default:
			problems = append(problems, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidProfile, strings.Join(problems, "; "))
}
