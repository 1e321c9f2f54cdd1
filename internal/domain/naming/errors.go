package naming

import (
	"errors"
	"fmt"

	"github.com/okian/grudgematch/internal/domain/model"
)

// Sentinel kinds for validation failures, one per non-valid Code.
var (
	ErrNameInUseActive   = errors.New("name already in use")
	ErrNameInUseInactive = errors.New("name in use by an inactive entity")
	ErrNameReserved      = errors.New("name is reserved")
	ErrNameTooLong       = errors.New("name too long")
	ErrIllegalCharacter  = errors.New("name contains an illegal character")
)

// Err returns the sentinel for c, or nil for Valid.
func (c Code) Err() error {
	switch c {
	case NameInUseActive:
		return ErrNameInUseActive
	case NameInUseInactive:
		return ErrNameInUseInactive
	case NameReserved:
		return ErrNameReserved
	case NameTooLong:
		return ErrNameTooLong
	case IllegalCharacter:
		return ErrIllegalCharacter
	default:
		return nil
	}
}

// ValidationError reports a rejected name with enough detail to correct it.
type ValidationError struct {
	Kind model.Kind
	Name string
	Code Code
}

// NewValidationError returns nil when code is Valid.
func NewValidationError(kind model.Kind, name string, code Code) error {
	if code == Valid {
		return nil
	}
	return &ValidationError{Kind: kind, Name: name, Code: code}
}

func (e *ValidationError) Error() string {
	switch e.Code {
	case NameInUseInactive:
		return fmt.Sprintf("%s %q exists but is inactive; activate it instead", e.Kind, e.Name)
	case NameTooLong:
		return fmt.Sprintf("%s name %q: %s (max %d characters)", e.Kind, e.Name, e.Code.Err(), MaxLength(e.Kind))
	case IllegalCharacter:
		return fmt.Sprintf("%s name %q: %s (forbidden: %s)", e.Kind, e.Name, e.Code.Err(), IllegalCharacters)
	default:
		return fmt.Sprintf("%s name %q: %s", e.Kind, e.Name, e.Code.Err())
	}
}

func (e *ValidationError) Unwrap() error { return e.Code.Err() }

// CodeOf extracts the validation code from err, or Valid if err carries none.
func CodeOf(err error) Code {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return Valid
}
