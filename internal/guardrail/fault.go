package guardrail

import (
	"errors"
	"fmt"

	"github.com/roach88/guardrail/internal/ir"
)

// ErrMalformedOperation is returned for operations whose shape is wrong.
var ErrMalformedOperation = ir.ErrMalformedOperation

// Fault is an infrastructure failure that prevents a verdict.
type Fault struct {
	Code ir.Code
	Op   ir.OpKind
	Err  error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.Code, f.Op, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// lookupFault wraps a lookup error.
func lookupFault(kind ir.OpKind, err error) *Fault {
	return &Fault{Code: ir.CodeLookupUnavailable, Op: kind, Err: err}
}

// AsFault extracts a Fault from an error chain.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
