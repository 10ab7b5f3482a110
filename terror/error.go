// SPDX-License-Identifier: ice License 1.0

package terror

import (
	"github.com/pkg/errors"
)

func New(err error, data map[string]any) *Err {
	return &Err{error: err, Data: data}
}

// Field tags err with the name of the input field that caused it.
func Field(err error, field string) *Err {
	return New(err, map[string]any{FieldKey: field})
}

func As(err error) *Err {
	tErr := new(Err)
	if errors.As(err, tErr) {
		return tErr
	}

	return nil
}

// DataOf returns the data of the outermost *Err in err's chain, if any.
func DataOf(err error) map[string]any {
	if tErr := As(err); tErr != nil {
		return tErr.Data
	}

	return nil
}

func (e *Err) Is(er error) bool {
	return errors.Is(er, e.error)
}

func (e *Err) Unwrap() error {
	return e.error
}

func (e *Err) As(err any) bool {
	o, ok := err.(*Err)
	if ok {
		*o = *e
	}

	return ok
}
