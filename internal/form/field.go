// Package form holds wizard field state: a baseline ("initial") value that
// prefill logic writes, and a live value that user edits layer on top of.
package form

import "encoding/json"

// Field is a single form field. The zero value is a field whose baseline and
// live value are both the zero value of T.
type Field[T any] struct {
	initial T
	value   T
	dirty   bool
}

// NewField returns a field whose baseline and live value are v.
func NewField[T any](v T) Field[T] {
	return Field[T]{initial: v, value: v}
}

// Value returns the live value.
func (f *Field[T]) Value() T { return f.value }

// InitialValue returns the baseline.
func (f *Field[T]) InitialValue() T { return f.initial }

// IsDirty reports whether the live value was set by the user since the last reset.
func (f *Field[T]) IsDirty() bool { return f.dirty }

// SetValue records a user edit.
func (f *Field[T]) SetValue(v T) {
	f.value = v
	f.dirty = true
}

// SetInitialValue replaces the baseline. A field the user has not edited
// follows its baseline.
func (f *Field[T]) SetInitialValue(v T) {
	f.initial = v
	if !f.dirty {
		f.value = v
	}
}

// Reset discards user edits and returns to the baseline.
func (f *Field[T]) Reset() {
	f.value = f.initial
	f.dirty = false
}

type fieldJSON[T any] struct {
	Value        T    `json:"value"`
	InitialValue T    `json:"initialValue"`
	IsDirty      bool `json:"isDirty"`
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(fieldJSON[T]{Value: f.value, InitialValue: f.initial, IsDirty: f.dirty})
}
