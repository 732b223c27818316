package crud

import (
	"context"
	"errors"
)

var ErrBufferClosed = errors.New("form is not open")

// FieldSetter applies a textual form value to the field at path (e.g. "capacity",
// "availability.monday.startTime").
type FieldSetter[T any] func(draft *T, path, value string) error

// Buffer is the Form Buffer: a single draft staged independently of the Store until committed.
type Buffer[T Record[T]] struct {
	template func() T
	setter   FieldSetter[T]

	draft  T
	target string
	open   bool
}

func NewBuffer[T Record[T]](template func() T, setter FieldSetter[T]) *Buffer[T] {
	return &Buffer[T]{template: template, setter: setter}
}

// OpenForCreate resets the draft to the empty template.
func (b *Buffer[T]) OpenForCreate() {
	b.draft = b.template()
	b.target = ""
	b.open = true
}

// OpenForEdit stages a deep copy of rec: nothing done to the draft reaches rec or the store.
func (b *Buffer[T]) OpenForEdit(rec T) {
	b.draft = rec.Clone()
	b.target = rec.Key()
	b.open = true
}

func (b *Buffer[T]) IsOpen() bool { return b.open }

// Editing returns the id of the record being edited, if any.
func (b *Buffer[T]) Editing() (string, bool) {
	return b.target, b.open && b.target != ""
}

// Draft returns a copy of the staged record.
func (b *Buffer[T]) Draft() T {
	return b.draft.Clone()
}

func (b *Buffer[T]) SetField(path, value string) error {
	if !b.open {
		return ErrBufferClosed
	}
	return b.setter(&b.draft, path, value)
}

// Edit applies a typed mutation (toggles, nested merges) to the draft.
func (b *Buffer[T]) Edit(fn func(draft *T)) error {
	if !b.open {
		return ErrBufferClosed
	}
	fn(&b.draft)
	return nil
}

// Commit creates or updates through the store. Once the adapter accepted the draft the buffer is
// reset and closed and the id of the saved record returned (with a *RefreshError if the refetch
// failed); if the adapter rejected it the draft stays open for correction.
func (b *Buffer[T]) Commit(ctx context.Context, store *Store[T]) (string, error) {
	if !b.open {
		return "", ErrBufferClosed
	}
	var id string
	var err error
	if b.target != "" {
		id = b.target
		err = store.Update(ctx, b.target, b.draft)
	} else {
		id, err = store.Create(ctx, b.draft)
	}
	var rerr *RefreshError
	if err != nil && !errors.As(err, &rerr) {
		return "", err
	}
	// saved; a failed refetch only leaves the store stale
	b.reset()
	return id, err
}

// Cancel discards the draft without calling the adapter.
func (b *Buffer[T]) Cancel() {
	b.reset()
}

func (b *Buffer[T]) reset() {
	var zero T
	b.draft = zero
	b.target = ""
	b.open = false
}
