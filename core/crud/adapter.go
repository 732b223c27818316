// Package crud holds the client side of an administration page: an Entity Store kept in sync with an
// authoritative source through an Adapter, a Form Buffer staging one record at a time, and the pure
// aggregates the list views are built from.
package crud

import (
	"context"
)

// Record is an entity the store can hold. Clone must deep-copy nested maps and slices.
type Record[T any] interface {
	Key() string
	Clone() T
}

// Adapter persists drafts and lists the authoritative collection.
// Identifiers are always assigned by the authoritative side.
type Adapter[T any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, draft T) (string, error)
	Update(ctx context.Context, id string, draft T) error
	Delete(ctx context.Context, id string) error
}

// Service is the shape of the domain services (room.Service, teacher.Service, ...).
type Service[T any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, draft T) (T, error)
	Update(ctx context.Context, id string, draft T) (T, error)
	Delete(ctx context.Context, id string) error
}

type serviceAdapter[T Record[T]] struct {
	svc Service[T]
}

// FromService adapts a domain service to an Adapter, for stores backed by the local database.
func FromService[T Record[T]](svc Service[T]) Adapter[T] {
	return &serviceAdapter[T]{svc: svc}
}

func (a *serviceAdapter[T]) List(ctx context.Context) ([]T, error) {
	return a.svc.List(ctx)
}

func (a *serviceAdapter[T]) Create(ctx context.Context, draft T) (string, error) {
	rec, err := a.svc.Create(ctx, draft)
	if err != nil {
		return "", err
	}
	return rec.Key(), nil
}

func (a *serviceAdapter[T]) Update(ctx context.Context, id string, draft T) error {
	_, err := a.svc.Update(ctx, id, draft)
	return err
}

func (a *serviceAdapter[T]) Delete(ctx context.Context, id string) error {
	return a.svc.Delete(ctx, id)
}
