package kvstore

import (
	"context"
	"time"
)

// Instrumented reports the duration and outcome of every call to an Observer.
type Instrumented struct {
	next     Store
	observer Observer
}

// WithObserver wraps s. A nil observer returns s unchanged.
func WithObserver(s Store, observer Observer) Store {
	if observer == nil {
		return s
	}
	return &Instrumented{next: s, observer: observer}
}

func (i *Instrumented) Get(ctx context.Context, key string) (*Document, error) {
	start := time.Now()
	doc, err := i.next.Get(ctx, key)
	i.observer.ObserveStoreOp("get", err, time.Since(start).Seconds())
	return doc, err
}

func (i *Instrumented) Set(ctx context.Context, key string, value []byte, expectedVersion int64) (int64, error) {
	start := time.Now()
	version, err := i.next.Set(ctx, key, value, expectedVersion)
	i.observer.ObserveStoreOp("set", err, time.Since(start).Seconds())
	return version, err
}

func (i *Instrumented) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := i.next.Delete(ctx, key)
	i.observer.ObserveStoreOp("delete", err, time.Since(start).Seconds())
	return err
}

func (i *Instrumented) Close() error {
	return i.next.Close()
}
