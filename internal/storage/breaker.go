package storage

import (
	"context"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerDisk wraps a disk with a circuit breaker. Once the breaker opens,
// calls fail fast with gobreaker.ErrOpenState until the timeout elapses.
// ErrNotFound is an answer from a healthy disk and never trips it.
type BreakerDisk struct {
	Disk
	cb *gobreaker.CircuitBreaker[any]
}

// NewBreakerDisk opens the breaker after maxFailures consecutive failures.
func NewBreakerDisk(d Disk, maxFailures uint32, timeout time.Duration, logger zerolog.Logger) *BreakerDisk {
	if maxFailures == 0 {
		maxFailures = 1
	}
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "disk-" + d.Name(),
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return &BreakerDisk{Disk: d, cb: cb}
}

func (b *BreakerDisk) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerDisk) do(fn func() error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	return err
}

func (b *BreakerDisk) Put(ctx context.Context, key string, r io.Reader) error {
	return b.do(func() error { return b.Disk.Put(ctx, key, r) })
}

func (b *BreakerDisk) MakeDirectory(ctx context.Context, dir string) error {
	return b.do(func() error { return b.Disk.MakeDirectory(ctx, dir) })
}

func (b *BreakerDisk) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := b.do(func() error {
		var err error
		exists, err = b.Disk.Exists(ctx, key)
		return err
	})
	return exists, err
}

func (b *BreakerDisk) Files(ctx context.Context, dir string) ([]string, error) {
	var files []string
	err := b.do(func() error {
		var err error
		files, err = b.Disk.Files(ctx, dir)
		return err
	})
	return files, err
}

func (b *BreakerDisk) LastModified(ctx context.Context, key string) (time.Time, error) {
	var modified time.Time
	err := b.do(func() error {
		var err error
		modified, err = b.Disk.LastModified(ctx, key)
		return err
	})
	return modified, err
}

func (b *BreakerDisk) Delete(ctx context.Context, key string) error {
	return b.do(func() error { return b.Disk.Delete(ctx, key) })
}
