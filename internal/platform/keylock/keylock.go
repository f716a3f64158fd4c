// Package keylock serializes work per key. Identity resolution uses it to keep
// two requests for the same normalized identity from both creating a parent.
package keylock

import (
	"context"
	"hash/fnv"
	"sync"
)

// Locker acquires an exclusive lock on key. The returned unlock func must be
// called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), error)
}

const defaultStripes = 64

// Striped is an in-process Locker backed by a fixed set of mutexes. Distinct
// keys may share a stripe; that only costs throughput.
type Striped struct {
	stripes []chan struct{}
}

// NewStriped returns a Striped locker with n stripes (64 when n < 1).
func NewStriped(n int) *Striped {
	if n < 1 {
		n = defaultStripes
	}
	s := &Striped{stripes: make([]chan struct{}, n)}
	for i := range s.stripes {
		s.stripes[i] = make(chan struct{}, 1)
	}
	return s
}

// Lock blocks until the stripe for key is free or ctx is done.
func (s *Striped) Lock(ctx context.Context, key string) (func(), error) {
	stripe := s.stripes[s.index(key)]
	select {
	case stripe <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() {
		once.Do(func() { <-stripe })
	}, nil
}

func (s *Striped) index(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(s.stripes)))
}

var _ Locker = (*Striped)(nil)
