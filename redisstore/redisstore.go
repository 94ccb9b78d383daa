// Package redisstore keeps the treasury state in a single Redis key.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/etnz/treasury"
	"github.com/redis/go-redis/v9"
)

// DefaultKey is the key holding the state document.
const DefaultKey = "treasury:balances"

// Store is a treasury.StateStore backed by Redis. The whole state document is
// read with GET and written with a single SET, so that readers never see a
// partial write. The SET runs in a transaction watching the key, and only
// when the stored document is still the one of the state's Revision.
type Store struct {
	c   redis.UniversalClient
	key string
}

// New connects to the Redis at addr and checks it answers.
func New(ctx context.Context, addr, key string) (*Store, error) {
	c := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:                 []string{addr},
		DialTimeout:           5 * time.Second,
		ReadTimeout:           5 * time.Second,
		WriteTimeout:          5 * time.Second,
		ContextTimeoutEnabled: true,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewWithClient(c, key), nil
}

// NewWithClient returns a Store on an existing client.
func NewWithClient(c redis.UniversalClient, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{c: c, key: key}
}

// Key returns the key holding the state.
func (s *Store) Key() string { return s.key }

// Load reads the state. A missing key is reported as both ErrStateCorrupt
// and fs.ErrNotExist, as the file store does.
func (s *Store) Load(ctx context.Context) (*treasury.State, error) {
	b, err := s.c.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: key %q: %w", treasury.ErrStateCorrupt, s.key, fs.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", treasury.ErrStateCorrupt, err)
	}
	st, err := treasury.UnmarshalState(b)
	if err != nil {
		return nil, fmt.Errorf("redis key %s: %w", s.key, err)
	}
	st.Revision = treasury.RevisionOf(b)
	return st, nil
}

// Persist writes the whole state, unless the key changed since st was loaded.
func (s *Store) Persist(ctx context.Context, st *treasury.State) error {
	b, err := treasury.MarshalState(st)
	if err != nil {
		return fmt.Errorf("%w: %w", treasury.ErrStateWrite, err)
	}
	err = s.c.Watch(ctx, func(tx *redis.Tx) error {
		rev := ""
		cur, err := tx.Get(ctx, s.key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			rev = treasury.RevisionOf(cur)
		}
		if rev != st.Revision {
			return treasury.ErrStateChanged
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, b, 0)
			return nil
		})
		return err
	}, s.key)
	if errors.Is(err, redis.TxFailedErr) {
		err = treasury.ErrStateChanged
	}
	if err != nil {
		return fmt.Errorf("%w: key %q: %w", treasury.ErrStateWrite, s.key, err)
	}
	st.Revision = treasury.RevisionOf(b)
	return nil
}

// Close closes the client.
func (s *Store) Close() error { return s.c.Close() }
