package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopService_AlwaysFetches(t *testing.T) {
	svc := NewService(nil)
	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return map[string]int{"available": 8}, nil
	}

	var dest map[string]int
	require.NoError(t, svc.GetOrSet(context.Background(), "k", 0, fetch, &dest))
	require.NoError(t, svc.GetOrSet(context.Background(), "k", 0, fetch, &dest))

	assert.Equal(t, 2, calls)
	assert.Equal(t, 8, dest["available"])
	assert.ErrorIs(t, svc.Get(context.Background(), "k", &dest), ErrCacheMiss)
}

func TestGetOrSet_PropagatesFetcherError(t *testing.T) {
	boom := errors.New("db down")
	var dest string
	err := NewService(nil).GetOrSet(context.Background(), "k", 0, func() (interface{}, error) {
		return nil, boom
	}, &dest)
	assert.ErrorIs(t, err, boom)
}
