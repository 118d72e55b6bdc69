package authz

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, source AssignmentSource) (*CachedAssignments, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCachedAssignments(client, source, time.Minute, nil), srv
}

func TestCachedAssignmentsReadThrough(t *testing.T) {
	source := &memoryAssignments{byProfessor: map[int64][]int64{3: {5, 9}}}
	cache, srv := newTestCache(t, source)
	ctx := context.Background()

	ids, err := cache.AssignedCourses(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, []int64{5, 9}, ids)
	require.Equal(t, 1, source.calls)

	// Second read is served from Redis.
	ids, err = cache.AssignedCourses(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, []int64{5, 9}, ids)
	require.Equal(t, 1, source.calls)

	require.True(t, srv.Exists("tutorhub:assignments:3"))
}

func TestCachedAssignmentsInvalidate(t *testing.T) {
	source := &memoryAssignments{byProfessor: map[int64][]int64{3: {5}}}
	cache, srv := newTestCache(t, source)
	ctx := context.Background()

	_, err := cache.AssignedCourses(ctx, 3)
	require.NoError(t, err)
	require.True(t, srv.Exists("tutorhub:assignments:3"))

	require.NoError(t, cache.Invalidate(ctx, 3))
	require.False(t, srv.Exists("tutorhub:assignments:3"))

	source.byProfessor[3] = []int64{5, 7}
	ids, err := cache.AssignedCourses(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, []int64{5, 7}, ids)
	require.Equal(t, 2, source.calls)
}

func TestCachedAssignmentsFallsBackWhenRedisDown(t *testing.T) {
	source := &memoryAssignments{byProfessor: map[int64][]int64{3: {5}}}
	cache, srv := newTestCache(t, source)
	srv.Close()

	ids, err := cache.AssignedCourses(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, []int64{5}, ids)
}

func TestCachedAssignmentsCorruptPayloadFallsBack(t *testing.T) {
	source := &memoryAssignments{byProfessor: map[int64][]int64{3: {5}}}
	cache, srv := newTestCache(t, source)
	require.NoError(t, srv.Set("tutorhub:assignments:3", "not-json"))

	ids, err := cache.AssignedCourses(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, []int64{5}, ids)
	require.Equal(t, 1, source.calls)
}
