package joblog

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sinks(t *testing.T) map[string]Sink {
	t.Helper()

	fileSink, err := NewFileSink(filepath.Join(t.TempDir(), "logs"))
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]Sink{
		"file":  fileSink,
		"redis": NewRedisSink(client, time.Hour),
	}
}

func TestSink_AppendAndRead(t *testing.T) {
	for name, sink := range sinks(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, sink.Append(ctx, "job-1", "starting collector"))
			require.NoError(t, sink.Append(ctx, "job-1", "page 1 done\n"))
			require.NoError(t, sink.Append(ctx, "job-2", "other job"))

			got, err := sink.Read(ctx, "job-1")
			require.NoError(t, err)
			assert.Equal(t, "starting collector\npage 1 done\n", got)
		})
	}
}

func TestSink_MissingLogIsEmpty(t *testing.T) {
	for name, sink := range sinks(t) {
		t.Run(name, func(t *testing.T) {
			got, err := sink.Read(context.Background(), "never-written")
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestSink_Remove(t *testing.T) {
	for name, sink := range sinks(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, sink.Append(ctx, "job-1", "starting collector"))

			require.NoError(t, sink.Remove(ctx, "job-1"))
			require.NoError(t, sink.Remove(ctx, "never-written"))

			got, err := sink.Read(ctx, "job-1")
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestSink_ConcurrentAppendsKeepWholeLines(t *testing.T) {
	for name, sink := range sinks(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			var wg sync.WaitGroup
			for w := 0; w < 4; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < 25; i++ {
						assert.NoError(t, sink.Append(ctx, "job", "0123456789"))
					}
				}()
			}
			wg.Wait()

			got, err := sink.Read(ctx, "job")
			require.NoError(t, err)
			assert.Equal(t, 100*11, len(got))
		})
	}
}

func TestFileSink_Path(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "abc.log"), sink.Path("abc"))
}

func TestRedisSink_ExpiresAfterTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sink := NewRedisSink(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, sink.Append(ctx, "job-1", "hello"))
	assert.Equal(t, time.Minute, mr.TTL(sink.Path("job-1")))

	mr.FastForward(2 * time.Minute)

	got, err := sink.Read(ctx, "job-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}
