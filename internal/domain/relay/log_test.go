package relay

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogAppendPreservesArrivalOrder(t *testing.T) {
	log := NewLog(10)
	log.Reset(1)

	_, err := log.Append(1, KindMessage, "first", SourceSandbox)
	require.NoError(t, err)
	_, err = log.Append(1, KindError, "second", SourceSandbox)
	require.NoError(t, err)
	_, err = log.Append(1, KindMessage, "third", SourceSandbox)
	require.NoError(t, err)

	msgs := log.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"first", "second", "third"}, []string{msgs[0].Text, msgs[1].Text, msgs[2].Text})
	assert.Equal(t, KindError, msgs[1].Kind)
	assert.Less(t, msgs[0].Seq, msgs[1].Seq)
}

func TestLogRejectsStaleGeneration(t *testing.T) {
	log := NewLog(10)
	log.Reset(1)
	_, err := log.Append(1, KindMessage, "old", SourceSandbox)
	require.NoError(t, err)

	log.Reset(2)
	assert.Zero(t, log.Len(), "reset clears messages of the previous generation")

	_, err = log.Append(1, KindMessage, "late", SourceSandbox)
	assert.ErrorIs(t, err, ErrStaleGeneration)

	_, err = log.Append(3, KindMessage, "future", SourceSandbox)
	assert.ErrorIs(t, err, ErrStaleGeneration)

	assert.Zero(t, log.Len())
}

func TestLogResetIsMonotonic(t *testing.T) {
	log := NewLog(10)
	assert.True(t, log.Reset(5))
	assert.False(t, log.Reset(4))
	assert.Equal(t, uint64(5), log.Generation())
}

func TestLogSince(t *testing.T) {
	log := NewLog(10)
	log.Reset(1)
	a, _ := log.Append(1, KindMessage, "a", SourceSandbox)
	log.Append(1, KindMessage, "b", SourceSandbox)

	since := log.Since(a.Seq)
	require.Len(t, since, 1)
	assert.Equal(t, "b", since[0].Text)

	log.Reset(2)
	c, _ := log.Append(2, KindMessage, "c", SourceSandbox)
	assert.Greater(t, c.Seq, a.Seq, "sequence numbers survive resets")
	assert.Empty(t, log.Since(c.Seq))
}

func TestLogCapacity(t *testing.T) {
	log := NewLog(2)
	log.Reset(1)
	for _, text := range []string{"a", "b", "c"} {
		_, err := log.Append(1, KindMessage, text, SourceSandbox)
		require.NoError(t, err)
	}

	msgs := log.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "b", msgs[0].Text)
	assert.Equal(t, uint64(1), log.Dropped())
}

func TestLogConcurrentAppend(t *testing.T) {
	log := NewLog(1000)
	log.Reset(1)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				log.Append(1, KindMessage, "m", SourceSandbox)
			}
		}()
	}
	wg.Wait()

	msgs := log.Messages()
	require.Len(t, msgs, 500)
	for i := 1; i < len(msgs); i++ {
		assert.Less(t, msgs[i-1].Seq, msgs[i].Seq)
	}
}
