package identity

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUID(t *testing.T) {
	gen := UUID()
	a, b := gen.NewID(), gen.NewID()

	_, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestULID_Monotonic(t *testing.T) {
	gen := ULID()
	prev := gen.NewID()
	for i := 0; i < 100; i++ {
		next := gen.NewID()
		_, err := ulid.ParseStrict(next)
		require.NoError(t, err)
		assert.Less(t, prev, next)
		prev = next
	}
}

func TestShort(t *testing.T) {
	id := Short(0).NewID()
	assert.Len(t, id, DefaultShortLength)
	for _, r := range id {
		assert.Contains(t, shortAlphabet, string(r))
	}
	assert.Len(t, Short(21).NewID(), 21)
}

func TestSequence(t *testing.T) {
	seq := Sequence("n")
	assert.Equal(t, "n1", seq.NewID())
	assert.Equal(t, "n2", seq.NewID())

	seq.Reset()
	assert.Equal(t, "n1", seq.NewID())
}

func TestSequence_Concurrent(t *testing.T) {
	seq := Sequence("x")
	const workers, perWorker = 8, 250

	var mu sync.Mutex
	seen := make(map[string]bool, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := seq.NewID()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*perWorker)
}

func TestGeneratorFunc(t *testing.T) {
	gen := GeneratorFunc(func() string { return "fixed" })
	assert.Equal(t, "fixed", gen.NewID())
}

func TestFromScheme(t *testing.T) {
	for _, name := range []string{"", SchemeUUID, SchemeULID, SchemeShort, SchemeSeq} {
		gen, err := FromScheme(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, gen.NewID())
	}

	_, err := FromScheme("snowflake")
	assert.ErrorContains(t, err, "unknown id scheme")
}
