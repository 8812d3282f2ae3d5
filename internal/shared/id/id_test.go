package id

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	assert.NotEqual(t, id1.String(), id2.String())
	assert.Less(t, id1.String(), id2.String(), "monotonic entropy keeps order within a millisecond")
}

func TestGenerateString(t *testing.T) {
	id := NewGenerator().GenerateString()

	assert.Len(t, id, 26)
	assert.True(t, IsValid(id))
}

func TestTypedIDs(t *testing.T) {
	req := NewRequestID()
	conn := NewConnID()

	assert.True(t, strings.HasPrefix(req.String(), RequestPrefix+"_"))
	assert.True(t, strings.HasPrefix(conn.String(), ConnPrefix+"_"))
	assert.True(t, IsValid(strings.TrimPrefix(req.String(), RequestPrefix+"_")))
}

func TestIsValid(t *testing.T) {
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("not-a-ulid"))
	assert.False(t, IsValid(NewRequestID().String()), "prefixed ids are not bare ULIDs")
}

func TestConcurrentGeneration(t *testing.T) {
	gen := Default()
	const n = 500

	var mu sync.Mutex
	seen := make(map[string]struct{}, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := gen.GenerateString()
			mu.Lock()
			seen[s] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
}

func TestRequestIDContext(t *testing.T) {
	assert.Empty(t, RequestIDFrom(context.Background()))

	rid := NewRequestID()
	ctx := WithRequestID(context.Background(), rid)
	assert.Equal(t, rid, RequestIDFrom(ctx))
}
