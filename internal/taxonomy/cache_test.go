package taxonomy

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineageCache(t *testing.T) {
	c := NewLineageCache[uint32]()
	assert.Equal(t, 0, c.Len())

	_, ok := c.Get(562)
	assert.False(t, ok)

	var lin Lineage[uint32]
	lin.Set(Species, 562)
	c.Put(562, lin)

	got, ok := c.Get(562)
	assert.True(t, ok)
	assert.Equal(t, lin, got)
	assert.Equal(t, 1, c.Len())
}

func TestLineageCacheConcurrent(t *testing.T) {
	c := NewLineageCache[int]()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			var lin Lineage[int]
			lin.Set(Species, n)
			c.Put(n, lin)
			c.Get(n)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 16, c.Len())
}
