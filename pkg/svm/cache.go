package svm

import "container/list"

// columnCache keeps the most recently used kernel columns within a byte budget.
type columnCache struct {
	capacity int
	entries  map[int]*list.Element
	lru      *list.List
	compute  func(i int, col []float64)
	size     int

	hits, misses int
}

type cacheEntry struct {
	index int
	col   []float64
}

func newColumnCache(l int, megabytes float64, compute func(int, []float64)) *columnCache {
	capacity := int(megabytes * (1 << 20) / float64(8*l))
	if capacity < 2 {
		capacity = 2
	}
	return &columnCache{
		capacity: capacity,
		entries:  make(map[int]*list.Element),
		lru:      list.New(),
		compute:  compute,
		size:     l,
	}
}

// column returns column i of the kernel matrix. The slice stays valid after
// eviction and must not be modified.
func (c *columnCache) column(i int) []float64 {
	if e, ok := c.entries[i]; ok {
		c.hits++
		c.lru.MoveToFront(e)
		return e.Value.(*cacheEntry).col
	}

	c.misses++
	if c.lru.Len() >= c.capacity {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).index)
	}

	col := make([]float64, c.size)
	c.compute(i, col)
	c.entries[i] = c.lru.PushFront(&cacheEntry{index: i, col: col})
	return col
}
