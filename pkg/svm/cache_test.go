package svm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnCache(t *testing.T) {
	computed := 0
	c := newColumnCache(4, 1e-9, func(i int, col []float64) {
		computed++
		for k := range col {
			col[k] = float64(i*10 + k)
		}
	})

	assert.Equal(t, 2, c.capacity, "capacity is never below two columns")

	col := c.column(1)
	assert.Equal(t, []float64{10, 11, 12, 13}, col)

	c.column(2)
	c.column(1)
	assert.Equal(t, 2, computed)
	assert.Equal(t, 1, c.hits)

	// Column 2 is least recently used and gets evicted.
	c.column(3)
	c.column(2)
	assert.Equal(t, 4, computed)
	assert.Equal(t, 4, c.misses)

	// Evicted slices remain readable.
	assert.Equal(t, []float64{10, 11, 12, 13}, col)
}
