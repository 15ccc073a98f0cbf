package loop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMarketOpen(t *testing.T) {
	day := func(d, h, m int) time.Time {
		return time.Date(2025, 3, d, h, m, 0, 0, time.UTC)
	}

	// 2025-03-14 is a Friday, 2025-03-15 a Saturday.
	assert.False(t, marketOpen(day(14, 6, 29)))
	assert.True(t, marketOpen(day(14, 6, 30)))
	assert.True(t, marketOpen(day(14, 12, 59)))
	assert.False(t, marketOpen(day(14, 13, 0)))
	assert.False(t, marketOpen(day(15, 10, 0)))
	assert.False(t, marketOpen(day(16, 10, 0)))
}
