package meals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateOnly(t *testing.T) {
	tehran := time.FixedZone("IRST", 3*3600+1800)
	in := time.Date(2026, 3, 10, 1, 0, 0, 0, tehran)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), DateOnly(in))
}

func TestBeyondWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)

	assert.False(t, beyondWindow(time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC), now, 2))
	assert.True(t, beyondWindow(time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC), now, 2))
	assert.False(t, beyondWindow(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), now, 0))
	assert.True(t, beyondWindow(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), now, 0))
	assert.False(t, beyondWindow(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), now, 1))
}
