package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeekOrder(t *testing.T) {
	assert.Equal(t, []Day{Mon, Tue, Wed, Thu, Fri, Sat, Sun}, Days())
	assert.Equal(t, 0, Mon.Index())
	assert.Equal(t, 6, Sun.Index())
	assert.Equal(t, -1, Day("XYZ").Index())
}

func TestParseDay(t *testing.T) {
	d, ok := ParseDay(" sat ")
	assert.True(t, ok)
	assert.Equal(t, Sat, d)

	_, ok = ParseDay("Saturday")
	assert.False(t, ok)
}

func TestWeekdayMapping(t *testing.T) {
	assert.Equal(t, Sun, FromWeekday(time.Sunday))
	assert.Equal(t, Mon, FromWeekday(time.Monday))
	for _, d := range Days() {
		assert.Equal(t, d, FromWeekday(d.Weekday()))
	}
}

func TestInfo(t *testing.T) {
	info, ok := Info(Thu)
	assert.True(t, ok)
	assert.Equal(t, "Thu / 목", info.Label)
	assert.Equal(t, "Thu", info.Short)
}
