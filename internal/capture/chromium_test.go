package capture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptionsDefaults(t *testing.T) {
	o := Options{URL: "http://x"}.withDefaults()
	assert.Equal(t, DefaultWidth, o.Width)
	assert.Equal(t, DefaultHeight, o.Height)
	assert.Equal(t, 30*time.Second, o.Timeout)

	o = Options{Width: 640, Height: 480, Timeout: time.Second}.withDefaults()
	assert.Equal(t, 640, o.Width)
	assert.Equal(t, time.Second, o.Timeout)
}

func TestCapturePNG_RequiresURL(t *testing.T) {
	_, err := Chromium{}.CapturePNG(context.Background(), Options{})
	assert.ErrorContains(t, err, "URL is required")
}
