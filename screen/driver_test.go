package screen

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), "selenium", Options{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "selenium")
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, orNop(nil))
	assert.NotPanics(t, func() { orNop(nil).Info("Chrome launched") })

	logger := zap.NewExample()
	assert.Same(t, logger, orNop(logger))
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, "about:blank", o.StartURL)
	assert.Equal(t, 1920, o.Width)
	assert.Equal(t, 1080, o.Height)
	assert.Equal(t, 1.0, o.DeviceScale)

	o = Options{Width: 800, Height: 600, DeviceScale: 2}.withDefaults()
	assert.Equal(t, 800, o.Width)
	assert.Equal(t, 2.0, o.DeviceScale)
}

func TestTypeRunesOrderAndEnter(t *testing.T) {
	var got []string
	entered := false
	err := typeRunes(context.Background(), "Paris é", true, Settle{},
		func(s string) error {
			assert.False(t, entered, "enter must follow the text")
			got = append(got, s)
			return nil
		},
		func() error { entered = true; return nil },
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"P", "a", "r", "i", "s", " ", "é"}, got)
	assert.True(t, entered)
}

func TestTypeRunesNoEnter(t *testing.T) {
	entered := false
	err := typeRunes(context.Background(), "ab", false, Settle{},
		func(string) error { return nil },
		func() error { entered = true; return nil },
	)
	require.NoError(t, err)
	assert.False(t, entered)
}

func TestTypeRunesInsertError(t *testing.T) {
	boom := errors.New("tab crashed")
	err := typeRunes(context.Background(), "abc", false, Settle{},
		func(string) error { return boom },
		func() error { return nil },
	)
	assert.ErrorIs(t, err, boom)
}

func TestSleepHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := sleep(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSleepZero(t *testing.T) {
	assert.NoError(t, sleep(context.Background(), 0))
}

func TestNewCaptureReadsDimensions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 64, 48))))

	c, err := newCapture(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 64, c.Width)
	assert.Equal(t, 48, c.Height)

	_, err = newCapture([]byte("not a png"))
	assert.Error(t, err)
}
