package ledchase

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(`
backend = "cdev"
chip = "gpiochip2"
startup_flashes = 3

[timing]
step = "50ms"
lap = "1s"
flash_off = "250ms"

[[led]]
offset = 5
[[led]]
offset = 6
active_low = true
[[led]]
offset = 7
[[led]]
offset = 8
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, CdevBackend, cfg.Backend)
	assert.Equal(t, "gpiochip2", cfg.Chip)
	assert.Equal(t, 3, cfg.StartupFlashes)
	assert.Equal(t, 50*time.Millisecond, time.Duration(cfg.Timing.Step))
	assert.Equal(t, time.Second, time.Duration(cfg.Timing.Lap))
	assert.Equal(t, 250*time.Millisecond, time.Duration(cfg.Timing.FlashOff))
	// Unset in the file; keeps the stock zero on-hold.
	assert.Equal(t, time.Duration(0), time.Duration(cfg.Timing.FlashOn))

	require.Len(t, cfg.LEDs, NumLEDs)
	assert.Equal(t, 6, cfg.LEDs[1].Offset)
	assert.True(t, cfg.LEDs[1].ActiveLow)
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(""))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 150*time.Millisecond, time.Duration(cfg.Timing.Step))
	assert.Equal(t, 400*time.Millisecond, time.Duration(cfg.Timing.Lap))
	assert.Equal(t, 100*time.Millisecond, time.Duration(cfg.Timing.FlashOff))
	assert.Equal(t, 2, cfg.StartupFlashes)
	assert.Len(t, cfg.LEDs, NumLEDs)
}

func TestParseConfigBadTOML(t *testing.T) {
	_, err := ParseConfig(strings.NewReader(`backend = [`))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "default is valid",
			mutate: func(*Config) {},
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Backend = "i2c" },
			wantErr: "unknown backend",
		},
		{
			name:    "wrong led count",
			mutate:  func(c *Config) { c.LEDs = c.LEDs[:3] },
			wantErr: "expected 4 led entries",
		},
		{
			name: "periph missing pin name",
			mutate: func(c *Config) {
				c.LEDs[2].Name = ""
			},
			wantErr: "led2: missing pin name",
		},
		{
			name: "cdev invalid offset",
			mutate: func(c *Config) {
				c.Backend = CdevBackend
				c.LEDs[0].Offset = -1
			},
			wantErr: "led0: invalid line offset",
		},
		{
			name: "cdev missing chip",
			mutate: func(c *Config) {
				c.Backend = CdevBackend
				c.Chip = ""
			},
			wantErr: "requires a chip",
		},
		{
			name: "serial missing device",
			mutate: func(c *Config) {
				c.Backend = SerialBackend
				c.Serial.Device = ""
			},
			wantErr: "requires a device",
		},
		{
			name: "serial bad baud",
			mutate: func(c *Config) {
				c.Backend = SerialBackend
				c.Serial.Baud = 0
			},
			wantErr: "invalid baud rate",
		},
		{
			name:    "negative flashes",
			mutate:  func(c *Config) { c.StartupFlashes = -1 },
			wantErr: "invalid startup_flashes",
		},
		{
			name: "negative delay",
			mutate: func(c *Config) {
				c.Timing.Step = TOMLDuration(-time.Millisecond)
			},
			wantErr: "negative delay",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := DefaultConfig()
			test.mutate(cfg)

			err := cfg.Validate()
			if test.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), test.wantErr)
			}
		})
	}
}

func TestTOMLDuration(t *testing.T) {
	var d TOMLDuration
	require.NoError(t, d.UnmarshalText([]byte("150ms")))
	assert.Equal(t, TOMLDuration(150*time.Millisecond), d)

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "150ms", string(text))

	require.Error(t, d.UnmarshalText([]byte("never")))
}
