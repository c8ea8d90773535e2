package ledchase

import (
	"encoding"
	"fmt"
	"io"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// NumLEDs is the size of the LED set. The configuration must resolve
// exactly this many lines (the led0..led3 contract).
const NumLEDs = 4

// Backend selects the driver implementation used to reach the LEDs.
type Backend string

const (
	// PeriphBackend drives host GPIO pins through periph.io, addressed by
	// pin name.
	PeriphBackend Backend = "periph"
	// CdevBackend drives GPIO lines through the Linux character device,
	// addressed by chip and line offset.
	CdevBackend Backend = "cdev"
	// SerialBackend drives a serial-attached LED board speaking the
	// ledserial protocol.
	SerialBackend Backend = "serial"
)

// Config is the configuration for the ledchase daemon.
type Config struct {
	// Backend selects the LED driver.
	Backend Backend `toml:"backend"`
	// Chip is the GPIO character device used by the cdev backend.
	Chip string `toml:"chip"`
	// StartupFlashes is how many times the set flashes at boot.
	StartupFlashes int `toml:"startup_flashes"`
	// Serial configures the serial backend.
	Serial SerialConfig `toml:"serial"`
	// Timing holds the animation delays.
	Timing TimingConfig `toml:"timing"`
	// LEDs lists the output lines, in chase order.
	LEDs []LEDConfig `toml:"led"`
}

// SerialConfig is the connection configuration for the serial backend.
type SerialConfig struct {
	// Device is the path to the serial device file, usually /dev/ttyUSB0
	// or /dev/ttyACM0.
	Device string `toml:"device"`
	// Baud is the baud rate for the serial connection.
	Baud int `toml:"baud"`
}

// TimingConfig holds the animation delays.
type TimingConfig struct {
	// Step is the hold between the two toggles of a chase step.
	Step TOMLDuration `toml:"step"`
	// Lap is the hold after a full forward-and-back lap.
	Lap TOMLDuration `toml:"lap"`
	// FlashOn is the hold with all LEDs lit during a startup flash.
	FlashOn TOMLDuration `toml:"flash_on"`
	// FlashOff is the hold with all LEDs dark during a startup flash.
	FlashOff TOMLDuration `toml:"flash_off"`
}

// LEDConfig describes one output line.
type LEDConfig struct {
	// Name is the pin name for the periph backend, e.g. "GPIO17".
	Name string `toml:"name"`
	// Offset is the line offset for the cdev backend.
	Offset int `toml:"offset"`
	// ActiveLow marks lines whose LED lights on electrical low.
	ActiveLow bool `toml:"active_low"`
}

// DefaultConfig returns the stock configuration: four GPIO lines on the
// periph backend with the reference chase timing. The flash-on hold is
// deliberately kept at zero; the boot flash cadence comes entirely from the
// off hold.
func DefaultConfig() *Config {
	return &Config{
		Backend:        PeriphBackend,
		Chip:           "gpiochip0",
		StartupFlashes: 2,
		Serial: SerialConfig{
			Device: "/dev/ttyACM0",
			Baud:   115200,
		},
		Timing: TimingConfig{
			Step:     TOMLDuration(150 * time.Millisecond),
			Lap:      TOMLDuration(400 * time.Millisecond),
			FlashOn:  0,
			FlashOff: TOMLDuration(100 * time.Millisecond),
		},
		LEDs: []LEDConfig{
			{Name: "GPIO17", Offset: 17},
			{Name: "GPIO27", Offset: 27},
			{Name: "GPIO22", Offset: 22},
			{Name: "GPIO23", Offset: 23},
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Backend {
	case PeriphBackend, CdevBackend, SerialBackend:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	if len(c.LEDs) != NumLEDs {
		return fmt.Errorf("expected %d led entries (led0..led%d), got %d",
			NumLEDs, NumLEDs-1, len(c.LEDs))
	}

	for i, led := range c.LEDs {
		switch c.Backend {
		case PeriphBackend:
			if led.Name == "" {
				return fmt.Errorf("led%d: missing pin name", i)
			}
		case CdevBackend:
			if led.Offset < 0 {
				return fmt.Errorf("led%d: invalid line offset %d", i, led.Offset)
			}
		}
	}

	if c.Backend == CdevBackend && c.Chip == "" {
		return errors.New("cdev backend requires a chip")
	}
	if c.Backend == SerialBackend {
		if c.Serial.Device == "" {
			return errors.New("serial backend requires a device")
		}
		if c.Serial.Baud <= 0 {
			return fmt.Errorf("invalid baud rate %d", c.Serial.Baud)
		}
	}

	if c.StartupFlashes < 0 {
		return fmt.Errorf("invalid startup_flashes %d", c.StartupFlashes)
	}
	for _, d := range []TOMLDuration{c.Timing.Step, c.Timing.Lap, c.Timing.FlashOn, c.Timing.FlashOff} {
		if d < 0 {
			return fmt.Errorf("negative delay %s", time.Duration(d))
		}
	}

	return nil
}

// SequencerConfig converts the timing section into the sequencer's
// configuration.
func (c *Config) SequencerConfig() SequencerConfig {
	return SequencerConfig{
		StepDelay:      time.Duration(c.Timing.Step),
		LapDelay:       time.Duration(c.Timing.Lap),
		FlashOnDelay:   time.Duration(c.Timing.FlashOn),
		FlashOffDelay:  time.Duration(c.Timing.FlashOff),
		StartupFlashes: c.StartupFlashes,
	}
}

// TOMLDuration is a duration that can be parsed from TOML.
type TOMLDuration time.Duration

var (
	_ encoding.TextUnmarshaler = (*TOMLDuration)(nil)
	_ encoding.TextMarshaler   = (*TOMLDuration)(nil)
)

func (d *TOMLDuration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = TOMLDuration(duration)
	return nil
}

func (d TOMLDuration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// ParseConfig parses a configuration from a reader. Fields absent from the
// input keep their DefaultConfig values, except the LED list, which is
// replaced wholesale when present.
func ParseConfig(r io.Reader) (*Config, error) {
	config := DefaultConfig()
	config.LEDs = nil

	if err := toml.NewDecoder(r).Decode(config); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}

	if config.LEDs == nil {
		config.LEDs = DefaultConfig().LEDs
	}
	return config, nil
}
