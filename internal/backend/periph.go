package backend

import (
	"io"
	"log/slog"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"libdb.so/ledchase"
)

func openPeriph(cfg *ledchase.Config, logger *slog.Logger) (ledchase.Lines, io.Closer, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, errors.Wrap(err, "failed to initialize periph host")
	}

	lines := make(ledchase.Lines, 0, len(cfg.LEDs))
	for _, led := range cfg.LEDs {
		lines = append(lines, &periphLine{
			// ByName returns nil for unknown pins; that surfaces as an
			// unready line during initialization rather than an open error.
			pin:       gpioreg.ByName(led.Name),
			name:      led.Name,
			activeLow: led.ActiveLow,
			logger:    logger,
		})
	}

	return lines, closerFunc(func() error { return nil }), nil
}

type periphLine struct {
	pin       gpio.PinIO
	name      string
	activeLow bool
	logger    *slog.Logger
}

var _ ledchase.Line = (*periphLine)(nil)

func (l *periphLine) IsReady() bool { return l.pin != nil }

func (l *periphLine) ConfigureOutput(initial ledchase.Level) error {
	if err := l.pin.Out(l.electrical(initial)); err != nil {
		return errors.Wrapf(err, "failed to configure %s as output", l.name)
	}
	return nil
}

func (l *periphLine) SetLevel(lvl ledchase.Level) {
	if err := l.pin.Out(l.electrical(lvl)); err != nil {
		l.logger.Warn(
			"failed to set pin level",
			"pin", l.name,
			"level", lvl,
			"error", err)
	}
}

func (l *periphLine) Toggle() {
	// The hardware owns the pin state; read it back rather than shadowing.
	if err := l.pin.Out(!l.pin.Read()); err != nil {
		l.logger.Warn(
			"failed to toggle pin",
			"pin", l.name,
			"error", err)
	}
}

func (l *periphLine) electrical(lvl ledchase.Level) gpio.Level {
	if l.activeLow {
		return gpio.Level(lvl == ledchase.Inactive)
	}
	return gpio.Level(lvl == ledchase.Active)
}
