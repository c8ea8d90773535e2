// Package backend implements the LED line drivers behind the
// ledchase.Line interface.
package backend

import (
	"fmt"
	"io"
	"log/slog"

	"libdb.so/ledchase"
)

// Open opens the LED lines described by the configuration. The returned
// closer releases whatever the backend holds (GPIO line requests, the
// serial port) and must be called once the lines are no longer used.
func Open(cfg *ledchase.Config, logger *slog.Logger) (ledchase.Lines, io.Closer, error) {
	switch cfg.Backend {
	case ledchase.PeriphBackend:
		return openPeriph(cfg, logger)
	case ledchase.CdevBackend:
		return openCdev(cfg, logger)
	case ledchase.SerialBackend:
		return openSerial(cfg, logger)
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
