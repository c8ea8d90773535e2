package backend

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"golang.org/x/sync/errgroup"

	"libdb.so/ledchase"
	"libdb.so/ledchase/ledserial"
)

func openSerial(cfg *ledchase.Config, logger *slog.Logger) (ledchase.Lines, io.Closer, error) {
	port, err := serial.Open(cfg.Serial.Device, &serial.Mode{
		BaudRate: cfg.Serial.Baud,
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open serial port")
	}

	return newSerialLines(port, len(cfg.LEDs), logger)
}

func newSerialLines(port serial.Port, numLines int, logger *slog.Logger) (ledchase.Lines, io.Closer, error) {
	b := &serialBoard{
		port:   port,
		logger: logger,
	}
	b.errg.Go(b.readPackets)

	b.logger.Debug("waiting 100ms for the read loop to start...")
	time.Sleep(100 * time.Millisecond)

	b.logger.Debug("sending initialize packet")
	if err := b.writePacket(ledserial.InitializePacket{
		NumLines: uint16(numLines),
	}); err != nil {
		port.Close()
		return nil, nil, errors.Wrap(err, "failed to initialize board")
	}
	b.ready = true

	lines := make(ledchase.Lines, 0, numLines)
	for i := 0; i < numLines; i++ {
		lines = append(lines, &serialLine{board: b, index: uint16(i)})
	}
	return lines, b, nil
}

// serialBoard is the shared connection to a serial-attached LED board. All
// lines multiplex over the one port; a background goroutine surfaces
// board-originated packets into the log.
type serialBoard struct {
	port   serial.Port
	logger *slog.Logger
	errg   errgroup.Group

	wmu   sync.Mutex
	ready bool
}

func (b *serialBoard) Close() error {
	b.logger.Debug("closing serial port")
	err := b.port.Close()
	// The read loop exits once the port is closed; its error is just the
	// closed-port read failure.
	b.errg.Wait()
	return err
}

func (b *serialBoard) readPackets() error {
	if err := b.port.SetReadTimeout(serial.NoTimeout); err != nil {
		return errors.Wrap(err, "failed to reset read timeout")
	}

	for {
		p, err := ledserial.ReadOutgoingPacket(b.port)
		if err != nil {
			// A short read indicates a timeout. This is expected.
			// Ignore the error and try again.
			if errors.Is(err, io.EOF) {
				continue
			}
			return errors.Wrap(err, "failed to read packet")
		}

		switch p := p.(type) {
		case ledserial.AckPacket:
			b.logger.Debug(
				"received ack packet from board",
				"acked_for", p.IncomingPacketType)
		case ledserial.ErrorPacket:
			b.logger.Warn(
				"received error packet from board",
				"message", p.Message)
		case ledserial.PanicPacket:
			b.logger.Error(
				"board unrecoverably panicked",
				"message", p.Message)
			return errors.New("board panicked")
		case ledserial.LogPacket:
			b.logger.Info(
				"received log packet from board",
				"message", p.Message)
		default:
			return errors.Errorf("received unknown packet from board: %s", p.Type())
		}
	}
}

func (b *serialBoard) writePacket(p ledserial.IncomingPacket) error {
	b.wmu.Lock()
	defer b.wmu.Unlock()
	return ledserial.WriteIncomingPacket(b.port, p)
}

// send is the infallible write used after configuration: failures are
// logged and dropped.
func (b *serialBoard) send(p ledserial.IncomingPacket) {
	if err := b.writePacket(p); err != nil {
		b.logger.Warn(
			"failed to write packet",
			"packet", p.Type(),
			"error", err)
	}
}

type serialLine struct {
	board *serialBoard
	index uint16
}

var _ ledchase.Line = (*serialLine)(nil)

func (l *serialLine) IsReady() bool { return l.board.ready }

func (l *serialLine) ConfigureOutput(initial ledchase.Level) error {
	if err := l.board.writePacket(ledserial.SetPacket{
		Index: l.index,
		Level: levelByte(initial),
	}); err != nil {
		return errors.Wrapf(err, "failed to configure line %d", l.index)
	}
	return nil
}

func (l *serialLine) SetLevel(lvl ledchase.Level) {
	l.board.send(ledserial.SetPacket{
		Index: l.index,
		Level: levelByte(lvl),
	})
}

func (l *serialLine) Toggle() {
	l.board.send(ledserial.TogglePacket{Index: l.index})
}

func levelByte(lvl ledchase.Level) uint8 {
	if lvl == ledchase.Active {
		return 1
	}
	return 0
}
