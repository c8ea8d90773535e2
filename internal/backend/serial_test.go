package backend

import (
	"bytes"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"libdb.so/ledchase"
	"libdb.so/ledchase/ledserial"
)

// fakePort captures writes and blocks reads until close. Only the methods
// the board uses are implemented; the embedded interface covers the rest.
type fakePort struct {
	serial.Port

	mu     sync.Mutex
	buf    bytes.Buffer
	closed chan struct{}
	once   sync.Once
}

func newFakePort() *fakePort {
	return &fakePort{closed: make(chan struct{})}
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.Write(b)
}

func (p *fakePort) Read(b []byte) (int, error) {
	<-p.closed
	return 0, io.ErrClosedPipe
}

func (p *fakePort) SetReadTimeout(time.Duration) error { return nil }

func (p *fakePort) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *fakePort) written() *bytes.Reader {
	p.mu.Lock()
	defer p.mu.Unlock()
	return bytes.NewReader(p.buf.Bytes())
}

func TestSerialLines(t *testing.T) {
	port := newFakePort()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	lines, closer, err := newSerialLines(port, ledchase.NumLEDs, logger)
	require.NoError(t, err)
	require.Len(t, lines, ledchase.NumLEDs)

	for i, line := range lines {
		assert.True(t, line.IsReady(), "line %d ready after initialize", i)
	}

	require.NoError(t, lines[1].ConfigureOutput(ledchase.Inactive))
	lines[1].SetLevel(ledchase.Active)
	lines[1].Toggle()

	require.NoError(t, closer.Close())

	// Replay the wire and check the packet sequence.
	r := port.written()

	p, err := ledserial.ReadIncomingPacket(r)
	require.NoError(t, err)
	assert.Equal(t, ledserial.InitializePacket{NumLines: 4}, p)

	p, err = ledserial.ReadIncomingPacket(r)
	require.NoError(t, err)
	assert.Equal(t, ledserial.SetPacket{Index: 1, Level: 0}, p)

	p, err = ledserial.ReadIncomingPacket(r)
	require.NoError(t, err)
	assert.Equal(t, ledserial.SetPacket{Index: 1, Level: 1}, p)

	p, err = ledserial.ReadIncomingPacket(r)
	require.NoError(t, err)
	assert.Equal(t, ledserial.TogglePacket{Index: 1}, p)

	assert.Zero(t, r.Len(), "no trailing bytes on the wire")
}
