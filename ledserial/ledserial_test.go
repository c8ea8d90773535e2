package ledserial

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncomingRoundTrip(t *testing.T) {
	packets := []IncomingPacket{
		InitializePacket{NumLines: 4},
		ClearPacket{},
		SetPacket{Index: 2, Level: 1},
		TogglePacket{Index: 3},
	}

	for _, p := range packets {
		t.Run(p.Type().String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteIncomingPacket(&buf, p))

			got, err := ReadIncomingPacket(&buf)
			require.NoError(t, err)
			assert.Equal(t, p, got)
			assert.Zero(t, buf.Len(), "packet fully consumed")
		})
	}
}

func TestOutgoingRoundTrip(t *testing.T) {
	packets := []OutgoingPacket{
		AckPacket{IncomingPacketType: TypeTogglePacket},
		ErrorPacket{Message: "line 9 out of range"},
		PanicPacket{Message: "out of memory"},
		LogPacket{Message: "lines configured"},
	}

	for _, p := range packets {
		t.Run(p.Type().String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteOutgoingPacket(&buf, p))

			got, err := ReadOutgoingPacket(&buf)
			require.NoError(t, err)
			assert.Equal(t, p, got)
		})
	}
}

func TestChecksumMismatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteIncomingPacket(&buf, SetPacket{Index: 1, Level: 1}))

	// Corrupt the payload without touching the checksum.
	b := buf.Bytes()
	b[1] ^= 0xff

	_, err := ReadIncomingPacket(bytes.NewReader(b))
	require.ErrorContains(t, err, "checksum mismatch")
}

func TestTruncatedPacket(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOutgoingPacket(&buf, LogPacket{Message: "hello"}))

	b := buf.Bytes()
	_, err := ReadOutgoingPacket(bytes.NewReader(b[:len(b)-2]))
	require.Error(t, err)
}

func TestUnknownPacketType(t *testing.T) {
	_, err := ReadIncomingPacket(bytes.NewReader([]byte{0xfe, 0, 0, 0, 0}))
	require.ErrorContains(t, err, "unknown packet type")

	_, err = ReadOutgoingPacket(bytes.NewReader([]byte{0xfe, 0, 0, 0, 0}))
	require.ErrorContains(t, err, "unknown packet type")
}

func TestStreamOfPackets(t *testing.T) {
	// A chase step as seen on the wire: toggle, hold, toggle.
	var buf bytes.Buffer
	require.NoError(t, WriteIncomingPacket(&buf, TogglePacket{Index: 0}))
	require.NoError(t, WriteIncomingPacket(&buf, TogglePacket{Index: 0}))

	for i := 0; i < 2; i++ {
		p, err := ReadIncomingPacket(&buf)
		require.NoError(t, err)
		assert.Equal(t, TogglePacket{Index: 0}, p)
	}
	assert.Zero(t, buf.Len())
}
