package telemetry

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(payload string) []byte {
	header := make([]byte, frameHeaderSize)
	header[0] = 1 // stdout
	binary.BigEndian.PutUint32(header[4:8], uint32(len(payload)))
	return append(header, []byte(payload)...)
}

func TestFrameDecoderNeverSplitsAFrame(t *testing.T) {
	dec := newFrameDecoder(false)
	full := frame("hello world\n")

	var lines []string
	for i := range full {
		lines = append(lines, dec.feed(full[i:i+1])...)
	}

	require.Len(t, lines, 1)
	assert.Equal(t, "hello world", lines[0])
}

func TestFrameDecoderHoldsIncompleteFrame(t *testing.T) {
	dec := newFrameDecoder(false)
	full := frame("partial line\n")

	lines := dec.feed(full[:frameHeaderSize+3])
	assert.Empty(t, lines)

	lines = dec.feed(full[frameHeaderSize+3:])
	require.Len(t, lines, 1)
	assert.Equal(t, "partial line", lines[0])
}

func TestFrameDecoderMultipleFramesInOneChunk(t *testing.T) {
	dec := newFrameDecoder(false)
	chunk := append(frame("one\n"), frame("two\n")...)

	lines := dec.feed(chunk)
	assert.Equal(t, []string{"one", "two"}, lines)
}

func TestFrameDecoderTTYPassesThroughRaw(t *testing.T) {
	dec := newFrameDecoder(true)
	lines := dec.feed([]byte("plain\n"))
	assert.Equal(t, []string{"plain"}, lines)
}

func TestFormatLogLineStripsTimestampAndANSI(t *testing.T) {
	out, ok := formatLogLine("2024-01-02T15:04:05.123456789Z \x1b[32mserver ready\x1b[0m")
	require.True(t, ok)
	assert.Equal(t, "2024-01-02T15:04:05Z\tserver ready", out)
}

func TestFormatLogLineDropsEmpty(t *testing.T) {
	_, ok := formatLogLine("   \t  ")
	assert.False(t, ok)
}

func TestFormatLogLineIsIdempotent(t *testing.T) {
	first, ok := formatLogLine("2024-01-02T15:04:05.000000000Z \x1b[31mboom\x1b[0m")
	require.True(t, ok)

	second, ok := formatLogLine(first)
	require.True(t, ok)

	assert.Equal(t, first, second)
}
