// Package telemetry parses the container runtime's log and stats wire
// formats and fans them out as independent per-subscriber streams. The log
// frame decoder generalizes the multiplexed-stream parsing the session
// manager does inline for its single output reader.
package telemetry

import (
	"encoding/binary"
	"regexp"
	"strings"
)

const frameHeaderSize = 8

// frameDecoder incrementally decodes Docker's multiplexed log stream,
// never yielding bytes across a frame boundary: a frame is only consumed
// once all 8+payloadLen bytes of it have arrived (P4).
type frameDecoder struct {
	hasTTY  bool
	pending []byte // unconsumed frame bytes (non-TTY) or raw bytes (TTY)
	partial []byte // incomplete trailing text line
}

func newFrameDecoder(hasTTY bool) *frameDecoder {
	return &frameDecoder{hasTTY: hasTTY}
}

// feed appends newly read bytes and returns any complete, normalized log
// lines they produced. Bytes belonging to an incomplete frame or an
// incomplete trailing line are retained for the next call.
func (d *frameDecoder) feed(chunk []byte) []string {
	var payloads [][]byte

	if d.hasTTY {
		payloads = append(payloads, chunk)
	} else {
		d.pending = append(d.pending, chunk...)
		for {
			if len(d.pending) < frameHeaderSize {
				break
			}
			payloadLen := binary.BigEndian.Uint32(d.pending[4:8])
			total := frameHeaderSize + int(payloadLen)
			if len(d.pending) < total {
				break
			}
			payload := make([]byte, payloadLen)
			copy(payload, d.pending[frameHeaderSize:total])
			payloads = append(payloads, payload)
			d.pending = d.pending[total:]
		}
	}

	var lines []string
	for _, p := range payloads {
		d.partial = append(d.partial, p...)
		for {
			idx := indexByte(d.partial, '\n')
			if idx < 0 {
				break
			}
			line := d.partial[:idx]
			d.partial = d.partial[idx+1:]
			if formatted, ok := formatLogLine(string(line)); ok {
				lines = append(lines, formatted)
			}
		}
	}
	return lines
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}

// timestampRE matches a leading Docker `--timestamps` prefix with
// fractional seconds, e.g. "2024-01-02T15:04:05.123456789Z ".
var timestampRE = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2})\.\d+Z `)

// ansiSGRRE matches ANSI SGR escape sequences (`ESC [ ... m`).
var ansiSGRRE = regexp.MustCompile("\x1b\\[[0-9;]*m")

// formatLogLine strips trailing whitespace, drops empty lines, compresses
// a leading fractional timestamp, and strips ANSI color codes. It is
// idempotent: re-applying it to its own output is a no-op (P6), since the
// rewritten timestamp no longer matches timestampRE and stripped ANSI
// codes are gone.
func formatLogLine(raw string) (string, bool) {
	line := strings.TrimRight(raw, " \t\r\n")
	if line == "" {
		return "", false
	}

	line = ansiSGRRE.ReplaceAllString(line, "")

	if m := timestampRE.FindStringSubmatch(line); m != nil {
		rest := line[len(m[0]):]
		line = m[1] + "Z\t" + rest
	}

	return line, true
}
