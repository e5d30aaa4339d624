package stream

import "strings"

// framePrefix marks the payload-carrying lines of the wire protocol. Anything
// else on the stream (blank keep-alive lines, future fields) is discarded.
const framePrefix = "data: "

// FrameDecoder turns incrementally-arriving text into complete protocol
// frames. Network chunks carry no alignment guarantee, so a trailing partial
// line is buffered and prepended to the next chunk before re-splitting.
// One decoder belongs to exactly one connection and is thrown away with it.
type FrameDecoder struct {
	rest string
}

func NewFrameDecoder() *FrameDecoder {
	return &FrameDecoder{}
}

// Feed consumes one chunk and returns the payloads of every complete frame it
// finished. Lines without the frame prefix are dropped silently.
func (d *FrameDecoder) Feed(chunk string) []string {
	data := d.rest + chunk

	var frames []string
	for {
		idx := strings.IndexByte(data, '\n')
		if idx < 0 {
			break
		}
		line := data[:idx]
		data = data[idx+1:]

		if payload, ok := framePayload(line); ok {
			frames = append(frames, payload)
		}
	}

	d.rest = data
	return frames
}

// Flush returns the payload of a final frame left without a trailing newline
// when the connection ends, if any.
func (d *FrameDecoder) Flush() (string, bool) {
	line := d.rest
	d.rest = ""
	return framePayload(line)
}

func framePayload(line string) (string, bool) {
	line = strings.TrimSuffix(line, "\r")
	if !strings.HasPrefix(line, framePrefix) {
		return "", false
	}
	return line[len(framePrefix):], true
}
