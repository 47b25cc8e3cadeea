package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// EncodeWAV wraps raw 16-bit little-endian PCM in a RIFF/WAVE container.
func EncodeWAV(pcm []byte, format Format) []byte {
	channels := format.Channels
	if channels <= 0 {
		channels = 1
	}
	rate := format.SampleRate
	if rate <= 0 {
		rate = 16000
	}

	blockAlign := channels * 2
	byteRate := rate * blockAlign
	dataSize := len(pcm)

	buf := bytes.NewBuffer(make([]byte, 0, 44+dataSize))

	buf.WriteString("RIFF")
	writeUint32LE(buf, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	writeUint32LE(buf, 16)
	writeUint16LE(buf, 1) // PCM
	writeUint16LE(buf, uint16(channels))
	writeUint32LE(buf, uint32(rate))
	writeUint32LE(buf, uint32(byteRate))
	writeUint16LE(buf, uint16(blockAlign))
	writeUint16LE(buf, 16) // bits per sample

	buf.WriteString("data")
	writeUint32LE(buf, uint32(dataSize))
	buf.Write(pcm)

	return buf.Bytes()
}

// ProbeWAVDuration reads a RIFF/WAVE header and reports the clip duration in
// whole seconds, rounded down.
func ProbeWAVDuration(data []byte) (int, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0, fmt.Errorf("not a RIFF/WAVE file")
	}

	var (
		byteRate uint32
		dataSize uint32
		seenFmt  bool
		seenData bool
	)

	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		body := offset + 8

		switch id {
		case "fmt ":
			if body+16 > len(data) {
				return 0, fmt.Errorf("truncated fmt chunk")
			}
			byteRate = binary.LittleEndian.Uint32(data[body+8 : body+12])
			seenFmt = true
		case "data":
			dataSize = size
			seenData = true
		}
		if seenFmt && seenData {
			break
		}

		advance := int(size)
		if advance%2 == 1 {
			advance++
		}
		offset = body + advance
	}

	if !seenFmt || !seenData {
		return 0, fmt.Errorf("missing fmt or data chunk")
	}
	if byteRate == 0 {
		return 0, fmt.Errorf("fmt chunk reports zero byte rate")
	}
	return int(dataSize / byteRate), nil
}

func writeUint16LE(w *bytes.Buffer, v uint16) {
	w.WriteByte(byte(v))
	w.WriteByte(byte(v >> 8))
}

func writeUint32LE(w *bytes.Buffer, v uint32) {
	w.WriteByte(byte(v))
	w.WriteByte(byte(v >> 8))
	w.WriteByte(byte(v >> 16))
	w.WriteByte(byte(v >> 24))
}
