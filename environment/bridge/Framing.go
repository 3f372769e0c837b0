package bridge

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrame is the largest message body accepted from the bridge
const MaxFrame = 64 << 20

// WriteFrame writes a single message: a 4-byte big-endian length
// followed by the message body
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrame {
		return fmt.Errorf("writeframe: message of %v bytes exceeds maximum "+
			"of %v", len(payload), MaxFrame)
	}

	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("writeframe: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("writeframe: %w", err)
	}
	return nil
}

// ReadFrame reads a single message written by WriteFrame
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("readframe: %w", err)
	}

	length := binary.BigEndian.Uint32(hdr[:])
	if length > MaxFrame {
		return nil, fmt.Errorf("readframe: message of %v bytes exceeds "+
			"maximum of %v", length, MaxFrame)
	}
	if length == 0 {
		return nil, nil
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("readframe: %w", err)
	}
	return buf, nil
}
