package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WriteFrame writes a [4-byte LE length][payload] frame to w.
func WriteFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one [4-byte LE length][payload] frame from r, rejecting
// any frame whose declared length exceeds maxLen. Returns io.EOF unmodified
// when r is closed cleanly before any bytes of a new frame arrive, so
// callers can distinguish a graceful disconnect from a protocol error.
func ReadFrame(r io.Reader, maxLen uint32) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("wire: truncated frame length: %w", err)
		}
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > maxLen {
		return nil, fmt.Errorf("wire: frame length %d exceeds limit %d", n, maxLen)
	}
	if n == 0 {
		return nil, nil
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("wire: truncated frame payload: %w", err)
	}
	return payload, nil
}
