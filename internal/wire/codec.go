package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Tag bytes, assigned in each sum type's declaration order.
const (
	tagGet byte = iota
	tagSet
	tagDelete
	tagListSpaces
	tagListKeys
	tagDeleteSpace
	tagCreateSpace
	tagIsSpaceExists
)

const (
	tagOk byte = iota
	tagValue
	tagKeys
	tagSpaces
	tagBool
	tagError
)

const (
	tagErrSpaceNotFound byte = iota
	tagErrKeyNotFound
	tagErrSpaceAlreadyExists
	tagErrAofWriteFailed
	tagErrAofReadFailed
	tagErrInvalidKey
	tagErrInvalidSpaceName
	tagErrValueTooLarge
)

// byteWriter accumulates an encoded frame payload.
type byteWriter struct {
	buf []byte
}

func (w *byteWriter) byte(b byte) { w.buf = append(w.buf, b) }

func (w *byteWriter) bool(b bool) {
	if b {
		w.byte(1)
	} else {
		w.byte(0)
	}
}

func (w *byteWriter) bytes(b []byte) {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(b)))
	w.buf = append(w.buf, lenBuf[:]...)
	w.buf = append(w.buf, b...)
}

func (w *byteWriter) string(s string) { w.bytes([]byte(s)) }

func (w *byteWriter) strings(ss []string) {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(ss)))
	w.buf = append(w.buf, lenBuf[:]...)
	for _, s := range ss {
		w.string(s)
	}
}

// byteReader decodes a frame payload sequentially, failing closed on any
// malformed or truncated field.
type byteReader struct {
	buf []byte
	pos int
}

func newByteReader(buf []byte) *byteReader { return &byteReader{buf: buf} }

func (r *byteReader) byte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *byteReader) bool() (bool, error) {
	b, err := r.byte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func (r *byteReader) uint32() (uint32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *byteReader) bytes() ([]byte, error) {
	n, err := r.uint32()
	if err != nil {
		return nil, err
	}
	if r.pos+int(n) > len(r.buf) {
		return nil, io.ErrUnexpectedEOF
	}
	b := make([]byte, n)
	copy(b, r.buf[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return b, nil
}

func (r *byteReader) string() (string, error) {
	b, err := r.bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *byteReader) strings() ([]string, error) {
	n, err := r.uint32()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		s, err := r.string()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *byteReader) done() error {
	if r.pos != len(r.buf) {
		return fmt.Errorf("wire: %d trailing bytes after decode", len(r.buf)-r.pos)
	}
	return nil
}

// EncodeCommand serializes a Command to its wire representation.
func EncodeCommand(c Command) []byte {
	w := &byteWriter{}
	switch v := c.(type) {
	case Get:
		w.byte(tagGet)
		w.string(v.Space)
		w.string(v.Key)
	case Set:
		w.byte(tagSet)
		w.string(v.Space)
		w.string(v.Key)
		w.bytes(v.Value)
	case Delete:
		w.byte(tagDelete)
		w.string(v.Space)
		w.string(v.Key)
	case ListSpaces:
		w.byte(tagListSpaces)
	case ListKeys:
		w.byte(tagListKeys)
		w.string(v.Space)
	case DeleteSpace:
		w.byte(tagDeleteSpace)
		w.string(v.Space)
	case CreateSpace:
		w.byte(tagCreateSpace)
		w.string(v.Space)
	case IsSpaceExists:
		w.byte(tagIsSpaceExists)
		w.string(v.Space)
	default:
		panic(fmt.Sprintf("wire: unknown command type %T", c))
	}
	return w.buf
}

// DecodeCommand deserializes a Command from its wire representation.
func DecodeCommand(buf []byte) (Command, error) {
	r := newByteReader(buf)
	tag, err := r.byte()
	if err != nil {
		return nil, err
	}
	var cmd Command
	switch tag {
	case tagGet:
		space, err := r.string()
		if err != nil {
			return nil, err
		}
		key, err := r.string()
		if err != nil {
			return nil, err
		}
		cmd = Get{Space: space, Key: key}
	case tagSet:
		space, err := r.string()
		if err != nil {
			return nil, err
		}
		key, err := r.string()
		if err != nil {
			return nil, err
		}
		value, err := r.bytes()
		if err != nil {
			return nil, err
		}
		cmd = Set{Space: space, Key: key, Value: value}
	case tagDelete:
		space, err := r.string()
		if err != nil {
			return nil, err
		}
		key, err := r.string()
		if err != nil {
			return nil, err
		}
		cmd = Delete{Space: space, Key: key}
	case tagListSpaces:
		cmd = ListSpaces{}
	case tagListKeys:
		space, err := r.string()
		if err != nil {
			return nil, err
		}
		cmd = ListKeys{Space: space}
	case tagDeleteSpace:
		space, err := r.string()
		if err != nil {
			return nil, err
		}
		cmd = DeleteSpace{Space: space}
	case tagCreateSpace:
		space, err := r.string()
		if err != nil {
			return nil, err
		}
		cmd = CreateSpace{Space: space}
	case tagIsSpaceExists:
		space, err := r.string()
		if err != nil {
			return nil, err
		}
		cmd = IsSpaceExists{Space: space}
	default:
		return nil, fmt.Errorf("wire: unknown command tag %d", tag)
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return cmd, nil
}

// EncodeResponse serializes a Response to its wire representation.
func EncodeResponse(resp Response) []byte {
	w := &byteWriter{}
	switch v := resp.(type) {
	case Ok:
		w.byte(tagOk)
	case Value:
		w.byte(tagValue)
		w.bool(v.Present)
		w.bytes(v.Bytes)
	case Keys:
		w.byte(tagKeys)
		w.strings(v.Keys)
	case Spaces:
		w.byte(tagSpaces)
		w.strings(v.Spaces)
	case Bool:
		w.byte(tagBool)
		w.bool(v.Value)
	case Error:
		w.byte(tagError)
		encodeServerError(w, v.Err)
	default:
		panic(fmt.Sprintf("wire: unknown response type %T", resp))
	}
	return w.buf
}

// DecodeResponse deserializes a Response from its wire representation.
func DecodeResponse(buf []byte) (Response, error) {
	r := newByteReader(buf)
	tag, err := r.byte()
	if err != nil {
		return nil, err
	}
	var resp Response
	switch tag {
	case tagOk:
		resp = Ok{}
	case tagValue:
		present, err := r.bool()
		if err != nil {
			return nil, err
		}
		b, err := r.bytes()
		if err != nil {
			return nil, err
		}
		if !present {
			b = nil
		}
		resp = Value{Present: present, Bytes: b}
	case tagKeys:
		ks, err := r.strings()
		if err != nil {
			return nil, err
		}
		resp = Keys{Keys: ks}
	case tagSpaces:
		ss, err := r.strings()
		if err != nil {
			return nil, err
		}
		resp = Spaces{Spaces: ss}
	case tagBool:
		v, err := r.bool()
		if err != nil {
			return nil, err
		}
		resp = Bool{Value: v}
	case tagError:
		se, err := decodeServerError(r)
		if err != nil {
			return nil, err
		}
		resp = Error{Err: se}
	default:
		return nil, fmt.Errorf("wire: unknown response tag %d", tag)
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return resp, nil
}

func encodeServerError(w *byteWriter, se ServerError) {
	switch v := se.(type) {
	case ErrSpaceNotFound:
		w.byte(tagErrSpaceNotFound)
		w.string(v.Name)
	case ErrKeyNotFound:
		w.byte(tagErrKeyNotFound)
		w.string(v.Key)
		w.string(v.Space)
	case ErrSpaceAlreadyExists:
		w.byte(tagErrSpaceAlreadyExists)
		w.string(v.Name)
	case ErrAofWriteFailed:
		w.byte(tagErrAofWriteFailed)
	case ErrAofReadFailed:
		w.byte(tagErrAofReadFailed)
	case ErrInvalidKey:
		w.byte(tagErrInvalidKey)
		w.string(v.Reason)
	case ErrInvalidSpaceName:
		w.byte(tagErrInvalidSpaceName)
	case ErrValueTooLarge:
		w.byte(tagErrValueTooLarge)
	default:
		panic(fmt.Sprintf("wire: unknown server error type %T", se))
	}
}

func decodeServerError(r *byteReader) (ServerError, error) {
	tag, err := r.byte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagErrSpaceNotFound:
		name, err := r.string()
		if err != nil {
			return nil, err
		}
		return ErrSpaceNotFound{Name: name}, nil
	case tagErrKeyNotFound:
		key, err := r.string()
		if err != nil {
			return nil, err
		}
		space, err := r.string()
		if err != nil {
			return nil, err
		}
		return ErrKeyNotFound{Key: key, Space: space}, nil
	case tagErrSpaceAlreadyExists:
		name, err := r.string()
		if err != nil {
			return nil, err
		}
		return ErrSpaceAlreadyExists{Name: name}, nil
	case tagErrAofWriteFailed:
		return ErrAofWriteFailed{}, nil
	case tagErrAofReadFailed:
		return ErrAofReadFailed{}, nil
	case tagErrInvalidKey:
		reason, err := r.string()
		if err != nil {
			return nil, err
		}
		return ErrInvalidKey{Reason: reason}, nil
	case tagErrInvalidSpaceName:
		return ErrInvalidSpaceName{}, nil
	case tagErrValueTooLarge:
		return ErrValueTooLarge{}, nil
	default:
		return nil, fmt.Errorf("wire: unknown server error tag %d", tag)
	}
}
