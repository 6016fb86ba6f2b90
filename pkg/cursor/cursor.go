// Package cursor provides the byte-stream positions the interpreter walks.
//
// A Cursor owns a position into one buffer. All reads are little-endian and
// bounds-checked; Jump implements the self-relative encoding where the int32
// at the current position is added to that same position.
package cursor

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrOutOfBounds is returned when a read or jump leaves the buffer.
var ErrOutOfBounds = errors.New("cursor out of bounds")

// Cursor is a position into a byte buffer.
type Cursor struct {
	name string
	buf  []byte
	pos  int
}

// New returns a cursor at offset 0 of buf. The name only appears in errors.
func New(name string, buf []byte) *Cursor {
	return &Cursor{name: name, buf: buf}
}

// Name returns the cursor's label.
func (c *Cursor) Name() string { return c.name }

// Pos returns the current offset.
func (c *Cursor) Pos() int { return c.pos }

// Len returns the buffer length.
func (c *Cursor) Len() int { return len(c.buf) }

// Bytes returns the underlying buffer.
func (c *Cursor) Bytes() []byte { return c.buf }

// AtEnd reports whether every byte has been consumed.
func (c *Cursor) AtEnd() bool { return c.pos >= len(c.buf) }

// Reset replaces the buffer and rewinds to offset 0.
func (c *Cursor) Reset(buf []byte) {
	c.buf = buf
	c.pos = 0
}

func (c *Cursor) errorf(format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", c.name, ErrOutOfBounds, fmt.Sprintf(format, args...))
}

// Seek moves to an absolute offset. The end of the buffer is a valid position.
func (c *Cursor) Seek(pos int) error {
	if pos < 0 || pos > len(c.buf) {
		return c.errorf("seek to %d (len %d)", pos, len(c.buf))
	}
	c.pos = pos
	return nil
}

// Advance moves forward (or backward) by n bytes.
func (c *Cursor) Advance(n int) error {
	return c.Seek(c.pos + n)
}

// Align4 rounds the position up to the next multiple of four.
func (c *Cursor) Align4() error {
	return c.Seek((c.pos + 3) &^ 3)
}

func (c *Cursor) need(n int) error {
	if c.pos < 0 || c.pos+n > len(c.buf) {
		return c.errorf("read %d bytes at %d (len %d)", n, c.pos, len(c.buf))
	}
	return nil
}

// Peek returns the byte at the current position without consuming it.
func (c *Cursor) Peek() (byte, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	return c.buf[c.pos], nil
}

// PeekAt returns the byte at pos+off without consuming it.
func (c *Cursor) PeekAt(off int) (byte, error) {
	p := c.pos + off
	if p < 0 || p >= len(c.buf) {
		return 0, c.errorf("peek at %d (len %d)", p, len(c.buf))
	}
	return c.buf[p], nil
}

// U8 reads one byte.
func (c *Cursor) U8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.buf[c.pos]
	c.pos++
	return v, nil
}

// S8 reads one signed byte.
func (c *Cursor) S8() (int8, error) {
	v, err := c.U8()
	return int8(v), err
}

// U16 reads a little-endian uint16.
func (c *Cursor) U16() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(c.buf[c.pos:])
	c.pos += 2
	return v, nil
}

// S16 reads a little-endian int16.
func (c *Cursor) S16() (int16, error) {
	v, err := c.U16()
	return int16(v), err
}

// U32 reads a little-endian uint32.
func (c *Cursor) U32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

// S32 reads a little-endian int32.
func (c *Cursor) S32() (int32, error) {
	v, err := c.U32()
	return int32(v), err
}

// WordAt returns the int32 at the current position without consuming it.
func (c *Cursor) WordAt() (int32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(c.buf[c.pos:])), nil
}

// Target returns the position a self-relative jump from here would land on.
// The addition wraps like 32-bit signed arithmetic.
func (c *Cursor) Target() (int, error) {
	d, err := c.WordAt()
	if err != nil {
		return 0, err
	}
	return int(int32(uint32(c.pos) + uint32(d))), nil
}

// Jump adds the int32 at the current position to the position itself.
// A target outside [0, Len] is rejected and the cursor is left where it was.
func (c *Cursor) Jump() error {
	target, err := c.Target()
	if err != nil {
		return err
	}
	if target < 0 || target > len(c.buf) {
		return c.errorf("jump from %d to %d (len %d)", c.pos, target, len(c.buf))
	}
	c.pos = target
	return nil
}

// Clone returns an independent cursor over the same buffer at the same position.
func (c *Cursor) Clone(name string) *Cursor {
	return &Cursor{name: name, buf: c.buf, pos: c.pos}
}
