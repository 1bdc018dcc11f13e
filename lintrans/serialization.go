package lintrans

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/tuneinsight/lattigo/v6/utils/buffer"

	"github.com/galoislab/slotlin/slots"
)

// LoadBinary reads a transform of the ring r written with
// [CompiledTransform.WriteTo]. The ring must be the one of the written
// transform. No transform is returned if the read fails.
func LoadBinary(r *slots.SlotRing, reader io.Reader) (lt *CompiledTransform, err error) {
	lt = &CompiledTransform{ring: r}
	if _, err = lt.ReadFrom(reader); err != nil {
		return nil, fmt.Errorf("cannot LoadBinary: %w", err)
	}
	return
}

// BinarySize returns the serialized size of the object in bytes.
func (lt CompiledTransform) BinarySize() int {
	return 8 + 8*len(lt.coefficients)*lt.ring.N()
}

// WriteTo writes the object on an [io.Writer]: the number of coefficients,
// followed by the N coefficients modulo p^e of each polynomial, as
// little-endian uint64 words. It implements the [io.WriterTo] interface,
// and will write exactly object.BinarySize() bytes on w.
//
// The method panics if the coefficient shift was not fixed.
func (lt CompiledTransform) WriteTo(w io.Writer) (n int64, err error) {

	lt.checkReady("WriteTo")

	switch w := w.(type) {
	case buffer.Writer:

		var inc int64
		if inc, err = buffer.WriteAsUint64[uint64](w, uint64(len(lt.coefficients))); err != nil {
			return n + inc, fmt.Errorf("buffer.WriteAsUint64[uint64]: %w", err)
		}

		n += inc

		for _, c := range lt.coefficients {
			if inc, err = buffer.WriteAsUint64Slice[uint64](w, c.Coeffs[0]); err != nil {
				return n + inc, fmt.Errorf("buffer.WriteAsUint64Slice[uint64]: %w", err)
			}
			n += inc
		}

		return n, w.Flush()

	default:
		return lt.WriteTo(bufio.NewWriter(w))
	}
}

// ReadFrom reads on the object from an [io.Reader]. The object must have been
// allocated on the ring of the written transform, for example with
// [NewCompiledTransform]. It implements the [io.ReaderFrom] interface and
// does not read past the end of the object.
//
// The read transform replaces the content of the receiver only if the read
// succeeds. A truncated input returns an error wrapping [io.ErrUnexpectedEOF].
func (lt *CompiledTransform) ReadFrom(r io.Reader) (n int64, err error) {

	lt.checkUsable("ReadFrom")

	N := lt.ring.N()
	q := lt.ring.Modulus()

	buf := make([]byte, N<<3)

	var inc int
	if inc, err = io.ReadFull(r, buf[:8]); err != nil {
		return int64(inc), fmt.Errorf("cannot read coefficient count: %w", truncated(err))
	}

	n += int64(inc)

	var useG2 bool
	switch count := binary.LittleEndian.Uint64(buf); count {
	case uint64(N):
		useG2 = true
	case uint64(N >> 1):
		useG2 = false
	default:
		return n, fmt.Errorf("invalid coefficient count: %d is neither N=%d nor N/2", count, N)
	}

	read := NewCompiledTransform(lt.ring, useG2)

	for i, c := range read.coefficients {

		if inc, err = io.ReadFull(r, buf); err != nil {
			return n + int64(inc), fmt.Errorf("cannot read coefficient %d: %w", i, truncated(err))
		}

		n += int64(inc)

		coeffs := c.Coeffs[0]
		for j := range coeffs {
			if coeffs[j] = binary.LittleEndian.Uint64(buf[j<<3:]); coeffs[j] >= q {
				return n, fmt.Errorf("invalid coefficient %d: value %d is not reduced modulo %d", i, coeffs[j], q)
			}
		}
	}

	read.shiftFixed = true

	*lt = *read

	return
}

// MarshalBinary encodes the object into a binary form on a newly allocated slice of bytes.
func (lt CompiledTransform) MarshalBinary() (p []byte, err error) {
	buf := buffer.NewBufferSize(lt.BinarySize())
	_, err = lt.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes a slice of bytes generated by
// [CompiledTransform.MarshalBinary] or [CompiledTransform.WriteTo] on the object.
func (lt *CompiledTransform) UnmarshalBinary(p []byte) (err error) {
	_, err = lt.ReadFrom(buffer.NewBuffer(p))
	return
}

// truncated maps an end of input in the middle of an object to [io.ErrUnexpectedEOF].
func truncated(err error) error {
	if errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", io.ErrUnexpectedEOF, err)
	}
	return err
}
