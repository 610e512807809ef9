// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import (
	"errors"
	"testing"
)

func TestReaderU8U16U32(t *testing.T) {
	r := newReader([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07})
	b, err := r.u8()
	if err != nil || b != 0x01 {
		t.Fatalf("u8() = %v, %v; want 0x01, nil", b, err)
	}
	v16, err := r.u16()
	if err != nil || v16 != 0x0203 {
		t.Fatalf("u16() = %v, %v; want 0x0203, nil", v16, err)
	}
	v32, err := r.u32()
	if err != nil || v32 != 0x04050607 {
		t.Fatalf("u32() = %v, %v; want 0x04050607, nil", v32, err)
	}
	if !r.atEnd() {
		t.Fatalf("expected reader to be at end")
	}
}

func TestReaderTruncated(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		call func(r *reader) error
	}{
		{"u8 empty", nil, func(r *reader) error { _, err := r.u8(); return err }},
		{"u16 short", []byte{0x01}, func(r *reader) error { _, err := r.u16(); return err }},
		{"u32 short", []byte{0x01, 0x02, 0x03}, func(r *reader) error { _, err := r.u32(); return err }},
		{"take short", []byte{0x01, 0x02}, func(r *reader) error { _, err := r.take(3); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call(newReader(tt.buf))
			if !errors.Is(err, ErrTruncated) {
				t.Fatalf("got %v, want ErrTruncated", err)
			}
		})
	}
}

func TestReaderTake(t *testing.T) {
	r := newReader([]byte{1, 2, 3, 4, 5})
	b, err := r.take(3)
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if len(b) != 3 || b[0] != 1 || b[2] != 3 {
		t.Fatalf("take returned %v", b)
	}
	if r.remaining() != 2 {
		t.Fatalf("remaining() = %d, want 2", r.remaining())
	}
}

func TestReaderExpectTag(t *testing.T) {
	r := newReader([]byte{0xAB})
	if err := r.expectTag(0xAB); err != nil {
		t.Fatalf("expectTag: %v", err)
	}
	r2 := newReader([]byte{0xCD})
	if err := r2.expectTag(0xAB); !errors.Is(err, ErrBadTag) {
		t.Fatalf("got %v, want ErrBadTag", err)
	}
}
