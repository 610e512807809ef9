// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import (
	"errors"
	"testing"
)

func TestParseStackMapFrameRanges(t *testing.T) {
	tests := []struct {
		name  string
		bytes []byte
		kind  StackMapFrameKind
	}{
		{"same", []byte{10}, FrameSame},
		{"same locals 1 stack item", []byte{70, 0x00}, FrameSameLocals1StackItem},
		{"same locals 1 stack item extended", []byte{247, 0x00, 0x05, 0x01}, FrameSameLocals1StackItemExtended},
		{"chop", []byte{249, 0x00, 0x03}, FrameChop},
		{"same extended", []byte{251, 0x00, 0x07}, FrameSameExtended},
		{"append", []byte{252, 0x00, 0x02, 0x01}, FrameAppend},
		{"full", []byte{255, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00}, FrameFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newReader(tt.bytes)
			f, err := parseStackMapFrame(r)
			if err != nil {
				t.Fatalf("parseStackMapFrame: %v", err)
			}
			if f.Kind != tt.kind {
				t.Fatalf("Kind = %v, want %v", f.Kind, tt.kind)
			}
		})
	}
}

func TestParseStackMapFrameSameEncodesOffsetDelta(t *testing.T) {
	r := newReader([]byte{42})
	f, err := parseStackMapFrame(r)
	if err != nil {
		t.Fatalf("parseStackMapFrame: %v", err)
	}
	if f.OffsetDelta != 42 {
		t.Fatalf("OffsetDelta = %d, want 42", f.OffsetDelta)
	}
}

func TestParseStackMapFrameChopCount(t *testing.T) {
	// frame_type 248 means chop 3 locals (251 - 248).
	r := newReader([]byte{248, 0x00, 0x0A})
	f, err := parseStackMapFrame(r)
	if err != nil {
		t.Fatalf("parseStackMapFrame: %v", err)
	}
	if f.ChopCount != 3 {
		t.Fatalf("ChopCount = %d, want 3", f.ChopCount)
	}
}

func TestParseStackMapFrameUnknownRange(t *testing.T) {
	// 128..246 is reserved for future use and not a recognized frame type.
	r := newReader([]byte{200})
	if _, err := parseStackMapFrame(r); !errors.Is(err, ErrBadTag) {
		t.Fatalf("got %v, want ErrBadTag", err)
	}
}

func TestVerificationTypeTagsAreNotSequential(t *testing.T) {
	tests := []struct {
		bytes []byte
		kind  VerificationTypeKind
	}{
		{[]byte{3}, VerifyDouble},
		{[]byte{4}, VerifyLong},
		{[]byte{7, 0x00, 0x01}, VerifyObject},
		{[]byte{8, 0x00, 0x2A}, VerifyUninitialized},
	}
	for _, tt := range tests {
		r := newReader(tt.bytes)
		v, err := parseVerificationTypeInfo(r)
		if err != nil {
			t.Fatalf("parseVerificationTypeInfo: %v", err)
		}
		if v.Kind != tt.kind {
			t.Fatalf("Kind = %v, want %v", v.Kind, tt.kind)
		}
	}
}

func TestParseElementValueTags(t *testing.T) {
	tests := []struct {
		name  string
		bytes []byte
		tag   ElementValueTag
	}{
		{"int const", []byte{'I', 0x00, 0x01}, EVInt},
		{"string const", []byte{'s', 0x00, 0x02}, EVString},
		{"enum", []byte{'e', 0x00, 0x01, 0x00, 0x02}, EVEnum},
		{"class", []byte{'c', 0x00, 0x03}, EVClass},
		{"annotation", []byte{'@', 0x00, 0x01, 0x00, 0x00}, EVAnnotation},
		{"array", []byte{'[', 0x00, 0x01, 'I', 0x00, 0x01}, EVArray},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newReader(tt.bytes)
			ev, err := parseElementValue(r)
			if err != nil {
				t.Fatalf("parseElementValue: %v", err)
			}
			if ev.Tag != tt.tag {
				t.Fatalf("Tag = %q, want %q", ev.Tag, tt.tag)
			}
		})
	}
}

func TestParseElementValueBadTag(t *testing.T) {
	r := newReader([]byte{'?'})
	if _, err := parseElementValue(r); !errors.Is(err, ErrBadTag) {
		t.Fatalf("got %v, want ErrBadTag", err)
	}
}

func TestParseTypeAnnotationTargetInfoShapes(t *testing.T) {
	tests := []struct {
		name       string
		targetType byte
		bytes      []byte
	}{
		{"type_parameter_target", 0x00, []byte{0x02}},
		{"supertype_target", 0x10, []byte{0x00, 0x01}},
		{"type_parameter_bound_target", 0x11, []byte{0x00, 0x01}},
		{"empty_target", 0x13, nil},
		{"formal_parameter_target", 0x16, []byte{0x00}},
		{"throws_target", 0x17, []byte{0x00, 0x02}},
		{"localvar_target", 0x40, []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x05, 0x00, 0x01}},
		{"catch_target", 0x42, []byte{0x00, 0x01}},
		{"offset_target", 0x43, []byte{0x00, 0x10}},
		{"type_argument_target", 0x47, []byte{0x00, 0x10, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newReader(tt.bytes)
			if _, err := parseTypeAnnotationTargetInfo(r, tt.targetType); err != nil {
				t.Fatalf("parseTypeAnnotationTargetInfo(0x%02x): %v", tt.targetType, err)
			}
			if !r.atEnd() {
				t.Fatalf("target_type 0x%02x left %d bytes unconsumed", tt.targetType, r.remaining())
			}
		})
	}
}

func TestParseTypeAnnotationTargetInfoUnknown(t *testing.T) {
	r := newReader(nil)
	if _, err := parseTypeAnnotationTargetInfo(r, 0xFF); !errors.Is(err, ErrBadTag) {
		t.Fatalf("got %v, want ErrBadTag", err)
	}
}

func TestAttributeDispatchUnknownFallsThrough(t *testing.T) {
	b := newClassBuilder(0, 61)
	objName := b.utf8Const("java/lang/Object")
	objClass := b.classConst(objName)
	weirdName := b.utf8Const("Frobnicate")
	data := b.finish(AccPublic|AccSuper, objClass, 0, attrBytes2(weirdName, []byte{0xAA, 0xBB}))

	cf, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cf.Attributes) != 1 {
		t.Fatalf("got %d attributes, want 1", len(cf.Attributes))
	}
	u, ok := cf.Attributes[0].(UnknownAttribute)
	if !ok {
		t.Fatalf("got %T, want UnknownAttribute", cf.Attributes[0])
	}
	if u.Name != "Frobnicate" || len(u.Data) != 2 {
		t.Fatalf("got %+v", u)
	}
}

// attrBytes2 wraps a single attribute payload in an attributes_count=1
// block, for use with classBuilder.finish's attrs parameter.
func attrBytes2(nameIdx uint16, payload []byte) []byte {
	var out []byte
	out = append(out, byte(0x00), byte(0x01))
	out = append(out, attrBytes(nameIdx, payload)...)
	return out
}
