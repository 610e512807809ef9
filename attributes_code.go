// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import "fmt"

// ExceptionTableEntry is one row of a Code attribute's exception
// table.
type ExceptionTableEntry struct {
	StartPC, EndPC, HandlerPC uint16
	CatchType                 uint16 // 0 means catch-all (finally)
}

// CodeAttribute holds a method body. The instruction stream is kept
// as an opaque byte string: this module neither verifies nor
// interprets bytecode (spec Non-goals).
type CodeAttribute struct {
	MaxStack       uint16
	MaxLocals      uint16
	Code           []byte
	ExceptionTable []ExceptionTableEntry
	Attributes     []Attribute
}

func (CodeAttribute) isAttribute()            {}
func (CodeAttribute) AttributeName() string   { return "Code" }

func parseCodeAttribute(r *reader, pool *ConstantPool) (CodeAttribute, error) {
	maxStack, err := r.u16()
	if err != nil {
		return CodeAttribute{}, err
	}
	maxLocals, err := r.u16()
	if err != nil {
		return CodeAttribute{}, err
	}
	codeLen, err := r.u32()
	if err != nil {
		return CodeAttribute{}, err
	}
	code, err := r.take(int(codeLen))
	if err != nil {
		return CodeAttribute{}, err
	}
	codeCopy := make([]byte, len(code))
	copy(codeCopy, code)

	excCount, err := r.u16()
	if err != nil {
		return CodeAttribute{}, err
	}
	excTable := make([]ExceptionTableEntry, excCount)
	for i := range excTable {
		startPC, err := r.u16()
		if err != nil {
			return CodeAttribute{}, err
		}
		endPC, err := r.u16()
		if err != nil {
			return CodeAttribute{}, err
		}
		handlerPC, err := r.u16()
		if err != nil {
			return CodeAttribute{}, err
		}
		catchType, err := r.u16()
		if err != nil {
			return CodeAttribute{}, err
		}
		excTable[i] = ExceptionTableEntry{StartPC: startPC, EndPC: endPC, HandlerPC: handlerPC, CatchType: catchType}
	}

	attrs, err := parseAttributes(r, pool)
	if err != nil {
		return CodeAttribute{}, err
	}
	return CodeAttribute{
		MaxStack:       maxStack,
		MaxLocals:      maxLocals,
		Code:           codeCopy,
		ExceptionTable: excTable,
		Attributes:     attrs,
	}, nil
}

// VerificationTypeKind enumerates the verification_type_info tags.
// Tag values are NOT sequential with appearance order: Long is 4,
// Double is 3 (spec §4.2).
type VerificationTypeKind byte

const (
	VerifyTop               VerificationTypeKind = 0
	VerifyInteger           VerificationTypeKind = 1
	VerifyFloat             VerificationTypeKind = 2
	VerifyDouble            VerificationTypeKind = 3
	VerifyLong              VerificationTypeKind = 4
	VerifyNull              VerificationTypeKind = 5
	VerifyUninitializedThis VerificationTypeKind = 6
	VerifyObject            VerificationTypeKind = 7
	VerifyUninitialized     VerificationTypeKind = 8
)

// VerificationTypeInfo is one verification-type entry in a
// StackMapFrame's locals or stack list.
type VerificationTypeInfo struct {
	Kind           VerificationTypeKind
	CpoolIndex     uint16 // set for VerifyObject
	Offset         uint16 // set for VerifyUninitialized
}

func parseVerificationTypeInfo(r *reader) (VerificationTypeInfo, error) {
	tag, err := r.u8()
	if err != nil {
		return VerificationTypeInfo{}, err
	}
	kind := VerificationTypeKind(tag)
	switch kind {
	case VerifyTop, VerifyInteger, VerifyFloat, VerifyDouble, VerifyLong, VerifyNull, VerifyUninitializedThis:
		return VerificationTypeInfo{Kind: kind}, nil
	case VerifyObject:
		idx, err := r.u16()
		if err != nil {
			return VerificationTypeInfo{}, err
		}
		return VerificationTypeInfo{Kind: kind, CpoolIndex: idx}, nil
	case VerifyUninitialized:
		off, err := r.u16()
		if err != nil {
			return VerificationTypeInfo{}, err
		}
		return VerificationTypeInfo{Kind: kind, Offset: off}, nil
	default:
		return VerificationTypeInfo{}, fmt.Errorf("verification_type_info tag %d: %w", tag, ErrBadTag)
	}
}

// StackMapFrameKind enumerates the frame_type ranges of spec §4.2.
type StackMapFrameKind int

const (
	FrameSame StackMapFrameKind = iota
	FrameSameLocals1StackItem
	FrameSameLocals1StackItemExtended
	FrameChop
	FrameSameExtended
	FrameAppend
	FrameFull
)

// StackMapFrame is one entry of a StackMapTable attribute.
type StackMapFrame struct {
	Kind         StackMapFrameKind
	FrameType    byte
	OffsetDelta  uint16 // implicit (frame_type) for Same/SameLocals1StackItem
	ChopCount    int    // Chop: 251 - frame_type
	Stack        []VerificationTypeInfo
	Locals       []VerificationTypeInfo
}

func parseStackMapFrame(r *reader) (StackMapFrame, error) {
	frameType, err := r.u8()
	if err != nil {
		return StackMapFrame{}, err
	}
	switch {
	case frameType <= 63:
		return StackMapFrame{Kind: FrameSame, FrameType: frameType, OffsetDelta: uint16(frameType)}, nil
	case frameType <= 127:
		item, err := parseVerificationTypeInfo(r)
		if err != nil {
			return StackMapFrame{}, err
		}
		return StackMapFrame{
			Kind:        FrameSameLocals1StackItem,
			FrameType:   frameType,
			OffsetDelta: uint16(frameType) - 64,
			Stack:       []VerificationTypeInfo{item},
		}, nil
	case frameType == 247:
		offset, err := r.u16()
		if err != nil {
			return StackMapFrame{}, err
		}
		item, err := parseVerificationTypeInfo(r)
		if err != nil {
			return StackMapFrame{}, err
		}
		return StackMapFrame{Kind: FrameSameLocals1StackItemExtended, FrameType: frameType, OffsetDelta: offset, Stack: []VerificationTypeInfo{item}}, nil
	case frameType >= 248 && frameType <= 250:
		offset, err := r.u16()
		if err != nil {
			return StackMapFrame{}, err
		}
		return StackMapFrame{Kind: FrameChop, FrameType: frameType, OffsetDelta: offset, ChopCount: 251 - int(frameType)}, nil
	case frameType == 251:
		offset, err := r.u16()
		if err != nil {
			return StackMapFrame{}, err
		}
		return StackMapFrame{Kind: FrameSameExtended, FrameType: frameType, OffsetDelta: offset}, nil
	case frameType >= 252 && frameType <= 254:
		offset, err := r.u16()
		if err != nil {
			return StackMapFrame{}, err
		}
		n := int(frameType) - 251
		locals := make([]VerificationTypeInfo, n)
		for i := range locals {
			locals[i], err = parseVerificationTypeInfo(r)
			if err != nil {
				return StackMapFrame{}, err
			}
		}
		return StackMapFrame{Kind: FrameAppend, FrameType: frameType, OffsetDelta: offset, Locals: locals}, nil
	case frameType == 255:
		offset, err := r.u16()
		if err != nil {
			return StackMapFrame{}, err
		}
		localCount, err := r.u16()
		if err != nil {
			return StackMapFrame{}, err
		}
		locals := make([]VerificationTypeInfo, localCount)
		for i := range locals {
			locals[i], err = parseVerificationTypeInfo(r)
			if err != nil {
				return StackMapFrame{}, err
			}
		}
		stackCount, err := r.u16()
		if err != nil {
			return StackMapFrame{}, err
		}
		stack := make([]VerificationTypeInfo, stackCount)
		for i := range stack {
			stack[i], err = parseVerificationTypeInfo(r)
			if err != nil {
				return StackMapFrame{}, err
			}
		}
		return StackMapFrame{Kind: FrameFull, FrameType: frameType, OffsetDelta: offset, Locals: locals, Stack: stack}, nil
	default:
		return StackMapFrame{}, fmt.Errorf("stack map frame_type %d: %w", frameType, ErrBadTag)
	}
}

// StackMapTableAttribute is the full list of stack map frames used by
// the type checker. This module never runs the type checker; it only
// preserves the structure.
type StackMapTableAttribute struct{ Entries []StackMapFrame }

func (StackMapTableAttribute) isAttribute()          {}
func (StackMapTableAttribute) AttributeName() string { return "StackMapTable" }

func parseStackMapTableAttribute(r *reader) (Attribute, error) {
	count, err := r.u16()
	if err != nil {
		return nil, err
	}
	frames := make([]StackMapFrame, count)
	for i := range frames {
		frames[i], err = parseStackMapFrame(r)
		if err != nil {
			return nil, err
		}
	}
	return StackMapTableAttribute{Entries: frames}, nil
}

// LineNumberEntry maps a bytecode offset to a source line.
type LineNumberEntry struct{ StartPC, LineNumber uint16 }

// LineNumberTableAttribute is debug metadata mapping bytecode offsets
// to source lines.
type LineNumberTableAttribute struct{ Entries []LineNumberEntry }

func (LineNumberTableAttribute) isAttribute()          {}
func (LineNumberTableAttribute) AttributeName() string { return "LineNumberTable" }

func parseLineNumberTableAttribute(r *reader) (Attribute, error) {
	count, err := r.u16()
	if err != nil {
		return nil, err
	}
	entries := make([]LineNumberEntry, count)
	for i := range entries {
		startPC, err := r.u16()
		if err != nil {
			return nil, err
		}
		line, err := r.u16()
		if err != nil {
			return nil, err
		}
		entries[i] = LineNumberEntry{StartPC: startPC, LineNumber: line}
	}
	return LineNumberTableAttribute{Entries: entries}, nil
}

// LocalVariableEntry is one row of a LocalVariableTable.
type LocalVariableEntry struct {
	StartPC, Length            uint16
	NameIndex, DescriptorIndex uint16
	Index                      uint16
}

// LocalVariableTableAttribute is debug metadata describing local
// variable slots.
type LocalVariableTableAttribute struct{ Entries []LocalVariableEntry }

func (LocalVariableTableAttribute) isAttribute()          {}
func (LocalVariableTableAttribute) AttributeName() string { return "LocalVariableTable" }

func parseLocalVariableTableAttribute(r *reader) (Attribute, error) {
	count, err := r.u16()
	if err != nil {
		return nil, err
	}
	entries := make([]LocalVariableEntry, count)
	for i := range entries {
		startPC, err := r.u16()
		if err != nil {
			return nil, err
		}
		length, err := r.u16()
		if err != nil {
			return nil, err
		}
		name, err := r.u16()
		if err != nil {
			return nil, err
		}
		desc, err := r.u16()
		if err != nil {
			return nil, err
		}
		idx, err := r.u16()
		if err != nil {
			return nil, err
		}
		entries[i] = LocalVariableEntry{StartPC: startPC, Length: length, NameIndex: name, DescriptorIndex: desc, Index: idx}
	}
	return LocalVariableTableAttribute{Entries: entries}, nil
}

// LocalVariableTypeEntry is one row of a LocalVariableTypeTable; it
// carries a signature index rather than a plain descriptor index.
type LocalVariableTypeEntry struct {
	StartPC, Length          uint16
	NameIndex, SignatureIndex uint16
	Index                    uint16
}

// LocalVariableTypeTableAttribute is debug metadata describing the
// generic types of local variable slots.
type LocalVariableTypeTableAttribute struct{ Entries []LocalVariableTypeEntry }

func (LocalVariableTypeTableAttribute) isAttribute()          {}
func (LocalVariableTypeTableAttribute) AttributeName() string { return "LocalVariableTypeTable" }

func parseLocalVariableTypeTableAttribute(r *reader) (Attribute, error) {
	count, err := r.u16()
	if err != nil {
		return nil, err
	}
	entries := make([]LocalVariableTypeEntry, count)
	for i := range entries {
		startPC, err := r.u16()
		if err != nil {
			return nil, err
		}
		length, err := r.u16()
		if err != nil {
			return nil, err
		}
		name, err := r.u16()
		if err != nil {
			return nil, err
		}
		sig, err := r.u16()
		if err != nil {
			return nil, err
		}
		idx, err := r.u16()
		if err != nil {
			return nil, err
		}
		entries[i] = LocalVariableTypeEntry{StartPC: startPC, Length: length, NameIndex: name, SignatureIndex: sig, Index: idx}
	}
	return LocalVariableTypeTableAttribute{Entries: entries}, nil
}

// SourceDebugExtensionAttribute carries a free-form debug extension
// string (itself modified UTF-8, but without a leading length prefix
// — its length is exactly the outer attribute's length). The source
// this module is grounded on reads this with a second length-prefixed
// take, which over-reads; this parser instead reuses the bytes already
// carved by the outer attribute (spec §9).
type SourceDebugExtensionAttribute struct{ Data []byte }

func (SourceDebugExtensionAttribute) isAttribute()          {}
func (SourceDebugExtensionAttribute) AttributeName() string { return "SourceDebugExtension" }
