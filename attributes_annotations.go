// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import "fmt"

// ElementValueTag enumerates the element_value tag bytes (spec §4.2).
type ElementValueTag byte

const (
	EVByte           ElementValueTag = 'B'
	EVChar           ElementValueTag = 'C'
	EVDouble         ElementValueTag = 'D'
	EVFloat          ElementValueTag = 'F'
	EVInt            ElementValueTag = 'I'
	EVLong           ElementValueTag = 'J'
	EVShort          ElementValueTag = 'S'
	EVBoolean        ElementValueTag = 'Z'
	EVString         ElementValueTag = 's'
	EVEnum           ElementValueTag = 'e'
	EVClass          ElementValueTag = 'c'
	EVAnnotation     ElementValueTag = '@'
	EVArray          ElementValueTag = '['
)

// ElementValue is one annotation element value, tagged by Tag.
type ElementValue struct {
	Tag ElementValueTag

	ConstValueIndex uint16 // B C D F I J S Z s

	EnumTypeNameIndex  uint16 // e
	EnumConstNameIndex uint16 // e

	ClassInfoIndex uint16 // c

	Annotation *AnnotationInfo // @

	Values []ElementValue // [
}

func parseElementValue(r *reader) (ElementValue, error) {
	tag, err := r.u8()
	if err != nil {
		return ElementValue{}, err
	}
	switch ElementValueTag(tag) {
	case EVByte, EVChar, EVDouble, EVFloat, EVInt, EVLong, EVShort, EVBoolean, EVString:
		idx, err := r.u16()
		if err != nil {
			return ElementValue{}, err
		}
		return ElementValue{Tag: ElementValueTag(tag), ConstValueIndex: idx}, nil
	case EVEnum:
		typeIdx, err := r.u16()
		if err != nil {
			return ElementValue{}, err
		}
		constIdx, err := r.u16()
		if err != nil {
			return ElementValue{}, err
		}
		return ElementValue{Tag: EVEnum, EnumTypeNameIndex: typeIdx, EnumConstNameIndex: constIdx}, nil
	case EVClass:
		idx, err := r.u16()
		if err != nil {
			return ElementValue{}, err
		}
		return ElementValue{Tag: EVClass, ClassInfoIndex: idx}, nil
	case EVAnnotation:
		ann, err := parseAnnotationInfo(r)
		if err != nil {
			return ElementValue{}, err
		}
		return ElementValue{Tag: EVAnnotation, Annotation: &ann}, nil
	case EVArray:
		count, err := r.u16()
		if err != nil {
			return ElementValue{}, err
		}
		vals := make([]ElementValue, count)
		for i := range vals {
			vals[i], err = parseElementValue(r)
			if err != nil {
				return ElementValue{}, err
			}
		}
		return ElementValue{Tag: EVArray, Values: vals}, nil
	default:
		return ElementValue{}, fmt.Errorf("element_value tag %q: %w", rune(tag), ErrBadTag)
	}
}

// ElementValuePair is one (name, value) entry of an annotation.
type ElementValuePair struct {
	ElementNameIndex uint16
	Value            ElementValue
}

// AnnotationInfo is the raw, unresolved shape of one annotation entry
// as it appears in a RuntimeVisibleAnnotations-family attribute.
type AnnotationInfo struct {
	TypeIndex         uint16
	ElementValuePairs []ElementValuePair
}

func parseAnnotationInfo(r *reader) (AnnotationInfo, error) {
	typeIdx, err := r.u16()
	if err != nil {
		return AnnotationInfo{}, err
	}
	count, err := r.u16()
	if err != nil {
		return AnnotationInfo{}, err
	}
	pairs := make([]ElementValuePair, count)
	for i := range pairs {
		nameIdx, err := r.u16()
		if err != nil {
			return AnnotationInfo{}, err
		}
		val, err := parseElementValue(r)
		if err != nil {
			return AnnotationInfo{}, err
		}
		pairs[i] = ElementValuePair{ElementNameIndex: nameIdx, Value: val}
	}
	return AnnotationInfo{TypeIndex: typeIdx, ElementValuePairs: pairs}, nil
}

func parseAnnotationInfoList(r *reader) ([]AnnotationInfo, error) {
	count, err := r.u16()
	if err != nil {
		return nil, err
	}
	list := make([]AnnotationInfo, count)
	for i := range list {
		list[i], err = parseAnnotationInfo(r)
		if err != nil {
			return nil, err
		}
	}
	return list, nil
}

// RuntimeVisibleAnnotationsAttribute and RuntimeInvisibleAnnotationsAttribute
// carry declaration-level annotations retained at compile time and
// (for the visible variant) available via reflection at run time.
type RuntimeVisibleAnnotationsAttribute struct{ Annotations []AnnotationInfo }
type RuntimeInvisibleAnnotationsAttribute struct{ Annotations []AnnotationInfo }

func (RuntimeVisibleAnnotationsAttribute) isAttribute()          {}
func (RuntimeVisibleAnnotationsAttribute) AttributeName() string { return "RuntimeVisibleAnnotations" }
func (RuntimeInvisibleAnnotationsAttribute) isAttribute()        {}
func (RuntimeInvisibleAnnotationsAttribute) AttributeName() string {
	return "RuntimeInvisibleAnnotations"
}

func parseAnnotationsAttribute(r *reader, visible, _ bool) (Attribute, error) {
	list, err := parseAnnotationInfoList(r)
	if err != nil {
		return nil, err
	}
	if visible {
		return RuntimeVisibleAnnotationsAttribute{Annotations: list}, nil
	}
	return RuntimeInvisibleAnnotationsAttribute{Annotations: list}, nil
}

// RuntimeVisibleParameterAnnotationsAttribute and
// RuntimeInvisibleParameterAnnotationsAttribute carry one annotation
// list per formal parameter.
type RuntimeVisibleParameterAnnotationsAttribute struct{ Parameters [][]AnnotationInfo }
type RuntimeInvisibleParameterAnnotationsAttribute struct{ Parameters [][]AnnotationInfo }

func (RuntimeVisibleParameterAnnotationsAttribute) isAttribute() {}
func (RuntimeVisibleParameterAnnotationsAttribute) AttributeName() string {
	return "RuntimeVisibleParameterAnnotations"
}
func (RuntimeInvisibleParameterAnnotationsAttribute) isAttribute() {}
func (RuntimeInvisibleParameterAnnotationsAttribute) AttributeName() string {
	return "RuntimeInvisibleParameterAnnotations"
}

func parseParameterAnnotationsAttribute(r *reader, visible bool) (Attribute, error) {
	numParams, err := r.u8()
	if err != nil {
		return nil, err
	}
	params := make([][]AnnotationInfo, numParams)
	for i := range params {
		params[i], err = parseAnnotationInfoList(r)
		if err != nil {
			return nil, err
		}
	}
	if visible {
		return RuntimeVisibleParameterAnnotationsAttribute{Parameters: params}, nil
	}
	return RuntimeInvisibleParameterAnnotationsAttribute{Parameters: params}, nil
}

// TypePathEntry is one segment of a type_path list, steering a type
// annotation to a nested part of a compound type.
type TypePathEntry struct {
	TypePathKind      byte
	TypeArgumentIndex byte
}

func parseTypePath(r *reader) ([]TypePathEntry, error) {
	count, err := r.u8()
	if err != nil {
		return nil, err
	}
	path := make([]TypePathEntry, count)
	for i := range path {
		kind, err := r.u8()
		if err != nil {
			return nil, err
		}
		argIdx, err := r.u8()
		if err != nil {
			return nil, err
		}
		path[i] = TypePathEntry{TypePathKind: kind, TypeArgumentIndex: argIdx}
	}
	return path, nil
}

// LocalVarTargetEntry is one row of a localvar_target table (used by
// target_type 0x40/0x41).
type LocalVarTargetEntry struct{ StartPC, Length, Index uint16 }

// TypeAnnotationTargetInfo is the target_info union of a type
// annotation, discriminated by the owning TypeAnnotationInfo's
// TargetType. Fields are populated according to which of the ten
// target-info shapes TargetType selects; unused fields are zero.
type TypeAnnotationTargetInfo struct {
	TypeParameterIndex  byte   // type_parameter_target
	SupertypeIndex      uint16 // supertype_target
	BoundIndex          byte   // type_parameter_bound_target
	FormalParameterIndex byte  // formal_parameter_target
	ThrowsTypeIndex     uint16 // throws_target
	LocalVarTable       []LocalVarTargetEntry // localvar_target
	ExceptionTableIndex uint16 // catch_target
	Offset              uint16 // offset_target, type_argument_target
	TypeArgumentIndex   byte   // type_argument_target
}

func parseTypeAnnotationTargetInfo(r *reader, targetType byte) (TypeAnnotationTargetInfo, error) {
	switch {
	case targetType == 0x00 || targetType == 0x01:
		idx, err := r.u8()
		return TypeAnnotationTargetInfo{TypeParameterIndex: idx}, err
	case targetType == 0x10:
		idx, err := r.u16()
		return TypeAnnotationTargetInfo{SupertypeIndex: idx}, err
	case targetType == 0x11 || targetType == 0x12:
		paramIdx, err := r.u8()
		if err != nil {
			return TypeAnnotationTargetInfo{}, err
		}
		boundIdx, err := r.u8()
		return TypeAnnotationTargetInfo{TypeParameterIndex: paramIdx, BoundIndex: boundIdx}, err
	case targetType >= 0x13 && targetType <= 0x15:
		return TypeAnnotationTargetInfo{}, nil
	case targetType == 0x16:
		idx, err := r.u8()
		return TypeAnnotationTargetInfo{FormalParameterIndex: idx}, err
	case targetType == 0x17:
		idx, err := r.u16()
		return TypeAnnotationTargetInfo{ThrowsTypeIndex: idx}, err
	case targetType == 0x40 || targetType == 0x41:
		count, err := r.u16()
		if err != nil {
			return TypeAnnotationTargetInfo{}, err
		}
		table := make([]LocalVarTargetEntry, count)
		for i := range table {
			startPC, err := r.u16()
			if err != nil {
				return TypeAnnotationTargetInfo{}, err
			}
			length, err := r.u16()
			if err != nil {
				return TypeAnnotationTargetInfo{}, err
			}
			idx, err := r.u16()
			if err != nil {
				return TypeAnnotationTargetInfo{}, err
			}
			table[i] = LocalVarTargetEntry{StartPC: startPC, Length: length, Index: idx}
		}
		return TypeAnnotationTargetInfo{LocalVarTable: table}, nil
	case targetType == 0x42:
		idx, err := r.u16()
		return TypeAnnotationTargetInfo{ExceptionTableIndex: idx}, err
	case targetType >= 0x43 && targetType <= 0x46:
		off, err := r.u16()
		return TypeAnnotationTargetInfo{Offset: off}, err
	case targetType >= 0x47 && targetType <= 0x4B:
		off, err := r.u16()
		if err != nil {
			return TypeAnnotationTargetInfo{}, err
		}
		argIdx, err := r.u8()
		return TypeAnnotationTargetInfo{Offset: off, TypeArgumentIndex: argIdx}, err
	default:
		return TypeAnnotationTargetInfo{}, fmt.Errorf("type annotation target_type 0x%02x: %w", targetType, ErrBadTag)
	}
}

// TypeAnnotationInfo is one entry of a RuntimeVisibleTypeAnnotations
// or RuntimeInvisibleTypeAnnotations attribute.
type TypeAnnotationInfo struct {
	TargetType        byte
	TargetInfo        TypeAnnotationTargetInfo
	TypePath          []TypePathEntry
	TypeIndex         uint16
	ElementValuePairs []ElementValuePair
}

func parseTypeAnnotationInfo(r *reader) (TypeAnnotationInfo, error) {
	targetType, err := r.u8()
	if err != nil {
		return TypeAnnotationInfo{}, err
	}
	targetInfo, err := parseTypeAnnotationTargetInfo(r, targetType)
	if err != nil {
		return TypeAnnotationInfo{}, err
	}
	path, err := parseTypePath(r)
	if err != nil {
		return TypeAnnotationInfo{}, err
	}
	typeIdx, err := r.u16()
	if err != nil {
		return TypeAnnotationInfo{}, err
	}
	count, err := r.u16()
	if err != nil {
		return TypeAnnotationInfo{}, err
	}
	pairs := make([]ElementValuePair, count)
	for i := range pairs {
		nameIdx, err := r.u16()
		if err != nil {
			return TypeAnnotationInfo{}, err
		}
		val, err := parseElementValue(r)
		if err != nil {
			return TypeAnnotationInfo{}, err
		}
		pairs[i] = ElementValuePair{ElementNameIndex: nameIdx, Value: val}
	}
	return TypeAnnotationInfo{
		TargetType:        targetType,
		TargetInfo:        targetInfo,
		TypePath:          path,
		TypeIndex:         typeIdx,
		ElementValuePairs: pairs,
	}, nil
}

// RuntimeVisibleTypeAnnotationsAttribute and
// RuntimeInvisibleTypeAnnotationsAttribute annotate uses of types
// rather than declarations.
type RuntimeVisibleTypeAnnotationsAttribute struct{ Annotations []TypeAnnotationInfo }
type RuntimeInvisibleTypeAnnotationsAttribute struct{ Annotations []TypeAnnotationInfo }

func (RuntimeVisibleTypeAnnotationsAttribute) isAttribute() {}
func (RuntimeVisibleTypeAnnotationsAttribute) AttributeName() string {
	return "RuntimeVisibleTypeAnnotations"
}
func (RuntimeInvisibleTypeAnnotationsAttribute) isAttribute() {}
func (RuntimeInvisibleTypeAnnotationsAttribute) AttributeName() string {
	return "RuntimeInvisibleTypeAnnotations"
}

func parseTypeAnnotationsAttribute(r *reader, visible bool) (Attribute, error) {
	count, err := r.u16()
	if err != nil {
		return nil, err
	}
	list := make([]TypeAnnotationInfo, count)
	for i := range list {
		list[i], err = parseTypeAnnotationInfo(r)
		if err != nil {
			return nil, err
		}
	}
	if visible {
		return RuntimeVisibleTypeAnnotationsAttribute{Annotations: list}, nil
	}
	return RuntimeInvisibleTypeAnnotationsAttribute{Annotations: list}, nil
}

// AnnotationDefaultAttribute holds an annotation-interface member's
// default value.
type AnnotationDefaultAttribute struct{ Value ElementValue }

func (AnnotationDefaultAttribute) isAttribute()          {}
func (AnnotationDefaultAttribute) AttributeName() string { return "AnnotationDefault" }

// RecordComponent is one component of a Record attribute.
type RecordComponent struct {
	NameIndex       uint16
	DescriptorIndex uint16
	Attributes      []Attribute
}

// RecordAttribute lists the components of a record class.
type RecordAttribute struct{ Components []RecordComponent }

func (RecordAttribute) isAttribute()          {}
func (RecordAttribute) AttributeName() string { return "Record" }

func parseRecordAttribute(r *reader, pool *ConstantPool) (Attribute, error) {
	count, err := r.u16()
	if err != nil {
		return nil, err
	}
	components := make([]RecordComponent, count)
	for i := range components {
		nameIdx, err := r.u16()
		if err != nil {
			return nil, err
		}
		descIdx, err := r.u16()
		if err != nil {
			return nil, err
		}
		attrs, err := parseAttributes(r, pool)
		if err != nil {
			return nil, err
		}
		components[i] = RecordComponent{NameIndex: nameIdx, DescriptorIndex: descIdx, Attributes: attrs}
	}
	return RecordAttribute{Components: components}, nil
}
