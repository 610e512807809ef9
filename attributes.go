// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import "fmt"

// Attribute is the tagged union of all recognized attribute kinds
// plus Unknown, keyed by attribute name. The family is open-ended
// (spec §6.4); dispatch is a single table keyed by name, falling
// through to Unknown with the payload preserved verbatim.
type Attribute interface {
	isAttribute()
	AttributeName() string
}

// UnknownAttribute retains an unrecognized attribute's name and raw
// payload untouched.
type UnknownAttribute struct {
	Name string
	Data []byte
}

func (UnknownAttribute) isAttribute()            {}
func (a UnknownAttribute) AttributeName() string { return a.Name }

// ConstantValueAttribute points to the constant-pool entry giving a
// static final field's compile-time value.
type ConstantValueAttribute struct{ Index uint16 }

// ExceptionsAttribute lists the checked exception types a method may
// throw, by constant-pool Class index.
type ExceptionsAttribute struct{ ExceptionIndexTable []uint16 }

// InnerClassEntry is one row of an InnerClasses attribute.
type InnerClassEntry struct {
	InnerClassInfoIndex   uint16
	OuterClassInfoIndex   uint16
	InnerNameIndex        uint16
	InnerClassAccessFlags uint16
}

// InnerClassesAttribute records the inner classes referenced by this
// class file.
type InnerClassesAttribute struct{ Classes []InnerClassEntry }

// EnclosingMethodAttribute identifies the innermost enclosing class
// and, for a local or anonymous class declared in a method, that
// method.
type EnclosingMethodAttribute struct{ ClassIndex, MethodIndex uint16 }

// SyntheticAttribute marks a compiler-generated member. It carries no
// payload.
type SyntheticAttribute struct{}

// SignatureAttribute points to the Utf8 holding a class, method, or
// field generic signature string.
type SignatureAttribute struct{ SignatureIndex uint16 }

// SourceFileAttribute points to the Utf8 holding the source file name.
type SourceFileAttribute struct{ SourceFileIndex uint16 }

// DeprecatedAttribute marks a deprecated member. It carries no
// payload.
type DeprecatedAttribute struct{}

// MethodParameter is one row of a MethodParameters attribute.
type MethodParameter struct {
	NameIndex   uint16 // 0 means the parameter has no name
	AccessFlags uint16
}

// MethodParametersAttribute records formal parameter metadata.
type MethodParametersAttribute struct{ Parameters []MethodParameter }

func (ConstantValueAttribute) isAttribute()   {}
func (ExceptionsAttribute) isAttribute()      {}
func (InnerClassesAttribute) isAttribute()    {}
func (EnclosingMethodAttribute) isAttribute() {}
func (SyntheticAttribute) isAttribute()       {}
func (SignatureAttribute) isAttribute()       {}
func (SourceFileAttribute) isAttribute()      {}
func (DeprecatedAttribute) isAttribute()      {}
func (MethodParametersAttribute) isAttribute() {}

func (ConstantValueAttribute) AttributeName() string    { return "ConstantValue" }
func (ExceptionsAttribute) AttributeName() string       { return "Exceptions" }
func (InnerClassesAttribute) AttributeName() string     { return "InnerClasses" }
func (EnclosingMethodAttribute) AttributeName() string  { return "EnclosingMethod" }
func (SyntheticAttribute) AttributeName() string        { return "Synthetic" }
func (SignatureAttribute) AttributeName() string        { return "Signature" }
func (SourceFileAttribute) AttributeName() string       { return "SourceFile" }
func (DeprecatedAttribute) AttributeName() string       { return "Deprecated" }
func (MethodParametersAttribute) AttributeName() string { return "MethodParameters" }

// parseAttributes reads an attributes_count-prefixed list of
// attributes from r.
func parseAttributes(r *reader, pool *ConstantPool) ([]Attribute, error) {
	count, err := r.u16()
	if err != nil {
		return nil, fmt.Errorf("attributes_count: %w", err)
	}
	attrs := make([]Attribute, 0, count)
	for i := uint16(0); i < count; i++ {
		a, err := parseAttribute(r, pool)
		if err != nil {
			return nil, fmt.Errorf("attribute %d: %w", i, err)
		}
		attrs = append(attrs, a)
	}
	return attrs, nil
}

// parseAttribute reads one attribute_name_index/attribute_length
// header, carves exactly attribute_length bytes, and dispatches by
// name to a variant-specific sub-parser over that carved payload.
func parseAttribute(r *reader, pool *ConstantPool) (Attribute, error) {
	nameIdx, err := r.u16()
	if err != nil {
		return nil, fmt.Errorf("attribute_name_index: %w", err)
	}
	length, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("attribute_length: %w", err)
	}
	payload, err := r.take(int(length))
	if err != nil {
		return nil, err
	}
	name, err := pool.Utf8(nameIdx)
	if err != nil {
		return nil, fmt.Errorf("attribute_name_index %d: %w", nameIdx, err)
	}
	sub := newReader(payload)
	var a Attribute
	switch name {
	case "ConstantValue":
		idx, err := sub.u16()
		if err != nil {
			return nil, err
		}
		a = ConstantValueAttribute{Index: idx}
	case "Code":
		a, err = parseCodeAttribute(sub, pool)
	case "StackMapTable":
		a, err = parseStackMapTableAttribute(sub)
	case "BootstrapMethods":
		a, err = parseBootstrapMethodsAttribute(sub)
	case "NestHost":
		idx, uerr := sub.u16()
		err = uerr
		a = NestHostAttribute{HostClassIndex: idx}
	case "NestMembers":
		a, err = parseU16ListAttribute(sub, func(cs []uint16) Attribute { return NestMembersAttribute{Classes: cs} })
	case "PermittedSubclasses":
		a, err = parseU16ListAttribute(sub, func(cs []uint16) Attribute { return PermittedSubclassesAttribute{Classes: cs} })
	case "Exceptions":
		a, err = parseU16ListAttribute(sub, func(cs []uint16) Attribute { return ExceptionsAttribute{ExceptionIndexTable: cs} })
	case "InnerClasses":
		a, err = parseInnerClassesAttribute(sub)
	case "EnclosingMethod":
		a, err = parseEnclosingMethodAttribute(sub)
	case "Synthetic":
		a = SyntheticAttribute{}
	case "Signature":
		idx, uerr := sub.u16()
		err = uerr
		a = SignatureAttribute{SignatureIndex: idx}
	case "Record":
		a, err = parseRecordAttribute(sub, pool)
	case "SourceFile":
		idx, uerr := sub.u16()
		err = uerr
		a = SourceFileAttribute{SourceFileIndex: idx}
	case "LineNumberTable":
		a, err = parseLineNumberTableAttribute(sub)
	case "LocalVariableTable":
		a, err = parseLocalVariableTableAttribute(sub)
	case "LocalVariableTypeTable":
		a, err = parseLocalVariableTypeTableAttribute(sub)
	case "SourceDebugExtension":
		// The whole payload already carved by the outer attribute IS
		// the extension string; do not take() again from sub.
		data := make([]byte, len(payload))
		copy(data, payload)
		a = SourceDebugExtensionAttribute{Data: data}
		sub.pos = len(payload)
	case "Deprecated":
		a = DeprecatedAttribute{}
	case "RuntimeVisibleAnnotations":
		a, err = parseAnnotationsAttribute(sub, true, false)
	case "RuntimeInvisibleAnnotations":
		a, err = parseAnnotationsAttribute(sub, false, false)
	case "RuntimeVisibleParameterAnnotations":
		a, err = parseParameterAnnotationsAttribute(sub, true)
	case "RuntimeInvisibleParameterAnnotations":
		a, err = parseParameterAnnotationsAttribute(sub, false)
	case "RuntimeVisibleTypeAnnotations":
		a, err = parseTypeAnnotationsAttribute(sub, true)
	case "RuntimeInvisibleTypeAnnotations":
		a, err = parseTypeAnnotationsAttribute(sub, false)
	case "AnnotationDefault":
		var ev ElementValue
		ev, err = parseElementValue(sub)
		a = AnnotationDefaultAttribute{Value: ev}
	case "MethodParameters":
		a, err = parseMethodParametersAttribute(sub)
	case "Module":
		a, err = parseModuleAttribute(sub)
	case "ModulePackages":
		a, err = parseU16ListAttribute(sub, func(cs []uint16) Attribute { return ModulePackagesAttribute{Packages: cs} })
	case "ModuleMainClass":
		idx, uerr := sub.u16()
		err = uerr
		a = ModuleMainClassAttribute{MainClassIndex: idx}
	default:
		cp := make([]byte, len(payload))
		copy(cp, payload)
		return UnknownAttribute{Name: name, Data: cp}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("attribute %q: %w", name, err)
	}
	if !sub.atEnd() {
		return nil, fmt.Errorf("attribute %q: %d bytes left unconsumed: %w", name, sub.remaining(), ErrBadStructure)
	}
	return a, nil
}

func parseU16ListAttribute(r *reader, build func([]uint16) Attribute) (Attribute, error) {
	count, err := r.u16()
	if err != nil {
		return nil, err
	}
	list := make([]uint16, count)
	for i := range list {
		v, err := r.u16()
		if err != nil {
			return nil, err
		}
		list[i] = v
	}
	return build(list), nil
}

func parseInnerClassesAttribute(r *reader) (Attribute, error) {
	count, err := r.u16()
	if err != nil {
		return nil, err
	}
	entries := make([]InnerClassEntry, count)
	for i := range entries {
		inner, err := r.u16()
		if err != nil {
			return nil, err
		}
		outer, err := r.u16()
		if err != nil {
			return nil, err
		}
		name, err := r.u16()
		if err != nil {
			return nil, err
		}
		flags, err := r.u16()
		if err != nil {
			return nil, err
		}
		entries[i] = InnerClassEntry{
			InnerClassInfoIndex:   inner,
			OuterClassInfoIndex:   outer,
			InnerNameIndex:        name,
			InnerClassAccessFlags: flags,
		}
	}
	return InnerClassesAttribute{Classes: entries}, nil
}

func parseEnclosingMethodAttribute(r *reader) (Attribute, error) {
	classIdx, err := r.u16()
	if err != nil {
		return nil, err
	}
	methodIdx, err := r.u16()
	if err != nil {
		return nil, err
	}
	return EnclosingMethodAttribute{ClassIndex: classIdx, MethodIndex: methodIdx}, nil
}

func parseMethodParametersAttribute(r *reader) (Attribute, error) {
	count, err := r.u8()
	if err != nil {
		return nil, err
	}
	params := make([]MethodParameter, count)
	for i := range params {
		name, err := r.u16()
		if err != nil {
			return nil, err
		}
		flags, err := r.u16()
		if err != nil {
			return nil, err
		}
		params[i] = MethodParameter{NameIndex: name, AccessFlags: flags}
	}
	return MethodParametersAttribute{Parameters: params}, nil
}
