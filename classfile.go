// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package classfile decodes the JVM class-file binary format and
// extracts a language-level summary of each compiled unit. The core
// is pure and single-threaded: it owns no I/O, no logging, and no
// concurrency primitives. Callers pass it a borrowed byte buffer and
// receive an owned tree; archive reading, CLI dispatch, and
// serialization live in separate packages.
package classfile

import "fmt"

const magic = 0xCAFEBABE

// FieldInfo is one declared field.
type FieldInfo struct {
	AccessFlags     uint16
	NameIndex       uint16
	DescriptorIndex uint16
	Attributes      []Attribute
}

// MethodInfo is one declared method (or constructor, or
// static/instance initializer).
type MethodInfo struct {
	AccessFlags     uint16
	NameIndex       uint16
	DescriptorIndex uint16
	Attributes      []Attribute
}

// ClassFile is the faithful in-memory decoding of a class-file binary
// (spec §3.1, §4.2).
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	ConstantPool *ConstantPool
	AccessFlags  uint16
	ThisClass    uint16
	SuperClass   uint16 // 0 is accepted by Extract only for java/lang/Object or a module
	Interfaces   []uint16
	Fields       []FieldInfo
	Methods      []MethodInfo
	Attributes   []Attribute
}

// Parse decodes buf as a class file. buf is borrowed: Parse never
// retains it directly, but sub-slices of it (e.g. Utf8 bytes, Code
// instruction streams) are copied into the returned tree so the
// result outlives the caller's buffer.
func Parse(buf []byte) (*ClassFile, error) {
	r := newReader(buf)

	m, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("magic: %w", err)
	}
	if m != magic {
		return nil, fmt.Errorf("got 0x%08x: %w", m, ErrBadMagic)
	}

	minor, err := r.u16()
	if err != nil {
		return nil, fmt.Errorf("minor_version: %w", err)
	}
	major, err := r.u16()
	if err != nil {
		return nil, fmt.Errorf("major_version: %w", err)
	}

	pool, err := parseConstantPool(r)
	if err != nil {
		return nil, err
	}

	accessFlags, err := r.u16()
	if err != nil {
		return nil, fmt.Errorf("access_flags: %w", err)
	}
	thisClass, err := r.u16()
	if err != nil {
		return nil, fmt.Errorf("this_class: %w", err)
	}
	superClass, err := r.u16()
	if err != nil {
		return nil, fmt.Errorf("super_class: %w", err)
	}

	ifaceCount, err := r.u16()
	if err != nil {
		return nil, fmt.Errorf("interfaces_count: %w", err)
	}
	interfaces := make([]uint16, ifaceCount)
	for i := range interfaces {
		interfaces[i], err = r.u16()
		if err != nil {
			return nil, fmt.Errorf("interfaces[%d]: %w", i, err)
		}
	}

	fields, err := parseFieldOrMethodList(r, pool, func(flags, name, desc uint16, attrs []Attribute) FieldInfo {
		return FieldInfo{AccessFlags: flags, NameIndex: name, DescriptorIndex: desc, Attributes: attrs}
	})
	if err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}

	methods, err := parseFieldOrMethodList(r, pool, func(flags, name, desc uint16, attrs []Attribute) MethodInfo {
		return MethodInfo{AccessFlags: flags, NameIndex: name, DescriptorIndex: desc, Attributes: attrs}
	})
	if err != nil {
		return nil, fmt.Errorf("methods: %w", err)
	}

	attrs, err := parseAttributes(r, pool)
	if err != nil {
		return nil, fmt.Errorf("attributes: %w", err)
	}

	if !r.atEnd() {
		return nil, fmt.Errorf("%d bytes remaining: %w", r.remaining(), ErrTrailing)
	}

	return &ClassFile{
		MinorVersion: minor,
		MajorVersion: major,
		ConstantPool: pool,
		AccessFlags:  accessFlags,
		ThisClass:    thisClass,
		SuperClass:   superClass,
		Interfaces:   interfaces,
		Fields:       fields,
		Methods:      methods,
		Attributes:   attrs,
	}, nil
}

// parseFieldOrMethodList reads a count-prefixed list of field_info or
// method_info structures, which share an identical binary layout
// (access_flags, name_index, descriptor_index, attributes).
func parseFieldOrMethodList[T any](r *reader, pool *ConstantPool, build func(flags, name, desc uint16, attrs []Attribute) T) ([]T, error) {
	count, err := r.u16()
	if err != nil {
		return nil, err
	}
	list := make([]T, count)
	for i := range list {
		flags, err := r.u16()
		if err != nil {
			return nil, fmt.Errorf("entry %d access_flags: %w", i, err)
		}
		name, err := r.u16()
		if err != nil {
			return nil, fmt.Errorf("entry %d name_index: %w", i, err)
		}
		desc, err := r.u16()
		if err != nil {
			return nil, fmt.Errorf("entry %d descriptor_index: %w", i, err)
		}
		attrs, err := parseAttributes(r, pool)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		list[i] = build(flags, name, desc, attrs)
	}
	return list, nil
}

// DebugStrings returns a one-line-per-constant-pool-entry diagnostic
// dump, mirroring the constant-pool trace a debug build of the parser
// would print. It performs no I/O itself; callers decide where (or
// whether) to print the result.
func (c *ClassFile) DebugStrings() []string {
	lines := make([]string, 0, len(c.ConstantPool.entries))
	for i, e := range c.ConstantPool.entries {
		if e == nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("idx:%d, %#v", i, e))
	}
	return lines
}
