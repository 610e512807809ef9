// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import (
	"fmt"
	"strings"
)

// BaseTy enumerates the JVM primitive types (plus Void, return
// position only).
type BaseTy int

const (
	Byte BaseTy = iota
	Char
	Double
	Float
	Int
	Long
	Short
	Boolean
	Void
)

// FieldTy is the decoded shape of a field descriptor: a primitive, an
// object reference, or an array.
type FieldTy struct {
	Base      *BaseTy  // set for a primitive type
	ClassName string   // set for Obj: internal (slash-separated) name
	Inner     *FieldTy // set for Array: the element type
	Dims      int      // set for Array: dimension count
}

// FieldDescriptor is a parsed field descriptor plus the literal
// substring that produced it (needed by the method-descriptor parser
// to know exactly how many bytes each parameter consumed).
type FieldDescriptor struct {
	Ty         FieldTy
	Descriptor string
}

// ReturnDescriptor is either Void or a FieldDescriptor.
type ReturnDescriptor struct {
	IsVoid bool
	Field  FieldDescriptor
}

// MethodDescriptor is the literal descriptor plus its ordered
// parameter descriptors and return descriptor.
type MethodDescriptor struct {
	Descriptor string
	Params     []FieldDescriptor
	Return     ReturnDescriptor
}

// ParseFieldDescriptor parses s starting at offset 0 and returns the
// decoded type along with the exact descriptor substring consumed.
func ParseFieldDescriptor(s string) (FieldDescriptor, error) {
	ty, n, err := parseFieldTy(s, 0)
	if err != nil {
		return FieldDescriptor{}, err
	}
	return FieldDescriptor{Ty: ty, Descriptor: s[:n]}, nil
}

func baseTyOf(c byte) (BaseTy, bool) {
	switch c {
	case 'B':
		return Byte, true
	case 'C':
		return Char, true
	case 'D':
		return Double, true
	case 'F':
		return Float, true
	case 'I':
		return Int, true
	case 'J':
		return Long, true
	case 'S':
		return Short, true
	case 'Z':
		return Boolean, true
	case 'V':
		return Void, true
	default:
		return 0, false
	}
}

// parseFieldTy parses a field descriptor starting at offset i. A bare
// 'V' is accepted as Void; an array of void is rejected here, and
// callers reject Void wherever else it is not allowed.
// Returns the type and the offset immediately past it.
func parseFieldTy(s string, i int) (FieldTy, int, error) {
	if i >= len(s) {
		return FieldTy{}, i, fmt.Errorf("descriptor %q: unexpected end at %d: %w", s, i, ErrBadDescriptor)
	}
	c := s[i]
	switch {
	case c == '[':
		dims := 0
		j := i
		for j < len(s) && s[j] == '[' {
			dims++
			j++
		}
		inner, end, err := parseFieldTy(s, j)
		if err != nil {
			return FieldTy{}, i, err
		}
		if inner.Base != nil && *inner.Base == Void {
			return FieldTy{}, i, fmt.Errorf("descriptor %q: array of void at %d: %w", s, j, ErrBadDescriptor)
		}
		return FieldTy{Inner: &inner, Dims: dims}, end, nil
	case c == 'L':
		j := i + 1
		for j < len(s) && s[j] != ';' {
			j++
		}
		if j >= len(s) {
			return FieldTy{}, i, fmt.Errorf("descriptor %q: unterminated class name at %d: %w", s, i, ErrBadDescriptor)
		}
		return FieldTy{ClassName: s[i+1 : j]}, j + 1, nil
	default:
		b, ok := baseTyOf(c)
		if !ok {
			return FieldTy{}, i, fmt.Errorf("descriptor %q: bad type char %q at %d: %w", s, c, i, ErrBadDescriptor)
		}
		return FieldTy{Base: &b}, i + 1, nil
	}
}

// ParseMethodDescriptor parses s as a method descriptor:
// '(' field-descriptor* ')' return-descriptor.
func ParseMethodDescriptor(s string) (MethodDescriptor, error) {
	if len(s) == 0 || s[0] != '(' {
		return MethodDescriptor{}, fmt.Errorf("descriptor %q: expected '(' at 0: %w", s, ErrBadDescriptor)
	}
	i := 1
	var params []FieldDescriptor
	for i < len(s) && s[i] != ')' {
		ty, end, err := parseFieldTy(s, i)
		if err != nil {
			return MethodDescriptor{}, err
		}
		if ty.Base != nil && *ty.Base == Void {
			return MethodDescriptor{}, fmt.Errorf("descriptor %q: void parameter at %d: %w", s, i, ErrBadDescriptor)
		}
		params = append(params, FieldDescriptor{Ty: ty, Descriptor: s[i:end]})
		i = end
	}
	if i >= len(s) || s[i] != ')' {
		return MethodDescriptor{}, fmt.Errorf("descriptor %q: expected ')' at %d: %w", s, i, ErrBadDescriptor)
	}
	i++ // consume ')'
	if i >= len(s) {
		return MethodDescriptor{}, fmt.Errorf("descriptor %q: missing return type: %w", s, ErrBadDescriptor)
	}
	var ret ReturnDescriptor
	if s[i] == 'V' {
		ret = ReturnDescriptor{IsVoid: true}
		i++
	} else {
		ty, end, err := parseFieldTy(s, i)
		if err != nil {
			return MethodDescriptor{}, err
		}
		ret = ReturnDescriptor{Field: FieldDescriptor{Ty: ty, Descriptor: s[i:end]}}
		i = end
	}
	if i != len(s) {
		return MethodDescriptor{}, fmt.Errorf("descriptor %q: trailing bytes at %d: %w", s, i, ErrBadDescriptor)
	}
	return MethodDescriptor{Descriptor: s, Params: params, Return: ret}, nil
}

// dottedName converts an internal (slash-separated) name to a
// qualified, dot-separated name.
func dottedName(internal string) string {
	return strings.ReplaceAll(internal, "/", ".")
}
