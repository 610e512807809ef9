// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import (
	"fmt"
	"strings"
)

// TypeSig is a parsed JavaTypeSignature: a base type, a class type, a
// type variable, or an array of any of those.
type TypeSig struct {
	Base     *BaseTy
	Class    *ClassTypeSig
	TypeVar  string   // set for TypeVariableSignature
	ArrayOf  *TypeSig // set for ArrayTypeSignature
}

// ClassTypeSig is a parsed ClassTypeSignature: an optional dotted
// package specifier, the simple (possibly generic) class name, and
// zero or more nested-class suffixes.
type ClassTypeSig struct {
	Package  string // dotted, empty if the class is in the unnamed package
	Simple   SimpleClassTypeSig
	Suffixes []SimpleClassTypeSig
}

// SimpleClassTypeSig is an identifier with optional type arguments.
type SimpleClassTypeSig struct {
	Identifier string
	TypeArgs   []TypeArgument
}

// TypeArgument is one element of a TypeArguments list: a wildcard
// ('*'), or an optional +/- variance marker plus a reference type.
type TypeArgument struct {
	Star     bool
	Wildcard byte // '+', '-', or 0
	Type     *TypeSig
}

// TypeParameter is one element of a TypeParameters list: an
// identifier, an optional class bound, and zero or more interface
// bounds.
type TypeParameter struct {
	Identifier      string
	ClassBound      *TypeSig
	InterfaceBounds []TypeSig
}

// ClassSignature is the parsed form of a class-level Signature
// attribute.
type ClassSignature struct {
	TypeParameters  []TypeParameter
	Superclass      ClassTypeSig
	Superinterfaces []ClassTypeSig
}

// MethodSignature is the parsed form of a method-level Signature
// attribute.
type MethodSignature struct {
	TypeParameters []TypeParameter
	Params         []TypeSig
	Result         TypeSig // Base == &Void when the method returns void
	Throws         []TypeSig
}

// FieldSignature is the parsed form of a field-level Signature
// attribute: a bare ReferenceTypeSignature.
type FieldSignature = TypeSig

type sigParser struct {
	s string
	i int
}

func badSig(p *sigParser, expected string) error {
	return fmt.Errorf("signature %q: expected %s at offset %d: %w", p.s, expected, p.i, ErrBadSignature)
}

func (p *sigParser) peek() (byte, bool) {
	if p.i >= len(p.s) {
		return 0, false
	}
	return p.s[p.i], true
}

func (p *sigParser) eat(c byte) error {
	b, ok := p.peek()
	if !ok || b != c {
		return badSig(p, fmt.Sprintf("%q", c))
	}
	p.i++
	return nil
}

const sigTerminators = ".;[/:<>"

func isIdentChar(c byte) bool {
	return !strings.ContainsRune(sigTerminators, rune(c))
}

func (p *sigParser) identifier() (string, error) {
	start := p.i
	for p.i < len(p.s) && isIdentChar(p.s[p.i]) {
		p.i++
	}
	if p.i == start {
		return "", badSig(p, "identifier")
	}
	return p.s[start:p.i], nil
}

// parseJavaTypeSignature parses BaseType | ReferenceTypeSignature.
func (p *sigParser) parseJavaTypeSignature() (TypeSig, error) {
	c, ok := p.peek()
	if !ok {
		return TypeSig{}, badSig(p, "type signature")
	}
	if b, isBase := baseTyOf(c); isBase && c != 'V' {
		p.i++
		return TypeSig{Base: &b}, nil
	}
	return p.parseReferenceTypeSignature()
}

// parseReferenceTypeSignature parses ClassTypeSignature |
// TypeVariableSignature | ArrayTypeSignature.
func (p *sigParser) parseReferenceTypeSignature() (TypeSig, error) {
	c, ok := p.peek()
	if !ok {
		return TypeSig{}, badSig(p, "reference type signature")
	}
	switch c {
	case 'L':
		cls, err := p.parseClassTypeSignature()
		if err != nil {
			return TypeSig{}, err
		}
		return TypeSig{Class: &cls}, nil
	case 'T':
		p.i++
		id, err := p.identifier()
		if err != nil {
			return TypeSig{}, err
		}
		if err := p.eat(';'); err != nil {
			return TypeSig{}, err
		}
		return TypeSig{TypeVar: id}, nil
	case '[':
		p.i++
		inner, err := p.parseJavaTypeSignature()
		if err != nil {
			return TypeSig{}, err
		}
		return TypeSig{ArrayOf: &inner}, nil
	default:
		return TypeSig{}, badSig(p, "'L', 'T', or '['")
	}
}

// parseClassTypeSignature parses
// 'L' PackageSpecifier? SimpleClassTypeSignature ClassTypeSignatureSuffix* ';'
func (p *sigParser) parseClassTypeSignature() (ClassTypeSig, error) {
	if err := p.eat('L'); err != nil {
		return ClassTypeSig{}, err
	}
	var pkgParts []string
	id, err := p.identifier()
	if err != nil {
		return ClassTypeSig{}, err
	}
	for {
		c, ok := p.peek()
		if !ok || c != '/' {
			break
		}
		p.i++ // consume '/'
		pkgParts = append(pkgParts, id)
		id, err = p.identifier()
		if err != nil {
			return ClassTypeSig{}, err
		}
	}
	simple, err := p.parseSimpleClassTypeSignatureTail(id)
	if err != nil {
		return ClassTypeSig{}, err
	}
	var suffixes []SimpleClassTypeSig
	for {
		c, ok := p.peek()
		if !ok || c != '.' {
			break
		}
		p.i++ // consume '.'
		sid, err := p.identifier()
		if err != nil {
			return ClassTypeSig{}, err
		}
		s, err := p.parseSimpleClassTypeSignatureTail(sid)
		if err != nil {
			return ClassTypeSig{}, err
		}
		suffixes = append(suffixes, s)
	}
	if err := p.eat(';'); err != nil {
		return ClassTypeSig{}, err
	}
	return ClassTypeSig{Package: strings.Join(pkgParts, "."), Simple: simple, Suffixes: suffixes}, nil
}

// parseSimpleClassTypeSignatureTail parses the optional TypeArguments
// following an identifier already consumed by the caller.
func (p *sigParser) parseSimpleClassTypeSignatureTail(id string) (SimpleClassTypeSig, error) {
	s := SimpleClassTypeSig{Identifier: id}
	if c, ok := p.peek(); ok && c == '<' {
		args, err := p.parseTypeArguments()
		if err != nil {
			return SimpleClassTypeSig{}, err
		}
		s.TypeArgs = args
	}
	return s, nil
}

func (p *sigParser) parseTypeArguments() ([]TypeArgument, error) {
	if err := p.eat('<'); err != nil {
		return nil, err
	}
	var args []TypeArgument
	for {
		c, ok := p.peek()
		if !ok {
			return nil, badSig(p, "type argument or '>'")
		}
		if c == '>' {
			break
		}
		arg, err := p.parseTypeArgument()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	if err := p.eat('>'); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, badSig(p, "at least one type argument")
	}
	return args, nil
}

// parseTypeArgument parses WildcardIndicator? ReferenceTypeSignature | '*'.
// Lookahead is needed: '*' means a bare wildcard, '+'/'-' mean a
// bounded wildcard, anything else starts a reference type directly.
func (p *sigParser) parseTypeArgument() (TypeArgument, error) {
	c, ok := p.peek()
	if !ok {
		return TypeArgument{}, badSig(p, "type argument")
	}
	if c == '*' {
		p.i++
		return TypeArgument{Star: true}, nil
	}
	var wildcard byte
	if c == '+' || c == '-' {
		wildcard = c
		p.i++
	}
	t, err := p.parseReferenceTypeSignature()
	if err != nil {
		return TypeArgument{}, err
	}
	return TypeArgument{Wildcard: wildcard, Type: &t}, nil
}

// parseTypeParameters parses '<' TypeParameter+ '>'.
func (p *sigParser) parseTypeParameters() ([]TypeParameter, error) {
	if err := p.eat('<'); err != nil {
		return nil, err
	}
	var params []TypeParameter
	for {
		c, ok := p.peek()
		if !ok {
			return nil, badSig(p, "type parameter or '>'")
		}
		if c == '>' {
			break
		}
		tp, err := p.parseTypeParameter()
		if err != nil {
			return nil, err
		}
		params = append(params, tp)
	}
	if err := p.eat('>'); err != nil {
		return nil, err
	}
	if len(params) == 0 {
		return nil, badSig(p, "at least one type parameter")
	}
	return params, nil
}

// parseTypeParameter parses Identifier ClassBound InterfaceBound*.
// ClassBound is ':' ReferenceTypeSignature?, backtracking only in the
// sense that the bound itself may be empty (immediately followed by
// another ':' or the closing '>').
func (p *sigParser) parseTypeParameter() (TypeParameter, error) {
	id, err := p.identifier()
	if err != nil {
		return TypeParameter{}, err
	}
	if err := p.eat(':'); err != nil {
		return TypeParameter{}, err
	}
	tp := TypeParameter{Identifier: id}
	if c, ok := p.peek(); ok && c != ':' && c != '>' {
		bound, err := p.parseReferenceTypeSignature()
		if err != nil {
			return TypeParameter{}, err
		}
		tp.ClassBound = &bound
	}
	for {
		c, ok := p.peek()
		if !ok || c != ':' {
			break
		}
		p.i++ // consume ':'
		bound, err := p.parseReferenceTypeSignature()
		if err != nil {
			return TypeParameter{}, err
		}
		tp.InterfaceBounds = append(tp.InterfaceBounds, bound)
	}
	return tp, nil
}

// ParseClassSignature parses a ClassSignature:
// TypeParameters? SuperclassSignature SuperinterfaceSignature*
func ParseClassSignature(s string) (ClassSignature, error) {
	p := &sigParser{s: s}
	var cs ClassSignature
	if c, ok := p.peek(); ok && c == '<' {
		tps, err := p.parseTypeParameters()
		if err != nil {
			return ClassSignature{}, err
		}
		cs.TypeParameters = tps
	}
	super, err := p.parseClassTypeSignature()
	if err != nil {
		return ClassSignature{}, err
	}
	cs.Superclass = super
	for {
		c, ok := p.peek()
		if !ok || c != 'L' {
			break
		}
		iface, err := p.parseClassTypeSignature()
		if err != nil {
			return ClassSignature{}, err
		}
		cs.Superinterfaces = append(cs.Superinterfaces, iface)
	}
	if !p.atEnd() {
		return ClassSignature{}, badSig(p, "end of signature")
	}
	return cs, nil
}

func (p *sigParser) atEnd() bool { return p.i == len(p.s) }

// ParseMethodSignature parses a MethodSignature:
// TypeParameters? '(' JavaTypeSignature* ')' Result ThrowsSignature*
func ParseMethodSignature(s string) (MethodSignature, error) {
	p := &sigParser{s: s}
	var ms MethodSignature
	if c, ok := p.peek(); ok && c == '<' {
		tps, err := p.parseTypeParameters()
		if err != nil {
			return MethodSignature{}, err
		}
		ms.TypeParameters = tps
	}
	if err := p.eat('('); err != nil {
		return MethodSignature{}, err
	}
	for {
		c, ok := p.peek()
		if !ok {
			return MethodSignature{}, badSig(p, "parameter type or ')'")
		}
		if c == ')' {
			break
		}
		t, err := p.parseJavaTypeSignature()
		if err != nil {
			return MethodSignature{}, err
		}
		ms.Params = append(ms.Params, t)
	}
	if err := p.eat(')'); err != nil {
		return MethodSignature{}, err
	}
	if c, ok := p.peek(); ok && c == 'V' {
		p.i++
		v := Void
		ms.Result = TypeSig{Base: &v}
	} else {
		t, err := p.parseJavaTypeSignature()
		if err != nil {
			return MethodSignature{}, err
		}
		ms.Result = t
	}
	for {
		c, ok := p.peek()
		if !ok || c != '^' {
			break
		}
		p.i++ // consume '^'
		c2, ok := p.peek()
		if !ok {
			return MethodSignature{}, badSig(p, "throws type")
		}
		var t TypeSig
		var err error
		if c2 == 'T' {
			t, err = p.parseReferenceTypeSignature()
		} else {
			var cls ClassTypeSig
			cls, err = p.parseClassTypeSignature()
			t = TypeSig{Class: &cls}
		}
		if err != nil {
			return MethodSignature{}, err
		}
		ms.Throws = append(ms.Throws, t)
	}
	if !p.atEnd() {
		return MethodSignature{}, badSig(p, "end of signature")
	}
	return ms, nil
}

// ParseFieldSignature parses a FieldSignature: a bare
// ReferenceTypeSignature.
func ParseFieldSignature(s string) (FieldSignature, error) {
	p := &sigParser{s: s}
	t, err := p.parseReferenceTypeSignature()
	if err != nil {
		return TypeSig{}, err
	}
	if !p.atEnd() {
		return TypeSig{}, badSig(p, "end of signature")
	}
	return t, nil
}
