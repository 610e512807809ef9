// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// Access-flag bits. Which bits are meaningful depends on the
// declaration kind (class, field, method, or inner-class entry); see
// the table in spec §6.3.
const (
	AccPublic       uint16 = 0x0001
	AccPrivate      uint16 = 0x0002
	AccProtected    uint16 = 0x0004
	AccStatic       uint16 = 0x0008
	AccFinal        uint16 = 0x0010
	AccSuper        uint16 = 0x0020 // class
	AccSynchronized uint16 = 0x0020 // method
	AccVolatile     uint16 = 0x0040 // field
	AccBridge       uint16 = 0x0040 // method
	AccTransient    uint16 = 0x0080 // field
	AccVarargs      uint16 = 0x0080 // method
	AccNative       uint16 = 0x0100
	AccInterface    uint16 = 0x0200
	AccAbstract     uint16 = 0x0400
	AccStrict       uint16 = 0x0800
	AccSynthetic    uint16 = 0x1000
	AccAnnotation   uint16 = 0x2000
	AccEnum         uint16 = 0x4000
	AccModule       uint16 = 0x8000
)

// AccessModifier classifies a member's visibility.
type AccessModifier int

const (
	AccessPublic AccessModifier = iota
	AccessProtected
	AccessPrivate
	AccessDefault
)

// ClassifyAccess applies the classification order of spec §4.4:
// PUBLIC if set, else PROTECTED, else PRIVATE, else DEFAULT
// (package-private).
func ClassifyAccess(flags uint16) AccessModifier {
	switch {
	case flags&AccPublic != 0:
		return AccessPublic
	case flags&AccProtected != 0:
		return AccessProtected
	case flags&AccPrivate != 0:
		return AccessPrivate
	default:
		return AccessDefault
	}
}

// AccessModifierSet is a bit-set of AccessModifier values used to
// filter members during extraction. An empty set filters nothing.
type AccessModifierSet uint8

const (
	TargetPublic AccessModifierSet = 1 << iota
	TargetProtected
	TargetPrivate
	TargetDefault
)

func (s AccessModifierSet) matches(m AccessModifier) bool {
	if s == 0 {
		return true
	}
	switch m {
	case AccessPublic:
		return s&TargetPublic != 0
	case AccessProtected:
		return s&TargetProtected != 0
	case AccessPrivate:
		return s&TargetPrivate != 0
	default:
		return s&TargetDefault != 0
	}
}
