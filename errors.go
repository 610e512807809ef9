// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import "errors"

// Errors returned by the class-file parser and extractor. Each is a
// sentinel suitable for errors.Is; call sites wrap it with fmt.Errorf
// to attach offset/index/name context.
var (
	// ErrTruncated is returned when a read requested more bytes than
	// remained in the buffer.
	ErrTruncated = errors.New("classfile: truncated input")

	// ErrBadMagic is returned when the first four bytes are not
	// CA FE BA BE.
	ErrBadMagic = errors.New("classfile: bad magic number")

	// ErrBadTag is returned for an unrecognized constant-pool tag,
	// verification-type tag, element-value tag, stack-map frame type,
	// or type-annotation target type.
	ErrBadTag = errors.New("classfile: bad tag")

	// ErrBadIndex is returned when a constant-pool index is zero where
	// it must not be, or resolves to the wrong variant.
	ErrBadIndex = errors.New("classfile: bad constant pool index")

	// ErrBadStructure is returned when a structural invariant is
	// violated, e.g. an interface with a non-Object superclass, or a
	// module class file missing its Module attribute.
	ErrBadStructure = errors.New("classfile: bad structure")

	// ErrBadSignature is returned when the generic signature grammar
	// fails to match.
	ErrBadSignature = errors.New("classfile: bad signature")

	// ErrBadDescriptor is returned when the descriptor mini-language
	// fails to match.
	ErrBadDescriptor = errors.New("classfile: bad descriptor")

	// ErrTrailing is returned when bytes remain after the class file
	// was fully parsed.
	ErrTrailing = errors.New("classfile: trailing bytes after class file")
)
