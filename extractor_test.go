// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import (
	"encoding/binary"
	"errors"
	"testing"
)

func attrBytes(nameIdx uint16, payload []byte) []byte {
	var out []byte
	out = binary.BigEndian.AppendUint16(out, nameIdx)
	out = binary.BigEndian.AppendUint32(out, uint32(len(payload)))
	out = append(out, payload...)
	return out
}

func attributesBlock(attrs ...[]byte) []byte {
	out := binary.BigEndian.AppendUint16(nil, uint16(len(attrs)))
	for _, a := range attrs {
		out = append(out, a...)
	}
	return out
}

func memberInfo(flags, nameIdx, descIdx uint16, attrs []byte) []byte {
	var out []byte
	out = binary.BigEndian.AppendUint16(out, flags)
	out = binary.BigEndian.AppendUint16(out, nameIdx)
	out = binary.BigEndian.AppendUint16(out, descIdx)
	out = append(out, attrs...)
	return out
}

func membersBlock(members ...[]byte) []byte {
	out := binary.BigEndian.AppendUint16(nil, uint16(len(members)))
	for _, m := range members {
		out = append(out, m...)
	}
	return out
}

// buildFullClassFile assembles a class file with interfaces, fields,
// methods, and a class-level attributes block, bypassing
// classBuilder.finish (which only supports the no-members case).
func buildFullClassFile(b *classBuilder, accessFlags, thisClass, superClass uint16, interfaces []uint16, fields, methods, classAttrs []byte) []byte {
	var out []byte
	out = append(out, b.buf[:8]...)
	out = binary.BigEndian.AppendUint16(out, uint16(b.entries+1))
	out = append(out, b.buf[8:]...)
	out = binary.BigEndian.AppendUint16(out, accessFlags)
	out = binary.BigEndian.AppendUint16(out, thisClass)
	out = binary.BigEndian.AppendUint16(out, superClass)
	out = binary.BigEndian.AppendUint16(out, uint16(len(interfaces)))
	for _, i := range interfaces {
		out = binary.BigEndian.AppendUint16(out, i)
	}
	out = append(out, fields...)
	out = append(out, methods...)
	out = append(out, classAttrs...)
	return out
}

// Scenario D: a field with descriptor [[[D extracts as a triple array
// of double.
func TestExtractScenarioD(t *testing.T) {
	b := newClassBuilder(0, 61)
	objName := b.utf8Const("java/lang/Object")
	objClass := b.classConst(objName)
	thisName := b.utf8Const("com/acme/Matrix")
	thisClass := b.classConst(thisName)
	fieldName := b.utf8Const("grid")
	fieldDesc := b.utf8Const("[[[D")

	field := memberInfo(AccPrivate, fieldName, fieldDesc, attributesBlock())
	data := buildFullClassFile(b, AccPublic|AccSuper, thisClass, objClass, nil, membersBlock(field), membersBlock(), attributesBlock())

	cf, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	comp, err := Extract(cf, ExtractorContext{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if comp.Class == nil || len(comp.Class.Fields) != 1 {
		t.Fatalf("got %+v", comp.Class)
	}
	ty := comp.Class.Fields[0].Ty
	if ty.Kind != TyArray || ty.ArrayDims != 3 {
		t.Fatalf("Ty = %+v, want array dims 3", ty)
	}
	if ty.ArrayInner == nil || ty.ArrayInner.Kind != TyPrim || ty.ArrayInner.Prim != Double {
		t.Fatalf("ArrayInner = %+v, want Double", ty.ArrayInner)
	}
}

// Scenario E: an interface carrying ACC_ANNOTATION extracts with
// IsAnnotation set and an empty superinterface list permitted.
func TestExtractScenarioE(t *testing.T) {
	b := newClassBuilder(0, 61)
	objName := b.utf8Const("java/lang/Object")
	objClass := b.classConst(objName)
	thisName := b.utf8Const("com/acme/Marker")
	thisClass := b.classConst(thisName)

	data := buildFullClassFile(b, AccInterface|AccAbstract|AccAnnotation, thisClass, objClass, nil, membersBlock(), membersBlock(), attributesBlock())

	cf, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	comp, err := Extract(cf, ExtractorContext{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if comp.Kind != KindInterface || comp.Interface == nil {
		t.Fatalf("got kind %v, want Interface", comp.Kind)
	}
	if !comp.Interface.IsAnnotation {
		t.Fatalf("IsAnnotation = false, want true")
	}
	if len(comp.Interface.Superinterfaces) != 0 {
		t.Fatalf("Superinterfaces = %v, want empty", comp.Interface.Superinterfaces)
	}
}

// Invariant 8: an interface that reports a real (non-Object) superclass
// is a structural error.
func TestExtractInterfaceWithSuperclassIsError(t *testing.T) {
	b := newClassBuilder(0, 61)
	baseName := b.utf8Const("com/acme/Base")
	baseClass := b.classConst(baseName)
	thisName := b.utf8Const("com/acme/Bad")
	thisClass := b.classConst(thisName)

	data := buildFullClassFile(b, AccInterface|AccAbstract, thisClass, baseClass, nil, membersBlock(), membersBlock(), attributesBlock())

	cf, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := Extract(cf, ExtractorContext{}); !errors.Is(err, ErrBadStructure) {
		t.Fatalf("got %v, want ErrBadStructure", err)
	}
}

// Invariant 10: target access modifiers filter members, an empty set
// admits everything.
func TestExtractAccessModifierFiltering(t *testing.T) {
	b := newClassBuilder(0, 61)
	objName := b.utf8Const("java/lang/Object")
	objClass := b.classConst(objName)
	thisName := b.utf8Const("com/acme/Widget")
	thisClass := b.classConst(thisName)
	pubName := b.utf8Const("pub")
	privName := b.utf8Const("priv")
	intDesc := b.utf8Const("I")

	pubField := memberInfo(AccPublic, pubName, intDesc, attributesBlock())
	privField := memberInfo(AccPrivate, privName, intDesc, attributesBlock())
	fields := membersBlock(pubField, privField)

	data := buildFullClassFile(b, AccPublic|AccSuper, thisClass, objClass, nil, fields, membersBlock(), attributesBlock())
	cf, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	compAll, err := Extract(cf, ExtractorContext{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(compAll.Class.Fields) != 2 {
		t.Fatalf("unfiltered Fields = %d, want 2", len(compAll.Class.Fields))
	}

	compPub, err := Extract(cf, ExtractorContext{TargetAccessModifiers: TargetPublic})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(compPub.Class.Fields) != 1 || compPub.Class.Fields[0].Name != "pub" {
		t.Fatalf("filtered Fields = %+v, want only pub", compPub.Class.Fields)
	}
}

func moduleAttributePayload(nameIdx, flags, versionIdx uint16) []byte {
	var out []byte
	out = binary.BigEndian.AppendUint16(out, nameIdx)
	out = binary.BigEndian.AppendUint16(out, flags)
	out = binary.BigEndian.AppendUint16(out, versionIdx)
	out = binary.BigEndian.AppendUint16(out, 0) // requires_count
	out = binary.BigEndian.AppendUint16(out, 0) // exports_count
	out = binary.BigEndian.AppendUint16(out, 0) // opens_count
	out = binary.BigEndian.AppendUint16(out, 0) // uses_count
	out = binary.BigEndian.AppendUint16(out, 0) // provides_count
	return out
}

func TestExtractModule(t *testing.T) {
	b := newClassBuilder(0, 61)
	// module-info extends no class (this_class resolves to a synthetic
	// module-info name, super_class is 0).
	moduleInfoName := b.utf8Const("module-info")
	thisClass := b.classConst(moduleInfoName)
	modNameUtf8 := b.utf8Const("com.acme.widgets")
	modName := b.entries + 1
	b.entries++
	b.u8(tagModule)
	b.u16(modNameUtf8)
	moduleAttrName := b.utf8Const("Module")

	payload := moduleAttributePayload(uint16(modName), 0, 0)
	classAttrs := attributesBlock(attrBytes(moduleAttrName, payload))

	data := buildFullClassFile(b, AccModule, thisClass, 0, nil, membersBlock(), membersBlock(), classAttrs)

	cf, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	comp, err := Extract(cf, ExtractorContext{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if comp.Kind != KindModule || comp.Module == nil {
		t.Fatalf("got kind %v, want Module", comp.Kind)
	}
	if comp.Module.Name != "com.acme.widgets" {
		t.Fatalf("Module.Name = %q, want com.acme.widgets", comp.Module.Name)
	}
	if comp.Module.Version != "" {
		t.Fatalf("Module.Version = %q, want empty", comp.Module.Version)
	}
}

// Signature-derived superclass/interface names take precedence over
// the descriptor/constant-pool-derived ones when a Signature attribute
// is present.
func TestExtractSignatureOverridesSuperclass(t *testing.T) {
	b := newClassBuilder(0, 61)
	objName := b.utf8Const("java/lang/Object")
	objClass := b.classConst(objName)
	thisName := b.utf8Const("com/acme/Box")
	thisClass := b.classConst(thisName)
	sigName := b.utf8Const("Signature")
	sigValue := b.utf8Const("Ljava/util/ArrayList<Ljava/lang/String;>;")

	sigPayload := binary.BigEndian.AppendUint16(nil, sigValue)
	classAttrs := attributesBlock(attrBytes(sigName, sigPayload))
	data := buildFullClassFile(b, AccPublic|AccSuper, thisClass, objClass, nil, membersBlock(), membersBlock(), classAttrs)

	cf, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	comp, err := Extract(cf, ExtractorContext{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if comp.Class.Superclass != "java.util.ArrayList" {
		t.Fatalf("Superclass = %q, want java.util.ArrayList", comp.Class.Superclass)
	}
}
