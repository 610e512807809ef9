// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import (
	"fmt"
	"strings"
)

const objectClassName = "java.lang.Object"

// ExtractorContext configures extraction. TargetAccessModifiers
// filters which fields and methods are retained; an empty set
// filters nothing (spec §4.4).
type ExtractorContext struct {
	TargetAccessModifiers AccessModifierSet
}

// Extract walks a parsed ClassFile and produces its language-level
// Component (spec §4.4-§4.5).
func Extract(cf *ClassFile, ctx ExtractorContext) (*Component, error) {
	pool := cf.ConstantPool

	sourceFile, err := resolveSourceFile(cf, pool)
	if err != nil {
		return nil, err
	}

	comp := &Component{
		MinorVersion:   cf.MinorVersion,
		MajorVersion:   cf.MajorVersion,
		SourceFileName: sourceFile,
	}

	switch {
	case cf.AccessFlags&AccModule != 0:
		mod, err := extractModule(cf, pool)
		if err != nil {
			return nil, err
		}
		comp.Kind = KindModule
		comp.Module = mod
	case cf.AccessFlags&AccInterface != 0:
		iface, err := extractInterface(cf, pool, ctx)
		if err != nil {
			return nil, err
		}
		comp.Kind = KindInterface
		comp.Interface = iface
	default:
		cls, err := extractClass(cf, pool, ctx)
		if err != nil {
			return nil, err
		}
		comp.Kind = KindClass
		comp.Class = cls
	}
	return comp, nil
}

func resolveSourceFile(cf *ClassFile, pool *ConstantPool) (string, error) {
	for _, a := range cf.Attributes {
		if sf, ok := a.(SourceFileAttribute); ok {
			return pool.Utf8(sf.SourceFileIndex)
		}
	}
	return "", nil
}

func findSignatureAttribute(attrs []Attribute) (SignatureAttribute, bool) {
	for _, a := range attrs {
		if sig, ok := a.(SignatureAttribute); ok {
			return sig, true
		}
	}
	return SignatureAttribute{}, false
}

// resolveSuperclass dereferences super_class, treating a resolved
// java.lang.Object as "no superclass". Index 0 also means "no
// superclass" when this_class is java.lang.Object; for any other
// class it is an ErrBadStructure error (spec §4.4 step 3, Scenario F).
func resolveSuperclass(cf *ClassFile, pool *ConstantPool, thisName string) (name string, has bool, err error) {
	if cf.SuperClass == 0 {
		if thisName != objectClassName {
			return "", false, fmt.Errorf("super_class is 0 but this_class is %q, not %q: %w", thisName, objectClassName, ErrBadStructure)
		}
		return "", false, nil
	}
	super, err := pool.ClassName(cf.SuperClass)
	if err != nil {
		return "", false, fmt.Errorf("super_class: %w", err)
	}
	super = dottedName(super)
	if super == objectClassName {
		return "", false, nil
	}
	return super, true, nil
}

func resolveInterfaces(cf *ClassFile, pool *ConstantPool) ([]string, error) {
	names := make([]string, len(cf.Interfaces))
	for i, idx := range cf.Interfaces {
		n, err := pool.ClassName(idx)
		if err != nil {
			return nil, fmt.Errorf("interfaces[%d]: %w", i, err)
		}
		names[i] = dottedName(n)
	}
	return names, nil
}

func classTypeSigQualifiedName(c ClassTypeSig) string {
	var sb strings.Builder
	if c.Package != "" {
		sb.WriteString(c.Package)
		sb.WriteByte('.')
	}
	sb.WriteString(c.Simple.Identifier)
	for _, s := range c.Suffixes {
		sb.WriteByte('.')
		sb.WriteString(s.Identifier)
	}
	return sb.String()
}

func extractClass(cf *ClassFile, pool *ConstantPool, ctx ExtractorContext) (*Class, error) {
	thisName, err := pool.ClassName(cf.ThisClass)
	if err != nil {
		return nil, fmt.Errorf("this_class: %w", err)
	}
	thisName = dottedName(thisName)

	superName, hasSuper, err := resolveSuperclass(cf, pool, thisName)
	if err != nil {
		return nil, err
	}
	ifaceNames, err := resolveInterfaces(cf, pool)
	if err != nil {
		return nil, err
	}

	var sig *ClassSignature
	if sigAttr, ok := findSignatureAttribute(cf.Attributes); ok {
		raw, err := pool.Utf8(sigAttr.SignatureIndex)
		if err != nil {
			return nil, fmt.Errorf("Signature: %w", err)
		}
		parsed, err := ParseClassSignature(raw)
		if err != nil {
			return nil, err
		}
		sig = &parsed
		sigSuper := classTypeSigQualifiedName(parsed.Superclass)
		if sigSuper == objectClassName {
			superName, hasSuper = "", false
		} else {
			superName, hasSuper = sigSuper, true
		}
		if len(parsed.Superinterfaces) > 0 {
			names := make([]string, len(parsed.Superinterfaces))
			for i, ifc := range parsed.Superinterfaces {
				names[i] = classTypeSigQualifiedName(ifc)
			}
			ifaceNames = names
		}
	}

	methods, err := extractMethods(cf.Methods, pool, ctx)
	if err != nil {
		return nil, err
	}
	fields, err := extractFields(cf.Fields, pool, ctx)
	if err != nil {
		return nil, err
	}
	annotations, err := collectAnnotations(cf.Attributes, pool)
	if err != nil {
		return nil, err
	}

	return &Class{
		Name:          thisName,
		Superclass:    superName,
		HasSuperclass: hasSuper,
		Interfaces:    ifaceNames,
		Signature:     sig,
		Methods:       methods,
		Fields:        fields,
		Annotations:   annotations,
	}, nil
}

func extractInterface(cf *ClassFile, pool *ConstantPool, ctx ExtractorContext) (*Interface, error) {
	thisName, err := pool.ClassName(cf.ThisClass)
	if err != nil {
		return nil, fmt.Errorf("this_class: %w", err)
	}
	thisName = dottedName(thisName)

	_, hasSuper, err := resolveSuperclass(cf, pool, thisName)
	if err != nil {
		return nil, err
	}
	if hasSuper {
		return nil, fmt.Errorf("interface %q has a non-Object superclass: %w", thisName, ErrBadStructure)
	}

	ifaceNames, err := resolveInterfaces(cf, pool)
	if err != nil {
		return nil, err
	}

	var sig *ClassSignature
	if sigAttr, ok := findSignatureAttribute(cf.Attributes); ok {
		raw, err := pool.Utf8(sigAttr.SignatureIndex)
		if err != nil {
			return nil, fmt.Errorf("Signature: %w", err)
		}
		parsed, err := ParseClassSignature(raw)
		if err != nil {
			return nil, err
		}
		sig = &parsed
		if len(parsed.Superinterfaces) > 0 {
			names := make([]string, len(parsed.Superinterfaces))
			for i, ifc := range parsed.Superinterfaces {
				names[i] = classTypeSigQualifiedName(ifc)
			}
			ifaceNames = names
		}
	}

	methods, err := extractMethods(cf.Methods, pool, ctx)
	if err != nil {
		return nil, err
	}
	fields, err := extractFields(cf.Fields, pool, ctx)
	if err != nil {
		return nil, err
	}
	annotations, err := collectAnnotations(cf.Attributes, pool)
	if err != nil {
		return nil, err
	}

	return &Interface{
		IsAnnotation:    cf.AccessFlags&AccAnnotation != 0,
		Name:            thisName,
		Superinterfaces: ifaceNames,
		Signature:       sig,
		Methods:         methods,
		Fields:          fields,
		Annotations:     annotations,
	}, nil
}

func extractModule(cf *ClassFile, pool *ConstantPool) (*Module, error) {
	var mod *ModuleAttribute
	for _, a := range cf.Attributes {
		if m, ok := a.(ModuleAttribute); ok {
			mod = &m
			break
		}
	}
	if mod == nil {
		return nil, fmt.Errorf("module class file missing Module attribute: %w", ErrBadStructure)
	}
	c, err := pool.get(mod.ModuleNameIndex)
	if err != nil {
		return nil, fmt.Errorf("module_name_index: %w", err)
	}
	mc, ok := c.(ConstantModule)
	if !ok {
		return nil, fmt.Errorf("module_name_index %d: expected Module: %w", mod.ModuleNameIndex, ErrBadIndex)
	}
	name, err := pool.Utf8(mc.NameIndex)
	if err != nil {
		return nil, err
	}
	var version string
	if mod.ModuleVersionIndex != 0 {
		version, err = pool.Utf8(mod.ModuleVersionIndex)
		if err != nil {
			return nil, fmt.Errorf("module_version_index: %w", err)
		}
	}
	return &Module{Name: name, Version: version}, nil
}

func fieldTyToTy(ft FieldTy) Ty {
	switch {
	case ft.Base != nil:
		return primTy(*ft.Base)
	case ft.Inner != nil:
		return arrayTy(fieldTyToTy(*ft.Inner), ft.Dims)
	default:
		return referenceTy(ft.ClassName, false)
	}
}

func typeSigToTy(t TypeSig) Ty {
	if t.ArrayOf != nil {
		dims := 0
		cur := t
		for cur.ArrayOf != nil {
			dims++
			cur = *cur.ArrayOf
		}
		return arrayTy(typeSigToTy(cur), dims)
	}
	switch {
	case t.Base != nil:
		return primTy(*t.Base)
	case t.Class != nil:
		return referenceTy(classTypeSigQualifiedName(*t.Class), true)
	default:
		return typeVarTy(t.TypeVar)
	}
}

func extractMethods(methods []MethodInfo, pool *ConstantPool, ctx ExtractorContext) ([]Method, error) {
	var out []Method
	for _, m := range methods {
		if !ctx.TargetAccessModifiers.matches(ClassifyAccess(m.AccessFlags)) {
			continue
		}
		name, err := pool.Utf8(m.NameIndex)
		if err != nil {
			return nil, fmt.Errorf("method name: %w", err)
		}
		descStr, err := pool.Utf8(m.DescriptorIndex)
		if err != nil {
			return nil, fmt.Errorf("method %q descriptor: %w", name, err)
		}
		desc, err := ParseMethodDescriptor(descStr)
		if err != nil {
			return nil, fmt.Errorf("method %q: %w", name, err)
		}

		var sig *MethodSignature
		var params []Ty
		var ret Ty
		var typeParams []string

		if sigAttr, ok := findSignatureAttribute(m.Attributes); ok {
			raw, err := pool.Utf8(sigAttr.SignatureIndex)
			if err != nil {
				return nil, fmt.Errorf("method %q Signature: %w", name, err)
			}
			parsed, err := ParseMethodSignature(raw)
			if err != nil {
				return nil, fmt.Errorf("method %q: %w", name, err)
			}
			sig = &parsed
			params = make([]Ty, len(parsed.Params))
			for i, p := range parsed.Params {
				params[i] = typeSigToTy(p)
			}
			ret = typeSigToTy(parsed.Result)
			for _, tp := range parsed.TypeParameters {
				typeParams = append(typeParams, tp.Identifier)
			}
		} else {
			params = make([]Ty, len(desc.Params))
			for i, p := range desc.Params {
				params[i] = fieldTyToTy(p.Ty)
			}
			if desc.Return.IsVoid {
				ret = primTy(Void)
			} else {
				ret = fieldTyToTy(desc.Return.Field.Ty)
			}
		}

		annotations, err := collectAnnotations(m.Attributes, pool)
		if err != nil {
			return nil, fmt.Errorf("method %q: %w", name, err)
		}

		out = append(out, Method{
			Name:           name,
			Signature:      sig,
			ParamTypes:     params,
			ReturnType:     ret,
			TypeParameters: typeParams,
			Annotations:    annotations,
		})
	}
	return out, nil
}

func extractFields(fields []FieldInfo, pool *ConstantPool, ctx ExtractorContext) ([]Field, error) {
	var out []Field
	for _, f := range fields {
		if !ctx.TargetAccessModifiers.matches(ClassifyAccess(f.AccessFlags)) {
			continue
		}
		name, err := pool.Utf8(f.NameIndex)
		if err != nil {
			return nil, fmt.Errorf("field name: %w", err)
		}
		descStr, err := pool.Utf8(f.DescriptorIndex)
		if err != nil {
			return nil, fmt.Errorf("field %q descriptor: %w", name, err)
		}
		desc, err := ParseFieldDescriptor(descStr)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}

		var sig *FieldSignature
		ty := fieldTyToTy(desc.Ty)
		if sigAttr, ok := findSignatureAttribute(f.Attributes); ok {
			raw, err := pool.Utf8(sigAttr.SignatureIndex)
			if err != nil {
				return nil, fmt.Errorf("field %q Signature: %w", name, err)
			}
			parsed, err := ParseFieldSignature(raw)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			sig = &parsed
			ty = typeSigToTy(parsed)
		}

		annotations, err := collectAnnotations(f.Attributes, pool)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}

		out = append(out, Field{Name: name, Ty: ty, Signature: sig, Annotations: annotations})
	}
	return out, nil
}

// collectAnnotations scans an attribute list for the six retained
// annotation attribute kinds (spec §4.5) and flattens them into a
// single ordered list, parameter annotations contributing one entry
// per nested annotation.
func collectAnnotations(attrs []Attribute, pool *ConstantPool) ([]Annotation, error) {
	var out []Annotation
	for _, a := range attrs {
		switch v := a.(type) {
		case RuntimeVisibleAnnotationsAttribute:
			anns, err := annotationInfosToAnnotations(v.Annotations, pool, RuntimeVisible)
			if err != nil {
				return nil, err
			}
			out = append(out, anns...)
		case RuntimeInvisibleAnnotationsAttribute:
			anns, err := annotationInfosToAnnotations(v.Annotations, pool, RuntimeInvisible)
			if err != nil {
				return nil, err
			}
			out = append(out, anns...)
		case RuntimeVisibleParameterAnnotationsAttribute:
			for _, param := range v.Parameters {
				anns, err := annotationInfosToAnnotations(param, pool, RuntimeVisibleParameter)
				if err != nil {
					return nil, err
				}
				out = append(out, anns...)
			}
		case RuntimeInvisibleParameterAnnotationsAttribute:
			for _, param := range v.Parameters {
				anns, err := annotationInfosToAnnotations(param, pool, RuntimeInvisibleParameter)
				if err != nil {
					return nil, err
				}
				out = append(out, anns...)
			}
		case RuntimeVisibleTypeAnnotationsAttribute:
			anns, err := typeAnnotationInfosToAnnotations(v.Annotations, pool, RuntimeVisibleType)
			if err != nil {
				return nil, err
			}
			out = append(out, anns...)
		case RuntimeInvisibleTypeAnnotationsAttribute:
			anns, err := typeAnnotationInfosToAnnotations(v.Annotations, pool, RuntimeInvisibleType)
			if err != nil {
				return nil, err
			}
			out = append(out, anns...)
		}
	}
	return out, nil
}

func annotationTy(pool *ConstantPool, typeIndex uint16) (Ty, error) {
	descStr, err := pool.Utf8(typeIndex)
	if err != nil {
		return Ty{}, fmt.Errorf("annotation type_index: %w", err)
	}
	fd, err := ParseFieldDescriptor(descStr)
	if err != nil {
		return Ty{}, fmt.Errorf("annotation type %q: %w", descStr, err)
	}
	return fieldTyToTy(fd.Ty), nil
}

func annotationInfosToAnnotations(list []AnnotationInfo, pool *ConstantPool, kind AnnotationKind) ([]Annotation, error) {
	out := make([]Annotation, 0, len(list))
	for _, ai := range list {
		ty, err := annotationTy(pool, ai.TypeIndex)
		if err != nil {
			return nil, err
		}
		out = append(out, Annotation{Ty: ty, Kind: kind})
	}
	return out, nil
}

func typeAnnotationInfosToAnnotations(list []TypeAnnotationInfo, pool *ConstantPool, kind AnnotationKind) ([]Annotation, error) {
	out := make([]Annotation, 0, len(list))
	for _, ai := range list {
		ty, err := annotationTy(pool, ai.TypeIndex)
		if err != nil {
			return nil, err
		}
		out = append(out, Annotation{Ty: ty, Kind: kind})
	}
	return out, nil
}
