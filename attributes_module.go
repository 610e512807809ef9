// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// NestHostAttribute identifies the nest host of a nest member class.
type NestHostAttribute struct{ HostClassIndex uint16 }

// NestMembersAttribute lists the members of a nest hosted by this
// class.
type NestMembersAttribute struct{ Classes []uint16 }

// PermittedSubclassesAttribute lists the classes permitted to extend
// or implement a sealed class or interface.
type PermittedSubclassesAttribute struct{ Classes []uint16 }

func (NestHostAttribute) isAttribute()            {}
func (NestMembersAttribute) isAttribute()          {}
func (PermittedSubclassesAttribute) isAttribute()  {}

func (NestHostAttribute) AttributeName() string           { return "NestHost" }
func (NestMembersAttribute) AttributeName() string         { return "NestMembers" }
func (PermittedSubclassesAttribute) AttributeName() string { return "PermittedSubclasses" }

// BootstrapMethod is one entry of a BootstrapMethods attribute: a
// method handle reference plus its static arguments.
type BootstrapMethod struct {
	MethodRef uint16
	Arguments []uint16
}

// BootstrapMethodsAttribute backs every Dynamic/InvokeDynamic
// constant pool entry referenced by index from this class file.
type BootstrapMethodsAttribute struct{ Methods []BootstrapMethod }

func (BootstrapMethodsAttribute) isAttribute()          {}
func (BootstrapMethodsAttribute) AttributeName() string { return "BootstrapMethods" }

func parseBootstrapMethodsAttribute(r *reader) (Attribute, error) {
	count, err := r.u16()
	if err != nil {
		return nil, err
	}
	methods := make([]BootstrapMethod, count)
	for i := range methods {
		ref, err := r.u16()
		if err != nil {
			return nil, err
		}
		argCount, err := r.u16()
		if err != nil {
			return nil, err
		}
		args := make([]uint16, argCount)
		for j := range args {
			args[j], err = r.u16()
			if err != nil {
				return nil, err
			}
		}
		methods[i] = BootstrapMethod{MethodRef: ref, Arguments: args}
	}
	return BootstrapMethodsAttribute{Methods: methods}, nil
}

// ModuleRequires is one requires directive of a Module attribute.
type ModuleRequires struct {
	RequiresIndex        uint16
	RequiresFlags        uint16
	RequiresVersionIndex uint16 // 0 if no version given
}

// ModuleExports is one exports directive of a Module attribute.
type ModuleExports struct {
	ExportsIndex   uint16
	ExportsFlags   uint16
	ExportsToIndex []uint16 // empty means exported unconditionally
}

// ModuleOpens is one opens directive of a Module attribute.
type ModuleOpens struct {
	OpensIndex   uint16
	OpensFlags   uint16
	OpensToIndex []uint16
}

// ModuleProvides is one provides directive of a Module attribute.
type ModuleProvides struct {
	ProvidesIndex     uint16
	ProvidesWithIndex []uint16
}

// ModuleAttribute describes a module-info class file's module
// declaration in full: requires, exports, opens, uses, provides.
type ModuleAttribute struct {
	ModuleNameIndex    uint16
	ModuleFlags        uint16
	ModuleVersionIndex uint16 // 0 if absent
	Requires           []ModuleRequires
	Exports            []ModuleExports
	Opens              []ModuleOpens
	UsesIndex          []uint16
	Provides           []ModuleProvides
}

func (ModuleAttribute) isAttribute()          {}
func (ModuleAttribute) AttributeName() string { return "Module" }

// ModulePackagesAttribute lists every package of a module, whether or
// not exported/opened.
type ModulePackagesAttribute struct{ Packages []uint16 }

// ModuleMainClassAttribute names a module's main class, if any.
type ModuleMainClassAttribute struct{ MainClassIndex uint16 }

func (ModulePackagesAttribute) isAttribute()    {}
func (ModuleMainClassAttribute) isAttribute()   {}

func (ModulePackagesAttribute) AttributeName() string  { return "ModulePackages" }
func (ModuleMainClassAttribute) AttributeName() string { return "ModuleMainClass" }

func parseModuleAttribute(r *reader) (Attribute, error) {
	nameIdx, err := r.u16()
	if err != nil {
		return nil, err
	}
	flags, err := r.u16()
	if err != nil {
		return nil, err
	}
	versionIdx, err := r.u16()
	if err != nil {
		return nil, err
	}

	reqCount, err := r.u16()
	if err != nil {
		return nil, err
	}
	requires := make([]ModuleRequires, reqCount)
	for i := range requires {
		idx, err := r.u16()
		if err != nil {
			return nil, err
		}
		rflags, err := r.u16()
		if err != nil {
			return nil, err
		}
		verIdx, err := r.u16()
		if err != nil {
			return nil, err
		}
		requires[i] = ModuleRequires{RequiresIndex: idx, RequiresFlags: rflags, RequiresVersionIndex: verIdx}
	}

	expCount, err := r.u16()
	if err != nil {
		return nil, err
	}
	exports := make([]ModuleExports, expCount)
	for i := range exports {
		idx, err := r.u16()
		if err != nil {
			return nil, err
		}
		eflags, err := r.u16()
		if err != nil {
			return nil, err
		}
		toCount, err := r.u16()
		if err != nil {
			return nil, err
		}
		to := make([]uint16, toCount)
		for j := range to {
			to[j], err = r.u16()
			if err != nil {
				return nil, err
			}
		}
		exports[i] = ModuleExports{ExportsIndex: idx, ExportsFlags: eflags, ExportsToIndex: to}
	}

	opensCount, err := r.u16()
	if err != nil {
		return nil, err
	}
	opens := make([]ModuleOpens, opensCount)
	for i := range opens {
		idx, err := r.u16()
		if err != nil {
			return nil, err
		}
		oflags, err := r.u16()
		if err != nil {
			return nil, err
		}
		toCount, err := r.u16()
		if err != nil {
			return nil, err
		}
		to := make([]uint16, toCount)
		for j := range to {
			to[j], err = r.u16()
			if err != nil {
				return nil, err
			}
		}
		opens[i] = ModuleOpens{OpensIndex: idx, OpensFlags: oflags, OpensToIndex: to}
	}

	usesCount, err := r.u16()
	if err != nil {
		return nil, err
	}
	uses := make([]uint16, usesCount)
	for i := range uses {
		uses[i], err = r.u16()
		if err != nil {
			return nil, err
		}
	}

	provCount, err := r.u16()
	if err != nil {
		return nil, err
	}
	provides := make([]ModuleProvides, provCount)
	for i := range provides {
		idx, err := r.u16()
		if err != nil {
			return nil, err
		}
		withCount, err := r.u16()
		if err != nil {
			return nil, err
		}
		with := make([]uint16, withCount)
		for j := range with {
			with[j], err = r.u16()
			if err != nil {
				return nil, err
			}
		}
		provides[i] = ModuleProvides{ProvidesIndex: idx, ProvidesWithIndex: with}
	}

	return ModuleAttribute{
		ModuleNameIndex:    nameIdx,
		ModuleFlags:        flags,
		ModuleVersionIndex: versionIdx,
		Requires:           requires,
		Exports:            exports,
		Opens:              opens,
		UsesIndex:          uses,
		Provides:           provides,
	}, nil
}
