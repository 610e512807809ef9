// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import (
	"errors"
	"testing"
)

func TestParseFieldDescriptor(t *testing.T) {
	tests := []struct {
		name       string
		descriptor string
		wantBase   *BaseTy
		wantClass  string
		wantDims   int
	}{
		{"int", "I", baseTyPtr(Int), "", 0},
		{"void", "V", baseTyPtr(Void), "", 0},
		{"object", "Ljava/lang/String;", nil, "java/lang/String", 0},
		{"array of double", "[[[D", nil, "", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fd, err := ParseFieldDescriptor(tt.descriptor)
			if err != nil {
				t.Fatalf("ParseFieldDescriptor(%q): %v", tt.descriptor, err)
			}
			if fd.Descriptor != tt.descriptor {
				t.Fatalf("Descriptor = %q, want %q", fd.Descriptor, tt.descriptor)
			}
			switch {
			case tt.wantDims > 0:
				if fd.Ty.Inner == nil || fd.Ty.Dims != tt.wantDims {
					t.Fatalf("Dims = %d, want %d", fd.Ty.Dims, tt.wantDims)
				}
				if fd.Ty.Inner.Base == nil || *fd.Ty.Inner.Base != Double {
					t.Fatalf("Inner = %+v, want Double", fd.Ty.Inner)
				}
			case tt.wantClass != "":
				if fd.Ty.ClassName != tt.wantClass {
					t.Fatalf("ClassName = %q, want %q", fd.Ty.ClassName, tt.wantClass)
				}
			default:
				if fd.Ty.Base == nil || *fd.Ty.Base != *tt.wantBase {
					t.Fatalf("Base = %v, want %v", fd.Ty.Base, tt.wantBase)
				}
			}
		})
	}
}

func baseTyPtr(b BaseTy) *BaseTy { return &b }

func TestParseFieldDescriptorErrors(t *testing.T) {
	tests := []string{"", "X", "Ljava/lang/String", "[", "VV"}
	for _, d := range tests {
		if _, err := ParseFieldDescriptor(d); err == nil && d != "VV" {
			t.Fatalf("ParseFieldDescriptor(%q) succeeded, want error", d)
		}
	}
	if _, err := ParseFieldDescriptor(""); !errors.Is(err, ErrBadDescriptor) {
		t.Fatalf("got %v, want ErrBadDescriptor", err)
	}
}

// Scenario B: (IDLjava/lang/Thread;)Ljava/lang/Object; parses to three
// parameters [Int, Double, Obj("java/lang/Thread")] and return
// Obj("java/lang/Object").
func TestParseMethodDescriptorScenarioB(t *testing.T) {
	md, err := ParseMethodDescriptor("(IDLjava/lang/Thread;)Ljava/lang/Object;")
	if err != nil {
		t.Fatalf("ParseMethodDescriptor: %v", err)
	}
	if len(md.Params) != 3 {
		t.Fatalf("got %d params, want 3", len(md.Params))
	}
	if md.Params[0].Ty.Base == nil || *md.Params[0].Ty.Base != Int {
		t.Fatalf("param 0 = %+v, want Int", md.Params[0].Ty)
	}
	if md.Params[1].Ty.Base == nil || *md.Params[1].Ty.Base != Double {
		t.Fatalf("param 1 = %+v, want Double", md.Params[1].Ty)
	}
	if md.Params[2].Ty.ClassName != "java/lang/Thread" {
		t.Fatalf("param 2 = %+v, want Obj(java/lang/Thread)", md.Params[2].Ty)
	}
	if md.Return.IsVoid || md.Return.Field.Ty.ClassName != "java/lang/Object" {
		t.Fatalf("return = %+v, want Obj(java/lang/Object)", md.Return)
	}
}

func TestParseMethodDescriptorVoid(t *testing.T) {
	md, err := ParseMethodDescriptor("()V")
	if err != nil {
		t.Fatalf("ParseMethodDescriptor: %v", err)
	}
	if len(md.Params) != 0 {
		t.Fatalf("got %d params, want 0", len(md.Params))
	}
	if !md.Return.IsVoid {
		t.Fatalf("Return.IsVoid = false, want true")
	}
}

func TestParseMethodDescriptorErrors(t *testing.T) {
	tests := []string{"", "I)V", "(I", "(I)", "(V)V", "(I)I extra"}
	for _, d := range tests {
		t.Run(d, func(t *testing.T) {
			if _, err := ParseMethodDescriptor(d); err == nil {
				t.Fatalf("ParseMethodDescriptor(%q) succeeded, want error", d)
			}
		})
	}
}
