// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package log is the logging façade used by the driver layers
// (archive, cmd/cfdump). The classfile core itself never logs: every
// call site that needs a logger lives outside the core, consistent
// with the purity invariant of the parsing and extraction pipeline.
package log

import (
	"go.uber.org/zap"
)

// Helper is the logging interface driver code depends on, shaped
// after the call sites of a conventional leveled logger: Debugf for
// low-level tracing, Infof for progress, Warnf for recoverable
// problems, Errorf for failures that abort one unit of work but not
// the whole run.
type Helper interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// zapHelper adapts a zap.SugaredLogger to Helper; the method set
// already matches exactly, so this is a thin alias-by-embedding.
type zapHelper struct {
	*zap.SugaredLogger
}

// New builds a Helper backed by a production zap logger (JSON output,
// info level and above).
func New() (Helper, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return &zapHelper{SugaredLogger: l.Sugar()}, nil
}

// NewDevelopment builds a Helper backed by a development zap logger
// (console output, debug level and above), suitable for cmd/cfdump's
// --verbose flag.
func NewDevelopment() (Helper, error) {
	l, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return &zapHelper{SugaredLogger: l.Sugar()}, nil
}

// nopHelper discards everything. Used as the default when the caller
// supplies no logger.
type nopHelper struct{}

func (nopHelper) Debugf(string, ...interface{}) {}
func (nopHelper) Infof(string, ...interface{})  {}
func (nopHelper) Warnf(string, ...interface{})  {}
func (nopHelper) Errorf(string, ...interface{}) {}

// Nop returns a Helper that discards all log calls.
func Nop() Helper { return nopHelper{} }
