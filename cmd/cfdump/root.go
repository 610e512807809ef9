// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Command cfdump is the command-line front-end for the classfile
// toolkit: it walks input paths, dispatches each discovered .class
// file to the core parser and extractor, and writes the resulting
// Component tree to an output directory as JSON or a small
// length-delimited binary framing.
package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/saferwall/classlens"
	"github.com/saferwall/classlens/archive"
	"github.com/saferwall/classlens/internal/log"
)

// OutputFormat selects how extracted components are serialized.
type OutputFormat string

const (
	FormatJSON OutputFormat = "json"
	FormatBin  OutputFormat = "bin"
)

var (
	outDir       string
	format       string
	parallelism  int
	showTiming   bool
	verbose      bool
	verifySigned bool
)

var rootCmd = &cobra.Command{
	Use:   "cfdump [paths...]",
	Short: "Parse JVM class files and archives into a language-level component tree",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDump,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outDir, "out", ".", "output directory")
	rootCmd.PersistentFlags().StringVar(&format, "format", "json", "output format: json|bin")
	rootCmd.PersistentFlags().IntVar(&parallelism, "parallel", 1, "number of files to process concurrently")
	rootCmd.PersistentFlags().BoolVar(&showTiming, "time", false, "print per-file and total timing")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging and constant-pool dumps")
	rootCmd.PersistentFlags().BoolVar(&verifySigned, "verify-signature", false, "verify a jar's META-INF signature block before dumping its entries")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runDump(cmd *cobra.Command, args []string) error {
	if format != string(FormatJSON) && format != string(FormatBin) {
		return fmt.Errorf("--format must be %q or %q, got %q", FormatJSON, FormatBin, format)
	}
	logger, err := newLogger(verbose)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	start := time.Now()
	inputs, err := discoverInputs(args)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(max(1, parallelism))
	for _, in := range inputs {
		in := in
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			t0 := time.Now()
			err := processInput(in, logger)
			if showTiming {
				logger.Infof("%s: %s", in, time.Since(t0))
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if showTiming {
		logger.Infof("total: %s", time.Since(start))
	}
	return nil
}

func newLogger(verbose bool) (log.Helper, error) {
	if verbose {
		return log.NewDevelopment()
	}
	return log.New()
}

// discoverInputs expands the positional arguments into a flat list of
// .class/.jar/.jmod file paths, walking directories recursively.
func discoverInputs(args []string) ([]string, error) {
	var out []string
	for _, a := range args {
		info, err := os.Stat(a)
		if err != nil {
			return nil, fmt.Errorf("unreadable input %s: %w", a, err)
		}
		if !info.IsDir() {
			out = append(out, a)
			continue
		}
		err = filepath.WalkDir(a, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if isRecognizedExtension(p) {
				out = append(out, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", a, err)
		}
	}
	return out, nil
}

func isRecognizedExtension(p string) bool {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".class", ".jar", ".jmod":
		return true
	default:
		return false
	}
}

func processInput(p string, logger log.Helper) error {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".class":
		return processClassFile(p, logger)
	case ".jar", ".jmod":
		return processArchive(p, logger)
	default:
		return fmt.Errorf("unrecognized input %s", p)
	}
}

func processClassFile(p string, logger log.Helper) error {
	data, closer, err := archive.OpenClassFile(p)
	if err != nil {
		return err
	}
	defer closer()
	comp, err := parseAndExtract(filepath.Base(p), data, logger)
	if err != nil {
		logger.Errorf("%s: %v", p, err)
		return err
	}
	return writeComponent(filepath.Base(p), comp)
}

func processArchive(p string, logger log.Helper) error {
	if verifySigned && strings.EqualFold(filepath.Ext(p), ".jar") {
		verifyJarSignature(p, logger)
	}
	r, err := archive.Open(p, archive.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer r.Close()
	entries, err := r.ClassEntries()
	if err != nil {
		return err
	}
	for _, e := range entries {
		comp, err := parseAndExtract(e.Name, e.Data, logger)
		if err != nil {
			logger.Warnf("%s!%s: %v", p, e.Name, err)
			continue
		}
		outName := filepath.Base(p) + "!" + strings.ReplaceAll(e.Name, "/", "_")
		if err := writeComponent(outName, comp); err != nil {
			return err
		}
	}
	return nil
}

// verifyJarSignature reports the outcome of a jar's META-INF signature
// check but never aborts dumping: an unsigned or unverifiable jar is
// still a valid source of .class entries.
func verifyJarSignature(p string, logger log.Helper) {
	signer, err := archive.VerifySignature(p)
	switch {
	case errors.Is(err, archive.ErrNotSigned):
		logger.Warnf("%s: not signed", p)
	case err != nil:
		logger.Warnf("%s: signature verification failed: %v", p, err)
	default:
		logger.Infof("%s: signed by %s (%s)", p, signer.Subject, signer.FileName)
	}
}

func parseAndExtract(name string, data []byte, logger log.Helper) (*classfile.Component, error) {
	cf, err := classfile.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if verbose {
		for _, line := range cf.DebugStrings() {
			logger.Debugf("%s: %s", name, line)
		}
	}
	comp, err := classfile.Extract(cf, classfile.ExtractorContext{})
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	return comp, nil
}

func writeComponent(name string, comp *classfile.Component) error {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	switch OutputFormat(format) {
	case FormatJSON:
		data, err := json.MarshalIndent(comp, "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(outDir, base+".json"), data, 0o644)
	case FormatBin:
		return writeBinComponent(filepath.Join(outDir, base+".bin"), comp)
	default:
		return fmt.Errorf("unrecognized format %q", format)
	}
}

// writeBinComponent writes comp as a single length-delimited frame: a
// 4-byte big-endian length prefix followed by a gob-encoded
// Component. This is explicitly not real protobuf (the original
// tool's wire format generated from a .proto schema is out of scope
// here, see DESIGN.md); it exists to exercise a binary, non-JSON
// output path.
func writeBinComponent(path string, comp *classfile.Component) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(comp); err != nil {
		return err
	}
	payload := buf.Bytes()

	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(payload)))
	if _, err := f.Write(lenPrefix[:]); err != nil {
		return err
	}
	_, err = f.Write(payload)
	return err
}
