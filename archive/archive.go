// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package archive streams .class entries out of .jar and .jmod
// archives (both Zip-based) and opens loose .class files, handing
// each one's bytes to the classfile core as a borrowed, read-only
// buffer. Archive reading is an external collaborator of the core
// (spec §1): the core never imports this package.
package archive

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/edsrzf/mmap-go"
	"github.com/klauspost/compress/zip"

	"github.com/saferwall/classlens/internal/log"
)

// Entry is one .class member discovered inside an archive (or a
// standalone .class file, reported as its own single entry).
type Entry struct {
	// Name is the member's path within the archive ("com/acme/Foo.class"),
	// or the base file name for a standalone .class file.
	Name string
	Data []byte
}

// Reader streams the .class entries of a .jar or .jmod file. Both
// formats are Zip archives; .jmod additionally prefixes every real
// path with a "classes/" directory that callers rarely want to see,
// so Reader strips it.
type Reader struct {
	zr     *zip.Reader
	closer func() error
	jmod   bool
	logger log.Helper
}

// Options configures archive opening.
type Options struct {
	Logger log.Helper // defaults to log.Nop() when nil
}

func (o Options) logger() log.Helper {
	if o.Logger == nil {
		return log.Nop()
	}
	return o.Logger
}

// Open opens path as a .jar or .jmod archive. The returned Reader
// owns the underlying file handle; callers must call Close.
func Open(filePath string, opts Options) (*Reader, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", filePath, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("archive: stat %s: %w", filePath, err)
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("archive: %s is not a valid zip-based archive: %w", filePath, err)
	}
	return &Reader{
		zr:     zr,
		closer: f.Close,
		jmod:   strings.EqualFold(path.Ext(filePath), ".jmod"),
		logger: opts.logger(),
	}, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.closer()
}

// ClassEntries returns every .class member's name and bytes; a member
// that fails to open is logged and skipped. Entries
// are decompressed eagerly: class files are small relative to the
// archives that hold them, and callers generally want every entry's
// bytes in hand to dispatch parsing in parallel.
func (r *Reader) ClassEntries() ([]Entry, error) {
	var entries []Entry
	for _, f := range r.zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, ".class") {
			continue
		}
		name := f.Name
		if r.jmod {
			name = strings.TrimPrefix(name, "classes/")
		}
		rc, err := f.Open()
		if err != nil {
			r.logger.Warnf("archive: skipping %s: %v", f.Name, err)
			continue
		}
		data := make([]byte, 0, f.UncompressedSize64)
		buf := make([]byte, 32*1024)
		for {
			n, rerr := rc.Read(buf)
			if n > 0 {
				data = append(data, buf[:n]...)
			}
			if rerr != nil {
				break
			}
		}
		rc.Close()
		entries = append(entries, Entry{Name: name, Data: data})
	}
	return entries, nil
}

// OpenClassFile mmap's a loose .class file (not inside an archive)
// read-only and hands the caller a borrowed slice, matching the way
// the classfile core expects to receive its input (spec §5: "the
// parser consumes a byte buffer it does not own"). Callers must call
// the returned closer when done with the slice.
func OpenClassFile(filePath string) (data []byte, closer func() error, err error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("archive: open %s: %w", filePath, err)
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("archive: mmap %s: %w", filePath, err)
	}
	closer = func() error {
		uerr := m.Unmap()
		cerr := f.Close()
		if uerr != nil {
			return uerr
		}
		return cerr
	}
	return []byte(m), closer, nil
}
