// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package archive

import (
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"
	"go.mozilla.org/pkcs7"
)

// ErrNotSigned is returned by VerifySignature when the jar carries no
// META-INF/*.RSA or META-INF/*.DSA signature block. This is reported,
// never treated as a parse error of the archive's .class members
// (spec_full.md §3.1).
var ErrNotSigned = errors.New("archive: jar is not signed")

// SignerInfo summarizes the signer of a verified jar signature block.
type SignerInfo struct {
	Subject  pkix.Name
	Issuer   pkix.Name
	FileName string // the META-INF/*.RSA or *.DSA member that carried it
}

// VerifySignature looks for a PKCS#7 signature block under
// META-INF/*.RSA or META-INF/*.DSA in the jar at jarPath, parses it,
// and verifies the embedded signature against the embedded
// certificate chain. It does not cross-check the block's digests
// against the jar's actual entries (that requires parsing the
// accompanying META-INF/*.SF and MANIFEST.MF files, a distinct and
// separable verification step a caller can layer on top).
func VerifySignature(jarPath string) (*SignerInfo, error) {
	r, err := Open(jarPath, Options{})
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var sigFile *zip.File
	for _, f := range r.zr.File {
		name := f.Name
		if !strings.HasPrefix(name, "META-INF/") {
			continue
		}
		upper := strings.ToUpper(name)
		if strings.HasSuffix(upper, ".RSA") || strings.HasSuffix(upper, ".DSA") {
			sigFile = f
			break
		}
	}
	if sigFile == nil {
		return nil, ErrNotSigned
	}

	rc, err := sigFile.Open()
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", sigFile.Name, err)
	}
	defer rc.Close()
	der, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("archive: read %s: %w", sigFile.Name, err)
	}

	p7, err := pkcs7.Parse(der)
	if err != nil {
		return nil, fmt.Errorf("archive: %s is not a valid PKCS#7 signature block: %w", sigFile.Name, err)
	}
	if err := p7.Verify(); err != nil {
		return nil, fmt.Errorf("archive: signature verification failed for %s: %w", sigFile.Name, err)
	}
	signer := p7.GetOnlySigner()
	if signer == nil {
		return nil, fmt.Errorf("archive: %s: no single signer certificate found", sigFile.Name)
	}
	return &SignerInfo{
		Subject:  signer.Subject,
		Issuer:   signer.Issuer,
		FileName: sigFile.Name,
	}, nil
}
