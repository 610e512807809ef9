// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package archive

import (
	stdzip "archive/zip"
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.mozilla.org/pkcs7"
)

// selfSignedSigner builds a throwaway RSA key and self-signed
// certificate suitable for producing a PKCS#7 signature block.
func selfSignedSigner(t *testing.T, commonName string) (*rsa.PrivateKey, *x509.Certificate) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %v", err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Unix(0, 0),
		NotAfter:     time.Unix(0, 0).Add(100 * 365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("x509.CreateCertificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("x509.ParseCertificate: %v", err)
	}
	return key, cert
}

// buildJar writes a zip archive to path. sigMember, when non-empty,
// names a META-INF/*.RSA entry carrying a PKCS#7 signature block over
// signedContent.
func buildJar(t *testing.T, path string, sigMember string, key *rsa.PrivateKey, cert *x509.Certificate, signedContent []byte) {
	t.Helper()
	var buf bytes.Buffer
	zw := stdzip.NewWriter(&buf)

	w, err := zw.Create("com/acme/Widget.class")
	if err != nil {
		t.Fatalf("zip.Create: %v", err)
	}
	if _, err := w.Write([]byte{0xCA, 0xFE, 0xBA, 0xBE}); err != nil {
		t.Fatalf("zip write: %v", err)
	}

	if sigMember != "" {
		sd, err := pkcs7.NewSignedData(signedContent)
		if err != nil {
			t.Fatalf("pkcs7.NewSignedData: %v", err)
		}
		if err := sd.AddSigner(cert, key, pkcs7.SignerInfoConfig{}); err != nil {
			t.Fatalf("AddSigner: %v", err)
		}
		sd.Detach()
		der, err := sd.Finish()
		if err != nil {
			t.Fatalf("Finish: %v", err)
		}
		sw, err := zw.Create(sigMember)
		if err != nil {
			t.Fatalf("zip.Create %s: %v", sigMember, err)
		}
		if _, err := sw.Write(der); err != nil {
			t.Fatalf("zip write %s: %v", sigMember, err)
		}
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("zip.Close: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestVerifySignatureValidBlock(t *testing.T) {
	key, cert := selfSignedSigner(t, "classlens test signer")
	jarPath := filepath.Join(t.TempDir(), "signed.jar")
	buildJar(t, jarPath, "META-INF/TEST.RSA", key, cert, []byte("signed payload"))

	info, err := VerifySignature(jarPath)
	if err != nil {
		t.Fatalf("VerifySignature: %v", err)
	}
	if info.Subject.CommonName != "classlens test signer" {
		t.Fatalf("Subject.CommonName = %q, want %q", info.Subject.CommonName, "classlens test signer")
	}
	if info.FileName != "META-INF/TEST.RSA" {
		t.Fatalf("FileName = %q, want META-INF/TEST.RSA", info.FileName)
	}
}

func TestVerifySignatureUnsigned(t *testing.T) {
	jarPath := filepath.Join(t.TempDir(), "unsigned.jar")
	buildJar(t, jarPath, "", nil, nil, nil)

	_, err := VerifySignature(jarPath)
	if !errors.Is(err, ErrNotSigned) {
		t.Fatalf("got %v, want ErrNotSigned", err)
	}
}

func TestVerifySignatureDSAMemberRecognized(t *testing.T) {
	key, cert := selfSignedSigner(t, "legacy dsa-named signer")
	jarPath := filepath.Join(t.TempDir(), "legacy.jar")
	buildJar(t, jarPath, "META-INF/LEGACY.DSA", key, cert, []byte("signed payload"))

	info, err := VerifySignature(jarPath)
	if err != nil {
		t.Fatalf("VerifySignature: %v", err)
	}
	if info.FileName != "META-INF/LEGACY.DSA" {
		t.Fatalf("FileName = %q, want META-INF/LEGACY.DSA", info.FileName)
	}
}
