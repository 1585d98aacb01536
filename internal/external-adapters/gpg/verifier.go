// Package gpg signs and verifies analysis reports with detached OpenPGP signatures.
package gpg

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// armoredSignaturePrefix starts every ASCII-armored signature
const armoredSignaturePrefix = "-----BEGIN PGP SIGNATURE---"

// Verifier checks detached report signatures using ProtonMail's go-crypto
type Verifier struct {
	keyring openpgp.EntityList
}

// NewVerifier creates a verifier with an empty keyring
func NewVerifier() *Verifier {
	return &Verifier{
		keyring: make(openpgp.EntityList, 0),
	}
}

// ImportKeyFromFile imports public keys from an armored or binary key file
func (v *Verifier) ImportKeyFromFile(keyPath string) error {
	//nolint:gosec // G304: keyPath is user-provided for signature verification
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return fmt.Errorf("failed to open key file: %w", err)
	}

	entities, err := readKeyRing(data)
	if err != nil {
		return fmt.Errorf("failed to read key: %w", err)
	}
	if len(entities) == 0 {
		return fmt.Errorf("no keys found in file")
	}

	v.keyring = append(v.keyring, entities...)
	return nil
}

// Verify checks that signature is a valid detached signature of signed and
// returns the signer's fingerprint
func (v *Verifier) Verify(signed, signature io.Reader) (string, error) {
	if len(v.keyring) == 0 {
		return "", fmt.Errorf("no GPG keys imported, call ImportKeyFromFile first")
	}

	// Security: GPG signatures are typically < 1KB, cap at 10KB
	sigData, err := io.ReadAll(io.LimitReader(signature, 10*1024))
	if err != nil {
		return "", fmt.Errorf("failed to read signature: %w", err)
	}
	if len(sigData) < 10 {
		return "", fmt.Errorf("signature file too small to be valid GPG signature")
	}

	var signer *openpgp.Entity
	if bytes.HasPrefix(sigData, []byte(armoredSignaturePrefix)) {
		signer, err = openpgp.CheckArmoredDetachedSignature(v.keyring, signed, bytes.NewReader(sigData), nil)
	} else {
		signer, err = openpgp.CheckDetachedSignature(v.keyring, signed, bytes.NewReader(sigData), nil)
	}
	if err != nil {
		return "", fmt.Errorf("signature verification failed: %w", err)
	}

	return fmt.Sprintf("%X", signer.PrimaryKey.Fingerprint), nil
}

// VerifyFile verifies a detached signature file against a report file
func (v *Verifier) VerifyFile(reportPath, sigPath string) (string, error) {
	if len(v.keyring) == 0 {
		return "", fmt.Errorf("no GPG keys imported, call ImportKeyFromFile first")
	}

	//nolint:gosec // G304: sigPath is user-provided for signature verification
	sigFile, err := os.Open(sigPath)
	if err != nil {
		return "", fmt.Errorf("failed to open signature file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer sigFile.Close()

	//nolint:gosec // G304: reportPath is user-provided for signature verification
	reportFile, err := os.Open(reportPath)
	if err != nil {
		return "", fmt.Errorf("failed to open report file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer reportFile.Close()

	return v.Verify(reportFile, sigFile)
}

// GetKeyringSize returns the number of keys in the keyring
func (v *Verifier) GetKeyringSize() int {
	return len(v.keyring)
}

func readKeyRing(data []byte) (openpgp.EntityList, error) {
	entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err == nil {
		return entities, nil
	}
	// Try reading as binary
	return openpgp.ReadKeyRing(bytes.NewReader(data))
}
