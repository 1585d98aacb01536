package gpg

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// Signer produces armored detached signatures of rendered reports
type Signer struct {
	entity *openpgp.Entity
}

// NewSignerFromFile loads the first private key of keyPath, decrypting it with
// passphrase when it is protected
func NewSignerFromFile(keyPath string, passphrase []byte) (*Signer, error) {
	//nolint:gosec // G304: keyPath is the user-selected signing key
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file: %w", err)
	}

	entities, err := readKeyRing(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read key: %w", err)
	}
	for _, entity := range entities {
		if entity.PrivateKey == nil {
			continue
		}
		if err := decryptEntity(entity, passphrase); err != nil {
			return nil, err
		}
		return &Signer{entity: entity}, nil
	}
	return nil, fmt.Errorf("no private key found in %s", keyPath)
}

// Fingerprint returns the signing key's fingerprint in upper-case hex
func (s *Signer) Fingerprint() string {
	return fmt.Sprintf("%X", s.entity.PrimaryKey.Fingerprint)
}

// Sign writes an armored detached signature of report to w
func (s *Signer) Sign(w io.Writer, report io.Reader) error {
	if err := openpgp.ArmoredDetachSign(w, s.entity, report, nil); err != nil {
		return fmt.Errorf("failed to sign report: %w", err)
	}
	return nil
}

func decryptEntity(entity *openpgp.Entity, passphrase []byte) error {
	if entity.PrivateKey.Encrypted {
		if len(passphrase) == 0 {
			return errors.New("private key is protected and no passphrase was given")
		}
		if err := entity.PrivateKey.Decrypt(passphrase); err != nil {
			return fmt.Errorf("failed to decrypt private key: %w", err)
		}
	}
	for _, sub := range entity.Subkeys {
		if sub.PrivateKey == nil || !sub.PrivateKey.Encrypted {
			continue
		}
		if err := sub.PrivateKey.Decrypt(passphrase); err != nil {
			return fmt.Errorf("failed to decrypt private subkey: %w", err)
		}
	}
	return nil
}
