package storage

import (
	"bytes"
	"fmt"
	"io"

	"filippo.io/age"
)

// ageHeader prefixes every age-encrypted payload
const ageHeader = "age-encryption.org"

// keys holds the scrypt pair derived from one password
type keys struct {
	identity  *age.ScryptIdentity
	recipient *age.ScryptRecipient
}

func deriveKeys(password string) (*keys, error) {
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return nil, fmt.Errorf("derive identity: %w", err)
	}
	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return nil, fmt.Errorf("derive recipient: %w", err)
	}
	return &keys{identity: identity, recipient: recipient}, nil
}

func (k *keys) seal(plain []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, k.recipient)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(plain); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (k *keys) open(sealed []byte) ([]byte, error) {
	r, err := age.Decrypt(bytes.NewReader(sealed), k.identity)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

func isSealed(data []byte) bool {
	return bytes.HasPrefix(data, []byte(ageHeader))
}
