// Package crypto cifra texto clínico em repouso com AES-256-GCM e chaves versionadas.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrUnknownKeyVersion = errors.New("crypto: key version not found")
	ErrNoCurrentKey      = errors.New("crypto: current key version not configured")
)

// Sealed é o que vai para o banco: ciphertext, nonce e a versão da chave usada.
type Sealed struct {
	Ciphertext []byte
	Nonce      []byte
	KeyVersion string
}

// Sealer cifra sempre com a chave corrente e decifra com qualquer versão conhecida,
// o que permite rotacionar chaves sem recifrar o histórico.
type Sealer struct {
	aeads   map[string]cipher.AEAD
	current string
}

func NewSealer(keys map[string][]byte, current string) (*Sealer, error) {
	s := &Sealer{aeads: make(map[string]cipher.AEAD, len(keys)), current: current}
	for ver, key := range keys {
		if len(key) != 32 {
			return nil, fmt.Errorf("crypto: key %s must be 32 bytes (got %d)", ver, len(key))
		}
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, err
		}
		s.aeads[ver] = gcm
	}
	if _, ok := s.aeads[current]; !ok {
		return nil, ErrNoCurrentKey
	}
	return s, nil
}

// NewSealerFromEnv: DATA_ENCRYPTION_KEYS + CURRENT_DATA_KEY_VERSION.
func NewSealerFromEnv(env, current string) (*Sealer, error) {
	keys, err := ParseKeysEnv(env)
	if err != nil {
		return nil, err
	}
	return NewSealer(keys, current)
}

func (s *Sealer) CurrentVersion() string { return s.current }

func (s *Sealer) Seal(plain []byte) (Sealed, error) {
	gcm := s.aeads[s.current]
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return Sealed{}, err
	}
	return Sealed{
		Ciphertext: gcm.Seal(nil, nonce, plain, nil),
		Nonce:      nonce,
		KeyVersion: s.current,
	}, nil
}

func (s *Sealer) Open(in Sealed) ([]byte, error) {
	gcm, ok := s.aeads[in.KeyVersion]
	if !ok {
		return nil, ErrUnknownKeyVersion
	}
	if len(in.Nonce) != gcm.NonceSize() {
		return nil, errors.New("crypto: invalid nonce size")
	}
	return gcm.Open(nil, in.Nonce, in.Ciphertext, nil)
}

// ParseKeysEnv lê "v1:<base64>,v2:<base64>". Aceita base64 com ou sem padding;
// cada chave precisa decodificar para 32 bytes.
func ParseKeysEnv(env string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	for _, part := range strings.Split(env, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		ver, b64, ok := strings.Cut(part, ":")
		ver, b64 = strings.TrimSpace(ver), strings.TrimSpace(b64)
		if !ok || ver == "" {
			return nil, fmt.Errorf("crypto: malformed key entry %q", part)
		}
		key, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(b64, "="))
		if err != nil {
			return nil, fmt.Errorf("crypto: key %s: %w", ver, err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("crypto: key %s must be 32 bytes for AES-256 (got %d)", ver, len(key))
		}
		out[ver] = key
	}
	return out, nil
}
