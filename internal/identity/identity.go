// ABOUTME: Durable Ed25519 device identity used to authenticate gateway connections
// ABOUTME: Loads or creates the identity file and signs handshake payloads

package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
)

// File permissions for the persisted identity. Only the owning process may read it.
const (
	fileMode = 0600
	dirMode  = 0700
)

// ErrInvalidIdentity is returned when an identity file exists but cannot be used.
var ErrInvalidIdentity = errors.New("invalid identity file")

// ErrBadSignature is returned by Verify when a signature does not match.
var ErrBadSignature = errors.New("signature verification failed")

// Identity is the device keypair presented to the gateway on every connection.
type Identity struct {
	DeviceID   string
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// storedIdentity is the on-disk JSON shape.
type storedIdentity struct {
	DeviceID      string `json:"deviceId"`
	PublicKeyPem  string `json:"publicKeyPem"`
	PrivateKeyPem string `json:"privateKeyPem"`
}

// LoadOrCreate returns the identity persisted at path, generating and writing a
// new one when the file is missing or unusable. A write failure is returned
// because an identity that does not survive a restart cannot be trusted by the gateway.
func LoadOrCreate(path string) (*Identity, error) {
	logger := slog.Default().With("component", "identity")

	id, err := load(path)
	switch {
	case err == nil:
		derived := Fingerprint(id.PublicKey)
		if id.DeviceID != derived {
			logger.Warn("stored device id does not match key, rewriting", "stored", id.DeviceID, "derived", derived)
			id.DeviceID = derived
			if err := save(path, id); err != nil {
				return nil, err
			}
		}
		return id, nil
	case errors.Is(err, os.ErrNotExist):
		logger.Info("no device identity found, generating", "path", path)
	default:
		logger.Warn("device identity unusable, regenerating", "path", path, "error", err)
	}

	id, err = Generate()
	if err != nil {
		return nil, err
	}
	if err := save(path, id); err != nil {
		return nil, err
	}
	logger.Info("device identity created", "path", path, "device_id", id.DeviceID)
	return id, nil
}

// Generate creates a fresh identity without persisting it.
func Generate() (*Identity, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating ed25519 key: %w", err)
	}
	return &Identity{
		DeviceID:   Fingerprint(pub),
		PublicKey:  pub,
		PrivateKey: priv,
	}, nil
}

func load(path string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var stored storedIdentity
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	if stored.DeviceID == "" || stored.PublicKeyPem == "" || stored.PrivateKeyPem == "" {
		return nil, fmt.Errorf("%w: missing required field", ErrInvalidIdentity)
	}

	pub, err := parsePublicKeyPEM(stored.PublicKeyPem)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	priv, err := parsePrivateKeyPEM(stored.PrivateKeyPem)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	derivedPub, ok := priv.Public().(ed25519.PublicKey)
	if !ok || !derivedPub.Equal(pub) {
		return nil, fmt.Errorf("%w: private key does not match public key", ErrInvalidIdentity)
	}

	return &Identity{
		DeviceID:   stored.DeviceID,
		PublicKey:  pub,
		PrivateKey: priv,
	}, nil
}

func save(path string, id *Identity) error {
	pubDER, err := x509.MarshalPKIXPublicKey(id.PublicKey)
	if err != nil {
		return fmt.Errorf("encoding public key: %w", err)
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(id.PrivateKey)
	if err != nil {
		return fmt.Errorf("encoding private key: %w", err)
	}

	data, err := json.MarshalIndent(storedIdentity{
		DeviceID:      id.DeviceID,
		PublicKeyPem:  string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})),
		PrivateKeyPem: string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding identity: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return fmt.Errorf("creating identity directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), fileMode); err != nil {
		return fmt.Errorf("writing identity file: %w", err)
	}
	// WriteFile keeps the mode of an existing file, so tighten it explicitly.
	if err := os.Chmod(path, fileMode); err != nil {
		return fmt.Errorf("restricting identity file permissions: %w", err)
	}
	return nil
}

func parsePublicKeyPEM(s string) (ed25519.PublicKey, error) {
	block, _ := pem.Decode([]byte(strings.TrimSpace(s)))
	if block == nil {
		return nil, errors.New("no PEM block in public key")
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	pub, ok := key.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, want ed25519", key)
	}
	return pub, nil
}

func parsePrivateKeyPEM(s string) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode([]byte(strings.TrimSpace(s)))
	if block == nil {
		return nil, errors.New("no PEM block in private key")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is %T, want ed25519", key)
	}
	return priv, nil
}

// Fingerprint returns the lowercase hex SHA-256 of the raw public key bytes.
func Fingerprint(pub ed25519.PublicKey) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:])
}

// FingerprintPEM parses a PKIX public key PEM and fingerprints the raw key,
// so the result does not depend on PEM line wrapping or surrounding whitespace.
func FingerprintPEM(s string) (string, error) {
	pub, err := parsePublicKeyPEM(s)
	if err != nil {
		return "", err
	}
	return Fingerprint(pub), nil
}

// PublicKeyRaw returns the raw public key as URL-safe base64 without padding.
func (id *Identity) PublicKeyRaw() string {
	return base64.RawURLEncoding.EncodeToString(id.PublicKey)
}

// Sign signs the UTF-8 bytes of payload and returns URL-safe base64 without padding.
func (id *Identity) Sign(payload string) string {
	sig := ed25519.Sign(id.PrivateKey, []byte(payload))
	return base64.RawURLEncoding.EncodeToString(sig)
}

// AuthorizedKey renders the public key in OpenSSH authorized_keys form.
func (id *Identity) AuthorizedKey() (string, error) {
	sshPub, err := ssh.NewPublicKey(id.PublicKey)
	if err != nil {
		return "", fmt.Errorf("converting to ssh key: %w", err)
	}
	return strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub))), nil
}

// Verify checks a signature produced by Sign against a raw base64url public key.
func Verify(publicKeyRaw, payload, signature string) error {
	pub, err := base64.RawURLEncoding.DecodeString(publicKeyRaw)
	if err != nil {
		return fmt.Errorf("decoding public key: %w", err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("public key has %d bytes, want %d", len(pub), ed25519.PublicKeySize)
	}
	sig, err := base64.RawURLEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("decoding signature: %w", err)
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), []byte(payload), sig) {
		return ErrBadSignature
	}
	return nil
}
