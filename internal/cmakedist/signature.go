package cmakedist

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/gopenpgp/v2/crypto"

	"github.com/chaosctl/chaos/internal/httputil"
)

const (
	// DefaultKeyServer serves armored public keys by fingerprint.
	DefaultKeyServer = "https://keys.openpgp.org/vks/v1/by-fingerprint/"

	maxKeySize       = 100 * 1024
	maxSignatureSize = 10 * 1024
)

// SignatureError reports a checksum file whose detached signature does not
// verify against the configured signing key.
type SignatureError struct {
	File        string
	Fingerprint string
	Err         error
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("signature of %s does not verify against key %s: %v", e.File, FormatFingerprint(e.Fingerprint), e.Err)
}

func (e *SignatureError) Unwrap() error { return e.Err }

// ParseFingerprint strips spaces, upper-cases fp and checks that it is a
// 40 character hex string.
func ParseFingerprint(fp string) (string, error) {
	fp = strings.ToUpper(strings.ReplaceAll(fp, " ", ""))
	if len(fp) != 40 {
		return "", fmt.Errorf("fingerprint must be 40 hex characters, got %d", len(fp))
	}
	if _, err := hex.DecodeString(fp); err != nil {
		return "", fmt.Errorf("fingerprint contains invalid hex characters: %w", err)
	}
	return fp, nil
}

// FormatFingerprint groups a fingerprint in blocks of four.
func FormatFingerprint(fp string) string {
	fp = strings.ToUpper(strings.ReplaceAll(fp, " ", ""))
	if len(fp) != 40 {
		return fp
	}
	parts := make([]string, 0, 10)
	for i := 0; i < 40; i += 4 {
		parts = append(parts, fp[i:i+4])
	}
	return strings.Join(parts, " ")
}

// KeyRing fetches one release signing key on first use and caches it on disk.
type KeyRing struct {
	client      *http.Client
	fingerprint string
	keyServer   string
	cacheDir    string

	key *crypto.Key
}

// NewKeyRing returns a KeyRing for fingerprint. Keys are looked up at
// keyServer+fingerprint and cached as <cacheDir>/<fingerprint>.asc.
func NewKeyRing(client *http.Client, fingerprint, keyServer, cacheDir string) (*KeyRing, error) {
	fp, err := ParseFingerprint(fingerprint)
	if err != nil {
		return nil, err
	}
	if keyServer == "" {
		keyServer = DefaultKeyServer
	}
	return &KeyRing{client: client, fingerprint: fp, keyServer: keyServer, cacheDir: cacheDir}, nil
}

// Fingerprint returns the normalized fingerprint.
func (k *KeyRing) Fingerprint() string { return k.fingerprint }

// Key returns the signing key from the cache or the key server.
func (k *KeyRing) Key(ctx context.Context) (*crypto.Key, error) {
	if k.key != nil {
		return k.key, nil
	}
	if key, err := k.loadCached(); err == nil {
		k.key = key
		return key, nil
	}

	armored, err := k.download(ctx)
	if err != nil {
		return nil, err
	}
	key, err := k.parse(armored)
	if err != nil {
		return nil, err
	}
	// The key is usable even when it cannot be cached.
	_ = k.saveCached(armored)
	k.key = key
	return key, nil
}

func (k *KeyRing) cachePath() string {
	return filepath.Join(k.cacheDir, k.fingerprint+".asc")
}

func (k *KeyRing) loadCached() (*crypto.Key, error) {
	data, err := os.ReadFile(k.cachePath())
	if err != nil {
		return nil, err
	}
	key, err := k.parse(string(data))
	if err != nil {
		os.Remove(k.cachePath())
		return nil, err
	}
	return key, nil
}

func (k *KeyRing) saveCached(armored string) error {
	if err := os.MkdirAll(k.cacheDir, 0700); err != nil {
		return err
	}
	return os.WriteFile(k.cachePath(), []byte(armored), 0600)
}

func (k *KeyRing) download(ctx context.Context) (string, error) {
	data, err := getLimited(ctx, k.client, k.keyServer+k.fingerprint, maxKeySize)
	if err != nil {
		return "", fmt.Errorf("failed to fetch signing key %s: %w", FormatFingerprint(k.fingerprint), err)
	}
	return string(data), nil
}

// parse decodes an armored key and checks it is the expected one.
func (k *KeyRing) parse(armored string) (*crypto.Key, error) {
	key, err := crypto.NewKeyFromArmored(armored)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}
	if got := strings.ToUpper(key.GetFingerprint()); got != k.fingerprint {
		return nil, fmt.Errorf("signing key fingerprint mismatch: expected %s, got %s", k.fingerprint, got)
	}
	return key, nil
}

// Verify checks a detached signature, armored or binary, over data.
func (k *KeyRing) Verify(ctx context.Context, data, signature []byte) error {
	key, err := k.Key(ctx)
	if err != nil {
		return err
	}
	sig, err := crypto.NewPGPSignatureFromArmored(string(signature))
	if err != nil {
		sig = crypto.NewPGPSignature(signature)
	}
	ring, err := crypto.NewKeyRing(key)
	if err != nil {
		return fmt.Errorf("failed to create keyring: %w", err)
	}
	// Zero verify time accepts signatures made by since-expired keys.
	return ring.VerifyDetached(crypto.NewPlainMessage(data), sig, 0)
}

func getLimited(ctx context.Context, client *http.Client, url string, limit int64) ([]byte, error) {
	resp, err := httputil.Get(ctx, client, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s exceeds %d bytes", url, limit)
	}
	return data, nil
}
