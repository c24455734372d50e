package cmakedist

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/ProtonMail/gopenpgp/v2/crypto"
	"github.com/stretchr/testify/require"
)

var (
	signerOnce sync.Once
	signer     *crypto.Key
	signerErr  error
)

func testSigner(t *testing.T) *crypto.Key {
	t.Helper()
	signerOnce.Do(func() {
		signer, signerErr = crypto.GenerateKey("CMake Release Test", "release@example.com", "rsa", 2048)
	})
	require.NoError(t, signerErr)
	return signer
}

func sign(t *testing.T, key *crypto.Key, data []byte) []byte {
	t.Helper()
	ring, err := crypto.NewKeyRing(key)
	require.NoError(t, err)
	sig, err := ring.SignDetached(crypto.NewPlainMessage(data))
	require.NoError(t, err)
	armored, err := sig.GetArmored()
	require.NoError(t, err)
	return []byte(armored)
}

// keyServer serves armored public keys by fingerprint and counts requests.
func keyServer(t *testing.T, keys ...*crypto.Key) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	byFP := make(map[string]string)
	for _, k := range keys {
		armored, err := k.GetArmoredPublicKey()
		require.NoError(t, err)
		byFP[strings.ToUpper(k.GetFingerprint())] = armored
	}
	hits := new(atomic.Int32)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		armored, ok := byFP[strings.TrimPrefix(r.URL.Path, "/by-fingerprint/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(armored))
	}))
	t.Cleanup(srv.Close)
	return srv, hits
}

func TestParseFingerprint(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "cba23971357c2e6590d9efd3ec8fef3a7bfb4eda", want: "CBA23971357C2E6590D9EFD3EC8FEF3A7BFB4EDA"},
		{in: "CBA2 3971 357C 2E65 90D9  EFD3 EC8F EF3A 7BFB 4EDA", want: "CBA23971357C2E6590D9EFD3EC8FEF3A7BFB4EDA"},
		{in: "CBA23971", wantErr: true},
		{in: "ZZA23971357C2E6590D9EFD3EC8FEF3A7BFB4EDA", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFingerprint(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestFormatFingerprint(t *testing.T) {
	require.Equal(t, "CBA2 3971 357C 2E65 90D9 EFD3 EC8F EF3A 7BFB 4EDA",
		FormatFingerprint("cba23971357c2e6590d9efd3ec8fef3a7bfb4eda"))
	require.Equal(t, "SHORT", FormatFingerprint("short"))
}

func TestKeyRingFetchesAndCaches(t *testing.T) {
	key := testSigner(t)
	srv, hits := keyServer(t, key)
	cache := t.TempDir()

	ring, err := NewKeyRing(srv.Client(), key.GetFingerprint(), srv.URL+"/by-fingerprint/", cache)
	require.NoError(t, err)
	got, err := ring.Key(context.Background())
	require.NoError(t, err)
	require.Equal(t, strings.ToUpper(key.GetFingerprint()), strings.ToUpper(got.GetFingerprint()))
	require.FileExists(t, filepath.Join(cache, ring.Fingerprint()+".asc"))
	require.EqualValues(t, 1, hits.Load())

	// A fresh ring reads the cache instead of the server.
	ring, err = NewKeyRing(srv.Client(), key.GetFingerprint(), srv.URL+"/by-fingerprint/", cache)
	require.NoError(t, err)
	_, err = ring.Key(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, hits.Load())
}

func TestKeyRingRejectsOtherKey(t *testing.T) {
	key := testSigner(t)
	armored, err := key.GetArmoredPublicKey()
	require.NoError(t, err)

	wanted := strings.Repeat("AB", 20)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(armored))
	}))
	t.Cleanup(srv.Close)

	ring, err := NewKeyRing(srv.Client(), wanted, srv.URL+"/", t.TempDir())
	require.NoError(t, err)
	_, err = ring.Key(context.Background())
	require.ErrorContains(t, err, "fingerprint mismatch")
}

func TestKeyRingCorruptCacheIsRefetched(t *testing.T) {
	key := testSigner(t)
	srv, hits := keyServer(t, key)
	cache := t.TempDir()

	ring, err := NewKeyRing(srv.Client(), key.GetFingerprint(), srv.URL+"/by-fingerprint/", cache)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(cache, ring.Fingerprint()+".asc"), []byte("garbage"), 0600))

	_, err = ring.Key(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, hits.Load())
}

func signedFetcher(t *testing.T, site *fakeSite) *Fetcher {
	t.Helper()
	key := testSigner(t)
	srv, _ := keyServer(t, key)
	ring, err := NewKeyRing(srv.Client(), key.GetFingerprint(), srv.URL+"/by-fingerprint/", t.TempDir())
	require.NoError(t, err)
	return newTestFetcher(t, site, "linux", "amd64", WithKeyRing(ring))
}

func TestDownloadVerifiesChecksumSignature(t *testing.T) {
	site := newFakeSite(t)
	sums := "v3.28/cmake-3.28.1-SHA-256.txt"
	site.files[sums+".asc"] = sign(t, testSigner(t), site.files[sums])
	f := signedFetcher(t, site)

	insts, err := f.Installers(context.Background(), semver.MustParse("3.28"))
	require.NoError(t, err)
	require.Len(t, insts, 1)
	require.True(t, strings.HasSuffix(insts[0].SignatureURL, "cmake-3.28.1-SHA-256.txt.asc"))

	bin, err := f.Download(context.Background(), insts[0], t.TempDir())
	require.NoError(t, err)
	require.True(t, bin.Downloaded)
}

func TestDownloadRejectsBadSignature(t *testing.T) {
	site := newFakeSite(t)
	sums := "v3.28/cmake-3.28.1-SHA-256.txt"
	site.files[sums+".asc"] = sign(t, testSigner(t), []byte("different content"))
	f := signedFetcher(t, site)
	dir := t.TempDir()

	insts, err := f.Installers(context.Background(), semver.MustParse("3.28"))
	require.NoError(t, err)

	_, err = f.Download(context.Background(), insts[0], dir)
	var sigErr *SignatureError
	require.True(t, errors.As(err, &sigErr), "got %v", err)
	require.Equal(t, "cmake-3.28.1-SHA-256.txt", sigErr.File)
	require.NoDirExists(t, filepath.Join(dir, insts[0].Folder()))
}

func TestDownloadRequiresSignatureWhenKeyed(t *testing.T) {
	f := signedFetcher(t, newFakeSite(t))

	insts, err := f.Installers(context.Background(), semver.MustParse("3.27"))
	require.NoError(t, err)
	require.Empty(t, insts[1].SignatureURL)

	_, err = f.Download(context.Background(), insts[1], t.TempDir())
	var sigErr *SignatureError
	require.True(t, errors.As(err, &sigErr), "got %v", err)
	require.ErrorContains(t, err, "no signed checksum")
}
