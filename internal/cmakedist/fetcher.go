package cmakedist

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/google/go-github/v57/github"

	"github.com/chaosctl/chaos/internal/httputil"
	"github.com/chaosctl/chaos/internal/log"
	"github.com/chaosctl/chaos/internal/progress"
)

const maxChecksumSize = 1 << 20

// Binary is an extracted CMake release.
type Binary struct {
	Version    *semver.Version
	Path       string // the cmake executable
	Downloaded bool   // false when the release was already on disk
}

// ChecksumError reports an archive whose SHA-256 does not match the
// release's published checksum.
type ChecksumError struct {
	File     string
	Expected string
	Actual   string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: expected %s, got %s", e.File, e.Expected, e.Actual)
}

// Fetcher talks to a cmake.org style file tree.
type Fetcher struct {
	client      *http.Client
	baseURL     string
	goos        string
	goarch      string
	prereleases bool
	progressOut io.Writer
	keys        *KeyRing
	logger      log.Logger

	github              *github.Client
	githubAuthenticated bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithBaseURL points the fetcher at a mirror. The URL must end in "/".
func WithBaseURL(u string) Option {
	return func(f *Fetcher) {
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		f.baseURL = u
	}
}

// WithHost selects installers for goos/goarch instead of the running host.
func WithHost(goos, goarch string) Option {
	return func(f *Fetcher) { f.goos, f.goarch = goos, goarch }
}

// WithPrereleases includes release candidates.
func WithPrereleases(include bool) Option {
	return func(f *Fetcher) { f.prereleases = include }
}

// WithProgress renders download bars on w when stdout is a terminal.
func WithProgress(w io.Writer) Option {
	return func(f *Fetcher) { f.progressOut = w }
}

// WithKeyRing requires every checksum file to carry a detached signature
// made by the key ring's key.
func WithKeyRing(k *KeyRing) Option {
	return func(f *Fetcher) { f.keys = k }
}

// WithGitHub lists releases through the GitHub API instead of walking the
// cmake.org file tree.
func WithGitHub(client *github.Client, authenticated bool) Option {
	return func(f *Fetcher) { f.github, f.githubAuthenticated = client, authenticated }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// NewFetcher returns a Fetcher using client for all requests.
func NewFetcher(client *http.Client, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  client,
		baseURL: DefaultBaseURL,
		goos:    runtime.GOOS,
		goarch:  runtime.GOARCH,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = log.OrDefault(f.logger)
	return f
}

// ExecutablePath is where inst's cmake binary lands under dir.
func (f *Fetcher) ExecutablePath(dir string, inst Installer) string {
	root := filepath.Join(dir, inst.Folder())
	switch f.goos {
	case "darwin":
		return filepath.Join(root, "CMake.app", "Contents", "bin", "cmake")
	case "windows":
		return filepath.Join(root, "bin", "cmake.exe")
	}
	return filepath.Join(root, "bin", "cmake")
}

// Download fetches inst, verifies its checksum when one is published and
// extracts it into dir. An already extracted release is not downloaded again.
func (f *Fetcher) Download(ctx context.Context, inst Installer, dir string) (Binary, error) {
	exe := f.ExecutablePath(dir, inst)
	if _, err := os.Stat(exe); err == nil {
		f.logger.Debug("cmake release already present", "version", inst.Version, "path", exe)
		return Binary{Version: inst.Version, Path: exe}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return Binary{}, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return Binary{}, fmt.Errorf("failed to create temporary file: %w", err)
	}
	archivePath := tmp.Name()
	defer os.Remove(archivePath)

	f.logger.Info("downloading cmake", "version", inst.Version, "url", inst.URL)
	sum, err := f.fetch(ctx, inst, tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return Binary{}, err
	}

	if inst.ChecksumURL != "" || f.keys != nil {
		expected, err := f.expectedChecksum(ctx, inst)
		if err != nil {
			return Binary{}, err
		}
		if !strings.EqualFold(expected, sum) {
			return Binary{}, &ChecksumError{File: inst.FileName, Expected: expected, Actual: sum}
		}
		f.logger.Debug("checksum verified", "file", inst.FileName)
	} else {
		f.logger.Warn("no published checksum, skipping verification", "file", inst.FileName)
	}

	if err := extract(archivePath, inst.FileName, dir); err != nil {
		return Binary{}, fmt.Errorf("failed to extract %s: %w", inst.FileName, err)
	}
	if _, err := os.Stat(exe); err != nil {
		return Binary{}, fmt.Errorf("%s does not contain %s", inst.FileName, filepath.Base(exe))
	}
	return Binary{Version: inst.Version, Path: exe, Downloaded: true}, nil
}

// fetch streams inst into w and returns the hex SHA-256 of the bytes written.
func (f *Fetcher) fetch(ctx context.Context, inst Installer, w io.Writer) (string, error) {
	resp, err := httputil.Get(ctx, f.client, inst.URL)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", inst.FileName, err)
	}
	defer resp.Body.Close()

	h := sha256.New()
	dst := io.MultiWriter(w, h)
	if f.progressOut != nil && progress.ShouldShowProgress() {
		pw := progress.NewWriter(dst, resp.ContentLength, inst.FileName, f.progressOut)
		defer pw.Finish()
		dst = pw
	}
	if _, err := io.Copy(dst, resp.Body); err != nil {
		return "", fmt.Errorf("failed to download %s: %w", inst.FileName, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (f *Fetcher) expectedChecksum(ctx context.Context, inst Installer) (string, error) {
	if f.keys != nil && (inst.ChecksumURL == "" || inst.SignatureURL == "") {
		return "", &SignatureError{File: inst.FileName, Fingerprint: f.keys.Fingerprint(), Err: errors.New("release publishes no signed checksum file")}
	}
	data, err := getLimited(ctx, f.client, inst.ChecksumURL, maxChecksumSize)
	if err != nil {
		return "", fmt.Errorf("failed to download checksums: %w", err)
	}

	if f.keys != nil {
		sig, err := getLimited(ctx, f.client, inst.SignatureURL, maxSignatureSize)
		if err != nil {
			return "", fmt.Errorf("failed to download checksum signature: %w", err)
		}
		if err := f.keys.Verify(ctx, data, sig); err != nil {
			return "", &SignatureError{File: path.Base(inst.ChecksumURL), Fingerprint: f.keys.Fingerprint(), Err: err}
		}
		f.logger.Debug("checksum signature verified", "file", path.Base(inst.ChecksumURL))
	}

	sums, err := parseChecksums(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	sum, ok := sums[inst.FileName]
	if !ok {
		return "", fmt.Errorf("checksum file does not list %s", inst.FileName)
	}
	return sum, nil
}

// parseChecksums reads "<sha256>  <file>" lines.
func parseChecksums(r io.Reader) (map[string]string, error) {
	sums := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 || len(fields[0]) != sha256.Size*2 {
			continue
		}
		sums[strings.TrimPrefix(fields[1], "*")] = strings.ToLower(fields[0])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read checksums: %w", err)
	}
	return sums, nil
}

// Fetch downloads every host release >= min into dir.
func (f *Fetcher) Fetch(ctx context.Context, min *semver.Version, latestPatchOnly bool, dir string) ([]Binary, error) {
	plan, err := f.Plan(ctx, min, latestPatchOnly)
	if err != nil {
		return nil, err
	}
	var binaries []Binary
	for i, inst := range plan {
		f.logger.Info(fmt.Sprintf("Step %d/%d: CMake %s", i+1, len(plan), inst.Version))
		b, err := f.Download(ctx, inst, dir)
		if err != nil {
			return binaries, err
		}
		binaries = append(binaries, b)
	}
	return binaries, nil
}
