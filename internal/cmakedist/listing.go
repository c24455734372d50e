// Package cmakedist lists, downloads and unpacks prebuilt CMake releases
// from cmake.org or the Kitware/CMake GitHub releases.
package cmakedist

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/net/html"

	"github.com/chaosctl/chaos/internal/httputil"
)

// DefaultBaseURL is the root of the cmake.org file tree.
const DefaultBaseURL = "https://cmake.org/files/"

var (
	seriesPattern    = regexp.MustCompile(`^v(\d+)\.(\d+)/$`)
	installerPattern = regexp.MustCompile(`^cmake-(\d+\.\d+\.\d+(?:-rc\d+)?)-(.+)$`)
	checksumPattern  = regexp.MustCompile(`^cmake-(\d+\.\d+\.\d+(?:-rc\d+)?)-SHA-256\.txt$`)
	signaturePattern = regexp.MustCompile(`^cmake-(\d+\.\d+\.\d+(?:-rc\d+)?)-SHA-256\.txt\.asc$`)
)

// Installer is one downloadable binary archive.
type Installer struct {
	Version      *semver.Version
	FileName     string
	URL          string
	ChecksumURL  string // empty when the release publishes no SHA-256 file
	SignatureURL string // detached signature of the SHA-256 file, if published
}

// Folder is the top-level directory inside the archive.
func (i Installer) Folder() string {
	for _, ext := range []string{".tar.gz", ".tar.xz", ".zip"} {
		if strings.HasSuffix(i.FileName, ext) {
			return strings.TrimSuffix(i.FileName, ext)
		}
	}
	return i.FileName
}

// hostSuffixes lists installer name suffixes per GOOS/GOARCH in preference
// order. Older releases used different platform spellings.
var hostSuffixes = map[string][]string{
	"linux/amd64":   {"linux-x86_64.tar.gz", "Linux-x86_64.tar.gz"},
	"linux/arm64":   {"linux-aarch64.tar.gz"},
	"darwin/amd64":  {"macos-universal.tar.gz", "Darwin-x86_64.tar.gz", "Darwin64-universal.tar.gz"},
	"darwin/arm64":  {"macos-universal.tar.gz"},
	"windows/amd64": {"windows-x86_64.zip", "win64-x64.zip"},
	"windows/arm64": {"windows-arm64.zip"},
}

// HostSupported reports whether cmake.org ships binaries for goos/goarch.
func HostSupported(goos, goarch string) bool {
	_, ok := hostSuffixes[goos+"/"+goarch]
	return ok
}

// links returns the href targets of all anchors in an HTML document.
func links(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing: %w", err)
	}
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					out = append(out, attr.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out, nil
}

func (f *Fetcher) listing(ctx context.Context, url string) ([]string, error) {
	resp, err := httputil.Get(ctx, f.client, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return links(resp.Body)
}

// Series lists the release series (vMAJOR.MINOR directories) in ascending order.
func (f *Fetcher) Series(ctx context.Context) ([]*semver.Version, error) {
	hrefs, err := f.listing(ctx, f.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list CMake releases: %w", err)
	}
	var series []*semver.Version
	seen := make(map[string]bool)
	for _, href := range hrefs {
		m := seriesPattern.FindStringSubmatch(href)
		if m == nil || seen[href] {
			continue
		}
		seen[href] = true
		v, err := semver.NewVersion(m[1] + "." + m[2])
		if err != nil {
			continue
		}
		series = append(series, v)
	}
	sort.Sort(semver.Collection(series))
	return series, nil
}

func seriesDir(v *semver.Version) string {
	return fmt.Sprintf("v%d.%d/", v.Major(), v.Minor())
}

// Installers lists the host's installers of one series in ascending
// version order. Pre-releases are skipped unless the fetcher includes them.
func (f *Fetcher) Installers(ctx context.Context, series *semver.Version) ([]Installer, error) {
	dir := f.baseURL + seriesDir(series)
	hrefs, err := f.listing(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list CMake %d.%d: %w", series.Major(), series.Minor(), err)
	}

	checksums := make(map[string]string)
	signatures := make(map[string]string)
	for _, href := range hrefs {
		if m := checksumPattern.FindStringSubmatch(href); m != nil {
			checksums[m[1]] = dir + href
		}
		if m := signaturePattern.FindStringSubmatch(href); m != nil {
			signatures[m[1]] = dir + href
		}
	}

	// The first suffix with any match wins so one release is not offered
	// under two platform spellings.
	for _, suffix := range hostSuffixes[f.goos+"/"+f.goarch] {
		var out []Installer
		seen := make(map[string]bool)
		for _, href := range hrefs {
			m := installerPattern.FindStringSubmatch(href)
			if m == nil || m[2] != suffix || seen[href] {
				continue
			}
			seen[href] = true
			v, err := semver.NewVersion(m[1])
			if err != nil || (v.Prerelease() != "" && !f.prereleases) {
				continue
			}
			out = append(out, Installer{
				Version:      v,
				FileName:     href,
				URL:          dir + href,
				ChecksumURL:  checksums[m[1]],
				SignatureURL: signatures[m[1]],
			})
		}
		if len(out) > 0 {
			sort.Slice(out, func(a, b int) bool { return out[a].Version.LessThan(out[b].Version) })
			return out, nil
		}
	}
	return nil, nil
}

// Plan lists the installers of every release >= min, one series at a time.
// With latestPatchOnly only the newest patch of each series is kept.
func (f *Fetcher) Plan(ctx context.Context, min *semver.Version, latestPatchOnly bool) ([]Installer, error) {
	if !HostSupported(f.goos, f.goarch) {
		return nil, fmt.Errorf("cmake.org publishes no binaries for %s/%s", f.goos, f.goarch)
	}
	if f.github != nil {
		plan, err := f.githubInstallers(ctx, min)
		if err != nil {
			return nil, err
		}
		if latestPatchOnly {
			plan = keepLatestPatch(plan)
		}
		return plan, nil
	}

	series, err := f.Series(ctx)
	if err != nil {
		return nil, err
	}
	floor := semver.New(min.Major(), min.Minor(), 0, "", "")

	var plan []Installer
	for _, s := range series {
		if s.LessThan(floor) {
			continue
		}
		installers, err := f.Installers(ctx, s)
		if err != nil {
			return nil, err
		}
		var kept []Installer
		for _, inst := range installers {
			if !inst.Version.LessThan(min) {
				kept = append(kept, inst)
			}
		}
		if len(kept) == 0 {
			f.logger.Debug("no host installers in series", "series", seriesDir(s))
			continue
		}
		if latestPatchOnly {
			kept = kept[len(kept)-1:]
		}
		plan = append(plan, kept...)
	}
	return plan, nil
}
