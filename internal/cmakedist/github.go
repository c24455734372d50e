package cmakedist

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// Release sources.
const (
	SourceCMakeOrg = "cmake.org"
	SourceGitHub   = "github"
)

// Kitware mirrors every CMake release, checksum file and signature as
// GitHub release assets.
const (
	GitHubOwner = "Kitware"
	GitHubRepo  = "CMake"
)

// ParseSource validates a release source name.
func ParseSource(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", SourceCMakeOrg:
		return SourceCMakeOrg, nil
	case SourceGitHub:
		return SourceGitHub, nil
	}
	return "", fmt.Errorf("unknown release source %q (valid: %s, %s)", s, SourceCMakeOrg, SourceGitHub)
}

// NewGitHubClient returns a GitHub API client on top of httpClient.
// A non-empty token authenticates requests, which raises the rate limit.
func NewGitHubClient(httpClient *http.Client, token string) *github.Client {
	if token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}
	return github.NewClient(httpClient)
}

// RateLimitError reports an exhausted GitHub API quota.
type RateLimitError struct {
	Authenticated bool
	Err           error
}

func (e *RateLimitError) Error() string {
	if e.Authenticated {
		return fmt.Sprintf("GitHub API rate limit exceeded: %v", e.Err)
	}
	return fmt.Sprintf("GitHub API rate limit exceeded (set GITHUB_TOKEN for a higher limit): %v", e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// githubInstallers lists the host's installers of every release >= min,
// ascending.
func (f *Fetcher) githubInstallers(ctx context.Context, min *semver.Version) ([]Installer, error) {
	opts := &github.ListOptions{PerPage: 100}
	var out []Installer
	for {
		releases, resp, err := f.github.Repositories.ListReleases(ctx, GitHubOwner, GitHubRepo, opts)
		if err != nil {
			var rl *github.RateLimitError
			if errors.As(err, &rl) {
				return nil, &RateLimitError{Authenticated: f.githubAuthenticated, Err: err}
			}
			return nil, fmt.Errorf("failed to list %s/%s releases: %w", GitHubOwner, GitHubRepo, err)
		}
		for _, rel := range releases {
			if rel.GetDraft() {
				continue
			}
			v, err := semver.NewVersion(strings.TrimPrefix(rel.GetTagName(), "v"))
			if err != nil || v.LessThan(min) || (v.Prerelease() != "" && !f.prereleases) {
				continue
			}
			if inst, ok := f.releaseInstaller(v, rel.Assets); ok {
				out = append(out, inst)
			}
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Version.LessThan(out[b].Version) })
	return out, nil
}

// releaseInstaller picks the host archive among a release's assets.
func (f *Fetcher) releaseInstaller(v *semver.Version, assets []*github.ReleaseAsset) (Installer, bool) {
	urls := make(map[string]string, len(assets))
	for _, a := range assets {
		urls[a.GetName()] = a.GetBrowserDownloadURL()
	}
	prefix := "cmake-" + v.Original()
	for _, suffix := range hostSuffixes[f.goos+"/"+f.goarch] {
		name := prefix + "-" + suffix
		if u, ok := urls[name]; ok {
			return Installer{
				Version:      v,
				FileName:     name,
				URL:          u,
				ChecksumURL:  urls[prefix+"-SHA-256.txt"],
				SignatureURL: urls[prefix+"-SHA-256.txt.asc"],
			}, true
		}
	}
	return Installer{}, false
}

// keepLatestPatch keeps the newest installer of each MAJOR.MINOR series.
// installers must be sorted ascending.
func keepLatestPatch(installers []Installer) []Installer {
	var out []Installer
	for i, inst := range installers {
		if i+1 < len(installers) {
			next := installers[i+1].Version
			if next.Major() == inst.Version.Major() && next.Minor() == inst.Version.Minor() {
				continue
			}
		}
		out = append(out, inst)
	}
	return out
}
