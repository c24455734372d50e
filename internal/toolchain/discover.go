package toolchain

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Host is the part of a profile fixed by the machine chaos runs on.
type Host struct {
	Architecture   Architecture
	Distro         Distro
	PackageManager PackageManager
}

// ProfilesFor expands one compiler into a profile per build type on host.
func ProfilesFor(c Compiler, host Host, buildTypes []BuildType) []Profile {
	profiles := make([]Profile, 0, len(buildTypes))
	for _, bt := range buildTypes {
		profiles = append(profiles, Profile{
			Architecture:   host.Architecture,
			Compiler:       c,
			BuildType:      bt,
			Distro:         host.Distro,
			PackageManager: host.PackageManager,
		})
	}
	return profiles
}

// Discoverer finds compilers installed on the host.
type Discoverer struct {
	// LookPath resolves a binary on PATH (exec.LookPath in production).
	LookPath func(file string) (string, error)
	// DumpVersion returns the version printed by "<compiler> -dumpversion".
	// When nil, unversioned gcc/clang binaries are ignored.
	DumpVersion func(path string) (string, error)
	// GCCVersions and ClangVersions are the majors probed as gcc-N / clang-N.
	GCCVersions   []int
	ClangVersions []int
}

// DefaultGCCVersions and DefaultClangVersions are the majors probed by default.
var (
	DefaultGCCVersions   = []int{9, 10, 11, 12, 13, 14, 15}
	DefaultClangVersions = []int{13, 14, 15, 16, 17, 18, 19, 20}
)

// Discover returns every compiler found, sorted and de-duplicated.
// A versioned compiler counts only when its C++ driver is present too.
func (d Discoverer) Discover() []Compiler {
	seen := make(map[Compiler]bool)
	var found []Compiler

	add := func(c Compiler) {
		if !seen[c] {
			seen[c] = true
			found = append(found, c)
		}
	}

	probe := func(kind CompilerKind, cc, cxx string, major int) {
		if _, err := d.LookPath(fmt.Sprintf("%s-%d", cc, major)); err != nil {
			return
		}
		if _, err := d.LookPath(fmt.Sprintf("%s-%d", cxx, major)); err != nil {
			return
		}
		if c, err := NewCompiler(kind, fmt.Sprint(major)); err == nil {
			add(c)
		}
	}

	gccVersions := d.GCCVersions
	if gccVersions == nil {
		gccVersions = DefaultGCCVersions
	}
	clangVersions := d.ClangVersions
	if clangVersions == nil {
		clangVersions = DefaultClangVersions
	}
	for _, v := range gccVersions {
		probe(GCC, "gcc", "g++", v)
	}
	for _, v := range clangVersions {
		probe(Clang, "clang", "clang++", v)
	}

	if d.DumpVersion != nil {
		for _, u := range []struct {
			kind CompilerKind
			bin  string
		}{{GCC, "gcc"}, {Clang, "clang"}} {
			path, err := d.LookPath(u.bin)
			if err != nil {
				continue
			}
			version, err := d.DumpVersion(path)
			if err != nil {
				continue
			}
			// -dumpversion prints "14" or "14.2.0"; keep the major only so
			// the result lines up with the versioned probes above.
			major, _, _ := strings.Cut(strings.TrimSpace(version), ".")
			if c, err := NewCompiler(u.kind, major); err == nil {
				add(c)
			}
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Less(found[j]) })
	return found
}

// ScanProfiles parses every *.conanprofile file name in dir.
// Names that do not parse are returned as errors alongside the valid profiles.
func ScanProfiles(dir string) ([]Profile, []error, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read profiles directory: %w", err)
	}

	var profiles []Profile
	var invalid []error
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".conanprofile" {
			continue
		}
		p, err := ParseFileName(e.Name())
		if err != nil {
			invalid = append(invalid, err)
			continue
		}
		profiles = append(profiles, p)
	}
	return profiles, invalid, nil
}
