package platform

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/chaosctl/chaos/internal/toolchain"
)

// OSRelease contains parsed values from /etc/os-release.
type OSRelease struct {
	ID              string   // Canonical distro identifier (e.g., "ubuntu", "fedora")
	IDLike          []string // Parent/similar distros (e.g., ["debian"] for Ubuntu)
	Name            string   // Human-readable name (e.g., "Ubuntu")
	VersionID       string   // Version number (e.g., "22.04")
	VersionCodename string   // Codename (e.g., "jammy")
}

// Linux families. Each corresponds to a native package manager ecosystem.
const (
	FamilyDebian = "debian"
	FamilyRHEL   = "rhel"
	FamilyArch   = "arch"
)

// distroToFamily maps distro IDs to families.
var distroToFamily = map[string]string{
	// Debian family (apt)
	"debian": FamilyDebian, "ubuntu": FamilyDebian, "linuxmint": FamilyDebian,
	"pop": FamilyDebian, "elementary": FamilyDebian, "zorin": FamilyDebian,
	// RHEL family (dnf)
	"fedora": FamilyRHEL, "rhel": FamilyRHEL, "centos": FamilyRHEL,
	"rocky": FamilyRHEL, "almalinux": FamilyRHEL, "ol": FamilyRHEL,
	// Arch family (pacman)
	"arch": FamilyArch, "manjaro": FamilyArch, "endeavouros": FamilyArch,
}

// familyDistro is the distro a family's derivatives are recorded as.
var familyDistro = map[string]toolchain.Distro{
	FamilyDebian: toolchain.Debian,
	FamilyRHEL:   toolchain.Fedora,
	FamilyArch:   toolchain.Arch,
}

// familyManager is the native package manager of each family.
var familyManager = map[string]toolchain.PackageManager{
	FamilyDebian: toolchain.APT,
	FamilyRHEL:   toolchain.DNF,
	FamilyArch:   toolchain.Pacman,
}

// ParseOSRelease parses the /etc/os-release file format.
func ParseOSRelease(path string) (*OSRelease, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	release := &OSRelease{}
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		value = strings.Trim(value, `"'`)

		switch key {
		case "ID":
			release.ID = strings.ToLower(value)
		case "ID_LIKE":
			release.IDLike = strings.Fields(strings.ToLower(value))
		case "NAME":
			release.Name = value
		case "VERSION_ID":
			release.VersionID = value
		case "VERSION_CODENAME":
			release.VersionCodename = value
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return release, nil
}

// MapDistroToFamily maps a distro ID to its family.
// Falls back to the ID_LIKE chain if ID is not directly recognized.
func MapDistroToFamily(id string, idLike []string) (string, error) {
	if family, ok := distroToFamily[id]; ok {
		return family, nil
	}
	for _, like := range idLike {
		if family, ok := distroToFamily[like]; ok {
			return family, nil
		}
	}
	return "", fmt.Errorf("unknown distro: %s", id)
}

// Distro maps the release onto a supported distro. Recognized derivatives
// (Mint, Rocky, Manjaro, ...) map to their family's representative.
func (r *OSRelease) Distro() (toolchain.Distro, error) {
	if d, err := toolchain.ParseDistro(r.ID); err == nil {
		return d, nil
	}
	family, err := MapDistroToFamily(r.ID, r.IDLike)
	if err != nil {
		return "", err
	}
	// Ubuntu derivatives (Mint, Pop!_OS) list ubuntu first in ID_LIKE.
	for _, like := range r.IDLike {
		if d, err := toolchain.ParseDistro(like); err == nil {
			return d, nil
		}
	}
	return familyDistro[family], nil
}
