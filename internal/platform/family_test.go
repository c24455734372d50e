package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chaosctl/chaos/internal/toolchain"
)

func TestParseOSRelease(t *testing.T) {
	tests := []struct {
		name        string
		fixture     string
		wantID      string
		wantIDLike  []string
		wantName    string
		wantVersion string
	}{
		{"ubuntu", "ubuntu", "ubuntu", []string{"debian"}, "Ubuntu", "22.04"},
		{"debian", "debian", "debian", nil, "Debian GNU/Linux", "12"},
		{"fedora", "fedora", "fedora", nil, "Fedora Linux", "39"},
		{"arch", "arch", "arch", nil, "Arch Linux", ""},
		{"rocky", "rocky", "rocky", []string{"rhel", "centos", "fedora"}, "Rocky Linux", "9.3"},
		{"mint", "linuxmint", "linuxmint", []string{"ubuntu", "debian"}, "Linux Mint", "21.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			release, err := ParseOSRelease(filepath.Join("testdata", "os-release", tt.fixture))
			if err != nil {
				t.Fatalf("ParseOSRelease() error = %v", err)
			}

			if release.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", release.ID, tt.wantID)
			}
			if release.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", release.Name, tt.wantName)
			}
			if len(release.IDLike) != len(tt.wantIDLike) {
				t.Fatalf("IDLike = %v, want %v", release.IDLike, tt.wantIDLike)
			}
			for i, like := range tt.wantIDLike {
				if release.IDLike[i] != like {
					t.Errorf("IDLike[%d] = %q, want %q", i, release.IDLike[i], like)
				}
			}
			if release.VersionID != tt.wantVersion {
				t.Errorf("VersionID = %q, want %q", release.VersionID, tt.wantVersion)
			}
		})
	}
}

func TestParseOSRelease_Missing(t *testing.T) {
	_, err := ParseOSRelease(filepath.Join(t.TempDir(), "nope"))
	if !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestParseOSRelease_Comments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "os-release")
	content := "# comment\n\nID='Ubuntu'\nNOT_A_PAIR\nVERSION_ID=\"24.04\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	release, err := ParseOSRelease(path)
	if err != nil {
		t.Fatalf("ParseOSRelease() error = %v", err)
	}
	if release.ID != "ubuntu" {
		t.Errorf("ID = %q, want lowercased %q", release.ID, "ubuntu")
	}
	if release.VersionID != "24.04" {
		t.Errorf("VersionID = %q, want %q", release.VersionID, "24.04")
	}
}

func TestMapDistroToFamily(t *testing.T) {
	tests := []struct {
		id      string
		idLike  []string
		want    string
		wantErr bool
	}{
		{"ubuntu", nil, FamilyDebian, false},
		{"fedora", nil, FamilyRHEL, false},
		{"manjaro", nil, FamilyArch, false},
		{"someubuntufork", []string{"ubuntu"}, FamilyDebian, false},
		{"gentoo", nil, "", true},
		{"alpine", nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := MapDistroToFamily(tt.id, tt.idLike)
			if (err != nil) != tt.wantErr {
				t.Fatalf("MapDistroToFamily() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("MapDistroToFamily() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOSReleaseDistro(t *testing.T) {
	tests := []struct {
		release OSRelease
		want    toolchain.Distro
	}{
		{OSRelease{ID: "ubuntu"}, toolchain.Ubuntu},
		{OSRelease{ID: "debian"}, toolchain.Debian},
		{OSRelease{ID: "linuxmint", IDLike: []string{"ubuntu", "debian"}}, toolchain.Ubuntu},
		{OSRelease{ID: "rocky", IDLike: []string{"rhel", "centos", "fedora"}}, toolchain.Fedora},
		{OSRelease{ID: "almalinux"}, toolchain.Fedora},
		{OSRelease{ID: "manjaro"}, toolchain.Arch},
	}

	for _, tt := range tests {
		t.Run(tt.release.ID, func(t *testing.T) {
			got, err := tt.release.Distro()
			if err != nil {
				t.Fatalf("Distro() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Distro() = %q, want %q", got, tt.want)
			}
		})
	}
}
