package toolchain

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustCompiler(t *testing.T, s string) Compiler {
	t.Helper()
	c, err := ParseCompiler(s)
	require.NoError(t, err)
	return c
}

func gcc14Debug(t *testing.T) Profile {
	return Profile{
		Architecture:   ArchX8664,
		Compiler:       mustCompiler(t, "GCC-14"),
		BuildType:      Debug,
		Distro:         Ubuntu,
		PackageManager: APT,
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	p := gcc14Debug(t)

	id1, created1 := reg.Register(p)
	id2, created2 := reg.Register(p)

	require.True(t, created1)
	require.False(t, created2)
	require.Equal(t, id1, id2)
	require.Equal(t, 1, reg.Len())
}

func TestRegisterDistinctProfiles(t *testing.T) {
	base := gcc14Debug(t)

	variants := map[string]func(p Profile) Profile{
		"architecture": func(p Profile) Profile { p.Architecture = ArchARM64; return p },
		"compiler":     func(p Profile) Profile { p.Compiler = mustCompiler(t, "GCC-13"); return p },
		"build type":   func(p Profile) Profile { p.BuildType = Release; return p },
		"distro":       func(p Profile) Profile { p.Distro = Debian; return p },
		"package mgr":  func(p Profile) Profile { p.PackageManager = Default; return p },
	}

	for name, mutate := range variants {
		t.Run(name, func(t *testing.T) {
			reg := NewRegistry()
			id1, _ := reg.Register(base)
			id2, created := reg.Register(mutate(base))

			require.True(t, created)
			require.NotEqual(t, id1, id2)
			require.Equal(t, 2, reg.Len())
		})
	}
}

func TestListOrderAndIndices(t *testing.T) {
	reg := NewRegistry()
	p1 := gcc14Debug(t)
	p2 := p1
	p2.BuildType = Release

	reg.Register(p1)
	reg.Register(p2)
	reg.Register(p1)

	entries := reg.List()
	require.Len(t, entries, 2)
	require.Equal(t, 1, entries[0].Index)
	require.Equal(t, p1, entries[0].Profile)
	require.Equal(t, 2, entries[1].Index)
	require.Equal(t, p2, entries[1].Profile)
}

func TestRemoveShiftsIndices(t *testing.T) {
	reg := NewRegistry()
	base := gcc14Debug(t)
	p1, p2, p3 := base, base, base
	p2.BuildType = Release
	p3.BuildType = RelWithDebInfo

	reg.Register(p1)
	reg.Register(p2)
	id3, _ := reg.Register(p3)

	removed, err := reg.Remove(2)
	require.NoError(t, err)
	require.Equal(t, p2, removed.Profile)

	res := NewResolver(reg)
	got, err := res.Resolve(2)
	require.NoError(t, err)
	require.Equal(t, p3, got)

	idx, ok := reg.IndexOf(id3)
	require.True(t, ok)
	require.Equal(t, 2, idx)

	_, err = res.Resolve(3)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	require.Equal(t, IndexOutOfRange, nf.Kind)
}

func TestRemoveInvalidIndex(t *testing.T) {
	reg := NewRegistry()
	reg.Register(gcc14Debug(t))

	for _, idx := range []int{0, -1, 2} {
		_, err := reg.Remove(idx)
		var nf *NotFoundError
		require.True(t, errors.As(err, &nf), "index %d", idx)
		require.Equal(t, IndexOutOfRange, nf.Kind)
	}
	require.Equal(t, 1, reg.Len())
}

func TestRemoveID(t *testing.T) {
	reg := NewRegistry()
	id, _ := reg.Register(gcc14Debug(t))

	p, err := reg.RemoveID(id)
	require.NoError(t, err)
	require.Equal(t, gcc14Debug(t), p)

	_, err = reg.RemoveID(id)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	require.Equal(t, UnknownID, nf.Kind)

	_, err = reg.Get(id)
	require.Error(t, err)
}

func TestRegisterConcurrent(t *testing.T) {
	reg := NewRegistry()
	p := gcc14Debug(t)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.Register(p)
		}()
	}
	wg.Wait()

	require.Equal(t, 1, reg.Len())
}

func TestScenarioRegisterThenList(t *testing.T) {
	reg := NewRegistry()
	p := gcc14Debug(t)
	id, _ := reg.Register(p)

	require.Equal(t, []Entry{{Index: 1, ID: id, Profile: p}}, reg.List())
}

func TestInsertRestoresPosition(t *testing.T) {
	reg := NewRegistry()
	var ids []ID
	for _, bt := range []BuildType{Debug, Release, MinSizeRel} {
		p := gcc14Debug(t)
		p.BuildType = bt
		id, _ := reg.Register(p)
		ids = append(ids, id)
	}
	before := reg.List()

	removed, err := reg.RemoveID(ids[1])
	require.NoError(t, err)
	reg.Insert(2, ids[1], removed)
	require.Equal(t, before, reg.List())

	// Already present: no change.
	reg.Insert(1, ids[1], removed)
	require.Equal(t, before, reg.List())
}
