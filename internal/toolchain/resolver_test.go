package toolchain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveOutOfRange(t *testing.T) {
	reg := NewRegistry()
	res := NewResolver(reg)

	// Empty registry: every index is invalid.
	for _, idx := range []int{-1, 0, 1} {
		_, err := res.Resolve(idx)
		var nf *NotFoundError
		require.True(t, errors.As(err, &nf))
		require.Equal(t, IndexOutOfRange, nf.Kind)
		require.Equal(t, 0, nf.Size)
	}

	p := gcc14Debug(t)
	reg.Register(p)
	p2 := p
	p2.BuildType = Release
	reg.Register(p2)

	tests := []struct {
		index int
		ok    bool
	}{
		{-5, false},
		{0, false},
		{1, true},
		{2, true},
		{3, false},
		{100, false},
	}
	for _, tt := range tests {
		got, err := res.Resolve(tt.index)
		if tt.ok {
			require.NoError(t, err, "index %d", tt.index)
			require.True(t, got.IsComplete())
			continue
		}
		var nf *NotFoundError
		require.True(t, errors.As(err, &nf), "index %d", tt.index)
		require.Equal(t, tt.index, nf.Index)
		require.Equal(t, 2, nf.Size)
		require.Equal(t, Profile{}, got)
	}
}

func TestResolveID(t *testing.T) {
	reg := NewRegistry()
	id, _ := reg.Register(gcc14Debug(t))
	res := NewResolver(reg)

	got, err := res.ResolveID(1)
	require.NoError(t, err)
	require.Equal(t, id, got)

	_, err = res.ResolveID(2)
	require.Error(t, err)
}

func TestFindRequiresExactMatch(t *testing.T) {
	reg := NewRegistry()
	p := gcc14Debug(t)
	id, _ := reg.Register(p)
	res := NewResolver(reg)

	got, err := res.Find(p)
	require.NoError(t, err)
	require.Equal(t, id, got)

	// Same compiler and distro but no build type: never guessed.
	partial := Profile{Compiler: p.Compiler, Distro: p.Distro}
	_, err = res.Find(partial)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	require.Equal(t, NoMatch, nf.Kind)

	other := p
	other.Compiler = mustCompiler(t, "GCC-13")
	_, err = res.Find(other)
	require.True(t, errors.As(err, &nf))
	require.Equal(t, NoMatch, nf.Kind)
}

func TestNotFoundErrorMessages(t *testing.T) {
	tests := []struct {
		err  *NotFoundError
		want string
	}{
		{&NotFoundError{Kind: IndexOutOfRange, Index: 4, Size: 3}, "toolchain 4 not found: valid range is 1-3"},
		{&NotFoundError{Kind: IndexOutOfRange, Index: 1, Size: 0}, "toolchain 1 not found: no toolchains are registered"},
		{&NotFoundError{Kind: UnknownID, ID: "abc"}, "toolchain abc is not registered"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, tt.err.Error())
	}
}
