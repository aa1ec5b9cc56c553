package builtins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mortie/gilia/internal/intern"
	"github.com/mortie/gilia/pkg/value"
	"github.com/mortie/gilia/pkg/vm"
)

func TestRegisterBindsEveryEntryUnderBuiltinsModule(t *testing.T) {
	atoms := intern.New()
	v := vm.New(atoms)
	Register(v)
	v.FinishInit()

	ns, ok := v.Module("builtins")
	require.True(t, ok)
	nsv := v.Value(ns)
	require.Equal(t, value.Namespace, nsv.Kind)
	require.NotNil(t, nsv.Table)

	for name := range entries {
		id, ok := nsv.Table.Get(atoms.Put(name))
		require.Truef(t, ok, "missing builtin %q", name)
		fnv := v.Value(id)
		assert.Equal(t, value.CFunction, fnv.Kind)
	}
}

func TestRegisterModuleIsDistinctFromFS(t *testing.T) {
	atoms := intern.New()
	v := vm.New(atoms)
	Register(v)
	RegisterFS(v)
	v.FinishInit()

	builtinsNS, ok := v.Module("builtins")
	require.True(t, ok)
	fsNS, ok := v.Module("fs")
	require.True(t, ok)
	assert.NotEqual(t, builtinsNS, fsNS)

	_, hasRead := v.Value(builtinsNS).Table.Get(atoms.Put("read"))
	assert.False(t, hasRead, "fs-specific names must not leak into builtins")
}
