package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate", "seed", "provision", "revoke"}, names)
}

func TestAdminCommandsRequireFlags(t *testing.T) {
	for _, args := range [][]string{{"seed"}, {"provision"}, {"revoke"}} {
		root := newRootCmd()
		root.SetArgs(args)
		root.SilenceErrors = true
		err := root.Execute()
		require.Error(t, err, args)
		assert.Contains(t, err.Error(), "required flag")
	}
}

func TestAdminCommandsRejectMemoryStore(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")

	root := newRootCmd()
	root.SetArgs([]string{"revoke", "--key-id", "key_1"})
	root.SilenceErrors = true
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_BACKEND=postgres")
}
