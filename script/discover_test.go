package script

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListFunctionsFindsAllTopLevel(t *testing.T) {
	names, err := ListFunctions(`
		function* main() { yield wait(1); }
		function* child() { yield wait(2); }
		var notAFunction = 42;
	`)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"main", "child"}, names)
}

func TestListFunctionsCompileError(t *testing.T) {
	_, err := ListFunctions(`function* broken( {`)
	require.Error(t, err)
}
