package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckValidCode(t *testing.T) {
	valid := []string{
		"",
		"console.log(42)",
		"function add(a, b) { return a + b }",
		"return 1",
		"var o = {a: 1}; o.self = o;",
	}

	for _, js := range valid {
		assert.Nil(t, Check(js), "expected %q to compile", js)
	}
}

func TestCheckDoesNotExecute(t *testing.T) {
	assert.Nil(t, Check("throw new Error('never thrown')"))
	assert.Nil(t, Check("while (true) {}"))
}

func TestCheckSyntaxError(t *testing.T) {
	diag := Check("var = 3")
	require.NotNil(t, diag)

	assert.Equal(t, "SyntaxError", diag.Kind)
	assert.NotEmpty(t, diag.Message)
	assert.False(t, diag.Friendly)
	assert.Contains(t, diag.String(), "SyntaxError: ")
}

func TestCheckStrayBrace(t *testing.T) {
	diag := Check("function f() {\n  return 1\n}\n}")
	require.NotNil(t, diag)

	assert.Equal(t, "SyntaxError", diag.Kind)
	assert.True(t, diag.Friendly)
	assert.Equal(t, FriendlyBraceMessage, diag.Message)
}

func TestCheckDoesNotRunInjectedCode(t *testing.T) {
	// Closes the wrapper early; the trailing statement must never run
	diag := Check("}); while (true) {} (function () {")
	assert.Nil(t, diag)
}

func TestCheckReportsUserLineNumbers(t *testing.T) {
	diag := Check("var a = 1;\nvar = 2;")
	require.NotNil(t, diag)
	assert.Contains(t, diag.Message, "Line 2:")
}
