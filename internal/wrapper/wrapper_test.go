package wrapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapNoHarnessReturnsCodeUnchanged(t *testing.T) {
	assert.Equal(t, "print(1)", Wrap("print(1)", "", ""))
}

func TestWrapTopAndBottom(t *testing.T) {
	got := Wrap("return a+b", "def solve(a, b):", "print(solve(3, 4))")
	assert.Equal(t, "def solve(a, b):\n\nreturn a+b\n\nprint(solve(3, 4))", got)
}

func TestWrapTopOnly(t *testing.T) {
	got := Wrap("body", "top", "")
	assert.Equal(t, "top\n\nbody", got)
}
