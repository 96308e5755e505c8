package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveName(t *testing.T) {
	names := []string{"Alice", "Bob", "Alina"}

	tests := []struct {
		input string
		want  string
	}{
		{"alice", "Alice"},
		{"  BOB ", "Bob"},
		{"alic", "Alice"},
		{"bo", "Bob"},
	}
	for _, tt := range tests {
		got, err := ResolveName(tt.input, names)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func TestResolveNameErrors(t *testing.T) {
	names := []string{"Alice", "Bob", "Alina"}

	_, err := ResolveName("al", names)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")
	assert.Contains(t, err.Error(), "Alice")
	assert.Contains(t, err.Error(), "Alina")

	_, err = ResolveName("zed", names)
	assert.EqualError(t, err, `no character matches "zed"`)

	_, err = ResolveName(" ", names)
	assert.Error(t, err)
}
