package crypt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef")

func TestApply_Symmetric(t *testing.T) {
	t.Parallel()

	c, err := New(testKey)
	require.NoError(t, err)

	plain := []byte("local M = {}\nreturn M\n")
	enc := c.Apply(plain)
	assert.NotEqual(t, plain, enc)
	assert.Len(t, enc, len(plain))

	assert.Equal(t, plain, c.Apply(enc))
}

func TestApply_DoesNotModifyInput(t *testing.T) {
	t.Parallel()

	c, err := New(testKey)
	require.NoError(t, err)

	plain := bytes.Repeat([]byte{0x42}, 33)
	orig := append([]byte(nil), plain...)
	_ = c.Apply(plain)
	assert.Equal(t, orig, plain)
}

func TestApply_KeyChangesOutput(t *testing.T) {
	t.Parallel()

	a, err := New(testKey)
	require.NoError(t, err)
	b, err := New([]byte("fedcba9876543210"))
	require.NoError(t, err)

	plain := []byte("same input bytes")
	assert.NotEqual(t, a.Apply(plain), b.Apply(plain))
}

func TestNew_RejectsBadKeyLength(t *testing.T) {
	t.Parallel()

	_, err := New([]byte("short"))
	require.Error(t, err)
}
