package hasher

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDigest(t *testing.T) {
	d, err := ParseDigest(MD5, "5EB63BBBE01EEED093CB22BB8F5ACDC3")
	require.NoError(t, err)
	assert.Equal(t, "5eb63bbbe01eeed093cb22bb8f5acdc3", d.Hex())

	computed, err := HashBytes([]byte("hello world"))
	require.NoError(t, err)
	assert.True(t, computed.Equal(d))

	padded, err := ParseDigest(MD5, " 5EB63bbbe01eeed093cb22bb8f5acdc3 ")
	require.NoError(t, err)
	assert.True(t, computed.Equal(padded))

	empty, err := HashBytes(nil)
	require.NoError(t, err)
	assert.False(t, computed.Equal(empty))

	_, err = ParseDigest(MD5, "zz")
	assert.ErrorIs(t, err, ErrInvalidDigest)

	_, err = ParseDigest(MD5, "abcd")
	assert.ErrorIs(t, err, ErrInvalidDigest)

	_, err = ParseDigest("nope", "abcd")
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func TestParseAlgorithm(t *testing.T) {
	alg, err := ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, MD5, alg)

	alg, err = ParseAlgorithm(" BLAKE3 ")
	require.NoError(t, err)
	assert.Equal(t, BLAKE3, alg)

	_, err = ParseAlgorithm("crc7")
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func TestDigestSize(t *testing.T) {
	sizes := map[Algorithm]int{MD5: 16, SHA256: 32, BLAKE3: 32, XXHash: 8}
	for alg, want := range sizes {
		got, err := DigestSize(alg)
		require.NoError(t, err)
		assert.Equal(t, want, got, string(alg))
	}
}

func TestReaderAtSource(t *testing.T) {
	data := []byte("0123456789")
	src := NewReaderAtSource(bytes.NewReader(data), int64(len(data)))

	p, err := src.ReadRange(context.Background(), 2, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("234"), p)

	p, err = src.ReadRange(context.Background(), 8, 10)
	require.NoError(t, err)
	assert.Equal(t, []byte("89"), p)

	_, err = src.ReadRange(context.Background(), 8, 11)
	assert.ErrorIs(t, err, ErrInvalidInput)

	// 声明长度大于实际内容
	short := NewReaderAtSource(bytes.NewReader(data), 20)
	_, err = short.ReadRange(context.Background(), 5, 15)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
