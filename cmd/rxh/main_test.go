// Copyright 2025 Jonathan Amsterdam. All rights reserved.
// Use of this source code is governed by a
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jba/rxh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const text = "the quick brown fox jumps over the lazy dog\n"

func TestDecompressedName(t *testing.T) {
	for _, test := range []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"a.txt.rxc", "a.txt", false},
		{"dir/b.rxc", "dir/b", false},
		{"a.txt", "", true},
		{".rxc", "", true},
		{"a.rxc.gz", "", true},
	} {
		got, err := decompressedName(test.in)
		if test.wantErr {
			assert.ErrorIs(t, err, errSuffix, test.in)
			continue
		}
		require.NoError(t, err, test.in)
		assert.Equal(t, test.want, got)
	}
}

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func encodeFile(r io.Reader, w io.Writer) error { return rxh.Encode(r, w) }
func decodeFile(r io.Reader, w io.Writer) error { return rxh.Decode(r, w) }

func TestConvertRoundTrip(t *testing.T) {
	src := writeFile(t, "in.txt", strings.Repeat(text, 20))
	require.NoError(t, convert(src, src+suffix, false, encodeFile))

	out, err := decompressedName(src + suffix)
	require.NoError(t, err)
	require.NoError(t, os.Remove(src))
	require.NoError(t, convert(src+suffix, out, false, decodeFile))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat(text, 20), string(got))
}

func TestConvertExisting(t *testing.T) {
	src := writeFile(t, "in.txt", text)
	dst := src + suffix
	require.NoError(t, os.WriteFile(dst, []byte("keep"), 0o644))

	err := convert(src, dst, false, encodeFile)
	assert.ErrorIs(t, err, os.ErrExist)
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(got))

	require.NoError(t, convert(src, dst, true, encodeFile))
	got, err = os.ReadFile(dst)
	require.NoError(t, err)
	assert.NotEqual(t, "keep", string(got))
}

func TestConvertRemovesOutputOnError(t *testing.T) {
	src := writeFile(t, "bad.rxc", "not a container")
	dst := strings.TrimSuffix(src, suffix)
	err := convert(src, dst, false, decodeFile)
	assert.ErrorIs(t, err, rxh.ErrFormatMismatch)
	_, err = os.Stat(dst)
	assert.True(t, errors.Is(err, os.ErrNotExist), "output left behind: %v", err)
}

func TestConvertMissingInput(t *testing.T) {
	dir := t.TempDir()
	err := convert(filepath.Join(dir, "missing"), filepath.Join(dir, "out"), false, encodeFile)
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(filepath.Join(dir, "out"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStatFile(t *testing.T) {
	src := writeFile(t, "in.txt", strings.Repeat(text, 50))
	var out strings.Builder
	require.NoError(t, statFile(src, &out, zap.NewNop()))
	assert.True(t, strings.HasPrefix(out.String(), src+": 2200 bytes, rxh "), out.String())
	assert.Contains(t, out.String(), "zstd")

	empty := writeFile(t, "empty", "")
	out.Reset()
	require.NoError(t, statFile(empty, &out, zap.NewNop()))
	assert.Contains(t, out.String(), "0 bytes, rxh 63 (-)")
}

func TestDumpFile(t *testing.T) {
	src := writeFile(t, "in.txt", strings.Repeat("a", 1000))
	require.NoError(t, convert(src, src+suffix, false, encodeFile))

	var out strings.Builder
	require.NoError(t, dumpFile(src+suffix, &out))
	lines := strings.Split(out.String(), "\n")
	assert.Equal(t, src+suffix+": header 62 bytes, payload 125 bytes (1000 bits), padding 0, 2 symbols, longest code 1 bits", lines[0])
	assert.Equal(t, "root", lines[1])
	assert.Contains(t, out.String(), "10000000: byte=97, takes 1 bits\n")

	assert.ErrorIs(t, dumpFile(src, &out), rxh.ErrFormatMismatch)
}

func TestRatio(t *testing.T) {
	assert.Equal(t, "-", ratio(10, 0))
	assert.Equal(t, "50.0%", ratio(5, 10))
	assert.Equal(t, "133.3%", ratio(4, 3))
}

func TestNewLogger(t *testing.T) {
	log, err := newLogger(false)
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zap.DebugLevel))

	log, err = newLogger(true)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zap.DebugLevel))
}
