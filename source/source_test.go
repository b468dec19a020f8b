// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package source

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpowers/bdb/page"
)

func image(pages, pageSize int) []byte {
	data := make([]byte, pages*pageSize)
	for i := range data {
		data[i] = byte(i / pageSize)
	}
	return data
}

func writeImage(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.db")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestMem(t *testing.T) {
	data := image(3, 512)
	m := NewMem(data, "")
	assert.True(t, strings.HasPrefix(m.ID(), "mem:"))
	assert.Equal(t, NewMem(image(3, 512), "").ID(), m.ID(), "ids derive from contents")
	assert.Equal(t, int64(len(data)), m.Size())

	b, err := m.Bytes(512, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 1, 1, 1}, b)

	_, err = m.Bytes(1500, 100)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	_, err = m.Bytes(-1, 1)
	assert.Error(t, err)
}

func TestReadAll(t *testing.T) {
	m, err := ReadAll(bytes.NewReader(image(2, 512)), "stdin")
	require.NoError(t, err)
	assert.Equal(t, "stdin", m.ID())
	assert.Equal(t, int64(1024), m.Size())
}

func TestFileAndMmap(t *testing.T) {
	data := image(4, 512)
	path := writeImage(t, data)

	open := map[string]func(string) (Source, error){
		"file": func(p string) (Source, error) { return OpenFile(p) },
		"mmap": func(p string) (Source, error) { return OpenMmap(p) },
	}
	for name, fn := range open {
		t.Run(name, func(t *testing.T) {
			src, err := fn(path)
			require.NoError(t, err)
			assert.Equal(t, int64(len(data)), src.Size())
			assert.Equal(t, path, src.ID())

			b, err := src.Bytes(3*512, 512)
			require.NoError(t, err)
			assert.Equal(t, data[3*512:], b)

			_, err = src.Bytes(4*512, 1)
			assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

			require.NoError(t, src.Close())
			require.NoError(t, src.Close(), "second close is a no-op")
			_, err = src.Bytes(0, 1)
			assert.Error(t, err)
		})
	}
}

func TestMmapEmptyFile(t *testing.T) {
	m, err := OpenMmap(writeImage(t, nil))
	require.NoError(t, err)
	assert.Zero(t, m.Size())
	require.NoError(t, m.Close())
}

func TestOpenMissing(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = OpenMmap(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPager(t *testing.T) {
	data := append(image(3, 512), 0xff, 0xff) // trailing partial page
	p := NewPager(NewMem(data, "img"), 512)
	defer p.Close()

	assert.Equal(t, uint32(3), p.Count())
	assert.Equal(t, 512, p.PageSize())
	assert.Equal(t, "img", p.SourceID())

	for pgno := range uint32(3) {
		buf, err := p.Page(pgno)
		require.NoError(t, err)
		require.Len(t, buf, 512)
		assert.Equal(t, byte(pgno), buf[0])
	}

	_, err := p.Page(3)
	require.ErrorIs(t, err, page.ErrPageOutOfRange)
	fe, ok := page.AsFormatError(err)
	require.True(t, ok)
	assert.Equal(t, uint32(3), fe.Page)
}

func TestCachedPager(t *testing.T) {
	data := image(8, 512)
	f, err := OpenFile(writeImage(t, data))
	require.NoError(t, err)
	defer f.Close()

	p, err := NewCachedPager(f, 512, 4)
	require.NoError(t, err)
	defer p.Close()
	require.NotNil(t, p.cache)

	for range 3 {
		for pgno := range uint32(8) {
			buf, err := p.Page(pgno)
			require.NoError(t, err)
			assert.Equal(t, data[int(pgno)*512:int(pgno+1)*512], buf)
		}
	}

	p, err = NewCachedPager(f, 512, 0)
	require.NoError(t, err)
	assert.Nil(t, p.cache)
}

func TestCachedPagerHoldsMaxPages(t *testing.T) {
	data := image(4, 512)
	f, err := OpenFile(writeImage(t, data))
	require.NoError(t, err)
	defer f.Close()

	p, err := NewCachedPager(f, 512, 4)
	require.NoError(t, err)
	defer p.Close()

	for pgno := range uint32(4) {
		_, err := p.Page(pgno)
		require.NoError(t, err)
	}
	p.cache.Wait()
	for pgno := range uint32(4) {
		buf, ok := p.cache.Get(uint64(pgno))
		require.True(t, ok, "page %d evicted", pgno)
		assert.Equal(t, data[int(pgno)*512:int(pgno+1)*512], buf)
	}
}
