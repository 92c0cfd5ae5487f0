package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/hazira/core"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadGallery(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "42.csv", "0.1,0.2,0.3\n")
	writeFile(t, dir, "7.csv", "0.9,\n0.8,0.7\n")
	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, "readme.csv", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "9.csv"), 0o755))

	g, err := LoadGallery(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, []int{7, 42}, g.IDs())

	id, err := g.Match(Encoding{0.9, 0.8, 0.7}, DefaultTolerance)
	require.NoError(t, err)
	assert.Equal(t, 7, id)

	t.Run("missing dir", func(t *testing.T) {
		_, err := LoadGallery(filepath.Join(dir, "nope"))
		assert.True(t, core.IsIOError(err))
	})

	t.Run("bad value", func(t *testing.T) {
		bad := t.TempDir()
		writeFile(t, bad, "1.csv", "0.1,abc")
		_, err := LoadGallery(bad)
		assert.True(t, core.IsIOError(err))
	})

	t.Run("inconsistent lengths", func(t *testing.T) {
		tests := []struct {
			name     string
			files    map[string]string
			wantPath string
		}{
			{name: "tie: later file", files: map[string]string{"1.csv": "0,0", "2.csv": "1,1,1"}, wantPath: "2.csv"},
			{name: "odd one first", files: map[string]string{"1.csv": "0,0,0", "2.csv": "1,1", "3.csv": "2,2"}, wantPath: "1.csv"},
			{name: "odd one last", files: map[string]string{"1.csv": "0,0", "2.csv": "1,1", "3.csv": "2"}, wantPath: "3.csv"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				bad := t.TempDir()
				for name, content := range tt.files {
					writeFile(t, bad, name, content)
				}
				g, err := LoadGallery(bad)
				assert.Nil(t, g)
				var ioErr *core.IOError
				require.True(t, errors.As(err, &ioErr), "want an IOError, got %v", err)
				assert.Equal(t, filepath.Join(bad, tt.wantPath), ioErr.Path)
			})
		}
	})

	t.Run("empty encoding", func(t *testing.T) {
		bad := t.TempDir()
		writeFile(t, bad, "1.csv", "\n")
		_, err := LoadGallery(bad)
		assert.True(t, core.IsIOError(err))
	})
}

func TestGallery_Match(t *testing.T) {
	g := NewGallery(map[int]Encoding{
		1: {0, 0},
		2: {1, 1},
		3: {5, 5},
	})

	tests := []struct {
		name      string
		enc       Encoding
		tolerance float64
		want      int
		wantErr   error
	}{
		{name: "exact", enc: Encoding{1, 1}, tolerance: 0.6, want: 2},
		{name: "closest within tolerance", enc: Encoding{0.2, 0.1}, tolerance: 0.6, want: 1},
		{name: "default tolerance", enc: Encoding{5.3, 5.3}, want: 3},
		{name: "too far", enc: Encoding{3, 3}, tolerance: 0.6, wantErr: ErrUnknown},
		{name: "loose tolerance", enc: Encoding{3, 3}, tolerance: 3, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Match(tt.enc, tt.tolerance)
			if err != tt.wantErr {
				t.Fatalf("Match() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Match() = %d, want %d", got, tt.want)
			}
		})
	}

	t.Run("invalid encodings", func(t *testing.T) {
		var vErr *core.ValidationError
		_, err := g.Match(nil, 0.6)
		assert.True(t, errors.As(err, &vErr))
		_, err = g.Match(Encoding{1, 2, 3}, 0.6)
		assert.True(t, errors.As(err, &vErr))
	})

	t.Run("empty gallery", func(t *testing.T) {
		_, err := NewGallery(nil).Match(Encoding{1}, 0.6)
		assert.Equal(t, ErrUnknown, err)
	})
}

func TestGallery_MatchAll(t *testing.T) {
	g := NewGallery(map[int]Encoding{1: {0, 0}, 2: {1, 1}})

	ids, err := g.MatchAll([]Encoding{{1, 1}, {9, 9}, {0.1, 0}, {1.1, 1}}, 0.6)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ids)

	_, err = g.MatchAll([]Encoding{{1}}, 0.6)
	assert.Error(t, err)
}
