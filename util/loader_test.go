package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"frame-2.jpg", "frame-0.jpg", "frame-1.png", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	frames, err := LoadFrames(dir)
	require.NoError(t, err)
	require.Len(t, frames, 3)

	// Sorted by name, non-images and directories skipped.
	assert.Equal(t, []string{"frame-0.jpg", "frame-1.png", "frame-2.jpg"}, Names(frames))
	assert.Equal(t, filepath.Join(dir, "frame-0.jpg"), frames[0].Path)
	assert.Equal(t, Names(frames)[1], filepath.Base(Paths(frames)[1]))
}

func TestLoadFramesEmpty(t *testing.T) {
	_, err := LoadFrames(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no image files")
}

func TestLoadFramesMissingDir(t *testing.T) {
	_, err := LoadFrames(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestPickBatchSize(t *testing.T) {
	tests := []struct {
		frames   int
		expected int
	}{
		{frames: 1, expected: 8},
		{frames: 255, expected: 8},
		{frames: 256, expected: 16},
		{frames: 1000, expected: 16},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, PickBatchSize(tt.frames), "frames=%d", tt.frames)
	}
}
