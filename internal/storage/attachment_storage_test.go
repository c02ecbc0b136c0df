package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

func TestSniffMime_PNG(t *testing.T) {
	mime, err := SniffMime(pngHeader)
	assert.NoError(t, err)
	assert.Equal(t, "image/png", mime)
}

func TestSniffMime_Unknown(t *testing.T) {
	_, err := SniffMime([]byte("просто текст, не файл"))
	assert.Error(t, err)
}

func TestSniffMime_DisallowedType(t *testing.T) {
	// ELF исполняемый файл распознаётся, но не входит в список разрешённых.
	elf := []byte{0x7F, 0x45, 0x4C, 0x46, 0x02, 0x01, 0x01, 0, 0, 0, 0, 0}
	_, err := SniffMime(elf)
	assert.Error(t, err)
}

func TestAttachmentStorage_SaveAndDelete(t *testing.T) {
	s, err := NewAttachmentStorage(t.TempDir(), 1)
	require.NoError(t, err)
	ctx := context.Background()
	bidID := uuid.New()

	content := append(pngHeader, bytes.Repeat([]byte{0x42}, 100)...)
	path, size, err := s.Save(ctx, bidID, "макет.png", bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), size)
	assert.Equal(t, bidID.String(), filepath.Dir(path))

	f, err := s.Open(path)
	require.NoError(t, err)
	f.Close()

	require.NoError(t, s.Delete(ctx, path))
	_, err = s.Open(path)
	assert.True(t, os.IsNotExist(err))
}

func TestAttachmentStorage_SizeLimit(t *testing.T) {
	s, err := NewAttachmentStorage(t.TempDir(), 1)
	require.NoError(t, err)

	big := bytes.Repeat([]byte{0x01}, 1024*1024+1)
	_, _, err = s.Save(context.Background(), uuid.New(), "huge.bin", bytes.NewReader(big))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "лимит")
}

func TestAttachmentStorage_OpenRejectsTraversal(t *testing.T) {
	s, err := NewAttachmentStorage(t.TempDir(), 1)
	require.NoError(t, err)

	_, err = s.Open("../../etc/passwd")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "некорректный путь")
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "report.pdf", sanitizeFilename("../../report.pdf"))
	assert.Equal(t, "attachment", sanitizeFilename(""))
}
