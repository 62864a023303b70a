package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"telecomstore/internal/apperr"
)

const maxDocumentSize = 5 << 20

var documentExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".pdf":  {},
}

// Uploads stores user files below Root. Stored paths are slash separated and
// relative to Root.
type Uploads struct {
	Root string
}

func (u Uploads) saveDocument(file *multipart.FileHeader, folder string) (string, error) {
	extension := strings.ToLower(filepath.Ext(file.Filename))
	if extension == "" {
		return "", apperr.Validation("file extension is required")
	}
	if _, ok := documentExtensions[extension]; !ok {
		return "", apperr.Validation("unsupported file type: %s", extension)
	}
	if file.Size > maxDocumentSize {
		return "", apperr.Validation("file too large (max 5MB)")
	}

	filename := uuid.NewString() + extension
	dir := filepath.Join(u.Root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	fullPath := filepath.Join(dir, filename)
	out, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	defer out.Close()

	in, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer in.Close()

	if _, err := io.Copy(out, io.LimitReader(in, maxDocumentSize+1)); err != nil {
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("write upload: %w", err)
	}

	log.Debug().Str("path", fullPath).Int64("size", file.Size).Msg("upload saved")
	return path.Join(folder, filename), nil
}

// safeDelete removes a previously stored upload. Paths that escape Root or
// the given folder are refused.
func (u Uploads) safeDelete(relPath, folder string) error {
	trimmed := strings.TrimSpace(relPath)
	if trimmed == "" {
		return nil
	}

	cleanRel := path.Clean("/" + strings.TrimPrefix(trimmed, "/"))
	cleanRel = strings.TrimPrefix(cleanRel, "/")

	if !strings.HasPrefix(cleanRel, folder+"/") {
		return fmt.Errorf("refusing to delete path outside %s: %s", folder, relPath)
	}

	cleanBase := filepath.Clean(u.Root)
	cleanTarget := filepath.Clean(filepath.Join(cleanBase, filepath.FromSlash(cleanRel)))
	if !strings.HasPrefix(cleanTarget, cleanBase+string(os.PathSeparator)) {
		return fmt.Errorf("refusing to delete path outside upload root: %s", relPath)
	}

	if err := os.Remove(cleanTarget); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	return nil
}
