package upload

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	pkgerrors "github.com/honeynil/spriteshop/pkg/errors"
)

// allowedExtensions is the accept-list for listing images.
var allowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".webp": {},
	".gif":  {},
}

// Validator accepts or rejects uploaded image candidates and writes accepted
// files into a fixed directory under a sanitized basename. The 4 MiB size cap
// is enforced at the transport boundary, not here.
type Validator struct {
	dir string
}

func NewValidator(dir string) (*Validator, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Validator{dir: dir}, nil
}

// Store validates filename against the extension accept-list, sanitizes it
// and writes the bytes. It returns the stored basename. A disallowed or
// missing extension yields ErrUploadRejected.
func (v *Validator) Store(filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return "", fmt.Errorf("%w: filename has no extension", pkgerrors.ErrUploadRejected)
	}
	if _, ok := allowedExtensions[ext]; !ok {
		return "", fmt.Errorf("%w: extension %q is not allowed", pkgerrors.ErrUploadRejected, ext)
	}

	name := SanitizeFilename(filename)
	if name == "" {
		return "", fmt.Errorf("%w: filename is empty after sanitizing", pkgerrors.ErrUploadRejected)
	}

	dst, err := os.Create(filepath.Join(v.dir, name))
	if err != nil {
		return "", fmt.Errorf("%w: failed to create upload file: %v", pkgerrors.ErrStorage, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		return "", fmt.Errorf("%w: failed to write upload file: %v", pkgerrors.ErrStorage, err)
	}

	slog.Info("upload stored", "filename", name)
	return name, nil
}

// SanitizeFilename strips directory components and any character unsafe for
// the target filesystem, producing a plain basename.
func SanitizeFilename(name string) string {
	// Browsers may send Windows-style paths.
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimLeft(b.String(), ".")
	if strings.Trim(cleaned, "._-") == "" {
		return ""
	}
	return cleaned
}
