// Package imagestore turns uploaded image bytes into a reference that can be
// stored on a message: either an inline data URI or a served path.
package imagestore

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/sha3"
)

var ErrEmpty = errors.New("empty upload")

type Upload struct {
	Data     []byte
	MIME     string
	Filename string
}

type Store interface {
	Put(ctx context.Context, up Upload) (string, error)
}

// Inline encodes the upload as a base64 data URI.
type Inline struct{}

func (Inline) Put(_ context.Context, up Upload) (string, error) {
	if len(up.Data) == 0 {
		return "", ErrEmpty
	}
	return "data:" + up.MIME + ";base64," + base64.StdEncoding.EncodeToString(up.Data), nil
}

// Disk writes uploads under Dir named by the SHA3-256 of their content and
// returns URLPrefix/<name>. Identical uploads share one file.
type Disk struct {
	Dir       string
	URLPrefix string
}

func NewDisk(dir, urlPrefix string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Disk{Dir: dir, URLPrefix: "/" + strings.Trim(urlPrefix, "/")}, nil
}

func (d *Disk) Put(ctx context.Context, up Upload) (string, error) {
	if len(up.Data) == 0 {
		return "", ErrEmpty
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sum := sha3.Sum256(up.Data)
	name := hex.EncodeToString(sum[:]) + extension(up.MIME, up.Filename)
	dst := filepath.Join(d.Dir, name)

	if _, err := os.Stat(dst); err == nil {
		return path.Join(d.URLPrefix, name), nil
	}
	tmp, err := os.CreateTemp(d.Dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	if _, err := tmp.Write(up.Data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("store upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("store upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("store upload: %w", err)
	}
	return path.Join(d.URLPrefix, name), nil
}

func extension(mime, filename string) string {
	switch strings.ToLower(mime) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	}
	if ext := strings.ToLower(filepath.Ext(filename)); len(ext) > 1 && len(ext) <= 5 {
		return ext
	}
	return ".bin"
}
