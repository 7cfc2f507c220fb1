// Package storage хранит файлы вложений на локальном диске.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// ErrTooLarge возвращается, если файл превышает лимит
var ErrTooLarge = errors.New("file exceeds maximum upload size")

// StoredFile описывает сохранённый файл
type StoredFile struct {
	Path        string
	Size        int64
	ContentType string
}

// LocalStore хранит файлы в каталоге task_attachments/ГГГГ/ММ
type LocalStore struct {
	root    string
	maxSize int64
	now     func() time.Time
}

// NewLocalStore создаёт хранилище в каталоге root
func NewLocalStore(root string, maxSize int64) *LocalStore {
	return &LocalStore{root: root, maxSize: maxSize, now: time.Now}
}

// Save записывает содержимое и определяет размер и тип по самому файлу
func (s *LocalStore) Save(filename string, r io.Reader) (*StoredFile, error) {
	now := s.now()
	rel := filepath.Join("task_attachments", now.Format("2006"), now.Format("01"),
		uuid.NewString()+"_"+sanitize(filename))
	full := filepath.Join(s.root, rel)

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	dst, err := os.Create(full)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	limit := r
	if s.maxSize > 0 {
		limit = io.LimitReader(r, s.maxSize+1)
	}
	size, err := io.Copy(dst, limit)
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(full)
		return nil, fmt.Errorf("write file: %w", err)
	}
	if s.maxSize > 0 && size > s.maxSize {
		os.Remove(full)
		return nil, ErrTooLarge
	}

	mt, err := mimetype.DetectFile(full)
	if err != nil {
		os.Remove(full)
		return nil, fmt.Errorf("detect content type: %w", err)
	}

	return &StoredFile{Path: filepath.ToSlash(rel), Size: size, ContentType: mt.String()}, nil
}

// Open открывает сохранённый файл на чтение
func (s *LocalStore) Open(path string) (*os.File, error) {
	return os.Open(s.resolve(path))
}

// Delete удаляет файл; отсутствующий файл не считается ошибкой
func (s *LocalStore) Delete(path string) error {
	err := os.Remove(s.resolve(path))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) resolve(path string) string {
	return filepath.Join(s.root, filepath.FromSlash(filepath.Clean("/"+path)))
}

func sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return name
}
