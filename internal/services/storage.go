package services

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrFileTooLarge   = errors.New("file exceeds upload size limit")
	ErrInvalidFileKey = errors.New("invalid storage key")
)

// VideoStore keeps uploaded videos on local disk under
// <root>/sessions/<session-id>/<file-id><ext>.
type VideoStore struct {
	root string
}

func NewVideoStore(root string) (*VideoStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &VideoStore{root: root}, nil
}

// Save copies at most maxBytes from r and returns the storage key and size. A
// larger stream is discarded and reported as ErrFileTooLarge.
func (s *VideoStore) Save(sessionID uuid.UUID, filename string, r io.Reader, maxBytes int64) (string, int64, error) {
	key := filepath.ToSlash(filepath.Join("sessions", sessionID.String(), uuid.New().String()+getExtension(filename)))
	fullPath := filepath.Join(s.root, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create session directory: %w", err)
	}

	f, err := os.Create(fullPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create file: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(r, maxBytes+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > maxBytes {
		err = ErrFileTooLarge
	}
	if err != nil {
		os.Remove(fullPath)
		return "", 0, err
	}

	return key, n, nil
}

func (s *VideoStore) Open(key string) (*os.File, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

func (s *VideoStore) Remove(key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// RemoveSession deletes every file stored for a session.
func (s *VideoStore) RemoveSession(sessionID uuid.UUID) error {
	return os.RemoveAll(filepath.Join(s.root, "sessions", sessionID.String()))
}

func (s *VideoStore) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ErrInvalidFileKey
	}
	return filepath.Join(s.root, clean), nil
}

func getExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 10 || strings.ContainsAny(ext, `/\`) {
		return ""
	}
	return strings.ToLower(ext)
}
