package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

type Store struct {
	root string
}

func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("local: couldn't create %q: %w", root, err)
	}
	return &Store{root: root}, nil
}

// Root returns the directory the files are stored in.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) Upload(ctx context.Context, path, name string) error {
	dst := filepath.Join(s.root, name)
	if err := copyFile(path, dst); err != nil {
		return fmt.Errorf("local: couldn't copy file %q to %q: %w", path, dst, err)
	}
	return nil
}

func (s *Store) Download(ctx context.Context, path, name string) error {
	src := filepath.Join(s.root, name)
	if err := copyFile(src, path); err != nil {
		return fmt.Errorf("local: couldn't copy file %q to %q: %w", src, path, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	if err := os.Remove(filepath.Join(s.root, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("local: couldn't delete %q: %w", name, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	srcFileInfo, err := srcFile.Stat()
	if err != nil {
		return err
	}

	// Create or truncate the destination with the source permissions.
	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, srcFileInfo.Mode())
	if err != nil {
		return err
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	return err
}
