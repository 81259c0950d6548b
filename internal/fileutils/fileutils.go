// Package fileutils provides the file-system helpers used by the CLI:
// gathering input documents from paths and writing output files.
package fileutils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fjacquet/fiscal-organizer/internal/models"
	"fjacquet/fiscal-organizer/internal/validation"
)

// readFile is replaced in tests to simulate unreadable files.
var readFile = os.ReadFile // #nosec G304 -- operator-supplied input paths

// FileExists checks if a file exists and is not a directory
func FileExists(filePath string) bool {
	info, err := os.Stat(filePath)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DirectoryExists checks if a directory exists
func DirectoryExists(dirPath string) bool {
	info, err := os.Stat(dirPath)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// EnsureDirectoryExists creates a directory if it doesn't exist
func EnsureDirectoryExists(dirPath string) error {
	if !DirectoryExists(dirPath) {
		if err := os.MkdirAll(dirPath, models.PermissionDirectory); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	return nil
}

// WriteFile writes data to a file, creating any parent directories if needed
func WriteFile(filePath string, data []byte, perm os.FileMode) error {
	if err := validation.IsValidFilePermissions(perm); err != nil {
		return err
	}
	if err := EnsureDirectoryExists(filepath.Dir(filePath)); err != nil {
		return err
	}
	if err := os.WriteFile(filePath, data, perm); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// ReadDocument loads one file as a Document named after its base name.
func ReadDocument(filePath string) (models.Document, error) {
	if !FileExists(filePath) {
		return models.Document{}, fmt.Errorf("file does not exist: %s", filePath)
	}
	data, err := readFile(filePath)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to read file: %w", err)
	}
	return models.NewDocument(filepath.Base(filePath), data).WithSource(filePath), nil
}

// CollectDocuments reads every path in argument order. Directories are
// walked recursively in lexical order; hidden files and directories are
// skipped. A path that does not exist is an error; a file that exists but
// cannot be read becomes an unreadable document so the rest of the run
// continues.
func CollectDocuments(paths []string) ([]models.Document, error) {
	var docs []models.Document
	for _, p := range paths {
		files, err := expandPath(p)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			doc, err := ReadDocument(f)
			if err != nil {
				doc = models.NewUnreadableDocument(f, err).WithSource(f)
			}
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func expandPath(p string) ([]string, error) {
	if err := validation.IsValidInputPath(p); err != nil {
		return nil, err
	}
	if !DirectoryExists(p) {
		if _, err := os.Lstat(p); err != nil {
			return nil, fmt.Errorf("input path not found: %w", err)
		}
		return []string{p}, nil
	}

	var files []string
	err := filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != p && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	sort.Strings(files)
	return files, nil
}
