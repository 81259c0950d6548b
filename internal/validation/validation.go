// Package validation checks operator input before any work starts.
package validation

import (
	"fmt"
	"os"
	"strings"

	"fjacquet/fiscal-organizer/internal/report"
)

// IsValidInputPath checks that an input path exists and is a regular file or a directory.
func IsValidInputPath(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("path does not exist: %s", path)
	}
	if err != nil {
		return fmt.Errorf("error checking path %s: %w", path, err)
	}

	if !info.IsDir() && !info.Mode().IsRegular() {
		return fmt.Errorf("path %s is neither a file nor a directory", path)
	}

	return nil
}

// IsValidReportFormat checks if the given history export format is supported.
func IsValidReportFormat(format string) error {
	switch strings.ToLower(format) {
	case report.FormatJSON, report.FormatYAML, report.FormatXLSX:
		return nil
	default:
		return fmt.Errorf("unsupported report format: %s. Supported formats are 'json', 'yaml', 'xlsx'", format)
	}
}

// IsValidFilePermissions rejects modes that let other users write the file.
// Archives hold fiscal data of one company and must never be world-writable.
func IsValidFilePermissions(mode os.FileMode) error {
	if mode&0002 != 0 {
		return fmt.Errorf("file permissions are too permissive: %s. Recommended 0600 or 0644", mode.String())
	}
	return nil
}
