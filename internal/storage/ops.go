package storage

import (
	"os"
	"strings"

	"github.com/cesargomez89/fetchpay/internal/constants"
)

// Sanitize strips characters that are unsafe in filenames.
func Sanitize(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if strings.ContainsRune(constants.InvalidPathChars, r) {
			return -1
		}
		return r
	}, s)

	return strings.TrimRight(mapped, ". ")
}

func EnsureDir(path string) error {
	return os.MkdirAll(path, constants.DirPermissions)
}

// RemoveAll deletes a directory tree; a missing path is not an error.
func RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// FileSize returns the size of a regular file in bytes.
func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func IsNotExist(err error) bool {
	return os.IsNotExist(err)
}
