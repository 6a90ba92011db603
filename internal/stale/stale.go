// Package stale decides whether a build output must be regenerated from its
// source by comparing filesystem modification times.
//
// An output is stale when it does not exist or when it is strictly older
// than its source. Equal timestamps count as up to date.
package stale

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// IsStale reports whether output needs to be regenerated from source.
func IsStale(source, output string) (bool, error) {
	srcInfo, err := os.Stat(source)
	if err != nil {
		return false, fmt.Errorf("stat source %q: %w", source, err)
	}

	outInfo, err := os.Stat(output)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true, nil
		}

		return false, fmt.Errorf("stat output %q: %w", output, err)
	}

	return outInfo.ModTime().Before(srcInfo.ModTime()), nil
}
