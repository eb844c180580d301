//go:build !unix && !windows

package fileid

import (
	"os"
	"path/filepath"
)

func statID(path string) (ID, error) {
	if _, err := os.Stat(path); err != nil {
		return ID{}, err
	}
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		return ID{}, err
	}
	abs, err := filepath.Abs(real)
	if err != nil {
		return ID{}, err
	}
	return FromPath(abs), nil
}
