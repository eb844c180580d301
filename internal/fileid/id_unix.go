//go:build unix

package fileid

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func statID(path string) (ID, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return ID{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return FromDevIno(uint64(st.Dev), uint64(st.Ino)), nil //nolint:unconvert
}
