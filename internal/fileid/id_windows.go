//go:build windows

package fileid

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func statID(path string) (ID, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return ID{}, err
	}
	h, err := windows.CreateFile(p, 0,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil, windows.OPEN_EXISTING, windows.FILE_FLAG_BACKUP_SEMANTICS, 0)
	if err != nil {
		return ID{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer windows.CloseHandle(h) //nolint:errcheck

	var info windows.ByHandleFileInformation
	if err := windows.GetFileInformationByHandle(h, &info); err != nil {
		return ID{}, fmt.Errorf("stat %s: %w", path, err)
	}
	index := uint64(info.FileIndexHigh)<<32 | uint64(info.FileIndexLow)
	return FromDevIno(uint64(info.VolumeSerialNumber), index), nil
}
