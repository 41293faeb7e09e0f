//go:build windows

package state

import "golang.org/x/sys/windows"

// lockRecordFile takes an exclusive lock on the session record's lock file
// via LockFileEx, blocking until it is available so behavior matches the
// Unix flock path.
func lockRecordFile(fd uintptr) error {
	var ol windows.Overlapped
	return windows.LockFileEx(windows.Handle(fd), windows.LOCKFILE_EXCLUSIVE_LOCK, 0, 1, 0, &ol)
}

func unlockRecordFile(fd uintptr) error {
	var ol windows.Overlapped
	return windows.UnlockFileEx(windows.Handle(fd), 0, 1, 0, &ol)
}
