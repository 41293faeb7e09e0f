//go:build !windows

package state

import "syscall"

// lockRecordFile takes an exclusive advisory lock on the session record's
// lock file, blocking until it is available. Guards against a second
// stockroom process writing the record concurrently.
func lockRecordFile(fd uintptr) error {
	return syscall.Flock(int(fd), syscall.LOCK_EX)
}

func unlockRecordFile(fd uintptr) error {
	return syscall.Flock(int(fd), syscall.LOCK_UN)
}
