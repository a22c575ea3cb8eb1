//go:build unix

// emergency_unix.go: raw, allocation-free fd write for the emergency path.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// FlushEmergencyBuffer writes every populated slot of the emergency ring to
// the installed emergency fd via a raw unix.Write syscall, bypassing
// *os.File and the Go runtime's buffered I/O entirely. It is meant to be
// invoked from a separately-installed crash handler (e.g. a signal handler
// registered by the host application) where allocating or taking a lock is
// unsafe; ordinary code should call Logger.Flush instead.
func FlushEmergencyBuffer() {
	fd := EmergencyFD()
	if fd < 0 {
		return
	}
	for i := 0; i < emergencyRingSize; i++ {
		slot := &globalEmergencyRing.slots[i]
		n := atomic.LoadInt32(&slot.len)
		if n == 0 {
			continue
		}
		_, _ = unix.Write(fd, slot.buf[:n])
	}
}
