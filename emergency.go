// emergency.go: signal-safe accessors over a ring of recently-processed
// records, per spec.md 4.12.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"sync/atomic"
	"unsafe"
)

// emergencyRingSize is the number of recent-record slots retained; a crash
// handler copying the whole buffer trades a fixed, small memory cost for
// a bounded amount of log history surviving a crash.
const emergencyRingSize = 256

// emergencySlotSize bounds how much of one record's formatted text is kept
// per slot; longer messages are truncated, matching the record model's own
// small-string budget rather than risking an allocation on this path.
const emergencySlotSize = 256

type emergencySlot struct {
	len int32
	buf [emergencySlotSize]byte
}

type emergencyRing struct {
	slots [emergencyRingSize]emergencySlot
	next  int64
}

var globalEmergencyRing emergencyRing

var emergencyFD int32 = -1

// recordEmergency copies up to emergencySlotSize bytes of formatted into the
// ring's next slot, overwriting the oldest entry. It performs no allocation
// and is called from the logger's single consumer goroutine for every
// processed record, not just Fatal ones, so the ring always reflects the
// most recent activity regardless of which level triggered a crash.
func recordEmergency(formatted []byte) {
	idx := atomic.AddInt64(&globalEmergencyRing.next, 1) - 1
	slot := &globalEmergencyRing.slots[idx%emergencyRingSize]
	n := copy(slot.buf[:], formatted)
	atomic.StoreInt32(&slot.len, int32(n))
}

// EmergencyBuffer returns a signal-safe pointer to the ring buffer of
// recent records and its size in bytes. The accessor performs no
// allocation and takes no lock; a crash handler installed separately may
// copy *size bytes starting at the returned pointer to EmergencyFD() to
// maximize data survival.
func EmergencyBuffer() (ptr unsafe.Pointer, size int) {
	return unsafe.Pointer(&globalEmergencyRing), int(unsafe.Sizeof(globalEmergencyRing))
}

// SetEmergencyFD installs the raw OS file descriptor a crash handler should
// write the emergency buffer to (e.g. an *os.File's Fd()). Pass -1 to
// disable the path; it starts out as -1, so the path is disabled until set.
func SetEmergencyFD(fd int) {
	atomic.StoreInt32(&emergencyFD, int32(fd))
}

// EmergencyFD returns the currently installed emergency file descriptor, or
// -1 if none has been set.
func EmergencyFD() int {
	return int(atomic.LoadInt32(&emergencyFD))
}
