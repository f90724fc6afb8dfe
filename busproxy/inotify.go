// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package busproxy

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// SocketCreated returns a Condition satisfied once path exists. The
// inotify watch on the parent directory is installed before the existence
// check, so a socket created in between is not missed. Call stop when the
// condition is no longer needed.
func SocketCreated(path string) (condition Condition, stop func(), err error) {
	directory, name := filepath.Split(path)
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return Condition{}, nil, fmt.Errorf("inotify_init1: %w", err)
	}
	if _, err := unix.InotifyAddWatch(fd, directory, unix.IN_CREATE|unix.IN_MOVED_TO); err != nil {
		unix.Close(fd)
		return Condition{}, nil, fmt.Errorf("inotify_add_watch on %s: %w", directory, err)
	}

	done := make(chan error, 1)
	stopChannel := make(chan struct{})
	stopped := false
	stop = func() {
		if !stopped {
			stopped = true
			close(stopChannel)
		}
	}

	if _, err := os.Lstat(path); err == nil {
		unix.Close(fd)
		done <- nil
		return Condition{Name: "socket " + path, Done: done}, stop, nil
	}

	go func() {
		defer unix.Close(fd)
		if watchLoop(fd, name, stopChannel) {
			done <- nil
		}
	}()
	return Condition{Name: "socket " + path, Done: done}, stop, nil
}

// watchLoop reads inotify events until one names target (true) or stop
// closes or the descriptor fails (false). poll(2) wakes every 100ms to
// check stop.
func watchLoop(fd int, target string, stop <-chan struct{}) bool {
	buffer := make([]byte, 4096)
	for {
		select {
		case <-stop:
			return false
		default:
		}

		pollDescriptors := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		count, err := unix.Poll(pollDescriptors, 100)
		if err == unix.EINTR || (err == nil && count == 0) {
			continue
		}
		if err != nil {
			return false
		}

		n, err := unix.Read(fd, buffer)
		if err == unix.EAGAIN || err == unix.EINTR {
			continue
		}
		if err != nil {
			return false
		}
		if eventNames(buffer[:n], target) {
			return true
		}
	}
}

// eventNames reports whether any event in buffer names target. Events are
// a 16-byte header (wd, mask, cookie, len) followed by len bytes of
// NUL-padded name.
func eventNames(buffer []byte, target string) bool {
	for offset := 0; offset+unix.SizeofInotifyEvent <= len(buffer); {
		nameLength := int(binary.NativeEndian.Uint32(buffer[offset+12 : offset+16]))
		end := offset + unix.SizeofInotifyEvent + nameLength
		if end > len(buffer) {
			return false
		}
		name := buffer[offset+unix.SizeofInotifyEvent : end]
		for i, b := range name {
			if b == 0 {
				name = name[:i]
				break
			}
		}
		if string(name) == target {
			return true
		}
		offset = end
	}
	return false
}
