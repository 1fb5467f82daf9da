//go:build unix

package registry

import (
	"os"
	"strconv"
	"strings"
	"syscall"
)

// pidAlive reports whether a process with pid currently exists. Signal 0
// performs permission and existence checks without delivering anything.
// Zombies count as gone: signal 0 still reaches them, but they have
// already exited and cannot be killed again, only reaped by their parent.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err != nil && err != syscall.EPERM {
		return false
	}
	return !pidZombie(pid)
}

// pidZombie reports whether /proc/<pid>/stat records state Z. Where /proc
// is unavailable it reports false.
func pidZombie(pid int) bool {
	raw, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return false
	}
	// The state field follows the parenthesized comm, which may itself
	// contain parentheses and spaces.
	i := strings.LastIndexByte(string(raw), ')')
	if i < 0 || i+2 >= len(raw) {
		return false
	}
	return raw[i+2] == 'Z'
}

// pidMatches guards against pid reuse: on Linux it compares the first
// argv element in /proc/<pid>/cmdline against the recorded executable
// path. Where /proc is unavailable it reports true, accepting the small
// reuse window rather than skipping real orphans.
func pidMatches(pid int, path string) bool {
	raw, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/cmdline")
	if err != nil {
		return true
	}
	argv0, _, _ := strings.Cut(string(raw), "\x00")
	return argv0 == path
}

// killPid delivers SIGKILL to pid.
func killPid(pid int) error {
	return syscall.Kill(pid, syscall.SIGKILL)
}
