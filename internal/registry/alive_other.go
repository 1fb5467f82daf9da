//go:build !unix

package registry

import "os"

func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	// FindProcess always succeeds on Windows for live pids and fails
	// for dead ones.
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	_ = p.Release()
	return true
}

func pidMatches(int, string) bool { return true }

func killPid(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}
