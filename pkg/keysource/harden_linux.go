//go:build linux

package keysource

import (
	"golang.org/x/sys/unix"
)

// DisableCoreDumps 关闭 core dump 并禁止 ptrace 附加，私钥不会出现在转储文件里
func DisableCoreDumps() error {
	if err := unix.Setrlimit(unix.RLIMIT_CORE, &unix.Rlimit{Cur: 0, Max: 0}); err != nil {
		return err
	}
	return unix.Prctl(unix.PR_SET_DUMPABLE, 0, 0, 0, 0)
}
