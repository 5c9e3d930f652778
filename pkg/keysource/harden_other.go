//go:build !linux

package keysource

// DisableCoreDumps 非 Linux 平台不做处理
func DisableCoreDumps() error {
	return nil
}
