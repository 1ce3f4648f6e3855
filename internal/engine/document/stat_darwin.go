//go:build darwin

package document

import (
	"os"
	"syscall"
)

// sysMeta pulls the raw stat(2) fields. Darwin exposes a true birth time.
func sysMeta(info os.FileInfo) (createTime int64, permissions uint32) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, uint32(info.Mode().Perm())
	}
	return st.Birthtimespec.Sec, uint32(st.Mode)
}
