//go:build linux

package document

import (
	"os"
	"syscall"
)

// sysMeta pulls the raw stat(2) fields. Linux stat carries no birth time, so
// the inode change time stands in for creation time; callers treating it as
// a best-effort timestamp get the closest value the platform offers.
func sysMeta(info os.FileInfo) (createTime int64, permissions uint32) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, uint32(info.Mode().Perm())
	}
	return st.Ctim.Sec, st.Mode
}
