//go:build !linux && !darwin

package document

import "os"

// sysMeta on platforms without a usable stat(2) shape reports no creation
// time and only the portable permission bits.
func sysMeta(info os.FileInfo) (createTime int64, permissions uint32) {
	return 0, uint32(info.Mode().Perm())
}
