package storage

import (
	"os"
)

// sidecarSuffixes are the files SQLite keeps next to a database in WAL mode
// (and the rollback journal when WAL is off).
var sidecarSuffixes = []string{"", "-wal", "-shm", "-journal"}

// DatabaseSizeBytes returns the on-disk footprint of the SQLite database at
// dbPath: the main file plus any sidecars that exist. A missing database
// reports 0.
func DatabaseSizeBytes(dbPath string) (int64, error) {
	var total int64
	for _, suffix := range sidecarSuffixes {
		info, err := os.Stat(dbPath + suffix)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}
