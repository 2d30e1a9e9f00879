package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// sqliteSidecars are the files SQLite keeps next to a database in WAL mode.
var sqliteSidecars = []string{"-wal", "-shm"}

// CorpusDiskUsage returns the bytes the corpus occupies on disk: the database with its
// WAL sidecars plus every regular file under the documents directory. Paths that do not
// exist yet count as zero; either argument may be empty.
func CorpusDiskUsage(databasePath, documentsDir string) (int64, error) {
	var total int64
	if databasePath != "" {
		for _, p := range append([]string{databasePath}, sidecarPaths(databasePath)...) {
			n, err := fileSize(p)
			if err != nil {
				return 0, err
			}
			total += n
		}
	}
	if documentsDir != "" {
		n, err := treeSize(documentsDir)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func sidecarPaths(databasePath string) []string {
	out := make([]string, len(sqliteSidecars))
	for i, suffix := range sqliteSidecars {
		out[i] = databasePath + suffix
	}
	return out
}

func fileSize(p string) (int64, error) {
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return treeSize(p)
	}
	return info.Size(), nil
}

func treeSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
