package scan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type FileInfo struct {
	ID    string // conversation id, the file name without .json
	Path  string
	Mtime int64
	Size  int64
}

// ScanConversations lists conversation files directly under root, sorted by id.
// A missing root yields no files.
func ScanConversations(root string) ([]FileInfo, error) {
	if root == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		// editor swap files and partial downloads
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue // removed while scanning
		}
		files = append(files, FileInfo{
			ID:    strings.TrimSuffix(e.Name(), ".json"),
			Path:  filepath.Join(root, e.Name()),
			Mtime: info.ModTime().Unix(),
			Size:  info.Size(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].ID < files[j].ID })
	return files, nil
}
