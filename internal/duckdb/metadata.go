package duckdb

import (
	"os"
	"time"
)

// InputFile holds stat-based identity for a run input.
type InputFile struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile describes an on-disk input. Standard input ("-") has no size.
func StatFile(path string) (InputFile, error) {
	if path == "-" || path == "" {
		return InputFile{Path: path}, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return InputFile{}, err
	}
	return InputFile{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}
