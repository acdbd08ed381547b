package huggingface

import (
	"path"

	"github.com/docker/model-zoo/pkg/weights/format"
)

// RepoFile is one entry of a repository tree listing.
type RepoFile struct {
	Type string   `json:"type"` // "file" or "directory"
	Path string   `json:"path"`
	Size int64    `json:"size"`
	OID  string   `json:"oid"` // git blob ID
	LFS  *LFSInfo `json:"lfs"`
}

// LFSInfo is the LFS pointer of a large file.
type LFSInfo struct {
	OID         string `json:"oid"` // sha256 of the content
	Size        int64  `json:"size"`
	PointerSize int64  `json:"pointer_size"`
}

// ActualSize is the LFS object size when present, the listed size otherwise.
func (f *RepoFile) ActualSize() int64 {
	if f.LFS != nil {
		return f.LFS.Size
	}
	return f.Size
}

// Filename returns the last element of the path.
func (f *RepoFile) Filename() string {
	return path.Base(f.Path)
}

// FilterModelFiles splits repository files into weight files in a
// registered format and model config files. Everything else is dropped.
func FilterModelFiles(files []RepoFile) (weights []RepoFile, configs []RepoFile) {
	for _, f := range files {
		if f.Type != "file" {
			continue
		}
		switch format.Classify(f.Filename()) {
		case format.FileTypeWeights:
			weights = append(weights, f)
		case format.FileTypeConfig:
			configs = append(configs, f)
		case format.FileTypeUnknown:
		}
	}
	return weights, configs
}

// TotalSize sums ActualSize over files.
func TotalSize(files []RepoFile) int64 {
	var total int64
	for _, f := range files {
		total += f.ActualSize()
	}
	return total
}
