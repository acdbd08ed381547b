package format

import (
	"path"
	"strings"
)

// FileType is the role a repository file plays for the zoo.
type FileType int

const (
	// FileTypeUnknown files are ignored.
	FileTypeUnknown FileType = iota
	// FileTypeWeights files hold tensors in a registered format.
	FileTypeWeights
	// FileTypeConfig files describe the model (config.json and friends).
	FileTypeConfig
)

// String returns a string representation of the file type
func (ft FileType) String() string {
	switch ft {
	case FileTypeWeights:
		return "weights"
	case FileTypeConfig:
		return "config"
	case FileTypeUnknown:
		return "unknown"
	}
	return "unknown"
}

// ConfigFiles are the descriptor files fetched alongside the weights.
var ConfigFiles = []string{"config.json", "preprocessor_config.json"}

// Classify determines the role of a file from its name.
func Classify(name string) FileType {
	base := path.Base(name)
	for _, f := range registry {
		if f.Matches(base) {
			return FileTypeWeights
		}
	}
	for _, c := range ConfigFiles {
		if strings.EqualFold(base, c) {
			return FileTypeConfig
		}
	}
	return FileTypeUnknown
}
