package schema

import (
	"os"
	"path/filepath"
	"strings"
)

// ActiveFile is the file currently targeted for preview. It is replaced, not
// mutated, on every navigation.
type ActiveFile struct {
	Path      string
	Name      string
	Size      int64
	Extension string
}

// NewActiveFile stats path and builds an ActiveFile for it.
func NewActiveFile(path string) (ActiveFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return ActiveFile{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return ActiveFile{}, err
	}
	return ActiveFile{
		Path:      abs,
		Name:      info.Name(),
		Size:      info.Size(),
		Extension: Extension(abs),
	}, nil
}

// Extension returns the lower-cased text after the final dot of the base
// name, or "" when there is none.
func Extension(path string) string {
	base := filepath.Base(path)
	idx := strings.LastIndexByte(base, '.')
	if idx < 0 || idx == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[idx+1:])
}
