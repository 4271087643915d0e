package dvid

import (
	"fmt"
	"path/filepath"
	"runtime"
)

const (
	Kilo = 1 << 10
	Mega = 1 << 20
	Giga = 1 << 30
	Tera = 1 << 40
)

// NumCPU is the number of workers used when none is given.
var NumCPU = runtime.NumCPU()

// ConvertToAbsolute returns an absolute path, treating relative paths as relative
// to the given directory.
func ConvertToAbsolute(path, dir string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("cannot convert empty path")
	}
	if filepath.IsAbs(path) {
		return path, nil
	}
	return filepath.Abs(filepath.Join(dir, path))
}
