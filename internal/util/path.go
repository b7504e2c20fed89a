package util

import (
	"os"
	"path/filepath"
	"runtime"
)

// GetProjectRootDir returns the module root. PROJECT_ROOT_DIR wins when set,
// otherwise the path is resolved relative to this source file.
func GetProjectRootDir() string {
	if val, ok := os.LookupEnv("PROJECT_ROOT_DIR"); ok {
		return val
	}

	_, b, _, _ := runtime.Caller(0)

	return filepath.Join(filepath.Dir(b), "../..")
}
