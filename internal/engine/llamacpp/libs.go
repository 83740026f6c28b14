package llamacpp

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/ebitengine/purego"
)

// EnvLibDir overrides the shared-library search directory.
const EnvLibDir = "STRATUM_LLAMA_DIR"

// openLibraries dlopens the llama.cpp stack in dependency order and
// returns the shim handle. Directories are tried in order: the explicit
// libDir argument, $STRATUM_LLAMA_DIR, then the directory of the running
// binary. An empty result falls through to the system loader paths.
func openLibraries(libDir string) (uintptr, error) {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		return 0, fmt.Errorf("llamacpp: unsupported platform %s", runtime.GOOS)
	}

	ext := libExt()
	order := []string{
		"libggml-base" + ext,
		"libggml" + ext,
		"libllama" + ext,
		"libstratum_shim" + ext,
	}

	dir := searchDir(libDir, ext)

	var shim uintptr
	for _, name := range order {
		path := name
		if dir != "" {
			path = filepath.Join(dir, name)
		}
		h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			return 0, fmt.Errorf("llamacpp: dlopen %s: %w", path, err)
		}
		shim = h
	}
	return shim, nil
}

// searchDir picks the first candidate directory that holds the shim.
func searchDir(libDir, ext string) string {
	candidates := []string{libDir, os.Getenv(EnvLibDir)}
	if execDir, err := executableDir(); err == nil {
		candidates = append(candidates, execDir)
	}
	for _, dir := range candidates {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, "libstratum_shim"+ext)); err == nil {
			return dir
		}
	}
	return ""
}

func libExt() string {
	if runtime.GOOS == "darwin" {
		return ".dylib"
	}
	return ".so"
}

func executableDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return "", err
	}
	return filepath.Dir(execPath), nil
}
