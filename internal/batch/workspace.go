package batch

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/me/gosweep/pkg/model"
)

// DatasetsDir is the required directory that must hold at least one dataset.
const DatasetsDir = "datasets"

// Layout directory names inside a batch directory.
const (
	ExecutorDir   = "executor"
	PropertiesDir = "properties"
	LogDir        = "log"
)

// ValidateWorkspace checks that workspace holds everything a run needs and
// that the simulator command can be resolved.
func ValidateWorkspace(workspace string, command []string, files, dirs []string) error {
	info, err := os.Stat(workspace)
	if err != nil {
		return &model.SetupError{Field: "workspace", Message: "cannot access " + workspace, Err: err}
	}
	if !info.IsDir() {
		return model.NewSetupError("workspace", "%s is not a directory", workspace)
	}

	if len(command) == 0 {
		return model.NewSetupError("command", "is required")
	}
	if _, err := resolveExecutable(workspace, command[0]); err != nil {
		return &model.SetupError{Field: "command", Message: fmt.Sprintf("cannot resolve %q", command[0]), Err: err}
	}

	for _, name := range files {
		p := filepath.Join(workspace, name)
		fi, err := os.Stat(p)
		if err != nil || fi.IsDir() {
			return model.NewSetupError("required_files", "%s not found", p)
		}
	}
	for _, name := range dirs {
		p := filepath.Join(workspace, name)
		fi, err := os.Stat(p)
		if err != nil || !fi.IsDir() {
			return model.NewSetupError("required_dirs", "%s not found", p)
		}
		if filepath.Clean(name) == DatasetsDir {
			if err := requireSubdir(p); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveExecutable mirrors how exec.Cmd finds its program when Dir is set:
// names with a separator are taken relative to dir, bare names use PATH.
func resolveExecutable(dir, name string) (string, error) {
	if !strings.ContainsRune(name, filepath.Separator) {
		return exec.LookPath(name)
	}
	p := name
	if !filepath.IsAbs(p) {
		p = filepath.Join(dir, p)
	}
	fi, err := os.Stat(p)
	if err != nil {
		return "", err
	}
	if fi.IsDir() || fi.Mode().Perm()&0o111 == 0 {
		return "", errors.New("not an executable file")
	}
	return p, nil
}

func requireSubdir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &model.SetupError{Field: "required_dirs", Message: "cannot read " + dir, Err: err}
	}
	for _, e := range entries {
		if e.IsDir() {
			return nil
		}
	}
	return model.NewSetupError("required_dirs", "no dataset found in %s", dir)
}

// CreateBatchDir creates <workspace>/executor/<unix-seconds>/ with its
// properties and log sub-directories. A directory created earlier in the same
// second gets a numeric suffix.
func CreateBatchDir(workspace string, now time.Time) (string, error) {
	root := filepath.Join(workspace, ExecutorDir)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", root, err)
	}

	base := strconv.FormatInt(now.Unix(), 10)
	name := base
	for i := 1; ; i++ {
		dir := filepath.Join(root, name)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			for _, sub := range []string{PropertiesDir, LogDir} {
				if err := os.Mkdir(filepath.Join(dir, sub), 0o755); err != nil {
					return "", fmt.Errorf("create %s: %w", sub, err)
				}
			}
			return dir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("create %s: %w", dir, err)
		}
		name = fmt.Sprintf("%s-%d", base, i)
	}
}
