package shader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/spaghettifunk/anima-gfx/engine/jobs"
)

// ValidateDir compiles every WGSL file under dir and builds each of its
// vertex and fragment entry points. Files are compiled in parallel. It
// returns the number of entry points built and the joined failures, ordered
// by path.
func ValidateDir(c Compiler, dir string) (int, error) {
	var paths []string
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".wgsl" {
			paths = append(paths, path)
		}
		return nil
	})
	if walkErr != nil {
		return 0, walkErr
	}
	if len(paths) == 0 {
		return 0, nil
	}

	js, err := jobs.NewJobSystem(min(runtime.NumCPU(), len(paths)), len(paths))
	if err != nil {
		return 0, err
	}
	var (
		mu    sync.Mutex
		built int
		errs  = make([]error, len(paths))
	)
	for i, path := range paths {
		js.Submit(jobs.Task{
			Name: path,
			Run: func() error {
				source, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				n, err := validateSource(c, path, string(source))
				mu.Lock()
				built += n
				mu.Unlock()
				return err
			},
			OnFailure: func(err error) { errs[i] = err },
		})
	}
	js.Shutdown()
	return built, errors.Join(errs...)
}

func validateSource(c Compiler, path, source string) (int, error) {
	code, err := c.Compile(source)
	if err != nil {
		return 0, &CompileError{Path: path, Diagnostics: err.Error()}
	}
	mod, err := ParseModule(code)
	if err != nil {
		return 0, &CompileError{Path: path, Diagnostics: err.Error()}
	}
	if len(mod.EntryPoints) == 0 {
		return 0, &CompileError{Path: path, Diagnostics: "no entry points"}
	}
	var (
		built int
		errs  []error
	)
	for _, ep := range mod.EntryPoints {
		stage, ok := ep.Stage()
		if !ok {
			continue
		}
		// Build gets the module compiled above instead of compiling again.
		if _, err := Build(moduleCompiler(code), path, source, ep.Name, stage); err != nil {
			errs = append(errs, err)
			continue
		}
		built++
	}
	if err := errors.Join(errs...); err != nil {
		return built, fmt.Errorf("%s: %w", path, err)
	}
	return built, nil
}

type moduleCompiler []byte

func (m moduleCompiler) Compile(string) ([]byte, error) {
	return m, nil
}
