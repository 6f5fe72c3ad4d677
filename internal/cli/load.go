package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/roach88/into/internal/compiler"
)

// loadPipelines compiles every pipeline in dir. A missing directory is a
// not-found error; anything CUE rejects is a compile error.
func loadPipelines(f *OutputFormatter, dir string) ([]*compiler.Pipeline, error) {
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil, f.Fail(ExitCommandError, ErrCodeNotFound,
			fmt.Sprintf("pipeline directory not found: %s", dir), nil)
	}
	pipelines, err := compiler.LoadDir(dir)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeCompile, "failed to load pipelines", err)
	}
	f.VerboseLog("Loaded %d pipeline(s) from %s", len(pipelines), dir)
	return pipelines, nil
}

// selectPipeline picks name from pipelines. An empty name selects the only
// pipeline, and is an error when the directory defines several.
func selectPipeline(f *OutputFormatter, pipelines []*compiler.Pipeline, name string) (*compiler.Pipeline, error) {
	if name == "" {
		if len(pipelines) == 1 {
			return pipelines[0], nil
		}
		names := make([]string, len(pipelines))
		for i, p := range pipelines {
			names[i] = p.Name
		}
		return nil, f.Fail(ExitCommandError, ErrCodeInvalidInput,
			fmt.Sprintf("%d pipelines defined (%s), choose one with --pipeline",
				len(pipelines), strings.Join(names, ", ")), nil)
	}
	p, err := compiler.Find(pipelines, name)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil)
	}
	return p, nil
}
