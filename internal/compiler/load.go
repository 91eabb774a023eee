package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/ncd/internal/program"
)

// BuildPath loads CUE from path and builds it into a value.
//
// path is either a directory, loaded as one CUE instance, or a single
// .cue file.
func BuildPath(ctx *cue.Context, path string) (cue.Value, error) {
	info, err := os.Stat(path)
	if err != nil {
		return cue.Value{}, fmt.Errorf("program path: %w", err)
	}

	cfg := &load.Config{Dir: path}
	args := []string{"."}
	if !info.IsDir() {
		cfg.Dir = filepath.Dir(path)
		args = []string{filepath.Base(path)}
	}

	instances := load.Instances(args, cfg)
	if len(instances) == 0 {
		return cue.Value{}, fmt.Errorf("no CUE instances loaded from %s", path)
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return v, nil
}

// LoadProgram loads and compiles the program at path.
func LoadProgram(path string) (*program.Program, error) {
	v, err := BuildPath(cuecontext.New(), path)
	if err != nil {
		return nil, err
	}
	return CompileProgram(v)
}
