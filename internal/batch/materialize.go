package batch

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/me/gosweep/internal/analyzer"
	"github.com/me/gosweep/internal/sweep"
	"github.com/me/gosweep/pkg/model"
	"github.com/me/gosweep/pkg/properties"
)

// LogLevelKey is the simulator's own log level; runs always use LogLevelValue.
const (
	LogLevelKey   = "logLevel"
	LogLevelValue = "SEVERE"
)

// BuildSpecs expands template by params into one RunSpec per combination.
// Each configuration passes through the analyzer's RequiredFields and then
// has its log level forced. Paths point into dir; nothing is written.
func BuildSpecs(dir string, template *properties.Properties, params sweep.Params, a analyzer.Analyzer) []*model.RunSpec {
	combos := sweep.Expand(template, params)
	specs := make([]*model.RunSpec, len(combos))
	for i, c := range combos {
		cfg := a.RequiredFields(c.Config)
		cfg.Set(LogLevelKey, LogLevelValue)
		name := strconv.Itoa(i)
		specs[i] = &model.RunSpec{
			Index:      i,
			Config:     cfg,
			Modified:   c.Modified,
			ConfigPath: filepath.Join(dir, PropertiesDir, name+".properties"),
			LogPath:    filepath.Join(dir, LogDir, name+".log"),
		}
	}
	return specs
}

// Materialize writes every spec's configuration to its ConfigPath.
func Materialize(specs []*model.RunSpec) error {
	for _, s := range specs {
		if err := properties.SaveFile(s.ConfigPath, s.Config); err != nil {
			return &model.SetupError{Field: "properties", Message: fmt.Sprintf("cannot write run %d", s.Index), Err: err}
		}
	}
	return nil
}
