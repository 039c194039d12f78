package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/mvp-joe/project-remapper/internal/inheritance"
	"github.com/mvp-joe/project-remapper/internal/mapping"
	"github.com/mvp-joe/project-remapper/internal/remap"
)

// ErrNoMapping indicates a Request without a mapping set.
var ErrNoMapping = errors.New("remap request has no mapping")

// Request asks for Input to be remapped with Mapping into Output.
type Request struct {
	Input     string
	Output    string
	Mapping   *mapping.MappingSet
	Overwrite bool
}

// MappingStage applies a mapping set with inherited member lookups.
func MappingStage(m *mapping.MappingSet) StageFactory {
	return func(ctx *inheritance.Context) remap.Stage {
		return remap.NewTransformer(m, ctx)
	}
}

// Remap runs the mapping stage followed by the configured stages. An
// existing output is left alone unless Overwrite is set, without reading
// the input. Output is written to a temporary file in the same directory
// and renamed into place only once verified.
func (p *Pipeline) Remap(ctx context.Context, req Request) (*Report, error) {
	if !req.Overwrite {
		if _, err := os.Stat(req.Output); err == nil {
			log.Printf("Output %s exists, skipping\n", req.Output)
			return &Report{Input: req.Input, Output: req.Output, Skipped: true}, nil
		}
	}
	if req.Mapping == nil {
		return nil, ErrNoMapping
	}

	if err := os.MkdirAll(filepath.Dir(req.Output), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp := fmt.Sprintf("%s.%s.tmp", req.Output, uuid.NewString())

	report, err := p.run(ctx, req.Input, tmp, []StageFactory{MappingStage(req.Mapping)})
	if err != nil {
		_ = os.Remove(tmp)
		return nil, err
	}
	if err := os.Rename(tmp, req.Output); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("failed to move output into place: %w", err)
	}
	report.Output = req.Output
	return report, nil
}
