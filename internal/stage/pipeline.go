package stage

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/elliotttmiller/sentinel/internal/types"
)

// Spec names one stage of a pipeline and the mission progress percentage
// reached when that stage completes.
type Spec struct {
	ID      string `yaml:"id" json:"id"`
	Percent int    `yaml:"percent" json:"percent"`
}

// Pipeline is the ordered stage sequence a mission runs through, with its
// progress checkpoints. StartPercent is the progress recorded when the
// mission starts, before any stage completes.
type Pipeline struct {
	StartPercent int    `yaml:"start_percent" json:"start_percent"`
	Stages       []Spec `yaml:"stages" json:"stages"`
}

// DefaultPipeline returns the built-in four-stage sequence with the
// 5/25/50/75/100 progress checkpoints.
func DefaultPipeline() Pipeline {
	return Pipeline{
		StartPercent: 5,
		Stages: []Spec{
			{ID: "plan", Percent: 25},
			{ID: "generate", Percent: 50},
			{ID: "execute", Percent: 75},
			{ID: "verify", Percent: 100},
		},
	}
}

// Validate checks structural soundness: at least one stage, unique IDs, and
// strictly increasing checkpoints ending at 100.
func (p Pipeline) Validate() error {
	if len(p.Stages) == 0 {
		return types.NewError(types.ENGINE_PIPELINE_INVALID, "pipeline has no stages")
	}
	if p.StartPercent < 0 || p.StartPercent > 100 {
		return types.NewError(types.ENGINE_PIPELINE_INVALID,
			fmt.Sprintf("start_percent %d out of range 0-100", p.StartPercent))
	}

	seen := make(map[string]bool, len(p.Stages))
	prev := p.StartPercent
	for i, spec := range p.Stages {
		if spec.ID == "" {
			return types.NewError(types.ENGINE_PIPELINE_INVALID,
				fmt.Sprintf("stage %d has an empty id", i))
		}
		if seen[spec.ID] {
			return types.NewError(types.ENGINE_PIPELINE_INVALID,
				fmt.Sprintf("duplicate stage id %q", spec.ID))
		}
		seen[spec.ID] = true
		if spec.Percent <= prev || spec.Percent > 100 {
			return types.NewError(types.ENGINE_PIPELINE_INVALID,
				fmt.Sprintf("stage %q checkpoint %d must be in (%d, 100]", spec.ID, spec.Percent, prev))
		}
		prev = spec.Percent
	}

	if p.Stages[len(p.Stages)-1].Percent != 100 {
		return types.NewError(types.ENGINE_PIPELINE_INVALID, "final stage checkpoint must be 100")
	}
	return nil
}

// LoadPipeline reads a pipeline definition from a YAML file.
func LoadPipeline(path string) (Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("read pipeline file: %w", err)
	}

	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Pipeline{}, fmt.Errorf("parse pipeline file: %w", err)
	}

	if err := p.Validate(); err != nil {
		return Pipeline{}, err
	}
	return p, nil
}
