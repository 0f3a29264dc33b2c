package runtime

import (
	"fmt"
	"slices"

	"github.com/aretw0/curator/pkg/domain"
)

// Pipeline is a validated, fixed order of stages.
type Pipeline struct {
	stages []Stage
	index  map[domain.StageID]int
}

// NewPipeline checks that stage IDs are unique, that every field read is an input or
// written by an earlier stage, and that every field has exactly one writer.
func NewPipeline(stages ...Stage) (*Pipeline, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("%w: no stages", ErrInvalidPipeline)
	}

	p := &Pipeline{
		stages: slices.Clone(stages),
		index:  make(map[domain.StageID]int, len(stages)),
	}
	writers := make(map[domain.Field]domain.StageID)

	for i, st := range stages {
		if st.ID == "" || st.ID == domain.StageStart || st.ID == domain.StageTerminal {
			return nil, fmt.Errorf("%w: reserved or empty stage id %q", ErrInvalidPipeline, st.ID)
		}
		if st.Run == nil {
			return nil, fmt.Errorf("%w: stage %s has no Run", ErrInvalidPipeline, st.ID)
		}
		if _, dup := p.index[st.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate stage %s", ErrInvalidPipeline, st.ID)
		}
		p.index[st.ID] = i

		for _, f := range st.Reads {
			if f.IsInput() {
				continue
			}
			if _, ok := writers[f]; !ok {
				return nil, fmt.Errorf("%w: stage %s reads %s before any stage writes it", ErrInvalidPipeline, st.ID, f)
			}
		}
		for _, f := range st.Writes {
			if f.IsInput() {
				return nil, fmt.Errorf("%w: stage %s writes input field %s", ErrInvalidPipeline, st.ID, f)
			}
			if prev, ok := writers[f]; ok {
				return nil, fmt.Errorf("%w: field %s written by both %s and %s", ErrInvalidPipeline, f, prev, st.ID)
			}
			writers[f] = st.ID
		}
	}
	return p, nil
}

// DefaultPipeline is the four-stage recommendation chain.
func DefaultPipeline() *Pipeline {
	p, err := NewPipeline(FetchUserHistory, FetchInventory, BuildCandidates, RecommendItems)
	if err != nil {
		panic(err)
	}
	return p
}

// Stages returns the stages in execution order.
func (p *Pipeline) Stages() []Stage {
	return slices.Clone(p.stages)
}

// Next returns the stage that follows id. The last stage is followed by Terminal.
func (p *Pipeline) Next(id domain.StageID) domain.StageID {
	if id == domain.StageStart {
		return p.stages[0].ID
	}
	i, ok := p.index[id]
	if !ok || i == len(p.stages)-1 {
		return domain.StageTerminal
	}
	return p.stages[i+1].ID
}

// Stage returns the stage registered under id.
func (p *Pipeline) Stage(id domain.StageID) (Stage, bool) {
	i, ok := p.index[id]
	if !ok {
		return Stage{}, false
	}
	return p.stages[i], true
}
