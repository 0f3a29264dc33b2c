package domain

import "fmt"

// State is the record threaded through every stage of one recommendation run.
//
// Inputs are fixed at creation. Every other field is written exactly once by
// the stage that owns it; a second write is rejected with ErrFieldRewritten.
// A State belongs to a single run and must not be shared between goroutines.
type State struct {
	username string
	storeID  string
	topK     int

	userHistory    []string
	inventory      []string
	candidateItems []string
	result         *Recommendation

	written map[Field]bool

	// stage is the current position of the state machine.
	stage StageID
	trail []StageID
}

// NewState creates a clean state positioned at StageStart.
func NewState(username, storeID string, topK int) (*State, error) {
	if topK < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTopK, topK)
	}
	return &State{
		username:       username,
		storeID:        storeID,
		topK:           topK,
		userHistory:    []string{},
		inventory:      []string{},
		candidateItems: []string{},
		written:        make(map[Field]bool),
		stage:          StageStart,
		trail:          []StageID{},
	}, nil
}

// Username returns the user the run was created for.
func (s *State) Username() string { return s.username }

// StoreID returns the store the run was created for.
func (s *State) StoreID() string { return s.storeID }

// TopK returns the maximum number of recommended items.
func (s *State) TopK() int { return s.topK }

// UserHistory returns a copy of the purchase history.
func (s *State) UserHistory() []string { return clone(s.userHistory) }

// Inventory returns a copy of the store inventory.
func (s *State) Inventory() []string { return clone(s.inventory) }

// CandidateItems returns a copy of the candidate list.
func (s *State) CandidateItems() []string { return clone(s.candidateItems) }

// Result returns the recommendation, or nil before RecommendItems has run.
func (s *State) Result() *Recommendation {
	if s.result == nil {
		return nil
	}
	return &Recommendation{Items: clone(s.result.Items)}
}

// Written reports whether f holds a value, either as an input or from a stage.
func (s *State) Written(f Field) bool {
	if f.IsInput() {
		return true
	}
	return s.written[f]
}

// SetUserHistory stores a copy of the purchase history. It may be called once.
func (s *State) SetUserHistory(items []string) error {
	if err := s.claim(FieldUserHistory); err != nil {
		return err
	}
	s.userHistory = clone(items)
	return nil
}

// SetInventory stores a copy of the store inventory. It may be called once.
func (s *State) SetInventory(items []string) error {
	if err := s.claim(FieldInventory); err != nil {
		return err
	}
	s.inventory = clone(items)
	return nil
}

// SetCandidateItems stores a copy of the sanitized candidates. It may be called once.
func (s *State) SetCandidateItems(items []string) error {
	if err := s.claim(FieldCandidateItems); err != nil {
		return err
	}
	s.candidateItems = clone(items)
	return nil
}

// SetResult stores the final recommendation. It may be called once.
func (s *State) SetResult(rec Recommendation) error {
	if err := s.claim(FieldResult); err != nil {
		return err
	}
	s.result = &Recommendation{Items: clone(rec.Items)}
	return nil
}

func (s *State) claim(f Field) error {
	if s.written[f] {
		return fmt.Errorf("%w: %s", ErrFieldRewritten, f)
	}
	s.written[f] = true
	return nil
}

// Stage returns the current position of the state machine.
func (s *State) Stage() StageID { return s.stage }

// Trail returns the stages completed so far, in execution order.
func (s *State) Trail() []StageID {
	out := make([]StageID, len(s.trail))
	copy(out, s.trail)
	return out
}

// Terminated reports whether the run reached StageTerminal.
func (s *State) Terminated() bool { return s.stage == StageTerminal }

// Advance records the completion of the current stage and moves the cursor to next.
// It is called by the executor only.
func (s *State) Advance(next StageID) {
	if s.stage != StageStart {
		s.trail = append(s.trail, s.stage)
	}
	s.stage = next
}

// Snapshot is the serializable view of a State.
type Snapshot struct {
	Username       string          `json:"username" yaml:"username"`
	StoreID        string          `json:"store_id" yaml:"store_id"`
	TopK           int             `json:"top_k" yaml:"top_k"`
	UserHistory    []string        `json:"user_history" yaml:"user_history"`
	Inventory      []string        `json:"inventory" yaml:"inventory"`
	CandidateItems []string        `json:"candidate_items" yaml:"candidate_items"`
	Result         *Recommendation `json:"result" yaml:"result"`
	Stage          StageID         `json:"stage" yaml:"stage"`
	Trail          []StageID       `json:"trail" yaml:"trail"`
}

// Snapshot copies the state into its serializable form.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Username:       s.username,
		StoreID:        s.storeID,
		TopK:           s.topK,
		UserHistory:    s.UserHistory(),
		Inventory:      s.Inventory(),
		CandidateItems: s.CandidateItems(),
		Result:         s.Result(),
		Stage:          s.stage,
		Trail:          s.Trail(),
	}
}

func clone(items []string) []string {
	out := make([]string, len(items))
	copy(out, items)
	return out
}
