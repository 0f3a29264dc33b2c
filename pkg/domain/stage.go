package domain

// StageID identifies a position in the recommendation state machine.
type StageID string

const (
	StageStart            StageID = "start"
	StageFetchUserHistory StageID = "fetch_user_history"
	StageFetchInventory   StageID = "fetch_inventory"
	StageBuildCandidates  StageID = "build_candidates"
	StageRecommendItems   StageID = "recommend_items"
	StageTerminal         StageID = "terminal"
)

// Field names a slot of the State record.
// Stages declare the fields they read and write so a pipeline can be checked
// before it runs.
type Field string

const (
	FieldUsername       Field = "username"
	FieldStoreID        Field = "store_id"
	FieldTopK           Field = "top_k"
	FieldUserHistory    Field = "user_history"
	FieldInventory      Field = "inventory"
	FieldCandidateItems Field = "candidate_items"
	FieldResult         Field = "result"
)

// InputFields are set when the State is created and are never written by a stage.
var InputFields = []Field{FieldUsername, FieldStoreID, FieldTopK}

// IsInput reports whether f is one of the caller-supplied inputs.
func (f Field) IsInput() bool {
	for _, in := range InputFields {
		if in == f {
			return true
		}
	}
	return false
}
