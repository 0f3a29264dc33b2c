package domain

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewState_Defaults(t *testing.T) {
	s, err := NewState("richard", "ABC", 3)
	require.NoError(t, err)

	assert.Equal(t, "richard", s.Username())
	assert.Equal(t, "ABC", s.StoreID())
	assert.Equal(t, 3, s.TopK())
	assert.Equal(t, StageStart, s.Stage())
	assert.Empty(t, s.Trail())
	assert.NotNil(t, s.UserHistory())
	assert.NotNil(t, s.Inventory())
	assert.NotNil(t, s.CandidateItems())
	assert.Nil(t, s.Result(), "result is absent before the terminal stage")
	assert.False(t, s.Terminated())
}

func TestNewState_RejectsNegativeTopK(t *testing.T) {
	_, err := NewState("richard", "ABC", -1)
	assert.ErrorIs(t, err, ErrInvalidTopK)
}

func TestState_WriteOnce(t *testing.T) {
	s, err := NewState("richard", "ABC", 3)
	require.NoError(t, err)

	require.NoError(t, s.SetUserHistory([]string{"Keyboard"}))
	assert.ErrorIs(t, s.SetUserHistory([]string{"Mouse"}), ErrFieldRewritten)
	assert.Equal(t, []string{"Keyboard"}, s.UserHistory())

	require.NoError(t, s.SetInventory(nil))
	assert.ErrorIs(t, s.SetInventory([]string{"Monitor"}), ErrFieldRewritten)
	assert.Equal(t, []string{}, s.Inventory(), "nil input is stored as an empty list")

	require.NoError(t, s.SetCandidateItems([]string{"Monitor"}))
	assert.ErrorIs(t, s.SetCandidateItems(nil), ErrFieldRewritten)

	require.NoError(t, s.SetResult(Recommendation{Items: []string{"Monitor"}}))
	assert.ErrorIs(t, s.SetResult(Recommendation{}), ErrFieldRewritten)
	assert.Equal(t, []string{"Monitor"}, s.Result().Items)
}

func TestState_Written(t *testing.T) {
	s, err := NewState("richard", "ABC", 3)
	require.NoError(t, err)

	for _, f := range InputFields {
		assert.True(t, s.Written(f), "input %s is always written", f)
	}
	assert.False(t, s.Written(FieldUserHistory))
	require.NoError(t, s.SetUserHistory(nil))
	assert.True(t, s.Written(FieldUserHistory))
}

func TestState_GettersReturnCopies(t *testing.T) {
	s, err := NewState("richard", "ABC", 3)
	require.NoError(t, err)
	require.NoError(t, s.SetUserHistory([]string{"Keyboard"}))

	h := s.UserHistory()
	h[0] = "tampered"
	assert.Equal(t, []string{"Keyboard"}, s.UserHistory())
}

func TestState_AdvanceAndSnapshot(t *testing.T) {
	s, err := NewState("richard", "ABC", 1)
	require.NoError(t, err)

	s.Advance(StageFetchUserHistory)
	s.Advance(StageFetchInventory)
	assert.Equal(t, StageFetchInventory, s.Stage())
	assert.Equal(t, []StageID{StageFetchUserHistory}, s.Trail())

	data, err := json.Marshal(s.Snapshot())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"username": "richard",
		"store_id": "ABC",
		"top_k": 1,
		"user_history": [],
		"inventory": [],
		"candidate_items": [],
		"result": null,
		"stage": "fetch_inventory",
		"trail": ["fetch_user_history"]
	}`, string(data))
}

func TestMergeHooks(t *testing.T) {
	var calls []string
	a := LifecycleHooks{
		OnStageEnter: func(context.Context, *StageEvent) { calls = append(calls, "a.enter") },
	}
	b := LifecycleHooks{
		OnStageEnter: func(context.Context, *StageEvent) { calls = append(calls, "b.enter") },
		OnToolCall:   func(context.Context, *ToolEvent) { calls = append(calls, "b.tool") },
	}

	merged := MergeHooks(a, LifecycleHooks{}, b)
	merged.OnStageEnter(context.Background(), &StageEvent{})
	merged.OnToolCall(context.Background(), &ToolEvent{})

	assert.Equal(t, []string{"a.enter", "b.enter", "b.tool"}, calls)
	assert.Nil(t, merged.OnRunEnd)
}

func TestToolName_Valid(t *testing.T) {
	assert.True(t, ToolRank.Valid())
	assert.False(t, ToolName("delete_everything").Valid())
}
