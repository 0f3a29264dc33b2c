package runtime

import (
	"context"

	"github.com/aretw0/curator/pkg/domain"
	"github.com/aretw0/curator/pkg/sanitize"
)

// StageFunc reads from and writes to state through the collaborators in deps.
type StageFunc func(ctx context.Context, state *domain.State, deps *Deps) error

// Stage is one step of the pipeline along with the fields it touches.
type Stage struct {
	ID     domain.StageID
	Reads  []domain.Field
	Writes []domain.Field
	Run    StageFunc
}

// FetchUserHistory loads the purchase history of the requesting user.
var FetchUserHistory = Stage{
	ID:     domain.StageFetchUserHistory,
	Reads:  []domain.Field{domain.FieldUsername},
	Writes: []domain.Field{domain.FieldUserHistory},
	Run: func(ctx context.Context, state *domain.State, deps *Deps) error {
		items, err := deps.HistoryLookup(ctx, state.Username())
		if err != nil {
			return err
		}
		return state.SetUserHistory(items)
	},
}

// FetchInventory loads the items of the requested store.
var FetchInventory = Stage{
	ID:     domain.StageFetchInventory,
	Reads:  []domain.Field{domain.FieldStoreID},
	Writes: []domain.Field{domain.FieldInventory},
	Run: func(ctx context.Context, state *domain.State, deps *Deps) error {
		items, err := deps.InventoryLookup(ctx, state.StoreID())
		if err != nil {
			return err
		}
		return state.SetInventory(items)
	},
}

// BuildCandidates asks the capability for likely items. Any capability or parse failure
// leaves an empty candidate list and marks the stage degraded.
var BuildCandidates = Stage{
	ID:     domain.StageBuildCandidates,
	Reads:  []domain.Field{domain.FieldUserHistory, domain.FieldInventory},
	Writes: []domain.Field{domain.FieldCandidateItems},
	Run: func(ctx context.Context, state *domain.State, deps *Deps) error {
		prompt := BuildPrompt(state.UserHistory(), state.Inventory())

		var res sanitize.Result
		if text, err := deps.Generate(ctx, prompt); err != nil {
			res = sanitize.Fail(err)
		} else {
			res = sanitize.ParseItems(text)
		}
		if res.Degraded() {
			deps.Degrade(res.Reason)
		}
		return state.SetCandidateItems(res.Items)
	},
}

// RecommendItems ranks the candidates and keeps the first top_k.
var RecommendItems = Stage{
	ID:     domain.StageRecommendItems,
	Reads:  []domain.Field{domain.FieldCandidateItems, domain.FieldTopK},
	Writes: []domain.Field{domain.FieldResult},
	Run: func(ctx context.Context, state *domain.State, deps *Deps) error {
		ranked, err := deps.Rank(ctx, state.CandidateItems())
		if err != nil {
			return err
		}
		n := min(state.TopK(), len(ranked))
		return state.SetResult(domain.Recommendation{Items: ranked[:n]})
	},
}
