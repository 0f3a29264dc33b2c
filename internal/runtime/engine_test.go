package runtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/curator/internal/runtime"
	"github.com/aretw0/curator/pkg/adapters/memory"
	"github.com/aretw0/curator/pkg/capability"
	"github.com/aretw0/curator/pkg/domain"
	"github.com/aretw0/curator/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type mockCapability struct {
	mock.Mock
}

func (m *mockCapability) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type brokenCatalog struct{ failStores bool }

func (b brokenCatalog) LookupUser(context.Context, string) (domain.UserPurchase, bool, error) {
	if b.failStores {
		return domain.UserPurchase{Username: "u", Items: []string{"Keyboard"}}, true, nil
	}
	return domain.UserPurchase{}, false, errors.New("users.json: unexpected end of JSON input")
}

func (b brokenCatalog) LookupStore(context.Context, string) (domain.StoreInventory, bool, error) {
	return domain.StoreInventory{}, false, errors.New("stores.json: unexpected end of JSON input")
}

// scenarioCatalog holds the reference data used across the run scenarios.
func scenarioCatalog() *memory.Catalog {
	return memory.NewCatalog(
		[]domain.UserPurchase{{Username: "u", Items: []string{"Keyboard", "Mouse"}}},
		[]domain.StoreInventory{{StoreID: "S", Items: []string{"Keyboard", "Mouse", "Monitor"}}},
	)
}

func newEngine(c *capability.Static, opts ...runtime.EngineOption) *runtime.Engine {
	return runtime.NewEngine(registry.New(scenarioCatalog()), c, opts...)
}

func run(t *testing.T, e *runtime.Engine, username, storeID string, topK int) *domain.State {
	t.Helper()
	ctx := context.Background()
	state, err := e.Start(ctx, username, storeID, topK)
	require.NoError(t, err)
	final, err := e.Run(ctx, state)
	require.NoError(t, err)
	require.True(t, final.Terminated())
	return final
}

func TestRun_Scenarios(t *testing.T) {
	tests := []struct {
		name       string
		username   string
		topK       int
		output     string
		history    []string
		candidates []string
		want       []string
	}{
		{
			name:       "happy path",
			username:   "u",
			topK:       3,
			output:     `["Keyboard","Monitor"]`,
			history:    []string{"Keyboard", "Mouse"},
			candidates: []string{"Keyboard", "Monitor"},
			want:       []string{"Keyboard", "Monitor"},
		},
		{
			name:       "truncation",
			username:   "u",
			topK:       1,
			output:     `["Monitor","Keyboard"]`,
			history:    []string{"Keyboard", "Mouse"},
			candidates: []string{"Monitor", "Keyboard"},
			want:       []string{"Keyboard"},
		},
		{
			name:       "malformed capability output",
			username:   "u",
			topK:       3,
			output:     "not a list",
			history:    []string{"Keyboard", "Mouse"},
			candidates: []string{},
			want:       []string{},
		},
		{
			name:       "unknown user",
			username:   "nobody",
			topK:       3,
			output:     `[]`,
			history:    []string{},
			candidates: []string{},
			want:       []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			final := run(t, newEngine(capability.NewStatic(tt.output)), tt.username, "S", tt.topK)

			assert.Equal(t, tt.history, final.UserHistory())
			assert.Equal(t, []string{"Keyboard", "Mouse", "Monitor"}, final.Inventory())
			assert.Equal(t, tt.candidates, final.CandidateItems())
			require.NotNil(t, final.Result())
			assert.Equal(t, tt.want, final.Result().Items)
		})
	}
}

func TestRun_ResultProperties(t *testing.T) {
	outputs := []string{`[]`, `["b"]`, `["c","a","b"]`, `["x","x","y"]`, `{"items":["a"]}`}
	for _, out := range outputs {
		for topK := 0; topK <= 4; topK++ {
			final := run(t, newEngine(capability.NewStatic(out)), "u", "S", topK)
			candidates := final.CandidateItems()
			items := final.Result().Items

			assert.Len(t, items, min(topK, len(candidates)), "output=%s top_k=%d", out, topK)
			assert.Subset(t, candidates, items)
			assert.IsNonDecreasing(t, items)
		}
	}
}

func TestRun_UnknownStore(t *testing.T) {
	final := run(t, newEngine(capability.NewStatic(`["Keyboard"]`)), "u", "nowhere", 3)
	assert.Equal(t, []string{}, final.Inventory())
	assert.Equal(t, []string{"Keyboard"}, final.Result().Items, "candidates are not filtered against inventory")
}

func TestRun_PromptCarriesHistoryAndInventory(t *testing.T) {
	m := new(mockCapability)
	want := runtime.BuildPrompt([]string{"Keyboard", "Mouse"}, []string{"Keyboard", "Mouse", "Monitor"})
	m.On("Generate", mock.Anything, want).Return(`["Monitor"]`, nil).Once()

	e := runtime.NewEngine(registry.New(scenarioCatalog()), m)
	final := run(t, e, "u", "S", 3)

	assert.Equal(t, []string{"Monitor"}, final.Result().Items)
	m.AssertExpectations(t)
}

func TestRun_CapabilityFailureFailsOpen(t *testing.T) {
	m := new(mockCapability)
	m.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("connection refused")).Once()

	var degraded *domain.StageEvent
	e := runtime.NewEngine(registry.New(scenarioCatalog()), m, runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnStageLeave: func(_ context.Context, ev *domain.StageEvent) {
			if ev.Degraded {
				degraded = ev
			}
		},
	}))
	final := run(t, e, "u", "S", 3)

	assert.Equal(t, []string{}, final.CandidateItems())
	assert.Equal(t, []string{}, final.Result().Items)
	require.NotNil(t, degraded)
	assert.Equal(t, domain.StageBuildCandidates, degraded.Stage)
	assert.Contains(t, degraded.Reason, "connection refused")
	m.AssertExpectations(t)
}

func TestRun_CapabilityTimeoutFailsOpen(t *testing.T) {
	slow := capability.Func(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	e := runtime.NewEngine(registry.New(scenarioCatalog()), slow, runtime.WithCapabilityTimeout(10*time.Millisecond))

	final := run(t, e, "u", "S", 3)
	assert.Equal(t, []string{}, final.CandidateItems())
	assert.Equal(t, []string{}, final.Result().Items)
}

func TestRun_CapabilityRetries(t *testing.T) {
	m := new(mockCapability)
	m.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("503")).Once()
	m.On("Generate", mock.Anything, mock.Anything).Return(`["Monitor"]`, nil).Once()

	e := runtime.NewEngine(registry.New(scenarioCatalog()), m, runtime.WithCapabilityRetries(1))
	final := run(t, e, "u", "S", 3)

	assert.Equal(t, []string{"Monitor"}, final.Result().Items)
	m.AssertNumberOfCalls(t, "Generate", 2)
}

func TestRun_NoRetriesByDefault(t *testing.T) {
	m := new(mockCapability)
	m.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("503"))

	run(t, runtime.NewEngine(registry.New(scenarioCatalog()), m), "u", "S", 3)
	m.AssertNumberOfCalls(t, "Generate", 1)
}

func TestRun_NilCapabilityDegrades(t *testing.T) {
	final := run(t, runtime.NewEngine(registry.New(scenarioCatalog()), nil), "u", "S", 3)
	assert.Equal(t, []string{}, final.Result().Items)
}

func TestRun_DataSourceErrorIsFatal(t *testing.T) {
	tests := []struct {
		name    string
		catalog brokenCatalog
		stage   domain.StageID
	}{
		{"users unreadable", brokenCatalog{}, domain.StageFetchUserHistory},
		{"stores unreadable", brokenCatalog{failStores: true}, domain.StageFetchInventory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(mockCapability)
			e := runtime.NewEngine(registry.New(tt.catalog), m)
			ctx := context.Background()
			state, err := e.Start(ctx, "u", "S", 3)
			require.NoError(t, err)

			final, err := e.Run(ctx, state)
			assert.Nil(t, final, "no partial state on fatal error")
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrDataUnavailable)

			var stageErr *runtime.StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, tt.stage, stageErr.Stage)
			m.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
		})
	}
}

func TestStep_Sequence(t *testing.T) {
	e := newEngine(capability.NewStatic(`["Monitor"]`))
	ctx := context.Background()
	state, err := e.Start(ctx, "u", "S", 2)
	require.NoError(t, err)
	assert.Equal(t, domain.StageStart, state.Stage())

	want := []domain.StageID{
		domain.StageFetchUserHistory,
		domain.StageFetchInventory,
		domain.StageBuildCandidates,
		domain.StageTerminal,
	}
	for _, stage := range want {
		state, err = e.Step(ctx, state)
		require.NoError(t, err)
		assert.Equal(t, stage, state.Stage())
	}
	assert.Equal(t, []domain.StageID{
		domain.StageFetchUserHistory,
		domain.StageFetchInventory,
		domain.StageBuildCandidates,
		domain.StageRecommendItems,
	}, state.Trail())

	_, err = e.Step(ctx, state)
	assert.ErrorIs(t, err, runtime.ErrTerminal)
}

func TestStep_FieldsWrittenInOrder(t *testing.T) {
	e := newEngine(capability.NewStatic(`["Monitor"]`))
	ctx := context.Background()
	state, err := e.Start(ctx, "u", "S", 2)
	require.NoError(t, err)

	assert.False(t, state.Written(domain.FieldUserHistory))
	state, err = e.Step(ctx, state)
	require.NoError(t, err)
	assert.True(t, state.Written(domain.FieldUserHistory))
	assert.False(t, state.Written(domain.FieldInventory))
	assert.Nil(t, state.Result())
}

func TestRun_CanceledContext(t *testing.T) {
	e := newEngine(capability.NewStatic(`[]`))
	ctx, cancel := context.WithCancel(context.Background())
	state, err := e.Start(ctx, "u", "S", 3)
	require.NoError(t, err)
	cancel()

	final, err := e.Run(ctx, state)
	assert.Nil(t, final)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStart_RejectsNegativeTopK(t *testing.T) {
	_, err := newEngine(capability.NewStatic(`[]`)).Start(context.Background(), "u", "S", -1)
	assert.ErrorIs(t, err, domain.ErrInvalidTopK)
}

func TestRun_StageContract(t *testing.T) {
	lazy := runtime.Stage{
		ID:     "lazy",
		Reads:  []domain.Field{domain.FieldUsername},
		Writes: []domain.Field{domain.FieldUserHistory},
		Run:    func(context.Context, *domain.State, *runtime.Deps) error { return nil },
	}
	p, err := runtime.NewPipeline(lazy)
	require.NoError(t, err)

	e := runtime.NewEngine(registry.New(scenarioCatalog()), nil, runtime.WithPipeline(p))
	ctx := context.Background()
	state, err := e.Start(ctx, "u", "S", 1)
	require.NoError(t, err)

	_, err = e.Run(ctx, state)
	assert.ErrorIs(t, err, runtime.ErrStageContract)
}

func TestRun_Hooks(t *testing.T) {
	var mu sync.Mutex
	var events []string
	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, s)
	}

	var end *domain.RunEvent
	hooks := domain.LifecycleHooks{
		OnRunStart:   func(_ context.Context, ev *domain.RunEvent) { record("run_start:" + ev.RunID) },
		OnRunEnd:     func(_ context.Context, ev *domain.RunEvent) { end = ev; record("run_end") },
		OnStageEnter: func(_ context.Context, ev *domain.StageEvent) { record("enter:" + string(ev.Stage)) },
		OnStageLeave: func(_ context.Context, ev *domain.StageEvent) { record("leave:" + string(ev.Stage)) },
		OnToolCall:   func(_ context.Context, ev *domain.ToolEvent) { record("call:" + ev.ToolName) },
		OnToolReturn: func(_ context.Context, ev *domain.ToolEvent) { record("return:" + ev.ToolName) },
	}

	e := newEngine(capability.NewStatic(`["Monitor"]`), runtime.WithLifecycleHooks(hooks))
	ctx := runtime.WithRunID(context.Background(), "run-1")
	state, err := e.Start(ctx, "u", "S", 3)
	require.NoError(t, err)
	_, err = e.Run(ctx, state)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"run_start:run-1",
		"enter:fetch_user_history", "call:history_lookup", "return:history_lookup", "leave:fetch_user_history",
		"enter:fetch_inventory", "call:inventory_lookup", "return:inventory_lookup", "leave:fetch_inventory",
		"enter:build_candidates", "call:generate", "return:generate", "leave:build_candidates",
		"enter:recommend_items", "call:rank", "return:rank", "leave:recommend_items",
		"run_end",
	}, events)
	require.NotNil(t, end)
	assert.Equal(t, 1, end.Items)
	assert.NoError(t, end.Err)
}

func TestRun_Spans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	e := newEngine(capability.NewStatic("garbage"), runtime.WithTracerProvider(tp))
	run(t, e, "u", "S", 3)

	var names []string
	var degraded bool
	for _, span := range sr.Ended() {
		names = append(names, span.Name())
		if span.Name() == "stage.build_candidates" {
			for _, ev := range span.Events() {
				degraded = degraded || ev.Name == "degraded"
			}
		}
	}
	assert.ElementsMatch(t, []string{
		"stage.fetch_user_history",
		"stage.fetch_inventory",
		"stage.build_candidates",
		"stage.recommend_items",
		"curator.run",
	}, names)
	assert.True(t, degraded)
}

func TestRun_ConcurrentRuns(t *testing.T) {
	e := newEngine(capability.NewStatic(`["Monitor","Keyboard"]`))

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(topK int) {
			defer wg.Done()
			ctx := context.Background()
			state, err := e.Start(ctx, "u", "S", topK)
			assert.NoError(t, err)
			final, err := e.Run(ctx, state)
			assert.NoError(t, err)
			assert.Len(t, final.Result().Items, min(topK, 2))
		}(i % 4)
	}
	wg.Wait()
}
