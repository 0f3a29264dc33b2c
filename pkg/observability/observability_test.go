package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/aretw0/curator/pkg/domain"
	"github.com/aretw0/curator/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnRunEnd(ctx, &domain.RunEvent{Duration: time.Millisecond, Items: 2})
	hooks.OnRunEnd(ctx, &domain.RunEvent{Err: errors.New("boom")})
	hooks.OnStageLeave(ctx, &domain.StageEvent{Stage: domain.StageBuildCandidates, Degraded: true})
	hooks.OnStageLeave(ctx, &domain.StageEvent{Stage: domain.StageFetchInventory})
	hooks.OnToolReturn(ctx, &domain.ToolEvent{ToolName: "generate", IsError: true})
	hooks.OnToolReturn(ctx, &domain.ToolEvent{ToolName: "rank"})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Degradations.WithLabelValues("build_candidates")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Degradations.WithLabelValues("fetch_inventory")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("generate", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("rank", "ok")))

	count, err := testutil.GatherAndCount(reg, "curator_stage_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetrics_NilRegisterer(t *testing.T) {
	m := observability.NewMetrics(nil)
	m.Hooks().OnRunEnd(context.Background(), &domain.RunEvent{})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("ok")))
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	hooks := observability.LogHooks(logger)
	ctx := context.Background()

	hooks.OnStageEnter(ctx, &domain.StageEvent{Stage: domain.StageFetchInventory})
	assert.Empty(t, buf.String(), "debug lines are filtered at warn level")

	hooks.OnStageLeave(ctx, &domain.StageEvent{
		EventBase: domain.EventBase{RunID: "r1"},
		Stage:     domain.StageBuildCandidates,
		Degraded:  true,
		Reason:    "output is not valid JSON",
	})
	assert.Contains(t, buf.String(), "Stage Degraded")
	assert.Contains(t, buf.String(), "run_id=r1")

	hooks.OnRunEnd(ctx, &domain.RunEvent{Err: errors.New("stores.json missing")})
	assert.Contains(t, buf.String(), "Run Failed")
}
