package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aretw0/curator/internal/presentation/graph"
	"github.com/aretw0/curator/internal/runtime"
	"github.com/aretw0/curator/pkg/domain"
	"github.com/aretw0/curator/pkg/registry"
)

// stageTools names the collaborator each built-in stage calls.
var stageTools = map[domain.StageID]string{
	domain.StageFetchUserHistory: string(domain.ToolHistoryLookup),
	domain.StageFetchInventory:   string(domain.ToolInventoryLookup),
	domain.StageBuildCandidates:  runtime.ToolGenerate,
	domain.StageRecommendItems:   string(domain.ToolRank),
}

// PrintResult writes the human-readable result line.
func PrintResult(w io.Writer, rec *domain.Recommendation) {
	items := []string{}
	if rec != nil && rec.Items != nil {
		items = rec.Items
	}
	fmt.Fprintf(w, "Recommended items: %s\n", formatItems(items))
}

// formatItems renders items as a JSON list so names with spaces stay unambiguous.
func formatItems(items []string) string {
	out, _ := json.Marshal(items)
	return string(out)
}

// RunOutput is the --json view of a completed run.
type RunOutput struct {
	RunID string          `json:"run_id"`
	State domain.Snapshot `json:"state"`
}

// PrintJSON writes the full final state as indented JSON.
func PrintJSON(w io.Writer, runID string, state *domain.State) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(RunOutput{RunID: runID, State: state.Snapshot()})
}

// GraphStages converts the pipeline into the drawable view.
func GraphStages(p *runtime.Pipeline) []graph.Stage {
	stages := p.Stages()
	out := make([]graph.Stage, 0, len(stages))
	for _, st := range stages {
		out = append(out, graph.Stage{
			ID:     string(st.ID),
			Reads:  fieldNames(st.Reads),
			Writes: fieldNames(st.Writes),
			Tool:   stageTools[st.ID],
		})
	}
	return out
}

func fieldNames(fields []domain.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}

// Explain builds a markdown report of a run: inputs, each stage with its tool calls,
// the intermediate lists, the result and the pipeline graph with the run overlaid.
func Explain(runID string, state *domain.State, stages []StageTrace, p *runtime.Pipeline) string {
	var sb strings.Builder
	snap := state.Snapshot()

	fmt.Fprintf(&sb, "# Recommendation for `%s` at `%s`\n\n", snap.Username, snap.StoreID)
	fmt.Fprintf(&sb, "Run `%s`, top_k = %d.\n\n", runID, snap.TopK)

	sb.WriteString("## Stages\n\n")
	sb.WriteString("| Stage | Tools | Duration | Status |\n")
	sb.WriteString("|---|---|---|---|\n")
	overlay := &graph.GraphOverlay{CurrentNode: string(snap.Stage)}
	for _, st := range stages {
		status := "ok"
		switch {
		case st.Err != nil:
			status = "failed: " + st.Err.Error()
		case st.Degraded:
			status = "degraded: " + st.Reason
			overlay.Degraded = append(overlay.Degraded, string(st.Stage))
		}
		overlay.VisitedNodes = append(overlay.VisitedNodes, string(st.Stage))

		tools := make([]string, 0, len(st.Tools))
		for _, t := range st.Tools {
			name := t.Name
			if t.IsError {
				name += " (error)"
			}
			tools = append(tools, name)
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", st.Stage, strings.Join(tools, ", "), st.Duration.Round(time.Microsecond), escapeCell(status))
	}

	sb.WriteString("\n## Data\n\n")
	writeList(&sb, "User history", snap.UserHistory)
	writeList(&sb, "Inventory", snap.Inventory)
	writeList(&sb, "Candidates", snap.CandidateItems)
	if raw, ok := capabilityReply(stages); ok {
		sb.WriteString("**Capability reply**\n\n```\n")
		sb.WriteString(raw)
		sb.WriteString("\n```\n\n")
	}

	sb.WriteString("## Result\n\n")
	if snap.Result == nil || len(snap.Result.Items) == 0 {
		sb.WriteString("_No items._\n\n")
	} else {
		for i, item := range snap.Result.Items {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, item)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Pipeline\n\n```mermaid\n")
	sb.WriteString(graph.GenerateMermaid(GraphStages(p), overlay))
	sb.WriteString("```\n")
	return sb.String()
}

func writeList(sb *strings.Builder, title string, items []string) {
	fmt.Fprintf(sb, "**%s** (%d): ", title, len(items))
	if len(items) == 0 {
		sb.WriteString("_empty_\n\n")
		return
	}
	sb.WriteString(strings.Join(items, ", "))
	sb.WriteString("\n\n")
}

func capabilityReply(stages []StageTrace) (string, bool) {
	for _, st := range stages {
		for _, t := range st.Tools {
			if t.Name == runtime.ToolGenerate && !t.IsError {
				if s, ok := t.Output.(string); ok {
					return s, true
				}
			}
		}
	}
	return "", false
}

func escapeCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}

// PrintTools writes the registry tool descriptions as indented JSON.
func PrintTools(w io.Writer, reg *registry.Registry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reg.Tools())
}
