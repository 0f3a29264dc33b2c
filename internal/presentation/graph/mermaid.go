package graph

import (
	"fmt"
	"strings"
)

// Stage is the view of a pipeline stage needed to draw it.
type Stage struct {
	ID     string
	Reads  []string
	Writes []string
	// Tool names the collaborator the stage calls, if any.
	Tool string
}

// GraphOverlay contains run data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
	// Degraded marks stages that completed on a fail-open default.
	Degraded []string
}

// GenerateMermaid produces a Mermaid flowchart for a linear pipeline:
// start((circle)) → one [rectangle] per stage → terminal((circle)).
// Stages that call a collaborator are drawn as [[subroutines]]. Edges carry the fields
// the next stage reads.
func GenerateMermaid(stages []Stage, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString("    start((\"start\"))\n")

	prev := "start"
	for _, st := range stages {
		safeID := sanitizeMermaidID(st.ID)

		opener, closer := "[", "]"
		if st.Tool != "" {
			opener, closer = "[[", "]]"
		}
		label := st.ID
		if len(st.Writes) > 0 {
			label = fmt.Sprintf("%s <br/> ✎ %s", st.ID, strings.Join(st.Writes, ", "))
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))

		arrow := "-->"
		if len(st.Reads) > 0 {
			arrow = fmt.Sprintf("-- \"%s\" -->", strings.Join(st.Reads, ", "))
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", prev, arrow, safeID))
		prev = safeID
	}
	sb.WriteString("    terminal((\"terminal\"))\n")
	sb.WriteString(fmt.Sprintf("    %s --> terminal\n", prev))

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on light fills regardless of theme.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef degraded fill:#fff3e0,stroke:#e65100,stroke-width:2px,stroke-dasharray: 5 5,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !seen[safeID] && safeID != "" {
				seen[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}
		for _, id := range overlay.Degraded {
			sb.WriteString(fmt.Sprintf("    class %s degraded;\n", sanitizeMermaidID(id)))
		}
		if overlay.CurrentNode != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode)))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
