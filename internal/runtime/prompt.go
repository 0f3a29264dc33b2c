package runtime

import (
	"encoding/json"
	"strings"
	"text/template"
)

var promptTemplate = template.Must(template.New("candidates").Parse(`You are a recommendation system.

User previously bought:
{{ .History }}

Available store inventory:
{{ .Inventory }}

Select items that the user is most likely interested in next.
Return only a JSON list of item names.
`))

// BuildPrompt renders the candidate prompt. Both lists appear as JSON arrays, so the
// same inputs always produce the same text.
func BuildPrompt(history, inventory []string) string {
	var sb strings.Builder
	_ = promptTemplate.Execute(&sb, struct {
		History   string
		Inventory string
	}{
		History:   jsonList(history),
		Inventory: jsonList(inventory),
	})
	return sb.String()
}

func jsonList(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, _ := json.Marshal(items)
	return string(b)
}
