package validator

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/curator/pkg/ports"
)

// Issue is one problem found in catalog data.
type Issue struct {
	Kind    string // "user" or "store"
	ID      string
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s '%s': %s", i.Kind, i.ID, i.Message)
}

// ValidateCatalog checks for empty or duplicate ids, duplicate names in a record and
// empty item names. A read failure is returned as an error; data problems as issues.
func ValidateCatalog(ctx context.Context, catalog ports.Lister) ([]Issue, error) {
	users, err := catalog.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	stores, err := catalog.ListStores(ctx)
	if err != nil {
		return nil, err
	}

	var issues []Issue
	seen := make(map[string]bool)
	for i, u := range users {
		issues = append(issues, checkRecord("user", u.Username, i, u.Items, seen)...)
	}
	seen = make(map[string]bool)
	for i, s := range stores {
		issues = append(issues, checkRecord("store", s.StoreID, i, s.Items, seen)...)
	}
	return issues, nil
}

func checkRecord(kind, id string, index int, items []string, seen map[string]bool) []Issue {
	var issues []Issue
	if strings.TrimSpace(id) == "" {
		issues = append(issues, Issue{Kind: kind, ID: fmt.Sprintf("#%d", index), Message: "empty id"})
	} else if seen[id] {
		issues = append(issues, Issue{Kind: kind, ID: id, Message: "duplicate id (only the first record is used)"})
	}
	seen[id] = true

	names := make(map[string]bool, len(items))
	for j, item := range items {
		if strings.TrimSpace(item) == "" {
			issues = append(issues, Issue{Kind: kind, ID: id, Message: fmt.Sprintf("item %d has an empty name", j)})
			continue
		}
		if names[item] {
			issues = append(issues, Issue{Kind: kind, ID: id, Message: fmt.Sprintf("item '%s' is listed more than once", item)})
		}
		names[item] = true
	}
	return issues
}

// Error joins issues into one error, or returns nil when there are none.
func Error(issues []Issue) error {
	if len(issues) == 0 {
		return nil
	}
	lines := make([]string, len(issues))
	for i, is := range issues {
		lines[i] = "- " + is.String()
	}
	return fmt.Errorf("catalog has %d issue(s):\n%s", len(issues), strings.Join(lines, "\n"))
}
