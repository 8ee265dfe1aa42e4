package model

import "strings"

// SelectionBatch pairs the usernames rendered to an operator with the checkbox
// flags they submitted back. It lives for a single render/submit cycle.
type SelectionBatch struct {
	Usernames []string
	Flags     []bool
}

// Selected zips flags against usernames. Any length mismatch selects nothing.
func (b SelectionBatch) Selected() []string {
	if len(b.Usernames) == 0 || len(b.Usernames) != len(b.Flags) {
		return nil
	}
	selected := make([]string, 0, len(b.Usernames))
	for i, name := range b.Usernames {
		if b.Flags[i] {
			selected = append(selected, name)
		}
	}
	return selected
}

// ContainsUsername reports whether name is in names, ignoring case.
func ContainsUsername(names []string, name string) bool {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}
