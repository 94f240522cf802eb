// Package reaction shapes raw reaction rows into per-emoji summaries.
package reaction

import "github.com/ngochieu276/slack-clone/internal/store"

// Summary aggregates every reaction with one value on one message.
type Summary struct {
	Value     string   `json:"value"`
	Count     int      `json:"count"`
	MemberIDs []string `json:"memberIds"`
}

// Summarize returns one summary per distinct value in first-seen order. Count is
// the number of rows carrying the value; MemberIDs holds each reacting member
// once. A member that reacted twice with the same value adds two to Count but
// appears once in MemberIDs.
func Summarize(rows []store.Reaction) []Summary {
	out := make([]Summary, 0)
	index := make(map[string]int)
	seen := make(map[string]map[string]struct{})

	for _, row := range rows {
		i, ok := index[row.Value]
		if !ok {
			i = len(out)
			index[row.Value] = i
			out = append(out, Summary{Value: row.Value, MemberIDs: []string{}})
			seen[row.Value] = make(map[string]struct{})
		}
		out[i].Count++
		if _, dup := seen[row.Value][row.MemberID]; !dup {
			seen[row.Value][row.MemberID] = struct{}{}
			out[i].MemberIDs = append(out[i].MemberIDs, row.MemberID)
		}
	}
	return out
}

// ReactedBy reports whether memberID appears in the summary for value.
func ReactedBy(summaries []Summary, value, memberID string) bool {
	for _, s := range summaries {
		if s.Value != value {
			continue
		}
		for _, id := range s.MemberIDs {
			if id == memberID {
				return true
			}
		}
	}
	return false
}
