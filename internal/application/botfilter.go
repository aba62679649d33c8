package application

import "strings"

// BotFilter classifies identities as bots by display name or identity id.
// Matching is case-insensitive; container identities (teams, groups) are
// always treated as bots since they never represent a human reviewer.
type BotFilter struct {
	names map[string]struct{}
	ids   map[string]struct{}
}

// NewBotFilter creates a filter from configured bot display names and ids.
func NewBotFilter(names, ids []string) *BotFilter {
	f := &BotFilter{
		names: make(map[string]struct{}, len(names)),
		ids:   make(map[string]struct{}, len(ids)),
	}
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			f.names[strings.ToLower(n)] = struct{}{}
		}
	}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			f.ids[strings.ToLower(id)] = struct{}{}
		}
	}
	return f
}

// IsBot reports whether the identity should be excluded from human-activity
// metrics.
func (f *BotFilter) IsBot(displayName string, isContainer bool, userID string) bool {
	if isContainer {
		return true
	}
	if _, ok := f.names[strings.ToLower(displayName)]; ok {
		return true
	}
	if userID != "" {
		if _, ok := f.ids[strings.ToLower(userID)]; ok {
			return true
		}
	}
	return false
}
