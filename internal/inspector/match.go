package inspector

import (
	"sort"
	"strings"

	"github.com/dgnsrekt/tabhost/internal/tabs"
)

// TabInfo is the slice of tab state the matcher compares against targets.
type TabInfo struct {
	TabID        tabs.TabID
	URL          string
	Title        string
	OverrideName string
}

// MatchTargetForTab picks the target backing a tab. Scoring prefers a URL
// match over an override-name match over a title match; a tie between
// distinct targets at the best score is ambiguous rather than a guess.
func MatchTargetForTab(targets []Target, tab TabInfo, sender string) (uint64, error) {
	type candidate struct {
		targetID uint64
		score    int
	}
	var candidates []candidate
	for _, target := range targets {
		if score, ok := matchScore(tab, target, sender); ok {
			candidates = append(candidates, candidate{targetID: target.ID, score: score})
		}
	}
	if len(candidates) == 0 {
		return 0, ErrNotFound
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > 1 && candidates[1].score == candidates[0].score {
		return 0, ErrAmbiguous
	}
	return candidates[0].targetID, nil
}

// MatchTabForTarget picks the tab a target belongs to, or none when the best
// score is tied.
func MatchTabForTarget(target Target, infos []TabInfo, sender string) (tabs.TabID, bool) {
	type candidate struct {
		tabID tabs.TabID
		score int
	}
	var candidates []candidate
	for _, tab := range infos {
		if score, ok := matchScore(tab, target, sender); ok {
			candidates = append(candidates, candidate{tabID: tab.TabID, score: score})
		}
	}
	if len(candidates) == 0 {
		return tabs.TabID{}, false
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > 1 && candidates[1].score == candidates[0].score {
		return tabs.TabID{}, false
	}
	return candidates[0].tabID, true
}

// matchScore rates one tab/target pair: 3 for a URL match, 2 for an override
// name match, 1 for a title match. Targets owned by another process or of a
// non-page type never match.
func matchScore(tab TabInfo, target Target, sender string) (int, bool) {
	if target.HostApp != sender {
		return 0, false
	}
	if target.Type != "" && !isPageType(target.Type) {
		return 0, false
	}

	if tab.URL != "" && target.URL != "" &&
		normalizeURLKey(tab.URL) == normalizeURLKey(target.URL) {
		return 3, true
	}
	if tab.OverrideName != "" && target.OverrideName != "" &&
		tab.OverrideName == target.OverrideName {
		return 2, true
	}
	if tab.Title != "" && target.Title != "" && tab.Title == target.Title {
		return 1, true
	}
	return 0, false
}

func isPageType(targetType string) bool {
	switch targetType {
	case "page", "WIRTypeWebPage":
		return true
	}
	return false
}

func normalizeURLKey(input string) string {
	return strings.ToLower(strings.TrimRight(input, "/"))
}
