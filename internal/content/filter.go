package content

import "strings"

// StatusAll disables status filtering in Filter.
const StatusAll = "all"

// Filter is the agent browse query. Articles hidden from agents never match.
type Filter struct {
	Query  string
	TeamID string
	// Status is a Status value or StatusAll. Empty means published.
	Status string
}

func (f Filter) Match(a Article) bool {
	if !a.IsVisibleToAgents {
		return false
	}
	if q := strings.ToLower(f.Query); q != "" {
		if !strings.Contains(strings.ToLower(a.Title), q) && !strings.Contains(strings.ToLower(a.Summary), q) {
			return false
		}
	}
	if f.TeamID != "" && !a.HasTeam(f.TeamID) {
		return false
	}
	status := f.Status
	if status == "" {
		status = string(StatusPublished)
	}
	if status != StatusAll && string(a.Status) != status {
		return false
	}
	return true
}

// FilterArticles keeps matching articles in their stored order.
func FilterArticles(articles []Article, f Filter) []Article {
	out := make([]Article, 0, len(articles))
	for _, article := range articles {
		if f.Match(article) {
			out = append(out, article)
		}
	}
	return out
}

// Counts summarises the collection for the admin dashboard.
type Counts struct {
	Total     int `json:"total"`
	Published int `json:"published"`
	Drafts    int `json:"drafts"`
}

// Count treats every non-published article as a draft.
func Count(articles []Article) Counts {
	counts := Counts{Total: len(articles)}
	for _, article := range articles {
		if article.Status == StatusPublished {
			counts.Published++
		}
	}
	counts.Drafts = counts.Total - counts.Published
	return counts
}
