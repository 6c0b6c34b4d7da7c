package tags

import (
	"sort"

	"github.com/knakagawa/parody-engine/pkg/patterns"
	"github.com/knakagawa/parody-engine/pkg/session"
)

// Resolver computes the tag hints for a generation request by scanning the
// pattern store against the selected characters and the current context.
type Resolver struct {
	store *patterns.Store
}

// NewResolver creates a resolver over a loaded pattern store.
func NewResolver(store *patterns.Store) *Resolver {
	return &Resolver{store: store}
}

type scoredTag struct {
	tag   string
	score float64
}

// Resolve merges the tags of every selected character and the general
// bucket. A matched entry contributes a score of tag-count times the
// configured weight for each of its tags; higher scores sort first, ties
// keep first-match order. Unmatched entries from a character's own bucket
// contribute at zero score when strictness is below 0.5, ranking them after
// every matched tag. The merged list is truncated to cfg.MaxTags.
// Identical inputs always yield identical output.
func (r *Resolver) Resolve(characters []string, contextText string, cfg session.GenerationConfig) []string {
	index := make(map[string]int)
	var scored []scoredTag

	add := func(ts []string, score float64) {
		for _, tag := range ts {
			if i, ok := index[tag]; ok {
				scored[i].score += score
				continue
			}
			index[tag] = len(scored)
			scored = append(scored, scoredTag{tag: tag, score: score})
		}
	}

	scan := func(entries []patterns.Entry, name string, allowLoose bool) {
		for _, e := range entries {
			switch {
			case e.Matches(contextText) || (name != "" && e.Matches(name)):
				add(e.Tags, float64(len(e.Tags))*cfg.TagWeight)
			case allowLoose:
				add(e.Tags, 0)
			}
		}
	}

	loose := cfg.PatternStrictness < 0.5
	for _, name := range characters {
		// Loose mode only widens a character's own bucket, never the
		// general fallback.
		scan(r.store.EntriesFor(name), name, loose && r.store.HasCharacter(name))
	}
	scan(r.store.GeneralEntries(), "", false)

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	n := len(scored)
	if cfg.MaxTags > 0 && n > cfg.MaxTags {
		n = cfg.MaxTags
	}
	result := make([]string, 0, n)
	for _, st := range scored[:n] {
		result = append(result, st.tag)
	}
	return result
}

// ForCharacter returns the tags of a single character against the context,
// used for the per-character profile lines of the prompt.
func (r *Resolver) ForCharacter(name, contextText string, cfg session.GenerationConfig) []string {
	return r.store.TagsFor(name, contextText, cfg.MaxTags, cfg.PatternStrictness)
}
