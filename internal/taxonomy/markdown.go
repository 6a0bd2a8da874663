package taxonomy

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/kordite/switchboard/internal/signature"
)

// Overlay documents let operators extend the routing tables without
// recompiling. The format mirrors how the upstream knowledge-domain docs are
// written:
//
//	# Domain: data-engineering
//
//	## Keywords
//	- warehouse (0.9)
//	- etl
//
//	## Archetypes
//	- design a data warehouse schema
//
// A level-1 heading opens a candidate ("System:", "Domain:", "BE Cluster:"
// or "SE Cluster:" prefix); level-2 headings switch between the Keywords and
// Archetypes sections; list items contribute entries. Keywords may carry a
// "(weight)" suffix and default to weight 1.0 without one.

// headingKinds maps the level-1 heading prefix to a candidate kind.
var headingKinds = map[string]Kind{
	"system":     KindSystem,
	"domain":     KindDomain,
	"be cluster": KindBECluster,
	"se cluster": KindSECluster,
}

// weightSuffix matches a trailing "(0.8)" style weight annotation.
var weightSuffix = regexp.MustCompile(`^(.*?)\s*\((\d*\.?\d+)\)\s*$`)

// nonSlug matches characters replaced when deriving archetype ids.
var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// MergeOverlay parses a markdown overlay document and merges its candidates
// and archetypes into the taxonomy. Existing candidates gain the new
// keywords (duplicates by phrase are ignored); unknown headings are an error
// so typos do not silently drop routing rules.
func (t *Taxonomy) MergeOverlay(src []byte) error {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	// Track the open candidate by index: appending to t.Candidates may
	// reallocate the backing array, so a pointer would go stale.
	current := -1
	section := ""

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			title := strings.TrimSpace(nodeText(node, src))
			switch node.Level {
			case 1:
				idx, err := t.openCandidate(title)
				if err != nil {
					return err
				}
				current = idx
				section = ""
			case 2:
				section = strings.ToLower(title)
			}
		case *ast.List:
			if current < 0 {
				continue
			}
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				entry := strings.TrimSpace(nodeText(item, src))
				if entry == "" {
					continue
				}
				switch section {
				case "keywords":
					t.Candidates[current].addKeyword(parseKeyword(entry))
				case "archetypes":
					t.addArchetype(t.Candidates[current].Kind, t.Candidates[current].ID, entry)
				}
			}
		}
	}

	t.sort()
	return nil
}

// openCandidate resolves a level-1 heading to the index of an existing or
// newly appended candidate.
func (t *Taxonomy) openCandidate(title string) (int, error) {
	prefix, id, ok := strings.Cut(title, ":")
	if !ok {
		return -1, fmt.Errorf("overlay heading %q: expected \"Kind: id\"", title)
	}
	kind, known := headingKinds[strings.ToLower(strings.TrimSpace(prefix))]
	if !known {
		return -1, fmt.Errorf("overlay heading %q: unknown kind %q", title, prefix)
	}

	id = signature.Normalize(id)
	if id == "" {
		return -1, fmt.Errorf("overlay heading %q: empty id", title)
	}

	for i := range t.Candidates {
		if t.Candidates[i].ID == id {
			if t.Candidates[i].Kind != kind {
				return -1, fmt.Errorf("overlay heading %q: id already registered as %s", title, t.Candidates[i].Kind)
			}
			return i, nil
		}
	}

	t.Candidates = append(t.Candidates, Candidate{
		ID:       id,
		Kind:     kind,
		Expected: DefaultExpected,
	})
	return len(t.Candidates) - 1, nil
}

// addKeyword appends a keyword unless the phrase is already present.
func (c *Candidate) addKeyword(kw Keyword) {
	for _, existing := range c.Keywords {
		if existing.Phrase == kw.Phrase {
			return
		}
	}
	c.Keywords = append(c.Keywords, kw)
}

// addArchetype registers a canonical query pointing at the candidate.
// If the archetype already exists the candidate is added to its target sets.
func (t *Taxonomy) addArchetype(kind Kind, candidateID, query string) {
	norm := signature.Normalize(query)
	id := strings.Trim(nonSlug.ReplaceAllString(norm, "-"), "-")
	if id == "" {
		return
	}

	var arch *Archetype
	for i := range t.Archetypes {
		if t.Archetypes[i].ID == id {
			arch = &t.Archetypes[i]
			break
		}
	}
	if arch == nil {
		t.Archetypes = append(t.Archetypes, Archetype{ID: id, Query: norm})
		arch = &t.Archetypes[len(t.Archetypes)-1]
	}

	switch kind {
	case KindSystem:
		arch.Systems = appendUnique(arch.Systems, candidateID)
	case KindDomain:
		arch.Domains = appendUnique(arch.Domains, candidateID)
	case KindBECluster:
		arch.BEClusters = appendUnique(arch.BEClusters, candidateID)
	case KindSECluster:
		arch.SEClusters = appendUnique(arch.SEClusters, candidateID)
	}
}

// parseKeyword splits an optional trailing "(weight)" annotation.
func parseKeyword(entry string) Keyword {
	if m := weightSuffix.FindStringSubmatch(entry); m != nil {
		if w, err := strconv.ParseFloat(m[2], 64); err == nil && w > 0 {
			return Keyword{Phrase: signature.Normalize(m[1]), Weight: w}
		}
	}
	return Keyword{Phrase: signature.Normalize(entry), Weight: 1.0}
}

// nodeText collects the raw text content beneath a node.
func nodeText(n ast.Node, src []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := c.(*ast.Text); ok {
				sb.Write(t.Segment.Value(src))
			}
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
