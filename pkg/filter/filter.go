// Package filter decides whether a normalized item is relevant to the team.
//
// Rules are applied in a fixed order, first match decides:
//  1. exclusion terms reject, even for trusted sources
//  2. trusted sources accept
//  3. strong terms (full team name, venue, people) accept
//  4. team keyword together with a sport context keyword accepts
//  5. everything else is rejected
//
// Term lists are data, see Rules and DefaultRules.
package filter

import (
	"regexp"
	"strings"

	"github.com/umputun/cubscope/pkg/domain"
)

// Rules holds term lists used by the classifier
type Rules struct {
	Exclude        []string // other sports and teams, always reject
	Strong         []string // unambiguous on their own
	Team           []string // ambiguous team keywords, need context
	Context        []string // sport context keywords
	TrustedDomains []string // link or source url hints, may include path, e.g. "mlb.com/cubs"
	TrustedSources []string // source names treated as trusted
}

// Reason tells which rule made the decision
type Reason string

// decision reasons
const (
	ReasonExcluded Reason = "excluded"
	ReasonTrusted  Reason = "trusted source"
	ReasonStrong   Reason = "strong match"
	ReasonContext  Reason = "team with context"
	ReasonNoMatch  Reason = "no match"
)

// Decision is the classifier verdict for one item
type Decision struct {
	Accepted bool
	Reason   Reason
	Term     string // matched term, empty for trust and no-match decisions
}

// Classifier applies Rules to items. Immutable after creation, safe for concurrent use.
type Classifier struct {
	exclude        *termSet
	strong         *termSet
	team           *termSet
	context        *termSet
	trustedDomains []string
	trustedSources map[string]struct{}
}

// New makes a classifier for the given rules
func New(rules Rules) *Classifier {
	c := &Classifier{
		exclude:        newTermSet(rules.Exclude),
		strong:         newTermSet(rules.Strong),
		team:           newTermSet(rules.Team),
		context:        newTermSet(rules.Context),
		trustedSources: make(map[string]struct{}, len(rules.TrustedSources)),
	}
	for _, d := range rules.TrustedDomains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			c.trustedDomains = append(c.trustedDomains, d)
		}
	}
	for _, name := range rules.TrustedSources {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			c.trustedSources[name] = struct{}{}
		}
	}
	return c
}

// IsRelevant returns true if item from src belongs to the output
func (c *Classifier) IsRelevant(item domain.Item, src domain.Source) bool {
	return c.Classify(item, src).Accepted
}

// Classify evaluates rules in order and returns the first matching decision
func (c *Classifier) Classify(item domain.Item, src domain.Source) Decision {
	hay := strings.ToLower(item.Title + "\n" + item.Summary + "\n" + item.Link)

	if term, ok := c.exclude.find(hay); ok {
		return Decision{Reason: ReasonExcluded, Term: term}
	}

	if c.trusted(item, src) {
		return Decision{Accepted: true, Reason: ReasonTrusted}
	}

	if term, ok := c.strong.find(hay); ok {
		return Decision{Accepted: true, Reason: ReasonStrong, Term: term}
	}

	if term, ok := c.team.find(hay); ok {
		if _, hasContext := c.context.find(hay); hasContext {
			return Decision{Accepted: true, Reason: ReasonContext, Term: term}
		}
	}

	return Decision{Reason: ReasonNoMatch}
}

// trusted checks source flag, source name and domain hints against item link and source url
func (c *Classifier) trusted(item domain.Item, src domain.Source) bool {
	if src.Trusted {
		return true
	}
	if _, ok := c.trustedSources[strings.ToLower(strings.TrimSpace(src.Name))]; ok {
		return true
	}
	link, srcURL := strings.ToLower(item.Link), strings.ToLower(src.URL)
	for _, hint := range c.trustedDomains {
		if strings.Contains(link, hint) || strings.Contains(srcURL, hint) {
			return true
		}
	}
	return false
}

// termSet matches any of its terms on word boundaries in a lowercased text
type termSet struct {
	re *regexp.Regexp
}

func newTermSet(terms []string) *termSet {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		p := regexp.QuoteMeta(t)
		// boundary only where the term edge is a word char, "st. louis" would never match otherwise
		if isWordByte(t[0]) {
			p = `\b` + p
		}
		if isWordByte(t[len(t)-1]) {
			p += `\b`
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return &termSet{}
	}
	return &termSet{re: regexp.MustCompile(strings.Join(parts, "|"))}
}

// find returns the first matched term
func (s *termSet) find(hay string) (string, bool) {
	if s.re == nil {
		return "", false
	}
	m := s.re.FindString(hay)
	return m, m != ""
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}
