// Package relevance filters raw source hits down to true mentions of monitored entities.
package relevance

import (
	"strings"

	"PortfolioMonitor/internal/domain"
	"PortfolioMonitor/internal/ports"
)

// Reason explains a classification verdict.
type Reason string

const (
	ReasonExcluded          Reason = "excluded"
	ReasonMissingContext    Reason = "missing_context"
	ReasonIdentifier        Reason = "identifier"
	ReasonNameMatch         Reason = "name_match"
	ReasonKeywordMatch      Reason = "keyword_match"
	ReasonDenied            Reason = "denied"
	ReasonNoBusinessContext Reason = "no_business_context"
	ReasonNoMatch           Reason = "no_match"
)

// Decision is the verdict for one candidate/entity pair.
type Decision struct {
	Relevant bool
	Reason   Reason
	// Term is the rule term that settled the verdict, when there is one.
	Term string
}

// Classifier applies entity rules, then name/keyword/identifier triggers, then the generic gate.
type Classifier struct {
	rules   RuleTable
	generic GenericRules
}

var _ ports.RelevanceClassifier = (*Classifier)(nil)

// NewClassifier wires the rule table with the generic deny/allow lists.
func NewClassifier(rules RuleTable, generic GenericRules) *Classifier {
	return &Classifier{rules: rules, generic: generic.normalized()}
}

// IsRelevant reports whether the candidate mentions the entity.
func (c *Classifier) IsRelevant(candidate domain.Candidate, entity domain.MonitoredEntity) bool {
	return c.Evaluate(candidate, entity).Relevant
}

// Evaluate runs the rule cascade and reports why it settled.
// A specific identifier wins over the generic deny list; entity exclusions win over everything.
func (c *Classifier) Evaluate(candidate domain.Candidate, entity domain.MonitoredEntity) Decision {
	text := strings.ToLower(candidate.Text())
	rules, _ := c.rules.Lookup(entity.Name)

	if term := firstSubstring(text, rules.Exclude); term != "" {
		return Decision{Reason: ReasonExcluded, Term: term}
	}
	if len(rules.RequireContext) > 0 && firstTerm(text, rules.RequireContext) == "" {
		return Decision{Reason: ReasonMissingContext}
	}

	if term := c.identifierMatch(text, rules, entity); term != "" {
		return Decision{Relevant: true, Reason: ReasonIdentifier, Term: term}
	}

	trigger, term := nameOrKeywordMatch(text, entity)
	if trigger == "" {
		return Decision{Reason: ReasonNoMatch}
	}

	if denied := firstTerm(text, c.generic.Deny); denied != "" {
		return Decision{Reason: ReasonDenied, Term: denied}
	}
	if firstTerm(text, c.generic.Allow) == "" {
		return Decision{Reason: ReasonNoBusinessContext, Term: term}
	}

	return Decision{Relevant: true, Reason: trigger, Term: term}
}

func (c *Classifier) identifierMatch(text string, rules EntityRules, entity domain.MonitoredEntity) string {
	if term := firstTerm(text, rules.Identifiers); term != "" {
		return term
	}
	for _, kw := range entity.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if looksLikeDomain(kw) && containsTerm(text, kw) {
			return kw
		}
	}
	return ""
}

func nameOrKeywordMatch(text string, entity domain.MonitoredEntity) (Reason, string) {
	name := strings.ToLower(strings.TrimSpace(entity.Name))
	if name != "" && containsWord(text, name) {
		return ReasonNameMatch, name
	}

	for _, kw := range entity.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if isPhrase(kw) {
			if strings.Contains(text, kw) {
				return ReasonKeywordMatch, kw
			}
			continue
		}
		if containsWord(text, kw) {
			return ReasonKeywordMatch, kw
		}
	}
	return "", ""
}
