package relevance

import "strings"

// EntityRules is the curated rule set of one entity.
type EntityRules struct {
	// Exclude forces rejection whenever one of the terms is present.
	Exclude []string
	// RequireContext must have at least one term present for acceptance.
	RequireContext []string
	// Identifiers are low-collision tokens (domains, product slugs) that accept on their own.
	Identifiers []string
}

func (r EntityRules) normalized() EntityRules {
	return EntityRules{
		Exclude:        normalizeTerms(r.Exclude),
		RequireContext: normalizeTerms(r.RequireContext),
		Identifiers:    normalizeTerms(r.Identifiers),
	}
}

// RuleTable maps entity names (case-insensitive) to their curated rules.
type RuleTable struct {
	entities map[string]EntityRules
}

// NewRuleTable normalizes names and terms.
func NewRuleTable(rules map[string]EntityRules) RuleTable {
	table := RuleTable{entities: make(map[string]EntityRules, len(rules))}
	for name, r := range rules {
		table.entities[tableKey(name)] = r.normalized()
	}
	return table
}

// Lookup returns the rules registered for an entity name.
func (t RuleTable) Lookup(name string) (EntityRules, bool) {
	r, ok := t.entities[tableKey(name)]
	return r, ok
}

// Len reports the number of entities with curated rules.
func (t RuleTable) Len() int {
	return len(t.entities)
}

func tableKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// GenericRules is the entity-agnostic relevance gate used for name/keyword triggers.
type GenericRules struct {
	Deny  []string
	Allow []string
}

// DefaultGenericRules returns the stock deny/allow lists.
func DefaultGenericRules() GenericRules {
	return GenericRules{
		Deny: []string{
			"recipe", "cooking", "food blog", "restaurant menu",
			"weather forecast", "entertainment news", "movie review",
			"zelda", "gaming", "video game", "nintendo",
		},
		Allow: []string{
			"startup", "company", "business", "technology", "tech",
			"funding", "investment", "venture", "innovation",
			"platform", "software", "service", "solution", "ai",
			"artificial intelligence", "machine learning", "saas",
		},
	}
}

func (g GenericRules) normalized() GenericRules {
	return GenericRules{Deny: normalizeTerms(g.Deny), Allow: normalizeTerms(g.Allow)}
}
