package relevance

import (
	"testing"

	"PortfolioMonitor/internal/domain"
)

func testClassifier() *Classifier {
	table := NewRuleTable(map[string]EntityRules{
		"Finch": {
			Exclude:        []string{"obituary", "chris finch", "timberwolves", "nba"},
			RequireContext: []string{"app", "platform", "software", "startup", "technology", "funding"},
			Identifiers:    []string{"finchnow"},
		},
		"cerebra": {
			Exclude:        []string{"cerebral palsy", "patient", "hospital"},
			RequireContext: []string{"ai", "artificial intelligence", "startup", "retail"},
			Identifiers:    []string{"cerebra.ai"},
		},
	})
	return NewClassifier(table, DefaultGenericRules())
}

var (
	finch    = domain.MonitoredEntity{Name: "Finch", Keywords: []string{"Finch", "finchnow", "loyalty platform"}}
	cerebra  = domain.MonitoredEntity{Name: "Cerebra", Keywords: []string{"Cerebra", "cerebra.ai", "decision intelligence"}}
	vectroid = domain.MonitoredEntity{Name: "Vectroid", Keywords: []string{"Vectroid", "vector database"}}
)

func TestExclusionWinsOverEverything(t *testing.T) {
	t.Parallel()

	c := testClassifier()
	cand := domain.Candidate{
		Title:   "Finch startup raises funding for its AI platform",
		Snippet: "Obituary: long-time investor remembered at finchnow headquarters",
	}

	d := c.Evaluate(cand, finch)
	if d.Relevant {
		t.Fatalf("excluded term must reject, got %+v", d)
	}
	if d.Reason != ReasonExcluded || d.Term != "obituary" {
		t.Fatalf("unexpected decision %+v", d)
	}

	blueDot := domain.MonitoredEntity{Name: "The Blue Dot", Keywords: []string{"The Blue Dot"}}
	infix := NewClassifier(NewRuleTable(map[string]EntityRules{
		"The Blue Dot": {Exclude: []string{"message", "android"}, RequireContext: []string{"fleet"}},
	}), DefaultGenericRules())
	for _, title := range []string{
		"The Blue Dot fleet startup fixes iMessage sync / technology platform",
		"The Blue Dot fleet startup ships a technology platform for myandroid users",
	} {
		d := infix.Evaluate(domain.Candidate{Title: title}, blueDot)
		if d.Relevant || d.Reason != ReasonExcluded {
			t.Fatalf("exclusion inside a word must reject %q, got %+v", title, d)
		}
	}
}

func TestExclusionLookupIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	c := testClassifier()
	entity := domain.MonitoredEntity{Name: "FINCH", Keywords: []string{"Finch"}}
	cand := domain.Candidate{Title: "Chris Finch talks Timberwolves technology"}

	if c.IsRelevant(cand, entity) {
		t.Fatalf("rules keyed by name must apply regardless of case")
	}
}

func TestContextRequirement(t *testing.T) {
	t.Parallel()

	c := testClassifier()
	cand := domain.Candidate{Title: "Cerebra announces a new season line-up", Snippet: "Tickets on sale now."}

	d := c.Evaluate(cand, cerebra)
	if d.Relevant || d.Reason != ReasonMissingContext {
		t.Fatalf("expected missing context rejection, got %+v", d)
	}

	cand.Snippet = "The retail AI startup opens a London office."
	if !c.IsRelevant(cand, cerebra) {
		t.Fatalf("context present, name matched, business context present: expected acceptance")
	}
}

func TestWordBoundaryNameMatch(t *testing.T) {
	t.Parallel()

	c := testClassifier()
	entity := domain.MonitoredEntity{Name: "Finch", Keywords: []string{"Finch"}}
	cand := domain.Candidate{Title: "finchx software platform launches startup program"}

	d := c.Evaluate(cand, entity)
	if d.Relevant || d.Reason != ReasonNoMatch {
		t.Fatalf("finchx must not match Finch, got %+v", d)
	}
}

func TestVectroidScenario(t *testing.T) {
	t.Parallel()

	c := NewClassifier(NewRuleTable(nil), DefaultGenericRules())

	accepted := domain.Candidate{
		Title:   "Vectroid raises funding for vector database platform",
		Snippet: "...",
		Link:    "https://example.com/a",
	}
	d := c.Evaluate(accepted, vectroid)
	if !d.Relevant || d.Reason != ReasonNameMatch {
		t.Fatalf("expected name match acceptance, got %+v", d)
	}

	rejected := domain.Candidate{Title: "Best recipes with vectors", Snippet: "Cooking tips", Link: "https://example.com/b"}
	if c.IsRelevant(rejected, vectroid) {
		t.Fatalf("recipe candidate must be rejected")
	}

	denied := domain.Candidate{Title: "Vectroid recipes for your startup kitchen"}
	d = c.Evaluate(denied, vectroid)
	if d.Relevant || d.Reason != ReasonDenied || d.Term != "recipe" {
		t.Fatalf("expected deny-list rejection, got %+v", d)
	}
}

func TestGenericGateRequiresBusinessContext(t *testing.T) {
	t.Parallel()

	c := NewClassifier(NewRuleTable(nil), DefaultGenericRules())
	cand := domain.Candidate{Title: "Vectroid spotted at the county fair", Snippet: "He said it was fun."}

	d := c.Evaluate(cand, vectroid)
	if d.Relevant || d.Reason != ReasonNoBusinessContext {
		t.Fatalf("expected no business context rejection, got %+v", d)
	}
}

func TestKeywordPhraseIsSubstring(t *testing.T) {
	t.Parallel()

	c := NewClassifier(NewRuleTable(nil), DefaultGenericRules())
	cand := domain.Candidate{Title: "Why every serverless vector database needs a SaaS control plane"}

	d := c.Evaluate(cand, vectroid)
	if !d.Relevant || d.Reason != ReasonKeywordMatch || d.Term != "vector database" {
		t.Fatalf("expected keyword phrase acceptance, got %+v", d)
	}
}

func TestIdentifierBypassesGenericGate(t *testing.T) {
	t.Parallel()

	c := testClassifier()
	cand := domain.Candidate{Title: "Cooking with the finchnow app: the AI recipe assistant for bars"}

	d := c.Evaluate(cand, finch)
	if !d.Relevant || d.Reason != ReasonIdentifier || d.Term != "finchnow" {
		t.Fatalf("identifier must bypass the deny list, got %+v", d)
	}
}

func TestDomainKeywordActsAsIdentifier(t *testing.T) {
	t.Parallel()

	c := NewClassifier(NewRuleTable(nil), DefaultGenericRules())
	entity := domain.MonitoredEntity{Name: "Coqui", Keywords: []string{"Coqui AI", "coqui.ai"}}
	cand := domain.Candidate{Title: "Gaming voices built on coqui.ai"}

	d := c.Evaluate(cand, entity)
	if !d.Relevant || d.Reason != ReasonIdentifier || d.Term != "coqui.ai" {
		t.Fatalf("domain-like keyword should act as identifier, got %+v", d)
	}
}

func TestRuleTable(t *testing.T) {
	t.Parallel()

	table := NewRuleTable(map[string]EntityRules{" The Blue Dot ": {Exclude: []string{" Android ", "android", ""}}})
	r, ok := table.Lookup("the blue dot")
	if !ok {
		t.Fatalf("lookup should be case-insensitive and trimmed")
	}
	if len(r.Exclude) != 1 || r.Exclude[0] != "android" {
		t.Fatalf("terms should be normalized and deduplicated: %v", r.Exclude)
	}
	if table.Len() != 1 {
		t.Fatalf("unexpected table size %d", table.Len())
	}
}
