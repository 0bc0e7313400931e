package core

import (
	"fmt"
	"strings"

	"github.com/RitaRen1003/medical-rag-system/internal/core/common"
	"github.com/RitaRen1003/medical-rag-system/internal/model"
)

const (
	factsHeader    = "Relevant Facts from Knowledge Graph:"
	nodesHeader    = "Relevant Entity Summaries:"
	conceptsHeader = "Medical Terms and Concepts:"

	degradedContext = "No facts matching the question were found in the knowledge graph. " +
		"State that the graph holds no supporting evidence, then answer from general medical knowledge."

	summaryRuneLimit    = 200
	definitionRuneLimit = 200
)

// BuildContext renders retrieved facts into the context document handed to
// the model: numbered relation facts, numbered entity summaries, and a
// glossary of the UMLS concepts attached to them. Zero facts produce an
// explicit degraded-mode context instead of an empty string.
func BuildContext(facts []model.Fact) string {
	var edgeLines, nodeLines []string
	for _, fact := range facts {
		switch fact.Kind {
		case model.FactKindEdge:
			edgeLines = append(edgeLines, edgeFactLine(fact))
		case model.FactKindNode:
			nodeLines = append(nodeLines, nodeFactLine(fact))
		}
	}

	if len(edgeLines) == 0 && len(nodeLines) == 0 {
		return degradedContext
	}

	var parts []string
	if len(edgeLines) > 0 {
		parts = append(parts, factsHeader)
		for i, line := range edgeLines {
			parts = append(parts, fmt.Sprintf("%d. %s", i+1, line))
		}
		parts = append(parts, "")
	}
	if len(nodeLines) > 0 {
		parts = append(parts, nodesHeader)
		for i, line := range nodeLines {
			parts = append(parts, fmt.Sprintf("%d. %s", i+1, line))
		}
		parts = append(parts, "")
	}
	if glossary := conceptGlossary(facts); glossary != "" {
		parts = append(parts, glossary, "")
	}

	return strings.Join(parts, "\n")
}

func edgeFactLine(fact model.Fact) string {
	source := fact.SourceName
	if source == "" {
		source = "Unknown"
	}
	target := fact.TargetName
	if target == "" {
		target = "Unknown"
	}
	return fmt.Sprintf("%s (Source: %s; Target: %s)", fact.Text, source, target)
}

func nodeFactLine(fact model.Fact) string {
	return fmt.Sprintf("%s: %s", fact.Name, common.TruncateRunes(fact.Summary, summaryRuneLimit))
}

// conceptGlossary renders the unique concepts across all facts, first
// occurrence order, deduplicated by CUI.
func conceptGlossary(facts []model.Fact) string {
	var lines []string
	seen := make(map[string]bool)

	for _, fact := range facts {
		for _, term := range fact.Terms {
			if term.CUI == "" || seen[term.CUI] {
				continue
			}
			seen[term.CUI] = true
			lines = append(lines, termLines(term)...)
		}
	}

	if len(lines) == 0 {
		return ""
	}
	return conceptsHeader + "\n" + strings.Join(lines, "\n")
}

func termLines(term model.Term) []string {
	name := term.Text
	var types []string
	var definition string
	if term.Concept != nil {
		if term.Concept.Name != "" {
			name = term.Concept.Name
		}
		types = term.Concept.SemanticTypes
		if len(term.Concept.Definitions) > 0 {
			definition = term.Concept.Definitions[0]
		}
	}

	lines := []string{fmt.Sprintf("\n- Term: %s (CUI: %s)", name, term.CUI)}
	if len(types) > 0 {
		lines = append(lines, "  Types: "+strings.Join(types, ", "))
	}
	if definition != "" {
		lines = append(lines, "  Definition: "+common.TruncateRunes(definition, definitionRuneLimit))
	}
	return lines
}

// CountConcepts counts the distinct CUIs attached across facts.
func CountConcepts(facts []model.Fact) int {
	seen := make(map[string]bool)
	for _, fact := range facts {
		for _, term := range fact.Terms {
			if term.CUI != "" {
				seen[term.CUI] = true
			}
		}
	}
	return len(seen)
}
