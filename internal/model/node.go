package model

import (
	"strings"
	"time"
)

// Node labels used in the graph.
const (
	LabelPaper   = "Paper"
	LabelEntity  = "Entity"
	LabelConcept = "Concept"
)

// PaperNode is an imported literature record. ValidAt is the reference time
// of the publication, January 1 of the publication year.
type PaperNode struct {
	UUID      string    `json:"uuid"`
	Title     string    `json:"title"`
	Authors   []string  `json:"authors,omitempty"`
	Journal   string    `json:"journal,omitempty"`
	Year      int       `json:"year,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	ValidAt   time.Time `json:"valid_at"`
}

// EntityNode is a medical entity extracted from paper text. Entities are
// merged by name, so the same disease or drug mentioned across papers maps
// to a single node.
type EntityNode struct {
	UUID          string    `json:"uuid"`
	Name          string    `json:"name"`
	Type          string    `json:"type,omitempty"`
	Summary       string    `json:"summary,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	NameEmbedding []float32 `json:"name_embedding,omitempty"`
}

// ConceptNode is a UMLS concept merged by CUI. Concepts are reference data:
// linking never mutates them beyond refreshing the payload from the
// terminology service.
type ConceptNode struct {
	UUID          string    `json:"uuid"`
	CUI           string    `json:"cui"`
	Name          string    `json:"name"`
	SemanticTypes []string  `json:"semantic_types,omitempty"`
	Definition    string    `json:"definition,omitempty"`
	Source        string    `json:"source,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ConceptUUID derives the stable node identity for a CUI.
func ConceptUUID(cui string) string {
	return "UMLS_" + cui
}

// NodeText is the text surface of a stored node, used for terminology
// annotation and context assembly.
type NodeText struct {
	UUID    string   `json:"uuid"`
	Name    string   `json:"name"`
	Summary string   `json:"summary,omitempty"`
	Content string   `json:"content,omitempty"`
	Labels  []string `json:"labels,omitempty"`
}

// Text joins the readable parts of the node in a stable order.
func (n NodeText) Text() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{n.Name, n.Summary, n.Content} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}
