package model

// FactKind distinguishes the two retrieval result shapes.
type FactKind string

const (
	FactKindNode FactKind = "node"
	FactKindEdge FactKind = "edge"
)

// Fact is an ephemeral retrieval result: a node or an edge plus the store's
// relevance score. Facts exist only for the duration of one answer call and
// are never persisted.
type Fact struct {
	Kind       FactKind `json:"kind"`
	UUID       string   `json:"uuid"`
	Name       string   `json:"name,omitempty"`
	Summary    string   `json:"summary,omitempty"`
	Text       string   `json:"text,omitempty"`
	SourceName string   `json:"source_name,omitempty"`
	TargetName string   `json:"target_name,omitempty"`
	Labels     []string `json:"labels,omitempty"`
	Score      float64  `json:"score"`
	Terms      []Term   `json:"terms,omitempty"`
}
