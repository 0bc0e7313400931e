package model

import "time"

// Relationship types used in the graph.
const (
	RelationRelatesTo    = "RELATES_TO"
	RelationMentions     = "MENTIONS"
	RelationHasConcept   = "HAS_UMLS_CONCEPT"
	RelationBroaderThan  = "BROADER_THAN"
	RelationNarrowerThan = "NARROWER_THAN"
)

// EntityEdge is a relation fact between two entities, carrying the
// supporting sentence extracted from the source paper.
type EntityEdge struct {
	UUID          string     `json:"uuid"`
	SourceUUID    string     `json:"source_node_uuid"`
	TargetUUID    string     `json:"target_node_uuid"`
	Name          string     `json:"name"`
	Fact          string     `json:"fact"`
	CreatedAt     time.Time  `json:"created_at"`
	ValidAt       time.Time  `json:"valid_at"`
	InvalidAt     *time.Time `json:"invalid_at,omitempty"`
	FactEmbedding []float32  `json:"fact_embedding,omitempty"`
}

// MentionEdge links a paper to an entity extracted from it.
type MentionEdge struct {
	UUID       string    `json:"uuid"`
	PaperUUID  string    `json:"paper_uuid"`
	EntityUUID string    `json:"entity_uuid"`
	CreatedAt  time.Time `json:"created_at"`
}

// ConceptLink attaches a UMLS concept to a node with the matcher's
// similarity for the mention.
type ConceptLink struct {
	NodeUUID   string    `json:"node_uuid"`
	CUI        string    `json:"cui"`
	Similarity float64   `json:"similarity"`
	CreatedAt  time.Time `json:"created_at"`
}
