package model

// ExtractedEntity is the LLM extraction payload for one medical entity.
type ExtractedEntity struct {
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
	Summary string `json:"summary,omitempty"`
}

type ExtractedEntities struct {
	Entities []ExtractedEntity `json:"entities"`
}

// ExtractedRelation is the LLM extraction payload for one relation fact.
// Source and Target reference entities by name; the importer resolves them
// to node identities.
type ExtractedRelation struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
	Fact     string `json:"fact"`
}

type ExtractedRelations struct {
	Relations []ExtractedRelation `json:"relations"`
}
