package model

// Concept is the terminology service payload for a CUI.
type Concept struct {
	CUI           string   `json:"cui"`
	Name          string   `json:"name"`
	SemanticTypes []string `json:"semantic_types,omitempty"`
	Definitions   []string `json:"definitions,omitempty"`
	Source        string   `json:"source,omitempty"`
	AtomCount     int      `json:"atom_count,omitempty"`
	RelationCount int      `json:"relation_count,omitempty"`
}

// Term is a concept mention found in free text. Concept is populated when
// details were resolved against the terminology service and nil when the
// lookup was skipped or degraded.
type Term struct {
	Text       string   `json:"term"`
	CUI        string   `json:"cui"`
	Similarity float64  `json:"similarity"`
	Start      int      `json:"start"`
	End        int      `json:"end"`
	Concept    *Concept `json:"concept,omitempty"`
}

// ConceptRelation is a relation between two concepts as reported by the
// terminology service. Label follows UMLS conventions: RB means the related
// concept is broader, RN narrower.
type ConceptRelation struct {
	CUI         string `json:"cui"`
	RelatedCUI  string `json:"related_cui"`
	RelatedName string `json:"related_name,omitempty"`
	Label       string `json:"label"`
}
