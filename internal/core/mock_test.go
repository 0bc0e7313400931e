package core

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/RitaRen1003/medical-rag-system/internal/model"
)

// MockSearcher serves canned facts. The pipeline queries edges and nodes
// concurrently, so the call log is guarded.
type MockSearcher struct {
	mu        sync.Mutex
	EdgeFacts []model.Fact
	NodeFacts []model.Fact
	EdgeErr   error
	NodeErr   error
	Queries   []string
	Limits    []int
}

func (m *MockSearcher) SearchEdges(ctx context.Context, query string, limit int) ([]model.Fact, error) {
	m.mu.Lock()
	m.Queries = append(m.Queries, query)
	m.Limits = append(m.Limits, limit)
	m.mu.Unlock()
	if m.EdgeErr != nil {
		return nil, m.EdgeErr
	}
	return m.EdgeFacts, nil
}

func (m *MockSearcher) SearchNodes(ctx context.Context, query string, limit int) ([]model.Fact, error) {
	m.mu.Lock()
	m.Queries = append(m.Queries, query)
	m.Limits = append(m.Limits, limit)
	m.mu.Unlock()
	if m.NodeErr != nil {
		return nil, m.NodeErr
	}
	return m.NodeFacts, nil
}

// MockAnnotator returns terms keyed by the annotated text.
type MockAnnotator struct {
	mu          sync.Mutex
	TermsByText map[string][]model.Term
	Err         error
	Texts       []string
}

func (m *MockAnnotator) Annotate(ctx context.Context, text string) ([]model.Term, error) {
	m.mu.Lock()
	m.Texts = append(m.Texts, text)
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.TermsByText[text], nil
}

func (m *MockAnnotator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Texts)
}

type MockLLM struct {
	Response      string
	ResponseQueue []string
	Err           error
	Systems       []string
	Prompts       []string
}

func (m *MockLLM) Generate(ctx context.Context, system, prompt string) (string, error) {
	m.Systems = append(m.Systems, system)
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.ResponseQueue) > 0 {
		resp := m.ResponseQueue[0]
		m.ResponseQueue = m.ResponseQueue[1:]
		return resp, nil
	}
	return m.Response, nil
}

// MockGraphWriter records importer writes. AddEntity merges by name the way
// the store does, handing back the first uuid assigned to a name. AddPaper
// fills valid_at from the publication year so edge inheritance is visible.
type MockGraphWriter struct {
	mu         sync.Mutex
	Cleared    bool
	Indexed    bool
	Papers     []*model.PaperNode
	Entities   []*model.EntityNode
	Mentions   []*model.MentionEdge
	Relations  []*model.EntityEdge
	ClearErr   error
	IndicesErr error
	EntityErr  error
	PaperErrs  map[string]error

	uuidsByName map[string]string
}

func (m *MockGraphWriter) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.Cleared = true
	return nil
}

func (m *MockGraphWriter) EnsureIndices(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.IndicesErr != nil {
		return m.IndicesErr
	}
	m.Indexed = true
	return nil
}

func (m *MockGraphWriter) AddPaper(ctx context.Context, paper *model.PaperNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.PaperErrs[paper.UUID]; err != nil {
		return err
	}
	if paper.ValidAt.IsZero() && paper.Year > 0 {
		paper.ValidAt = time.Date(paper.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	m.Papers = append(m.Papers, paper)
	return nil
}

func (m *MockGraphWriter) AddEntity(ctx context.Context, entity *model.EntityNode) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EntityErr != nil {
		return "", m.EntityErr
	}
	if m.uuidsByName == nil {
		m.uuidsByName = make(map[string]string)
	}
	if uuid, ok := m.uuidsByName[entity.Name]; ok {
		return uuid, nil
	}
	uuid := "entity-" + strconv.Itoa(len(m.uuidsByName)+1)
	m.uuidsByName[entity.Name] = uuid
	m.Entities = append(m.Entities, entity)
	return uuid, nil
}

func (m *MockGraphWriter) AddMention(ctx context.Context, mention *model.MentionEdge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Mentions = append(m.Mentions, mention)
	return nil
}

func (m *MockGraphWriter) AddRelation(ctx context.Context, edge *model.EntityEdge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Relations = append(m.Relations, edge)
	return nil
}

// MockConceptStore records enrichment writes.
type MockConceptStore struct {
	mu               sync.Mutex
	Nodes            []model.NodeText
	ByUUID           map[string]*model.NodeText
	ListErr          error
	AddConceptErr    error
	LinkErr          error
	LinkHierarchyErr error
	Label            string
	Limit            int
	Concepts         []*model.ConceptNode
	Links            []*model.ConceptLink
	HierarchyCUIs    []string
}

func (m *MockConceptStore) ListEnrichable(ctx context.Context, label string, limit int) ([]model.NodeText, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Label = label
	m.Limit = limit
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.Nodes, nil
}

func (m *MockConceptStore) NodeByUUID(ctx context.Context, nodeUUID string) (*model.NodeText, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if node, ok := m.ByUUID[nodeUUID]; ok {
		return node, nil
	}
	return nil, fmt.Errorf("node '%s': not found", nodeUUID)
}

func (m *MockConceptStore) AddConcept(ctx context.Context, concept *model.ConceptNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AddConceptErr != nil {
		return m.AddConceptErr
	}
	m.Concepts = append(m.Concepts, concept)
	return nil
}

func (m *MockConceptStore) LinkConcept(ctx context.Context, link *model.ConceptLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LinkErr != nil {
		return m.LinkErr
	}
	m.Links = append(m.Links, link)
	return nil
}

func (m *MockConceptStore) LinkConceptHierarchy(ctx context.Context, cui string, relations []model.ConceptRelation) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LinkHierarchyErr != nil {
		return 0, m.LinkHierarchyErr
	}
	m.HierarchyCUIs = append(m.HierarchyCUIs, cui)
	applied := 0
	for _, rel := range relations {
		if rel.Label == "RB" || rel.Label == "RN" {
			applied++
		}
	}
	return applied, nil
}

type MockRelator struct {
	RelationsByCUI map[string][]model.ConceptRelation
	Err            error
	Calls          []string
}

func (m *MockRelator) ConceptRelations(ctx context.Context, cui string) ([]model.ConceptRelation, error) {
	m.Calls = append(m.Calls, cui)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.RelationsByCUI[cui], nil
}
