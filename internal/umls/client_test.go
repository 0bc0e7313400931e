package umls

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(WithAPIKey("test-key"), WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	require.NoError(t, err)
	return client
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New()
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestConceptDetails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/content/current/CUI/C0004057", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("apiKey"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"result": {
				"ui": "C0004057",
				"name": "Aspirin",
				"rootSource": "MTH",
				"atomCount": 211,
				"relationCount": 48,
				"semanticTypes": [{"name": "Pharmacologic Substance"}]
			}
		}`))
	})

	concept, err := client.ConceptDetails(context.Background(), "C0004057")
	require.NoError(t, err)

	assert.Equal(t, "C0004057", concept.CUI)
	assert.Equal(t, "Aspirin", concept.Name)
	assert.Equal(t, "MTH", concept.Source)
	assert.Equal(t, 211, concept.AtomCount)
	assert.Equal(t, 48, concept.RelationCount)
	assert.Equal(t, []string{"Pharmacologic Substance"}, concept.SemanticTypes)
}

func TestConceptDetailsMissingUIFallsBack(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result": {"name": "Aspirin"}}`))
	})

	concept, err := client.ConceptDetails(context.Background(), "C0004057")
	require.NoError(t, err)
	assert.Equal(t, "C0004057", concept.CUI)
}

func TestConceptDetailsNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.ConceptDetails(context.Background(), "C9999999")
	assert.ErrorIs(t, err, ErrConceptNotFound)
}

func TestConceptDetailsServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("upstream broken"))
	})

	_, err := client.ConceptDetails(context.Background(), "C0004057")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "upstream broken")
}

func TestDefinitions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/content/current/CUI/C0004057/definitions", r.URL.Path)
		w.Write([]byte(`{
			"result": [
				{"rootSource": "MSH", "value": "An anti-inflammatory agent."},
				{"rootSource": "NCI", "value": "  "},
				{"rootSource": "CSP", "value": "Inhibitor of platelet aggregation."}
			]
		}`))
	})

	defs, err := client.Definitions(context.Background(), "C0004057")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"An anti-inflammatory agent.",
		"Inhibitor of platelet aggregation.",
	}, defs)
}

func TestDefinitionsNotFoundIsEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	defs, err := client.Definitions(context.Background(), "C0004057")
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestRelations(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/content/current/CUI/C0004057/relations", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("pageSize"))
		w.Write([]byte(`{
			"result": [
				{
					"relationLabel": "RB",
					"relatedId": "https://uts-ws.nlm.nih.gov/rest/content/current/CUI/C0003211",
					"relatedIdName": "Anti-Inflammatory Agents"
				},
				{
					"relationLabel": "RN",
					"relatedId": "https://uts-ws.nlm.nih.gov/rest/content/current/CUI/C0983882",
					"relatedIdName": "Aspirin 325 MG"
				},
				{
					"relationLabel": "RO",
					"relatedId": "",
					"relatedIdName": "malformed"
				}
			]
		}`))
	})

	relations, err := client.Relations(context.Background(), "C0004057")
	require.NoError(t, err)
	require.Len(t, relations, 2)

	assert.Equal(t, "C0004057", relations[0].CUI)
	assert.Equal(t, "C0003211", relations[0].RelatedCUI)
	assert.Equal(t, "Anti-Inflammatory Agents", relations[0].RelatedName)
	assert.Equal(t, "RB", relations[0].Label)

	assert.Equal(t, "C0983882", relations[1].RelatedCUI)
	assert.Equal(t, "RN", relations[1].Label)
}

func TestRelationsNotFoundIsEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	relations, err := client.Relations(context.Background(), "C0004057")
	require.NoError(t, err)
	assert.Empty(t, relations)
}

func TestWithVersionPinsRelease(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/content/2024AB/CUI/C0004057", r.URL.Path)
		w.Write([]byte(`{"result": {"ui": "C0004057", "name": "Aspirin"}}`))
	}))
	t.Cleanup(server.Close)

	client, err := New(WithAPIKey("test-key"), WithBaseURL(server.URL), WithVersion("2024AB"))
	require.NoError(t, err)

	_, err = client.ConceptDetails(context.Background(), "C0004057")
	require.NoError(t, err)
}
