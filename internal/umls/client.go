package umls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/RitaRen1003/medical-rag-system/internal/model"
)

var (
	ErrNoAPIKey        = errors.New("UMLS API key not set")
	ErrConceptNotFound = errors.New("concept not found")
)

// DefaultBaseURL is the UMLS Terminology Services REST endpoint.
const DefaultBaseURL = "https://uts-ws.nlm.nih.gov/rest"

const defaultVersion = "current"

// Client talks to the UTS REST API. Authentication is the apiKey query
// parameter on every request.
type Client struct {
	apiKey     string
	baseURL    string
	version    string
	httpClient *http.Client
}

// Option is a function that configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	apiKey     string
	baseURL    string
	version    string
	httpClient *http.Client
}

// WithAPIKey sets the UTS API key.
func WithAPIKey(apiKey string) Option {
	return func(opts *clientOptions) {
		opts.apiKey = apiKey
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(opts *clientOptions) {
		opts.baseURL = baseURL
	}
}

// WithVersion pins a Metathesaurus release instead of "current".
func WithVersion(version string) Option {
	return func(opts *clientOptions) {
		opts.version = version
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(opts *clientOptions) {
		opts.httpClient = client
	}
}

// New creates a Client with the given options.
func New(opts ...Option) (*Client, error) {
	options := &clientOptions{
		baseURL:    DefaultBaseURL,
		version:    defaultVersion,
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(options)
	}

	if options.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	return &Client{
		apiKey:     options.apiKey,
		baseURL:    strings.TrimSuffix(options.baseURL, "/"),
		version:    options.version,
		httpClient: options.httpClient,
	}, nil
}

type conceptResponse struct {
	Result struct {
		UI            string `json:"ui"`
		Name          string `json:"name"`
		RootSource    string `json:"rootSource"`
		AtomCount     int    `json:"atomCount"`
		RelationCount int    `json:"relationCount"`
		SemanticTypes []struct {
			Name string `json:"name"`
		} `json:"semanticTypes"`
	} `json:"result"`
}

type definitionsResponse struct {
	Result []struct {
		RootSource string `json:"rootSource"`
		Value      string `json:"value"`
	} `json:"result"`
}

type relationsResponse struct {
	Result []struct {
		RelationLabel string `json:"relationLabel"`
		RelatedID     string `json:"relatedId"`
		RelatedName   string `json:"relatedIdName"`
	} `json:"result"`
}

// ConceptDetails fetches the concept payload for a CUI.
func (c *Client) ConceptDetails(ctx context.Context, cui string) (*model.Concept, error) {
	var payload conceptResponse
	err := c.get(ctx, fmt.Sprintf("/content/%s/CUI/%s", c.version, cui), nil, &payload)
	if err != nil {
		return nil, err
	}

	concept := &model.Concept{
		CUI:           payload.Result.UI,
		Name:          payload.Result.Name,
		Source:        payload.Result.RootSource,
		AtomCount:     payload.Result.AtomCount,
		RelationCount: payload.Result.RelationCount,
	}
	if concept.CUI == "" {
		concept.CUI = cui
	}
	for _, st := range payload.Result.SemanticTypes {
		concept.SemanticTypes = append(concept.SemanticTypes, st.Name)
	}
	return concept, nil
}

// Definitions fetches the definition texts for a CUI. Concepts without
// definitions yield an empty slice, not an error.
func (c *Client) Definitions(ctx context.Context, cui string) ([]string, error) {
	var payload definitionsResponse
	err := c.get(ctx, fmt.Sprintf("/content/%s/CUI/%s/definitions", c.version, cui), nil, &payload)
	if errors.Is(err, ErrConceptNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	defs := make([]string, 0, len(payload.Result))
	for _, d := range payload.Result {
		if v := strings.TrimSpace(d.Value); v != "" {
			defs = append(defs, v)
		}
	}
	return defs, nil
}

// Relations fetches inter-concept relations for a CUI. The related CUI is
// recovered from the trailing path segment of the relatedId URL.
func (c *Client) Relations(ctx context.Context, cui string) ([]model.ConceptRelation, error) {
	var payload relationsResponse
	err := c.get(ctx, fmt.Sprintf("/content/%s/CUI/%s/relations", c.version, cui), url.Values{"pageSize": {"100"}}, &payload)
	if errors.Is(err, ErrConceptNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	relations := make([]model.ConceptRelation, 0, len(payload.Result))
	for _, r := range payload.Result {
		related := path.Base(r.RelatedID)
		if related == "" || related == "." || related == "/" {
			continue
		}
		relations = append(relations, model.ConceptRelation{
			CUI:         cui,
			RelatedCUI:  related,
			RelatedName: r.RelatedName,
			Label:       r.RelationLabel,
		})
	}
	return relations, nil
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("apiKey", c.apiKey)

	reqURL := c.baseURL + endpoint + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", endpoint, ErrConceptNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
