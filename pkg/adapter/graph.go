package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// GraphConfig holds connection settings for the access-graph service.
type GraphConfig struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// GraphAsset is one asset reachable from an identity.
type GraphAsset struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Via        string `json:"via"`
	Confidence string `json:"confidence"`
}

// GraphHop is one step on a critical path.
type GraphHop struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Edge string `json:"edge"`
}

// GraphPath is a shortest path between two graph nodes.
type GraphPath struct {
	From   string     `json:"from"`
	To     string     `json:"to"`
	Length int        `json:"length"`
	Hops   []GraphHop `json:"hops"`
}

// IdentitySummary is the resolved identity header of a report.
type IdentitySummary struct {
	ID          string `json:"id"`
	UPN         string `json:"upn"`
	DisplayName string `json:"display_name"`
	Type        string `json:"type"`
}

// PrivilegeClassification annotates one reachable asset with an inferred
// privilege level and its evidence.
type PrivilegeClassification struct {
	TargetID  string `json:"target_id"`
	Privilege string `json:"privilege"`
	Evidence  string `json:"evidence"`
	Source    string `json:"source"`
}

// IdentityReport is the normalized blast-radius payload handed to the
// decision policy and the reviewer.
type IdentityReport struct {
	Identity                IdentitySummary           `json:"identity"`
	ReachableAssets         []GraphAsset              `json:"reachable_assets"`
	CriticalPaths           []GraphPath               `json:"critical_paths"`
	PrivilegeClassification []PrivilegeClassification `json:"privilege_classification"`
}

// GraphClient is a read-only client for a BloodHound-compatible access
// graph API. It performs no caching and no retries; every call reflects
// the graph service's current view. A single client is shared across
// concurrent report requests.
type GraphClient struct {
	cfg    GraphConfig
	client *http.Client

	loginMu sync.Mutex

	mu           sync.Mutex
	sessionToken string
}

// NewGraphClient creates a client for the given graph service.
func NewGraphClient(cfg GraphConfig) *GraphClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &GraphClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Login obtains a session token for subsequent calls.
func (c *GraphClient) Login(ctx context.Context) error {
	body := map[string]any{
		"login_method": "secret",
		"username":     c.cfg.Username,
		"secret":       c.cfg.Password,
	}

	var resp struct {
		Data struct {
			SessionToken string `json:"session_token"`
		} `json:"data"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/v2/login", body, &resp); err != nil {
		return err
	}
	if resp.Data.SessionToken == "" {
		return fmt.Errorf("graph login returned no session token")
	}
	c.setToken(resp.Data.SessionToken)
	return nil
}

func (c *GraphClient) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionToken
}

func (c *GraphClient) setToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionToken = token
}

// ensureSession logs in unless a session token is already held. Logins
// are serialized so concurrent callers share one session instead of
// racing to establish their own.
func (c *GraphClient) ensureSession(ctx context.Context) error {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()
	if c.token() != "" {
		return nil
	}
	return c.Login(ctx)
}

// SearchIdentity resolves an identity by search query (UPN, display name,
// or object id). nodeType defaults to "user".
func (c *GraphClient) SearchIdentity(ctx context.Context, query, nodeType string) (map[string]any, error) {
	if nodeType == "" {
		nodeType = "user"
	}
	params := url.Values{"query": {query}, "type": {nodeType}}

	var resp struct {
		Data []map[string]any `json:"data"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v2/graph-search?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no identity found for query: %s", query)
	}
	return resp.Data[0], nil
}

// ReachableAssets fetches directly reachable assets through the graph
// service's cypher endpoint, avoiding any direct database connection.
func (c *GraphClient) ReachableAssets(ctx context.Context, objectID string, limit int) ([]GraphAsset, error) {
	if limit <= 0 {
		limit = 100
	}
	cypher := "MATCH (n {objectid: $oid})-[r]->(m) " +
		"RETURN m.objectid AS id, labels(m)[0] AS kind, m.name AS name, type(r) AS via " +
		"LIMIT $limit"
	body := map[string]any{
		"query":      cypher,
		"parameters": map[string]any{"oid": objectID, "limit": limit},
	}

	var resp struct {
		Data []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			Kind string `json:"kind"`
			Via  string `json:"via"`
		} `json:"data"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/v2/graphs/cypher", body, &resp); err != nil {
		return nil, err
	}

	assets := make([]GraphAsset, 0, len(resp.Data))
	for _, row := range resp.Data {
		kind := strings.ToLower(row.Kind)
		if kind == "" {
			kind = "asset"
		}
		via := strings.ToLower(row.Via)
		if via == "" {
			via = "edge"
		}
		assets = append(assets, GraphAsset{
			ID:         row.ID,
			Name:       row.Name,
			Kind:       kind,
			Via:        via,
			Confidence: "graph",
		})
	}
	return assets, nil
}

// CriticalPath fetches a shortest path between two nodes. It returns nil
// without error when no path exists.
func (c *GraphClient) CriticalPath(ctx context.Context, startID, targetID string) (*GraphPath, error) {
	params := url.Values{"start_node": {startID}, "end_node": {targetID}}

	var resp struct {
		Data struct {
			Path []struct {
				ObjectID     string `json:"objectid"`
				ID           string `json:"id"`
				Type         string `json:"type"`
				Relationship string `json:"relationship"`
				Edge         string `json:"edge"`
			} `json:"path"`
		} `json:"data"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v2/pathfinding?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data.Path) == 0 {
		return nil, nil
	}

	hops := make([]GraphHop, 0, len(resp.Data.Path))
	for _, hop := range resp.Data.Path {
		id := hop.ObjectID
		if id == "" {
			id = hop.ID
		}
		typ := strings.ToLower(hop.Type)
		if typ == "" {
			typ = "node"
		}
		edge := hop.Relationship
		if edge == "" {
			edge = hop.Edge
		}
		hops = append(hops, GraphHop{ID: id, Type: typ, Edge: edge})
	}

	return &GraphPath{
		From:   startID,
		To:     targetID,
		Length: len(hops),
		Hops:   hops,
	}, nil
}

// BuildIdentityReport resolves the identity, gathers reachable assets and
// an optional critical path, and assembles the contract payload.
func (c *GraphClient) BuildIdentityReport(ctx context.Context, query, criticalTargetID string) (*IdentityReport, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}

	resolved, err := c.SearchIdentity(ctx, query, "")
	if err != nil {
		return nil, err
	}

	oid := stringField(resolved, "objectid")
	if oid == "" {
		oid = stringField(resolved, "id")
	}

	assets, err := c.ReachableAssets(ctx, oid, 0)
	if err != nil {
		return nil, err
	}

	var paths []GraphPath
	if criticalTargetID != "" {
		path, err := c.CriticalPath(ctx, oid, criticalTargetID)
		if err != nil {
			return nil, err
		}
		if path != nil {
			paths = append(paths, *path)
		}
	}

	privileges := make([]PrivilegeClassification, 0, len(assets))
	for _, asset := range assets {
		privilege := "read"
		if strings.Contains(strings.ToLower(asset.Name), "admin") {
			privilege = "admin"
		}
		privileges = append(privileges, PrivilegeClassification{
			TargetID:  asset.ID,
			Privilege: privilege,
			Evidence:  "graph_edge",
			Source:    "bloodhound",
		})
	}

	upn := stringField(resolved, "name")
	if props, ok := resolved["properties"].(map[string]any); ok {
		if v := stringField(props, "userprincipalname"); v != "" {
			upn = v
		}
	}
	idType := strings.ToLower(stringField(resolved, "type"))
	if idType == "" {
		idType = "identity"
	}

	return &IdentityReport{
		Identity: IdentitySummary{
			ID:          oid,
			UPN:         upn,
			DisplayName: stringField(resolved, "name"),
			Type:        idType,
		},
		ReachableAssets:         assets,
		CriticalPaths:           paths,
		PrivilegeClassification: privileges,
	}, nil
}

func (c *GraphClient) call(ctx context.Context, method, path string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode graph request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build graph request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("graph API unreachable for %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("graph API error %d for %s", resp.StatusCode, path)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode graph response for %s: %w", path, err)
		}
	}
	return nil
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}
