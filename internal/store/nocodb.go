package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/gandash/dash/internal/logger"
)

const (
	nocoPageSize       = 100
	tableReloadEvery   = 5 * time.Second
	maxErrorBodyLength = 512
)

// NocoDB talks to the NocoDB v2 REST API. Table titles are resolved to ids
// once and lazily re-resolved while the map is empty.
type NocoDB struct {
	baseURL string
	token   string
	baseID  string
	client  *http.Client
	log     *logger.Logger

	mu     sync.RWMutex
	tables map[string]string
	reload *rate.Limiter
}

func NewNocoDB(baseURL, token, baseID string, timeout time.Duration, log *logger.Logger) *NocoDB {
	return &NocoDB{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		baseID:  baseID,
		client:  &http.Client{Timeout: timeout},
		log:     log.WithComponent("nocodb"),
		tables:  make(map[string]string),
		reload:  rate.NewLimiter(rate.Every(tableReloadEvery), 1),
	}
}

type tableListResponse struct {
	List []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"list"`
}

// Init loads the table title -> id map.
func (n *NocoDB) Init(ctx context.Context) error {
	var resp tableListResponse
	if err := n.request(ctx, http.MethodGet, "meta/bases/"+url.PathEscape(n.baseID)+"/tables", nil, &resp); err != nil {
		n.log.Errorw("Failed to load NocoDB tables", "error", err)
		return fmt.Errorf("load tables: %w", err)
	}

	tables := make(map[string]string, len(resp.List))
	names := make([]string, 0, len(resp.List))
	for _, t := range resp.List {
		name := strings.ToLower(t.Title)
		tables[name] = t.ID
		names = append(names, name)
	}

	n.mu.Lock()
	n.tables = tables
	n.mu.Unlock()

	n.log.Infow("NocoDB tables loaded", "tables", names)
	return nil
}

func (n *NocoDB) ensureTables(ctx context.Context) {
	n.mu.RLock()
	loaded := len(n.tables) > 0
	n.mu.RUnlock()
	if loaded || !n.reload.Allow() {
		return
	}

	n.log.Infow("Tables empty, attempting to reload")
	_ = n.Init(ctx)
}

func (n *NocoDB) tableID(ctx context.Context, table string) (string, error) {
	n.ensureTables(ctx)

	n.mu.RLock()
	defer n.mu.RUnlock()
	if len(n.tables) == 0 {
		return "", fmt.Errorf("%w: resolving %s", ErrTablesUnavailable, table)
	}
	id, ok := n.tables[strings.ToLower(table)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return id, nil
}

type recordListResponse struct {
	List     []Record `json:"list"`
	PageInfo struct {
		IsLastPage bool `json:"isLastPage"`
	} `json:"pageInfo"`
}

func (n *NocoDB) List(ctx context.Context, table string) ([]Record, error) {
	tableID, err := n.tableID(ctx, table)
	if err != nil {
		return nil, err
	}

	var records []Record
	for offset := 0; ; offset += nocoPageSize {
		endpoint := fmt.Sprintf("tables/%s/records?limit=%d&offset=%d", tableID, nocoPageSize, offset)
		var page recordListResponse
		if err := n.request(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}
		records = append(records, page.List...)
		if page.PageInfo.IsLastPage || len(page.List) < nocoPageSize {
			break
		}
	}
	return records, nil
}

func (n *NocoDB) Get(ctx context.Context, table string, id int) (Record, error) {
	tableID, err := n.tableID(ctx, table)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := n.request(ctx, http.MethodGet, fmt.Sprintf("tables/%s/records/%d", tableID, id), nil, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (n *NocoDB) Create(ctx context.Context, table string, fields Record) (int, error) {
	tableID, err := n.tableID(ctx, table)
	if err != nil {
		return 0, err
	}
	var created Record
	if err := n.request(ctx, http.MethodPost, "tables/"+tableID+"/records", fields, &created); err != nil {
		return 0, err
	}
	return created.ID(), nil
}

func (n *NocoDB) Update(ctx context.Context, table string, id int, fields Record) error {
	tableID, err := n.tableID(ctx, table)
	if err != nil {
		return err
	}
	body := copyRecord(fields)
	body[IDField] = id
	return n.request(ctx, http.MethodPatch, "tables/"+tableID+"/records", body, nil)
}

func (n *NocoDB) Delete(ctx context.Context, table string, id int) error {
	tableID, err := n.tableID(ctx, table)
	if err != nil {
		return err
	}
	return n.request(ctx, http.MethodDelete, "tables/"+tableID+"/records", Record{IDField: id}, nil)
}

func (n *NocoDB) request(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, n.baseURL+"/api/v2/"+endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xc-token", n.token)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("nocodb %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLength))
		apiErr := &APIError{Status: resp.StatusCode, Endpoint: endpoint, Body: string(msg)}
		n.log.Errorw("NocoDB API error", "endpoint", endpoint, "status", resp.StatusCode, "body", apiErr.Body)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}
