package item

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// selectColumns lists the row fields requested from PostgREST.
const selectColumns = "item_id,status,remark,updated_at"

// supabaseRepository talks to a Supabase project's auto-generated REST API
// (PostgREST) instead of holding a database connection. Each call is a
// stateless outbound request bounded by the client timeout.
type supabaseRepository struct {
	// baseURL points at the item_states resource, e.g.
	// https://xxxx.supabase.co/rest/v1/item_states
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// NewSupabaseRepository validates the configuration and builds the REST-backed
// Repository. Missing settings are reported as an error so the caller can wire
// the unavailable repository instead.
func NewSupabaseRepository(rawURL, serviceKey string, timeout time.Duration) (Repository, error) {
	if strings.TrimSpace(rawURL) == "" || strings.TrimSpace(serviceKey) == "" {
		return nil, errors.New("missing storage.supabase.url or storage.supabase.serviceKey in configuration")
	}
	if _, err := url.Parse(rawURL); err != nil {
		return nil, fmt.Errorf("invalid storage.supabase.url: %w", err)
	}

	return &supabaseRepository{
		baseURL:    strings.TrimRight(rawURL, "/") + "/rest/v1/item_states",
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// upsertPayload mirrors the persisted schema. updated_at is assigned here, at
// write time, never taken from the caller.
type upsertPayload struct {
	ItemID    string    `json:"item_id"`
	Status    string    `json:"status"`
	Remark    *string   `json:"remark"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *supabaseRepository) GetOne(ctx context.Context, itemID string) (*ItemState, error) {
	query := url.Values{}
	query.Set("item_id", "eq."+itemID)
	query.Set("select", selectColumns)

	rows, err := r.fetchRows(ctx, http.MethodGet, query, nil, "")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *supabaseRepository) GetAll(ctx context.Context) ([]ItemState, error) {
	query := url.Values{}
	query.Set("select", selectColumns)
	return r.fetchRows(ctx, http.MethodGet, query, nil, "")
}

func (r *supabaseRepository) Upsert(ctx context.Context, itemID, status string, remark *string) (*ItemState, error) {
	payload := upsertPayload{
		ItemID:    itemID,
		Status:    status,
		Remark:    remark,
		UpdatedAt: time.Now().UTC(),
	}

	// merge-duplicates turns the insert into an upsert on the primary key;
	// return=representation makes PostgREST echo the persisted rows back.
	rows, err := r.fetchRows(ctx, http.MethodPost, nil, payload,
		"resolution=merge-duplicates,return=representation")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("supabase upsert returned no rows")
	}
	return &rows[0], nil
}

// fetchRows performs one REST call and decodes the row array PostgREST
// responds with. Non-2xx responses surface the response body as the error
// detail.
func (r *supabaseRepository) fetchRows(ctx context.Context, method string, query url.Values, body any, prefer string) ([]ItemState, error) {
	target := r.baseURL
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding supabase payload: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("building supabase request: %w", err)
	}
	req.Header.Set("apikey", r.serviceKey)
	req.Header.Set("Authorization", "Bearer "+r.serviceKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling supabase: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading supabase response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("supabase returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var rows []ItemState
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decoding supabase response: %w", err)
	}
	return rows, nil
}
