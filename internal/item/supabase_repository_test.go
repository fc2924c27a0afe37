package item

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// newPostgRESTStub 模拟Supabase自动生成的REST接口中，本服务用到的子集
func newPostgRESTStub(t *testing.T) (*httptest.Server, *sync.Map) {
	t.Helper()
	var store sync.Map // item_id -> ItemState

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/item_states" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("apikey") == "" || !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"No API key found in request"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			var rows []ItemState
			filter := r.URL.Query().Get("item_id")
			store.Range(func(_, value any) bool {
				state := value.(ItemState)
				if filter == "" || filter == "eq."+state.ItemID {
					rows = append(rows, state)
				}
				return true
			})
			if rows == nil {
				rows = []ItemState{}
			}
			json.NewEncoder(w).Encode(rows)

		case http.MethodPost:
			prefer := r.Header.Get("Prefer")
			if !strings.Contains(prefer, "resolution=merge-duplicates") {
				// 没有merge-duplicates时，主键冲突应当失败
				w.WriteHeader(http.StatusConflict)
				w.Write([]byte(`{"message":"duplicate key value violates unique constraint"}`))
				return
			}
			var state ItemState
			if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			store.Store(state.ItemID, state)
			w.WriteHeader(http.StatusCreated)
			if strings.Contains(prefer, "return=representation") {
				json.NewEncoder(w).Encode([]ItemState{state})
			}

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &store
}

func newSupabaseTestRepository(t *testing.T) Repository {
	t.Helper()
	srv, _ := newPostgRESTStub(t)
	repo, err := NewSupabaseRepository(srv.URL, "test-service-key", 5*time.Second)
	if err != nil {
		t.Fatalf("NewSupabaseRepository: %v", err)
	}
	return repo
}

func TestSupabaseUpsertAndGetOne(t *testing.T) {
	repo := newSupabaseTestRepository(t)
	ctx := context.Background()

	created, err := repo.Upsert(ctx, "a", "done", strPtr("ok"))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if created.ItemID != "a" || created.Status != "done" {
		t.Errorf("期望 a/done，得到 %s/%s", created.ItemID, created.Status)
	}
	if created.UpdatedAt.IsZero() {
		t.Error("期望updated_at被赋值")
	}

	// 再次写入同一个键，读回的是替换后的值
	if _, err := repo.Upsert(ctx, "a", "error", nil); err != nil {
		t.Fatalf("第二次Upsert: %v", err)
	}

	fetched, err := repo.GetOne(ctx, "a")
	if err != nil {
		t.Fatalf("GetOne: %v", err)
	}
	if fetched == nil || fetched.Status != "error" {
		t.Errorf("期望替换后的记录，得到 %+v", fetched)
	}
	if fetched.Remark != nil {
		t.Errorf("期望remark被替换为nil，得到 %v", fetched.Remark)
	}
}

func TestSupabaseGetOneMissing(t *testing.T) {
	repo := newSupabaseTestRepository(t)

	state, err := repo.GetOne(context.Background(), "never-written")
	if err != nil {
		t.Fatalf("GetOne不应返回错误: %v", err)
	}
	if state != nil {
		t.Errorf("期望nil，得到 %+v", state)
	}
}

func TestSupabaseGetAll(t *testing.T) {
	repo := newSupabaseTestRepository(t)
	ctx := context.Background()

	states, err := repo.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(states) != 0 {
		t.Errorf("期望空结果，得到 %d 条", len(states))
	}

	repo.Upsert(ctx, "a", "done", nil)
	repo.Upsert(ctx, "b", "pending", strPtr("waiting"))

	states, err = repo.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(states) != 2 {
		t.Errorf("期望2条，得到 %d 条", len(states))
	}
}

func TestSupabaseErrorCarriesDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"connection to database failed"}`))
	}))
	t.Cleanup(srv.Close)

	repo, err := NewSupabaseRepository(srv.URL, "test-service-key", 5*time.Second)
	if err != nil {
		t.Fatalf("NewSupabaseRepository: %v", err)
	}

	_, err = repo.GetAll(context.Background())
	if err == nil {
		t.Fatal("期望错误")
	}
	if !strings.Contains(err.Error(), "connection to database failed") {
		t.Errorf("错误应携带后端返回的详情: %v", err)
	}
}

func TestSupabaseMissingConfig(t *testing.T) {
	cases := []struct {
		url, key string
	}{
		{"", ""},
		{"https://xxxx.supabase.co", ""},
		{"", "service-key"},
	}
	for _, tc := range cases {
		if _, err := NewSupabaseRepository(tc.url, tc.key, time.Second); err == nil {
			t.Errorf("url=%q key=%q 应返回配置错误", tc.url, tc.key)
		}
	}
}
