package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"Vikings/internal/authority/app"
	"Vikings/internal/mission/entity"
	"Vikings/internal/mission/entity/domain"
	"Vikings/internal/mission/infra/persistence/memory"
)

type oneRand struct{}

func (oneRand) Intn(n int) int { return min(1000, n-1) }

func newRouter(t *testing.T) (*gin.Engine, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memory.NewStore()
	p := entity.NewPlayerState("alice", domain.Coord{})
	if err := store.Snapshot(context.Background(), p.BuildPersistSnapshot(1, nil)); err != nil {
		t.Fatalf("seed err=%v", err)
	}
	svc := app.NewBattleService(app.Deps{World: store, Players: store, Clans: store, Reports: store, Rand: oneRand{}})
	r := gin.New()
	NewBattle(svc, nil).Register(r)
	return r, store
}

func post(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestBattle_攻击野外返回结算结果(t *testing.T) {
	r, _ := newRouter(t)
	w := post(r, "/api/attack", map[string]any{
		"attacker": "alice", "targetX": 300, "targetY": 300,
		"troops": map[string]int{"archer": 100},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var res domain.AuthorityResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode err=%v", err)
	}
	if !res.Success || !res.Victory || res.Report == nil {
		t.Fatalf("res=%+v", res)
	}
}

func TestBattle_业务拒绝映射状态码(t *testing.T) {
	r, _ := newRouter(t)
	cases := []struct {
		name string
		body map[string]any
		want int
		msg  string
	}{
		{"缺少字段", map[string]any{"attacker": "alice"}, http.StatusBadRequest, "Missing fields"},
		{"攻方不存在", map[string]any{"attacker": "ghost", "troops": map[string]int{"archer": 1}}, http.StatusNotFound, "Attacker not found"},
		{"不在部落", map[string]any{"attacker": "alice", "troops": map[string]int{"archer": 1}, "source": "fortress"}, http.StatusForbidden, "Not in a clan"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := post(r, "/api/attack", tc.body)
			if w.Code != tc.want {
				t.Fatalf("status=%d want=%d body=%s", w.Code, tc.want, w.Body.String())
			}
			var body failureBody
			_ = json.Unmarshal(w.Body.Bytes(), &body)
			if body.Success || body.Message != tc.msg {
				t.Fatalf("body=%+v", body)
			}
		})
	}
}

func TestBattle_守方快照(t *testing.T) {
	r, _ := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/user/alice/snapshot", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body snapshotBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Resources["gold"] != 1000 {
		t.Fatalf("body=%+v err=%v", body, err)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/user/ghost/snapshot", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("未知玩家应 404, got=%d", w.Code)
	}
}
