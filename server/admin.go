package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"marbleparty/logging"
)

// Routes 房间服务的 HTTP 路由
func (m *RoomManager) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/party/{room}", m.HandleWS)
	r.Get("/metrics/{room}", m.HandleMetrics)
	r.Get("/admin/contact/{room}", m.HandleAdminContact)
	r.Post("/admin/contact/{room}", m.HandleAdminContact)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/stats", m.HandleStats)
	return r
}

// HandleAdminContact 读取与更新房间接触参数（运行期热更新）
// GET /admin/contact/lobby  返回当前参数
// POST /admin/contact/lobby 以 JSON 载荷更新部分字段
func (m *RoomManager) HandleAdminContact(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "room")
	room, ok := m.Room(roomID)
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	type cfg struct {
		BodyRadius  *float64 `json:"bodyRadius,omitempty"`
		Restitution *float64 `json:"restitution,omitempty"`
		SkinMargin  *float64 `json:"skinMargin,omitempty"`
	}

	var body cfg
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.BodyRadius != nil && *body.BodyRadius <= 0 {
			http.Error(w, "bodyRadius must be positive", http.StatusBadRequest)
			return
		}
		if body.Restitution != nil && (*body.Restitution < 0 || *body.Restitution > 1) {
			http.Error(w, "restitution must be within [0,1]", http.StatusBadRequest)
			return
		}
		if body.SkinMargin != nil && *body.SkinMargin < 0 {
			http.Error(w, "skinMargin must not be negative", http.StatusBadRequest)
			return
		}
	}

	var cur ContactParams
	err := room.Do(func(rm *Room) {
		c := rm.Contact()
		if body.BodyRadius != nil {
			c.BodyRadius = *body.BodyRadius
		}
		if body.Restitution != nil {
			c.Restitution = *body.Restitution
		}
		if body.SkinMargin != nil {
			c.SkinMargin = *body.SkinMargin
		}
		rm.SetContact(c)
		cur = c
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if r.Method == http.MethodPost {
		logging.Log.Infow("contact updated", "room", roomID, "radius", cur.BodyRadius, "restitution", cur.Restitution, "skin", cur.SkinMargin)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(cfg{BodyRadius: &cur.BodyRadius, Restitution: &cur.Restitution, SkinMargin: &cur.SkinMargin})
}

// HandleMetrics 输出指定房间的运行指标
// GET /metrics/lobby
func (m *RoomManager) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "room")
	room, ok := m.Room(roomID)
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	payload := map[string]any{
		"room":    roomID,
		"players": room.Size(),
		"metrics": room.Metrics().Snapshot(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

// HandleStats 全局房间与玩家数
func (m *RoomManager) HandleStats(w http.ResponseWriter, r *http.Request) {
	rooms, players := m.Stats()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{"rooms": rooms, "players": players})
}
