package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleAdminContact(t *testing.T) {
	m, srv := newTestServer(t, nil)
	m.GetOrCreateRoom("lobby")

	resp, err := http.Get(srv.URL + "/admin/contact/lobby")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got map[string]float64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, 0.6, got["restitution"])
	assert.Equal(t, 0.2, got["bodyRadius"])

	post, err := http.Post(srv.URL+"/admin/contact/lobby", "application/json", strings.NewReader(`{"restitution":0.25}`))
	require.NoError(t, err)
	defer post.Body.Close()
	require.Equal(t, http.StatusOK, post.StatusCode)
	require.NoError(t, json.NewDecoder(post.Body).Decode(&got))
	assert.Equal(t, 0.25, got["restitution"])

	room, ok := m.Room("lobby")
	require.True(t, ok)
	var restitution float64
	require.NoError(t, room.Do(func(r *Room) { restitution = r.Contact().Restitution }))
	assert.Equal(t, 0.25, restitution)
}

func TestHandleAdminContact_Errors(t *testing.T) {
	m, srv := newTestServer(t, nil)
	m.GetOrCreateRoom("lobby")

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown room", "/admin/contact/nowhere", `{}`, http.StatusNotFound},
		{"bad json", "/admin/contact/lobby", `{`, http.StatusBadRequest},
		{"restitution out of range", "/admin/contact/lobby", `{"restitution":2}`, http.StatusBadRequest},
		{"negative radius", "/admin/contact/lobby", `{"bodyRadius":-1}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+tt.path, "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestHandleMetrics(t *testing.T) {
	m, srv := newTestServer(t, nil)
	m.GetOrCreateRoom("lobby")

	resp, err := http.Get(srv.URL + "/metrics/lobby")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Room    string           `json:"room"`
		Players int              `json:"players"`
		Metrics map[string]int64 `json:"metrics"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "lobby", payload.Room)
	assert.Contains(t, payload.Metrics, "contacts_resolved")

	missing, err := http.Get(srv.URL + "/metrics/none")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	health, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}
