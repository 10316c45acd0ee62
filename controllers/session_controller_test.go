package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"mingle_server/routes"
	"mingle_server/services"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() *httptest.Server {
	store := services.NewMemoryGameStore()
	poolService := &services.PoolService{Store: store, Notifier: services.NopNotifier{}, Profiles: services.StaticProfileResolver{}}
	sessionService := &services.SessionService{Store: store, Profiles: services.StaticProfileResolver{}}

	r := mux.NewRouter()
	routes.RegisterPoolRoutes(r, poolService)
	routes.RegisterSessionRoutes(r, sessionService)
	return httptest.NewServer(r)
}

func postJSON(t *testing.T, url string, payload map[string]string) (*http.Response, map[string]interface{}) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestGateway_PairGameEndToEnd(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	// p1 joins and waits.
	resp, body := postJSON(t, srv.URL+"/api/pool/join", map[string]string{
		"participantId": "p1", "mode": "spark", "criteria": "X",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "waiting", body["status"])

	// p2 joins with compatible criteria and matches.
	resp, body = postJSON(t, srv.URL+"/api/pool/join", map[string]string{
		"participantId": "p2", "mode": "spark", "criteria": "X",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "matched", body["status"])
	sessionID := body["sessionId"].(string)
	require.NotEmpty(t, sessionID)

	// Both polls agree on the session.
	resp, body = getJSON(t, srv.URL+"/api/pool/poll?mode=spark&participantId=p1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["matched"])
	assert.Equal(t, sessionID, body["sessionId"])

	// Find the turn holder from the session snapshot.
	resp, view := getJSON(t, fmt.Sprintf("%s/api/session/%s?participantId=p1", srv.URL, sessionID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	holder := view["turnHolder"].(string)
	responder := "p1"
	if holder == "p1" {
		responder = "p2"
	}

	// Wrong author is rejected with a conflict.
	resp, _ = postJSON(t, fmt.Sprintf("%s/api/session/%s/prompt", srv.URL, sessionID), map[string]string{
		"authorId": responder, "text": "my prompt",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = postJSON(t, fmt.Sprintf("%s/api/session/%s/prompt", srv.URL, sessionID), map[string]string{
		"authorId": holder, "text": "window or aisle seat?",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Result is hidden until the responder answers.
	resp, round := getJSON(t, fmt.Sprintf("%s/api/session/%s/round?participantId=%s", srv.URL, sessionID, holder))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, round["allAnswered"])
	assert.Nil(t, round["answers"])

	resp, _ = postJSON(t, fmt.Sprintf("%s/api/session/%s/answer", srv.URL, sessionID), map[string]string{
		"responderId": responder, "value": "window",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Duplicate answer conflicts.
	resp, _ = postJSON(t, fmt.Sprintf("%s/api/session/%s/answer", srv.URL, sessionID), map[string]string{
		"responderId": responder, "value": "aisle",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, round = getJSON(t, fmt.Sprintf("%s/api/session/%s/round?participantId=%s", srv.URL, sessionID, holder))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, round["allAnswered"])
	answers := round["answers"].(map[string]interface{})
	assert.Equal(t, "window", answers[responder])

	// Advance to the next round.
	resp, next := postJSON(t, fmt.Sprintf("%s/api/session/%s/advance", srv.URL, sessionID), map[string]string{
		"participantId": holder,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), next["roundNumber"])
	assert.Equal(t, responder, next["turnHolder"])
}

func TestGateway_ValidationAndErrorCodes(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	// Unknown mode.
	resp, _ := postJSON(t, srv.URL+"/api/pool/join", map[string]string{
		"participantId": "p1", "mode": "charades", "criteria": "X",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unsupported group size.
	resp, _ = postJSON(t, srv.URL+"/api/pool/join", map[string]string{
		"participantId": "p1", "mode": "huddle", "criteria": "9",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Polling without an entry.
	resp, _ = getJSON(t, srv.URL+"/api/pool/poll?mode=spark&participantId=nobody")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Unknown session.
	resp, _ = getJSON(t, srv.URL+"/api/session/nope?participantId=p1")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Missing fields.
	reqBody := bytes.NewReader([]byte(`{"participantId":"p1"}`))
	raw, err := http.Post(srv.URL+"/api/pool/join", "application/json", reqBody)
	require.NoError(t, err)
	raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)

	// Outsider poking at someone else's session is forbidden.
	postJSON(t, srv.URL+"/api/pool/join", map[string]string{
		"participantId": "a", "mode": "spark", "criteria": "Z",
	})
	_, body := postJSON(t, srv.URL+"/api/pool/join", map[string]string{
		"participantId": "b", "mode": "spark", "criteria": "Z",
	})
	sessionID := body["sessionId"].(string)

	resp, _ = getJSON(t, fmt.Sprintf("%s/api/session/%s?participantId=mallory", srv.URL, sessionID))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestGateway_GroupStatusPolling(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	for _, p := range []string{"g1", "g2"} {
		resp, _ := postJSON(t, srv.URL+"/api/pool/join", map[string]string{
			"participantId": p, "mode": "huddle", "criteria": "3",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, status := getJSON(t, srv.URL+"/api/pool/status?mode=huddle&participantId=g1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), status["playersJoined"])
	assert.Equal(t, float64(3), status["requiredPlayers"])
	assert.Equal(t, false, status["readyToStart"])

	resp, _ = postJSON(t, srv.URL+"/api/pool/join", map[string]string{
		"participantId": "g3", "mode": "huddle", "criteria": "3",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, status = getJSON(t, srv.URL+"/api/pool/status?mode=huddle&participantId=g2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, status["readyToStart"])
	assert.Equal(t, float64(3), status["playersJoined"])
	assert.NotEmpty(t, status["sessionId"])
}

func TestGateway_LeavePool(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	postJSON(t, srv.URL+"/api/pool/join", map[string]string{
		"participantId": "p1", "mode": "spark", "criteria": "Q",
	})

	resp, body := postJSON(t, srv.URL+"/api/pool/leave", map[string]string{
		"participantId": "p1", "mode": "spark",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])

	resp, _ = postJSON(t, srv.URL+"/api/pool/leave", map[string]string{
		"participantId": "p1", "mode": "spark",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
