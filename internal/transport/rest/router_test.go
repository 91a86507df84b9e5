package rest

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tabletop/internal/config"
	"tabletop/internal/model"
	"tabletop/internal/service"
	"tabletop/internal/store"
	"tabletop/internal/transport/ws"
)

const testPassword = "hunter2"

func newTestRouter(t *testing.T) (http.Handler, *service.Engine) {
	t.Helper()
	cfg := &config.Config{CoordinateSpace: config.SpacePixel, BoardWidth: 600, BoardHeight: 600}
	rng := rand.New(rand.NewSource(1))
	reg := service.NewRegistry(nil, rng)
	binder := service.NewBinder(reg, service.NewPlacement(cfg, rng))
	gw := service.NewGateway(store.NewMemoryBlobStore(), "rooms.json", time.Second)
	engine := service.NewEngine(reg, binder, gw, rng)

	hub := ws.NewHub()
	t.Cleanup(hub.Close)
	engine.SetBroadcaster(hub)

	router := NewRouter(&Container{
		AuthService: service.NewAuthService(testPassword, "test-secret", time.Hour),
		Engine:      engine,
		WSHandler:   ws.NewHandler(hub, engine),
		CORSOrigins: "*",
	})
	return router, engine
}

func do(t *testing.T, h http.Handler, method, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeInto(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := do(t, router, "GET", "/health", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS origin = %q", got)
	}
}

func TestCreateCheckDelete(t *testing.T) {
	router, engine := newTestRouter(t)

	rr := do(t, router, "POST", "/create-room", `{"password":"hunter2"}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("create status = %d body %s", rr.Code, rr.Body.String())
	}
	var created struct {
		RoomID string `json:"roomId"`
	}
	decodeInto(t, rr, &created)
	if created.RoomID == "" || !engine.RoomExists(created.RoomID) {
		t.Fatalf("room %q was not created", created.RoomID)
	}

	var check struct {
		Exists bool `json:"exists"`
	}
	decodeInto(t, do(t, router, "GET", "/check-room?roomId="+created.RoomID, "", ""), &check)
	if !check.Exists {
		t.Error("check-room: exists = false for a created room")
	}
	decodeInto(t, do(t, router, "GET", "/check-room?roomId=nope", "", ""), &check)
	if check.Exists {
		t.Error("check-room: exists = true for an unknown room")
	}
	decodeInto(t, do(t, router, "GET", "/check-room", "", ""), &check)
	if check.Exists {
		t.Error("check-room: exists = true without a roomId")
	}

	rr = do(t, router, "DELETE", "/delete-room", `{"password":"hunter2","roomId":"`+created.RoomID+`"}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d body %s", rr.Code, rr.Body.String())
	}
	var deleted struct {
		Success bool `json:"success"`
	}
	decodeInto(t, rr, &deleted)
	if !deleted.Success || engine.RoomExists(created.RoomID) {
		t.Error("room still exists after delete")
	}

	rr = do(t, router, "DELETE", "/delete-room", `{"password":"hunter2","roomId":"`+created.RoomID+`"}`, "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rr.Code)
	}
}

func TestAdminForbidden(t *testing.T) {
	router, engine := newTestRouter(t)
	id, err := engine.CreateRoom()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		bearer string
	}{
		{"create wrong password", "POST", "/create-room", `{"password":"nope"}`, ""},
		{"create no body", "POST", "/create-room", "", ""},
		{"create bad token", "POST", "/create-room", "", "not-a-jwt"},
		{"delete wrong password", "DELETE", "/delete-room", `{"password":"nope","roomId":"` + id + `"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, router, tt.method, tt.path, tt.body, tt.bearer)
			if rr.Code != http.StatusForbidden {
				t.Errorf("status = %d, want 403", rr.Code)
			}
		})
	}
	if !engine.RoomExists(id) {
		t.Error("forbidden delete removed the room")
	}
	if n := len(engine.Rooms()); n != 1 {
		t.Errorf("rooms = %d, want 1", n)
	}
}

func TestLoginTokenAuthorizesAdminRoutes(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := do(t, router, "POST", "/admin/login", `{"password":"wrong"}`, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d, want 401", rr.Code)
	}

	rr = do(t, router, "POST", "/admin/login", `{"password":"hunter2"}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("login status = %d", rr.Code)
	}
	var login model.LoginResponse
	decodeInto(t, rr, &login)
	if login.Token == "" {
		t.Fatal("empty token")
	}

	if rr := do(t, router, "GET", "/rooms", "", ""); rr.Code != http.StatusUnauthorized {
		t.Errorf("rooms without token status = %d, want 401", rr.Code)
	}

	rr = do(t, router, "POST", "/create-room", "", login.Token)
	if rr.Code != http.StatusOK {
		t.Fatalf("create with token status = %d", rr.Code)
	}

	rr = do(t, router, "GET", "/rooms", "", login.Token)
	if rr.Code != http.StatusOK {
		t.Fatalf("rooms status = %d", rr.Code)
	}
	var list struct {
		Rooms []model.RoomSummary `json:"rooms"`
	}
	decodeInto(t, rr, &list)
	if len(list.Rooms) != 1 || list.Rooms[0].PlayerCount != 0 {
		t.Errorf("rooms = %+v", list.Rooms)
	}
}

func TestDeleteRequiresRoomID(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := do(t, router, "DELETE", "/delete-room", `{"password":"hunter2"}`, "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestPreflight(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := do(t, router, "OPTIONS", "/create-room", "", "")
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "DELETE") {
		t.Errorf("allowed methods = %q", got)
	}
}
