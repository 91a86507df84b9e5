package handler

import (
	"errors"
	"log"
	"net/http"

	"tabletop/internal/model"
	"tabletop/internal/service"
	"tabletop/internal/transport/rest/middleware"
)

// RoomHandler handles the administrative room endpoints
type RoomHandler struct {
	engine  *service.Engine
	authSvc *service.AuthService
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(engine *service.Engine, authSvc *service.AuthService) *RoomHandler {
	return &RoomHandler{
		engine:  engine,
		authSvc: authSvc,
	}
}

// authorize checks the body password, then the bearer token.
func (h *RoomHandler) authorize(r *http.Request, password string) bool {
	return h.authSvc.Authorize(password, middleware.BearerToken(r)) == nil
}

// Check handles GET /check-room?roomId=
func (h *RoomHandler) Check(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	writeJSON(w, http.StatusOK, map[string]bool{
		"exists": roomID != "" && h.engine.RoomExists(roomID),
	})
}

// Create handles POST /create-room
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.AdminRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.authorize(r, req.Password) {
		writeError(w, http.StatusForbidden, "access denied")
		return
	}

	roomID, err := h.engine.CreateRoom()
	if err != nil {
		log.Printf("create room: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"roomId": roomID})
}

// Delete handles DELETE /delete-room
func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req model.AdminRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.authorize(r, req.Password) {
		writeError(w, http.StatusForbidden, "access denied")
		return
	}
	if req.RoomID == "" {
		writeError(w, http.StatusBadRequest, "roomId is required")
		return
	}

	if err := h.engine.DeleteRoom(req.RoomID); err != nil {
		if errors.Is(err, service.ErrRoomNotFound) {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// List handles GET /rooms
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	rooms := h.engine.Rooms()
	log.Printf("%s listed %d rooms", middleware.GetAdminID(r.Context()), len(rooms))
	writeJSON(w, http.StatusOK, map[string]interface{}{"rooms": rooms})
}
