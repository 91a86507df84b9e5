package rest

import (
	"net/http"

	"github.com/gorilla/mux"

	"tabletop/internal/service"
	"tabletop/internal/transport/rest/handler"
	"tabletop/internal/transport/rest/middleware"
	"tabletop/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService *service.AuthService
	Engine      *service.Engine
	WSHandler   *ws.Handler
	CORSOrigins string
}

// NewRouter creates the HTTP router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	authHandler := handler.NewAuthHandler(c.AuthService)
	roomHandler := handler.NewRoomHandler(c.Engine, c.AuthService)
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.CORSOrigins))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// WebSocket (the only client-facing channel)
	r.HandleFunc("/ws", c.WSHandler.ServeWS).Methods("GET")

	// Room administration; create/delete take the password or a bearer token
	r.HandleFunc("/check-room", roomHandler.Check).Methods("GET", "OPTIONS")
	r.HandleFunc("/create-room", roomHandler.Create).Methods("POST", "OPTIONS")
	r.HandleFunc("/delete-room", roomHandler.Delete).Methods("DELETE", "OPTIONS")
	r.HandleFunc("/admin/login", authHandler.Login).Methods("POST", "OPTIONS")

	adminRoutes := r.NewRoute().Subrouter()
	adminRoutes.Use(authMW.RequireAdmin)
	adminRoutes.HandleFunc("/rooms", roomHandler.List).Methods("GET")

	return r
}

func corsMiddleware(allowedOrigins string) mux.MiddlewareFunc {
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
