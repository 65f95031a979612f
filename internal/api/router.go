package api

import (
	"omdraw/internal/middleware"

	"github.com/gorilla/mux"
)

func SetupRoutes(h *Handler, sockets SocketServer) *mux.Router {
	r := mux.NewRouter()

	// Tracing first so recovery and CORS run inside the request span.
	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.ErrorRecoveryMiddleware)
	r.Use(middleware.CORSMiddleware)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", h.Health).Methods("GET")

	// Room history
	api.HandleFunc("/rooms/{slug}", h.GetRoom).Methods("GET")
	api.HandleFunc("/rooms/{slug}/export.pdf", h.ExportRoomPDF).Methods("GET")
	api.HandleFunc("/chats/{roomId:[0-9]+}", h.ListChats).Methods("GET")

	// Relay
	r.HandleFunc("/ws", sockets.ServeWS)

	return r
}
