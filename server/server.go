package main

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"

	"stonebirds/lobby"
)

const qrSize = 256

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response", "err", err)
	}
}

// SetupRoutes configures HTTP routes. db may be nil, which disables /stats.
func SetupRoutes(hub *Hub, db *DB) *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.CanAccept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("upgrade error", "err", err)
			return
		}

		hub.TrackConnect(ip)

		client := NewClient(hub, conn, ip)
		if !hub.Register(client) {
			hub.TrackDisconnect(ip)
			conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()
	})

	mux.HandleFunc("GET /rooms", func(w http.ResponseWriter, r *http.Request) {
		role := lobby.Role(r.URL.Query().Get("role"))
		if role != "" && !role.Valid() {
			writeJSON(w, http.StatusBadRequest, errorMsg(ErrBadRole))
			return
		}
		rooms, err := hub.ListRooms(r.Context(), role)
		if err != nil {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, rooms)
	})

	mux.HandleFunc("GET /invite/{file}", func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutSuffix(r.PathValue("file"), ".png")
		if !ok {
			http.NotFound(w, r)
			return
		}
		if _, _, err := hub.invites.Parse(token); err != nil {
			http.NotFound(w, r)
			return
		}
		png, err := qrcode.Encode(hub.inviteURL(token), qrcode.Medium, qrSize)
		if err != nil {
			slog.Error("render invite qr", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.Write(png)
	})

	// Invite links land here; a client reads the seat and joins with the token
	mux.HandleFunc("GET /join", func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("invite")
		room, role, err := hub.invites.Parse(token)
		if err != nil {
			writeJSON(w, http.StatusNotFound, errorMsg(err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"room": room, "role": role, "invite": token})
	})

	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			http.Error(w, "match log disabled", http.StatusNotFound)
			return
		}
		stats, err := db.MatchStats(r.Context())
		if err != nil {
			slog.Error("match stats", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		rooms, err := hub.RoomCount(r.Context())
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "stopping"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"conns":  hub.TotalConns(),
			"rooms":  rooms,
		})
	})

	return mux
}
