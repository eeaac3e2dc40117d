package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"familyroom/internal/family"
	"familyroom/internal/relay"
)

// Configure the websocket upgrader. Origin checking stays permissive:
// the application runs a trust-the-client model with no credentials.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// API holds the HTTP surface: the websocket relay endpoint and the
// balance/settings REST handlers.
type API struct {
	hub          *relay.Hub
	family       *family.Service
	historyLimit int
	corsOrigins  []string
	logger       *slog.Logger
}

// New creates the API around the hub and the family service.
func New(hub *relay.Hub, fam *family.Service, historyLimit int, corsOrigins []string, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		hub:          hub,
		family:       fam,
		historyLimit: historyLimit,
		corsOrigins:  corsOrigins,
		logger:       logger,
	}
}

// Routes builds the handler tree.
func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("GET /ws", a.serveWs)

	mux.HandleFunc("GET /api/balance", a.handleBalances)
	mux.HandleFunc("GET /api/balance/{role}", a.handleGetBalance)
	mux.HandleFunc("PUT /api/balance/{role}", a.handlePutBalance)
	mux.HandleFunc("GET /api/history", a.handleHistory)
	mux.HandleFunc("GET /api/settings/{role}", a.handleGetSettings)
	mux.HandleFunc("PATCH /api/settings/{role}", a.handlePatchSettings)
	mux.HandleFunc("POST /api/token/{role}", a.handleRegisterToken)
	mux.HandleFunc("POST /api/notify/{role}", a.handleNotify)

	return CORS(a.corsOrigins, mux)
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Relay server is healthy."))
}

// serveWs upgrades the HTTP connection and hands it to the hub.
func (a *API) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("websocket upgrade failed", slog.Any("err", err))
		return
	}
	a.hub.HandleConn(conn)
}

func (a *API) handleBalances(w http.ResponseWriter, _ *http.Request) {
	sum, err := a.family.Balances()
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, sum)
}

func (a *API) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	b, err := a.family.Balance(r.PathValue("role"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, b)
}

func (a *API) handlePutBalance(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Amount *float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Amount == nil {
		a.writeJSON(w, http.StatusBadRequest, errorBody{Error: "amount is required"})
		return
	}
	b, err := a.family.SetBalance(r.PathValue("role"), *body.Amount)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, b)
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := a.historyLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			a.writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	entries, err := a.family.History(limit)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (a *API) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := a.family.Settings(r.PathValue("role"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, s)
}

func (a *API) handlePatchSettings(w http.ResponseWriter, r *http.Request) {
	var patch family.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		a.writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed settings patch"})
		return
	}
	s, err := a.family.UpdateSettings(r.PathValue("role"), patch)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, s)
}

func (a *API) handleRegisterToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Token == "" {
		a.writeJSON(w, http.StatusBadRequest, errorBody{Error: "token is required"})
		return
	}
	if err := a.family.RegisterToken(r.PathValue("role"), body.Token); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleNotify(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string            `json:"title"`
		Body  string            `json:"body"`
		Data  map[string]string `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Title == "" {
		a.writeJSON(w, http.StatusBadRequest, errorBody{Error: "title is required"})
		return
	}
	if err := a.family.Notify(r.Context(), r.PathValue("role"), body.Title, body.Body, body.Data); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type errorBody struct {
	Error string `json:"error"`
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Warn("response encode failed", slog.Any("err", err))
	}
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, family.ErrUnknownRole) {
		a.writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
		return
	}
	a.logger.Error("request failed", slog.Any("err", err))
	a.writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
}
