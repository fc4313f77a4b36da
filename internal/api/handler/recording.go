package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/edvin/testpilot/internal/api/request"
	"github.com/edvin/testpilot/internal/api/response"
	"github.com/edvin/testpilot/internal/model"
	"github.com/edvin/testpilot/internal/recorder"
)

// RecordingController is the recording session surface the handler
// needs. Satisfied by recorder.Controller.
type RecordingController interface {
	Start(ctx context.Context, url, userID string) (string, error)
	Poll(sessionID string) ([]model.RecordedAction, error)
	Stop(sessionID string) ([]model.RecordedAction, error)
	AppendAction(sessionID string, action model.RecordedAction) error
}

type Recording struct {
	ctrl RecordingController
}

func NewRecording(ctrl RecordingController) *Recording {
	return &Recording{ctrl: ctrl}
}

func (h *Recording) Start(w http.ResponseWriter, r *http.Request) {
	var req request.StartRecording
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.ctrl.Start(r.Context(), req.URL, req.UserID)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// Actions is the non-destructive poll of everything captured so far.
func (h *Recording) Actions(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "recordingID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	actions, err := h.ctrl.Poll(id)
	if errors.Is(err, recorder.ErrSessionNotFound) {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, actions)
}

// Stop tears the session down and returns the final action list.
func (h *Recording) Stop(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "recordingID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	actions, err := h.ctrl.Stop(id)
	if errors.Is(err, recorder.ErrSessionNotFound) {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, actions)
}

// Ingest upgrades to WebSocket and appends each JSON message from the
// in-page capture hook to the recording session.
func (h *Recording) Ingest(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "recordingID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Reject unknown sessions before the upgrade.
	if _, err := h.ctrl.Poll(id); errors.Is(err, recorder.ErrSessionNotFound) {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Origin is the recorded page, not this API.
	})
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer ws.Close(websocket.StatusInternalError, "closed")

	for {
		var action model.RecordedAction
		if err := wsjson.Read(r.Context(), ws, &action); err != nil {
			// Normal closure when the page navigates away or the
			// recording stops.
			break
		}
		if err := h.ctrl.AppendAction(id, action); err != nil {
			// Session stopped while the socket was open.
			ws.Close(websocket.StatusNormalClosure, "recording stopped")
			return
		}
	}

	ws.Close(websocket.StatusNormalClosure, "")
}
