package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/tendant/drawing-thumbnailer/internal/failure"
	"github.com/tendant/drawing-thumbnailer/internal/store"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeError maps err onto a status and the {error, message} body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	summary := failure.Kind("").Summary()

	switch kind := failure.KindOf(err); {
	case errors.Is(err, store.ErrNotFound):
		status, summary = http.StatusNotFound, "Drawing not found"
	case kind != "":
		status, summary = kind.HTTPStatus(), kind.Summary()
	}

	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: summary, Message: err.Error()})
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, summary, message string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: summary, Message: message})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, r, http.StatusMethodNotAllowed, "Method not allowed", "")
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, r, http.StatusNotFound, "Not found", "")
}
