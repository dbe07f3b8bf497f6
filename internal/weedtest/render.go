package weedtest

import (
	"net/http"

	"github.com/go-chi/render"
)

type errResponse struct {
	HTTPStatusCode int    `json:"-"`
	Error          string `json:"error"`
}

func (e *errResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Render(w, r, &errResponse{HTTPStatusCode: status, Error: message})
}
