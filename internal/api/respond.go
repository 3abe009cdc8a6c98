package api

import (
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/sellerhub"
)

type envelope map[string]any

// writeJSON encodes body before committing status, so a value that cannot
// be encoded turns into a 500 instead of an empty response.
func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	data, err := json.Marshal(body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(encodeFailure)
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

var encodeFailure = []byte(`{"status":"error","message":"Something went wrong"}` + "\n")

func (s *Server) success(w http.ResponseWriter, status int, body envelope) {
	if body == nil {
		body = envelope{}
	}
	body["status"] = "success"
	writeJSON(w, status, body)
}

// fail is the single place errors become responses. Operational errors are
// described to the client; anything else is logged and answered with a
// generic 500. Internal causes are included only outside production.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	e, operational := sellerhub.AsError(err)
	if !operational {
		s.logger.ErrorContext(r.Context(), "unhandled error",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", sellerhub.RequestIDFromContext(r.Context()),
		)
		body := envelope{
			"status":  "error",
			"message": "Something went wrong",
		}
		if !s.cfg.Production {
			body["error"] = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, body)
		return
	}

	status := e.Kind.HTTPStatus()
	body := envelope{
		"status":  "fail",
		"message": e.Message,
	}
	if status >= http.StatusInternalServerError {
		body["status"] = "error"
		s.logger.ErrorContext(r.Context(), "request failed",
			"kind", e.Kind.String(),
			"error", err,
			"path", r.URL.Path,
			"request_id", sellerhub.RequestIDFromContext(r.Context()),
		)
	}
	if len(e.Fields) > 0 {
		body["errors"] = e.Fields.Map()
	}
	if !s.cfg.Production && e.Err != nil {
		body["error"] = e.Err.Error()
	}

	writeJSON(w, status, body)
}
