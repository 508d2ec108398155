package api

import (
	"encoding/json"
	"io"
	"net/http"

	"companyresolver/resolver"

	"github.com/andybalholm/brotli"
	"github.com/google/uuid"
)

type batchResponse struct {
	RunID   string            `json:"run_id"`
	Results []resolver.Result `json:"results"`
	Error   string            `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) resolve(w http.ResponseWriter, r *http.Request) {
	var req resolver.Request
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	res := s.resolver.Resolve(r.Context(), req)
	writeJSON(w, statusFor(res.ErrorKind), res)
}

func (s *server) resolveBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []resolver.Request
	if err := decodeBody(r, &reqs); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if len(reqs) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "empty batch"})
		return
	}
	if len(reqs) > s.maxBatch {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "batch too large"})
		return
	}

	runID := uuid.NewString()
	results, err := s.batch.Run(r.Context(), runID, reqs)
	resp := batchResponse{RunID: runID, Results: results}
	status := http.StatusOK
	if err != nil {
		s.log.WithError(err).WithField("run", runID).Error("batch aborted")
		resp.Error = err.Error()
		status = statusFor(resolver.Kind(err))
	}
	writeJSON(w, status, resp)
}

// decodeBody reads a JSON body, inflating it first when the client sent
// it brotli compressed.
func decodeBody(r *http.Request, v any) error {
	var body io.Reader = r.Body
	if r.Header.Get("Content-Encoding") == "br" {
		body = brotli.NewReader(r.Body)
	}
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func statusFor(kind string) int {
	switch kind {
	case "":
		return http.StatusOK
	case resolver.KindInvalidRequest:
		return http.StatusBadRequest
	case resolver.KindNoResolution:
		return http.StatusNotFound
	case resolver.KindTimeout:
		return http.StatusGatewayTimeout
	case resolver.KindSessionLaunch, resolver.KindSessionBusy:
		return http.StatusServiceUnavailable
	case resolver.KindLogin, resolver.KindNavigation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	jsonData, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		http.Error(w, "Error marshaling to JSON", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(jsonData)
}
