package console

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"resumedesk.org/internal/guard"
	"resumedesk.org/internal/upstream"
)

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	// Reject trailing garbage after the first value.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must contain a single JSON object")
	}
	return nil
}

// upstreamError translates a product API failure into the console's
// response. Auth failures redirect to login (the client already cleared
// the session), validation messages pass through verbatim so the form
// stays open with the server's words, and everything else is the
// console's own vocabulary.
func (a *API) upstreamError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case upstream.IsAuth(err):
		http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
	case upstream.IsValidation(err):
		writeError(w, r, http.StatusUnprocessableEntity, upstream.Message(err, "request rejected"))
	case upstream.IsTransport(err):
		writeError(w, r, http.StatusServiceUnavailable, "product API unreachable, try again")
	default:
		writeError(w, r, http.StatusBadGateway, "product API error")
	}
}

// formFile reads an optional image part from a multipart form. A missing
// part is not an error: updates without a new image keep the stored one.
func formFile(r *http.Request, field string) (*upstream.File, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &upstream.File{Name: header.Filename, Content: content}, nil
}
