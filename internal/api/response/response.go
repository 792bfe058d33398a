package response

import (
	"encoding/json"
	"net/http"
	"strconv"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// ErrorResponse documents the error body shape.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PagedResults wraps a list with relative next/prev page links.
type PagedResults struct {
	Results any    `json:"results"`
	Next    string `json:"next,omitempty"`
	Prev    string `json:"prev,omitempty"`
}

// WritePaged writes a paginated response. A next link is emitted when the
// page came back full, which assumes more data may exist; on an exact
// boundary the link leads to an empty page. A prev link is emitted for every
// page after the first. Links keep all other query parameters and replace
// only page.
func WritePaged(w http.ResponseWriter, r *http.Request, results any, count, page, pageSize int) {
	out := PagedResults{Results: results}
	if count == pageSize {
		out.Next = pageLink(r, page+1)
	}
	if page > 1 {
		out.Prev = pageLink(r, page-1)
	}
	WriteJSON(w, http.StatusOK, out)
}

func pageLink(r *http.Request, page int) string {
	q := r.URL.Query()
	q.Set("page", strconv.Itoa(page))
	return r.URL.Path + "?" + q.Encode()
}
