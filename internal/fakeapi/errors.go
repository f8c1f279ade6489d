package fakeapi

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// apiError is one entry of a JSON:API errors array
type apiError struct {
	Code   string `json:"code"`
	Title  string `json:"title"`
	Status string `json:"status,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func errNotFound(detail string) apiError {
	return apiError{Code: "NOT-FOUND", Title: "The resource could not be found.", Detail: detail}
}

func errUnauthorized(detail string) apiError {
	return apiError{Code: "UNAUTHORIZED", Title: "Authentication failed.", Detail: detail}
}

func errInvalidDocument(detail string) apiError {
	return apiError{Code: "INVALID-DOCUMENT", Title: "The request document is invalid.", Detail: detail}
}

func errInvalidQuery(detail string) apiError {
	return apiError{Code: "INVALID-QUERY", Title: "The query is invalid.", Detail: detail}
}

func errConflict(detail string) apiError {
	return apiError{Code: "CONFLICT", Title: "The request conflicts with the resource.", Detail: detail}
}

// writeErrors renders an error document; items without a status take the
// response status
func writeErrors(w http.ResponseWriter, status int, errs ...apiError) {
	for i := range errs {
		if errs[i].Status == "" {
			errs[i].Status = strconv.Itoa(status)
		}
	}
	writeJSON(w, status, map[string]any{"errors": errs})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", MediaType)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
