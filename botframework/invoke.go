// Copyright (c) Microsoft. All rights reserved.

package botframework

import (
	"encoding/json"
	"net/http"
)

// InvokeResponse is the payload threaded back through a synchronous HTTP
// response: a status code plus an optional body. A nil *InvokeResponse means
// "respond 200 with an empty body".
type InvokeResponse struct {
	Status int `json:"status"`
	Body   any `json:"body,omitempty"`
}

// IsSuccess reports whether the status code is in the 2xx range.
func (r *InvokeResponse) IsSuccess() bool {
	return r.Status >= 200 && r.Status < 300
}

// writeInvokeResponse writes ir to the HTTP response per the synchronous
// contract: nil means 200 empty, otherwise ir.Status with the body as JSON.
func writeInvokeResponse(w http.ResponseWriter, ir *InvokeResponse) error {
	if ir == nil {
		w.WriteHeader(http.StatusOK)
		return nil
	}
	if ir.Body == nil {
		w.WriteHeader(ir.Status)
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ir.Status)
	return json.NewEncoder(w).Encode(ir.Body)
}
