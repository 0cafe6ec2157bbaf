package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

type AssignRoomRequest struct {
	QueueID int64 `json:"queueId"`
	RoomID  int64 `json:"roomId"`
}

type FinishRoomRequest struct {
	RoomID int64 `json:"roomId"`
}

type RoomNameRequest struct {
	Name string `json:"name"`
}

// CompleteStageRequest accepts the stage specific id field the consoles send
// as well as a plain "id".
type CompleteStageRequest struct {
	ID         int64 `json:"id"`
	PaymentID  int64 `json:"paymentId"`
	PharmacyID int64 `json:"pharmacyId"`
}

func (r CompleteStageRequest) entryID() int64 {
	switch {
	case r.PaymentID != 0:
		return r.PaymentID
	case r.PharmacyID != 0:
		return r.PharmacyID
	default:
		return r.ID
	}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// decodeJSON reads the request body into dst. An empty body leaves dst at its
// zero value.
func decodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
