package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-queue/internal/clinic"
)

func listRoomsHandler(svc *clinic.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := svc.ListRooms(r.Context())
		if err != nil {
			handleServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, rooms)
	}
}

func createRoomHandler(svc *clinic.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RoomNameRequest
		if err := decodeJSON(r, &req); err != nil {
			writeBadBody(w)
			return
		}

		room, err := svc.CreateRoom(r.Context(), req.Name)
		if err != nil {
			handleServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, room)
	}
}

func renameRoomHandler(svc *clinic.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_room_id", "id must be a positive integer")
			return
		}

		var req RoomNameRequest
		if err := decodeJSON(r, &req); err != nil {
			writeBadBody(w)
			return
		}

		room, err := svc.RenameRoom(r.Context(), id, req.Name)
		if err != nil {
			handleServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, room)
	}
}

func deleteRoomHandler(svc *clinic.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_room_id", "id must be a positive integer")
			return
		}

		if err := svc.DeleteRoom(r.Context(), id); err != nil {
			handleServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{Message: "room deleted"})
	}
}

func assignRoomHandler(svc *clinic.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AssignRoomRequest
		if err := decodeJSON(r, &req); err != nil {
			writeBadBody(w)
			return
		}
		if req.QueueID <= 0 || req.RoomID <= 0 {
			writeError(w, http.StatusBadRequest, "validation_error", "queueId and roomId are required")
			return
		}

		res, err := svc.AssignRoom(r.Context(), req.QueueID, req.RoomID)
		if err != nil {
			handleServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func finishRoomHandler(svc *clinic.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FinishRoomRequest
		if err := decodeJSON(r, &req); err != nil {
			writeBadBody(w)
			return
		}
		if req.RoomID <= 0 {
			writeError(w, http.StatusBadRequest, "validation_error", "roomId is required")
			return
		}

		res, err := svc.FinishRoom(r.Context(), req.RoomID)
		if err != nil {
			handleServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func autoAssignHandler(svc *clinic.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.AutoAssign(r.Context())
		if err != nil {
			handleServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
