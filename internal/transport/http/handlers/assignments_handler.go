package handlers

import (
	"errors"
	"net/http"

	assignmentssvc "github.com/ivankudzin/giftexchange/internal/services/assignments"
	"github.com/ivankudzin/giftexchange/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/giftexchange/internal/transport/http/errors"
)

type AssignmentsHandler struct {
	service *assignmentssvc.Service
}

func NewAssignmentsHandler(service *assignmentssvc.Service) *AssignmentsHandler {
	return &AssignmentsHandler{service: service}
}

func (h *AssignmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	collectionID, ok := h.collection(w, r)
	if !ok {
		return
	}
	offering, okOffering := optionalIDQuery(r, "offering_user_id")
	requesting, okRequesting := optionalIDQuery(r, "requesting_user_id")
	if !okOffering || !okRequesting {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid user filter")
		return
	}

	items, err := h.service.ListAssignments(r.Context(), collectionID, assignmentssvc.Filter{
		OfferingUserID:   offering,
		RequestingUserID: requesting,
	})
	if err != nil {
		handleAssignmentError(w, err)
		return
	}

	response := dto.AssignmentsResponse{Items: make([]dto.AssignmentResponse, 0, len(items)), Total: len(items)}
	for _, item := range items {
		response.Items = append(response.Items, dto.FromAssignment(item))
	}
	httperrors.Write(w, http.StatusOK, response)
}

func (h *AssignmentsHandler) Generate(w http.ResponseWriter, r *http.Request) {
	collectionID, ok := h.collection(w, r)
	if !ok {
		return
	}

	report, err := h.service.Generate(r.Context(), collectionID)
	if err != nil {
		handleAssignmentError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, report)
}

func (h *AssignmentsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	collectionID, ok := h.collection(w, r)
	if !ok {
		return
	}

	cleared, err := h.service.Clear(r.Context(), collectionID)
	if err != nil {
		handleAssignmentError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.ClearResponse{OK: true, Cleared: cleared})
}

func (h *AssignmentsHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	collectionID, ok := h.collection(w, r)
	if !ok {
		return
	}

	report, err := h.service.Reconcile(r.Context(), collectionID)
	if err != nil {
		handleAssignmentError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, report)
}

func (h *AssignmentsHandler) SendOut(w http.ResponseWriter, r *http.Request) {
	collectionID, ok := h.collection(w, r)
	if !ok {
		return
	}

	report, err := h.service.SendOut(r.Context(), collectionID)
	if err != nil {
		handleAssignmentError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, report)
}

func (h *AssignmentsHandler) Status(w http.ResponseWriter, r *http.Request) {
	collectionID, ok := h.collection(w, r)
	if !ok {
		return
	}

	runs, err := h.service.LastRuns(r.Context(), collectionID)
	if err != nil {
		handleAssignmentError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.RunStatusResponse{CollectionID: collectionID, Runs: runs})
}

func (h *AssignmentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	collectionID, ok := h.collection(w, r)
	if !ok {
		return
	}
	assignmentID, ok := positiveIDParam(r, "assignmentID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid assignment id")
		return
	}

	var req dto.UpdateAssignmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if req.PinchHitter == nil && req.PinchRequest == nil {
		writeBadRequest(w, "VALIDATION_ERROR", "nothing to update")
		return
	}

	edited, err := h.service.UpdatePinches(r.Context(), collectionID, assignmentID, req.PinchHitter, req.PinchRequest)
	if err != nil {
		handleAssignmentError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.FromAssignment(edited))
}

func (h *AssignmentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	collectionID, ok := h.collection(w, r)
	if !ok {
		return
	}
	assignmentID, ok := positiveIDParam(r, "assignmentID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid assignment id")
		return
	}

	if err := h.service.DeleteAssignment(r.Context(), collectionID, assignmentID); err != nil {
		handleAssignmentError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.DeleteResponse{OK: true})
}

func (h *AssignmentsHandler) collection(w http.ResponseWriter, r *http.Request) (int64, bool) {
	if h.service == nil {
		writeInternal(w, "ASSIGNMENTS_SERVICE_UNAVAILABLE", "assignments service is unavailable")
		return 0, false
	}
	collectionID, ok := positiveIDParam(r, "collectionID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid collection id")
		return 0, false
	}
	return collectionID, true
}

func handleAssignmentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, assignmentssvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
	case errors.Is(err, assignmentssvc.ErrCollectionNotFound):
		writeNotFound(w, "COLLECTION_NOT_FOUND", "collection not found")
	case errors.Is(err, assignmentssvc.ErrAssignmentNotFound):
		writeNotFound(w, "ASSIGNMENT_NOT_FOUND", "assignment not found")
	case errors.Is(err, assignmentssvc.ErrParticipantNotFound):
		writeNotFound(w, "PARTICIPANT_NOT_FOUND", "participant not found")
	case errors.Is(err, assignmentssvc.ErrSignupNotFound):
		writeNotFound(w, "SIGNUP_NOT_FOUND", "participant has no signup in this collection")
	case errors.Is(err, assignmentssvc.ErrCollectionBusy):
		httperrors.WriteError(w, http.StatusConflict, "COLLECTION_BUSY", "another run holds this collection")
	case errors.Is(err, assignmentssvc.ErrLockLost):
		httperrors.WriteError(w, http.StatusConflict, "LOCK_LOST", "collection lock expired during the run, changes were rolled back")
	case errors.Is(err, assignmentssvc.ErrInputIncomplete):
		httperrors.WriteError(w, http.StatusUnprocessableEntity, "INPUT_INCOMPLETE", err.Error())
	default:
		if _, ok := assignmentssvc.IsPersistenceFailure(err); ok {
			writeInternal(w, "PERSISTENCE_FAILURE", "assignment run was rolled back")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
