package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mat-tom-creator/fileledger/internal/model"
	"github.com/mat-tom-creator/fileledger/pkg/apierror"
)

func writeSuccess(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Kind:    string(apierror.KindInternal),
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Kind = string(apiErr.Kind)
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else if errors.Is(err, model.ErrFileNotFound) {
		status = http.StatusNotFound
		body.Kind = string(apierror.KindNotFound)
		body.Message = "File not found"
	} else if errors.Is(err, model.ErrTransferNotFound) {
		status = http.StatusNotFound
		body.Kind = string(apierror.KindNotFound)
		body.Message = "Transfer not found"
	} else if errors.Is(err, model.ErrGrantNotFound) {
		status = http.StatusNotFound
		body.Kind = string(apierror.KindNotFound)
		body.Message = "Grant not found"
	} else if errors.Is(err, model.ErrInvalidInput) {
		status = http.StatusBadRequest
		body.Kind = string(apierror.KindInvalidArgument)
		body.Message = "Invalid input"
	} else {
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return apierror.InvalidArgument("invalid request body", err.Error())
	}
	return nil
}
