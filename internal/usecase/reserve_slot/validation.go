package reserve_slot

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if req.PatientID <= 0 {
		return &domain.ValidationError{Field: "patientId", Reason: "must be positive"}
	}

	if req.DoctorID <= 0 {
		return &domain.ValidationError{Field: "doctorId", Reason: "must be positive"}
	}

	if req.Date.IsZero() {
		return &domain.ValidationError{Field: "date", Reason: "is required"}
	}

	if req.StartTime.IsZero() {
		return &domain.ValidationError{Field: "startTime", Reason: "is required"}
	}

	if err := req.StartTime.Validate(); err != nil {
		return &domain.ValidationError{Field: "startTime", Reason: "must be in HH:MM format"}
	}

	if req.Notes != nil && utf8.RuneCountInString(*req.Notes) > domain.MaxNotesLength {
		return &domain.ValidationError{
			Field:  "notes",
			Reason: fmt.Sprintf("must be at most %d characters", domain.MaxNotesLength),
		}
	}

	if len(req.SharedDocumentIDs) > domain.MaxSharedDocuments {
		return &domain.ValidationError{
			Field:  "sharedDocumentIds",
			Reason: fmt.Sprintf("must contain at most %d documents", domain.MaxSharedDocuments),
		}
	}

	seen := make(map[string]struct{}, len(req.SharedDocumentIDs))
	for _, id := range req.SharedDocumentIDs {
		if strings.TrimSpace(id) == "" {
			return &domain.ValidationError{Field: "sharedDocumentIds", Reason: "must not contain empty ids"}
		}
		if _, ok := seen[id]; ok {
			return &domain.ValidationError{Field: "sharedDocumentIds", Reason: "must not contain duplicates"}
		}
		seen[id] = struct{}{}
	}

	return nil
}
