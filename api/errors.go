package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/warp/farmops/attendance"
	"github.com/warp/farmops/clock"
	"github.com/warp/farmops/core"
	"github.com/warp/farmops/overtime"
	"github.com/warp/farmops/payroll"
)

// =============================================================================
// ERROR RESPONSES
// =============================================================================

// Error codes returned in ErrorResponse.Code.
const (
	CodeMalformedTime          = "malformed_time"
	CodeAlreadyCheckedIn       = "already_checked_in"
	CodeAlreadyCheckedOut      = "already_checked_out"
	CodeNotCheckedIn           = "not_checked_in"
	CodeNotFound               = "not_found"
	CodeDuplicatePayrollPeriod = "duplicate_payroll_period"
	CodeDuplicate              = "duplicate"
	CodeInvalidTransition      = "invalid_transition"
	CodeInvalidStatus          = "invalid_status"
	CodeInvalidInput           = "invalid_input"
	CodeValidation             = "validation"
	CodePersistence            = "persistence"
	CodeInternal               = "internal"
)

// classify maps a domain error onto an HTTP status and error code.
func classify(err error) (int, string) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, clock.ErrMalformedTime):
		return http.StatusBadRequest, CodeMalformedTime
	case errors.Is(err, attendance.ErrDuplicateAttendance):
		return http.StatusConflict, CodeAlreadyCheckedIn
	case errors.Is(err, attendance.ErrAlreadyCheckedOut):
		return http.StatusConflict, CodeAlreadyCheckedOut
	case errors.Is(err, attendance.ErrNotCheckedIn):
		return http.StatusConflict, CodeNotCheckedIn
	case errors.Is(err, core.ErrEmployeeNotFound), errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, payroll.ErrDuplicatePayrollPeriod):
		return http.StatusConflict, CodeDuplicatePayrollPeriod
	case errors.Is(err, overtime.ErrDuplicateOvertime):
		return http.StatusConflict, CodeDuplicate
	case errors.Is(err, payroll.ErrInvalidTransition):
		return http.StatusConflict, CodeInvalidTransition
	case errors.Is(err, payroll.ErrInvalidStatus),
		errors.Is(err, overtime.ErrInvalidStatus),
		errors.Is(err, attendance.ErrInvalidStatus):
		return http.StatusBadRequest, CodeInvalidStatus
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest, CodeInvalidInput
	case errors.Is(err, core.ErrPersistence):
		return http.StatusInternalServerError, CodePersistence
	}
	return http.StatusInternalServerError, CodeInternal
}

// writeDomainError classifies err and writes it. Validation errors carry
// one detail line per failing field.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status, code := classify(err)
	resp := ErrorResponse{Error: message, Code: code}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field()+" failed "+fe.Tag())
		}
		resp.Details = fields
	} else if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
