package auth

import (
	"strings"

	"github.com/mzemr/record-api/internal/model"
	apperrors "github.com/mzemr/record-api/pkg/errors"
)

// VisitAccessContext is the department/doctor pair the HIS reports for a
// visit, used to scope doctors to their own patients.
type VisitAccessContext struct {
	DeptCode string
	DocCode  string
}

// ValidatePatientAccess decides whether the session may touch a visit.
// Admin and qc roles see everything; doctors must match the visit's
// department and doctor codes.
func ValidatePatientAccess(session *model.Session, visit *VisitAccessContext) error {
	if visit == nil {
		return apperrors.NotFound("未找到就诊记录")
	}

	if session.HasRole(model.RoleAdmin) || session.HasRole(model.RoleQC) {
		return nil
	}

	if normalizeCode(session.DeptCode) != normalizeCode(visit.DeptCode) ||
		normalizeCode(session.DocCode) != normalizeCode(visit.DocCode) {
		return apperrors.Forbidden("无权访问该患者")
	}
	return nil
}

func normalizeCode(value string) string {
	return strings.TrimSpace(value)
}
