package model

import "time"

// Roles understood by the capability checks. Doctors are scoped to their
// own department/visits; admin and qc may export; only admin may reset.
const (
	RoleAdmin  = "admin"
	RoleQC     = "qc"
	RoleDoctor = "doctor"
)

// User is a local platform account. Authentication is local; visit data
// itself always comes from the HIS.
type User struct {
	ID           int64     `db:"id" json:"id"`
	LoginName    string    `db:"login_name" json:"login_name"`
	DisplayName  string    `db:"display_name" json:"display_name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	DocCode      string    `db:"doc_code" json:"doc_code"`
	DeptCode     string    `db:"dept_code" json:"dept_code"`
	Roles        string    `db:"roles" json:"-"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"-"`
	UpdatedAt    time.Time `db:"updated_at" json:"-"`
}

// Session is the authenticated caller identity extracted from the JWT.
type Session struct {
	LoginName string   `json:"login_name"`
	DocCode   string   `json:"doc_code"`
	DeptCode  string   `json:"dept_code"`
	Roles     []string `json:"roles"`
}

func (s *Session) HasRole(role string) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Operator returns the code written into audit and export logs.
func (s *Session) Operator() string {
	if s.DocCode != "" {
		return s.DocCode
	}
	return s.LoginName
}

type LoginRequest struct {
	LoginName string `json:"login_name" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string   `json:"token"`
	ExpiresAt int64    `json:"expires_at"`
	LoginName string   `json:"login_name"`
	DocCode   string   `json:"doc_code"`
	DeptCode  string   `json:"dept_code"`
	Roles     []string `json:"roles"`
}
