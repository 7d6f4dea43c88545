package core

import (
	"regexp"
	"strings"
	"time"
)

// Member is a gym member.
type Member struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Email            string         `json:"email"`
	Phone            string         `json:"phone"`
	Identification   string         `json:"identification"`
	MembershipType   MembershipType `json:"membershipType"`
	EmergencyContact string         `json:"emergencyContact"`
	EmergencyPhone   string         `json:"emergencyPhone"`
	Notes            string         `json:"notes"`
	IsActive         bool           `json:"isActive"`
	JoinDate         Date           `json:"joinDate"`
	LastCheckIn      *time.Time     `json:"lastCheckIn"`
	TotalCheckIns    int            `json:"totalCheckIns"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// MemberForm holds the editable member fields.
type MemberForm struct {
	Name             string         `json:"name"`
	Email            string         `json:"email"`
	Phone            string         `json:"phone"`
	Identification   string         `json:"identification"`
	MembershipType   MembershipType `json:"membershipType"`
	EmergencyContact string         `json:"emergencyContact"`
	EmergencyPhone   string         `json:"emergencyPhone"`
	Notes            string         `json:"notes"`
}

// Member status filters
const (
	FilterAll      = "all"
	FilterActive   = "active"
	FilterInactive = "inactive"
)

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// InitialMemberForm returns an empty form on the monthly plan.
func InitialMemberForm() MemberForm {
	return MemberForm{MembershipType: PlanMonthly}
}

// FormOf returns the editable fields of m.
func FormOf(m Member) MemberForm {
	return MemberForm{
		Name:             m.Name,
		Email:            m.Email,
		Phone:            m.Phone,
		Identification:   m.Identification,
		MembershipType:   m.MembershipType,
		EmergencyContact: m.EmergencyContact,
		EmergencyPhone:   m.EmergencyPhone,
		Notes:            m.Notes,
	}
}

// Apply copies the form fields onto m.
func (f MemberForm) Apply(m *Member) {
	m.Name = strings.TrimSpace(f.Name)
	m.Email = strings.TrimSpace(f.Email)
	m.Phone = strings.TrimSpace(f.Phone)
	m.Identification = strings.TrimSpace(f.Identification)
	m.MembershipType = f.MembershipType
	if m.MembershipType == "" {
		m.MembershipType = PlanMonthly
	}
	m.EmergencyContact = strings.TrimSpace(f.EmergencyContact)
	m.EmergencyPhone = strings.TrimSpace(f.EmergencyPhone)
	m.Notes = f.Notes
}

// ValidateMemberForm returns field name to message for every invalid field.
// An empty map means the form is valid.
func ValidateMemberForm(f MemberForm) map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(f.Name) == "" {
		errs["name"] = "Nombre es requerido"
	}
	email := strings.TrimSpace(f.Email)
	if email == "" {
		errs["email"] = "Email es requerido"
	} else if !emailPattern.MatchString(email) {
		errs["email"] = "Email inválido"
	}
	if strings.TrimSpace(f.Phone) == "" {
		errs["phone"] = "Teléfono es requerido"
	}
	if strings.TrimSpace(f.Identification) == "" {
		errs["identification"] = "Identificación es requerida"
	}
	if f.MembershipType != "" && !f.MembershipType.Valid() {
		errs["membershipType"] = "Tipo de membresía inválido"
	}
	return errs
}

// FilterMembers keeps members matching search and status. Name and email
// match case-insensitively; phone and identification match as substrings.
func FilterMembers(members []Member, search, status string) []Member {
	term := strings.ToLower(strings.TrimSpace(search))
	out := make([]Member, 0, len(members))
	for _, m := range members {
		if term != "" &&
			!strings.Contains(strings.ToLower(m.Name), term) &&
			!strings.Contains(strings.ToLower(m.Email), term) &&
			!strings.Contains(m.Phone, term) &&
			!strings.Contains(m.Identification, term) {
			continue
		}
		switch status {
		case FilterActive:
			if !m.IsActive {
				continue
			}
		case FilterInactive:
			if m.IsActive {
				continue
			}
		}
		out = append(out, m)
	}
	return out
}
