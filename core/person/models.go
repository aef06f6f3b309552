package person

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/lo-maxwell/hkn-rails/core"
	"github.com/lo-maxwell/hkn-rails/core/group"
)

// Person is a chapter member, tutor, RSVPer or alumnus.
type Person struct {
	ID         string        `json:"id" db:"id"`
	Name       string        `json:"name" db:"name"`
	Username   string        `json:"username" db:"username"`
	Email      string        `json:"email" db:"email"`
	Phone      null.String   `json:"phone" db:"phone"`
	SMSGateway null.String   `json:"sms_gateway" db:"sms_gateway"` // e.g. "txt.att.net"
	Graduation null.String   `json:"graduation" db:"graduation"`   // semester code, e.g. "sp2025"
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`   // UTC
	UpdatedAt  time.Time     `json:"updated_at" db:"updated_at"`   // UTC
	Groups     []group.Group `json:"groups,omitempty" db:"-"`
}

// InGroup reports whether p is a member of the group with groupID.
// Groups must have been loaded.
func (p *Person) InGroup(groupID string) bool {
	for _, g := range p.Groups {
		if g.ID == groupID {
			return true
		}
	}
	return false
}

func (p *Person) InGroupNamed(name string) bool {
	for _, g := range p.Groups {
		if g.Name == name {
			return true
		}
	}
	return false
}

// GraduationSemester returns the parsed graduation semester, if any.
func (p *Person) GraduationSemester() (core.Semester, bool) {
	if !p.Graduation.Valid {
		return core.Semester{}, false
	}
	sem, err := core.ParseSemester(p.Graduation.String)
	return sem, err == nil
}

// SMSAddress returns the email-to-SMS address of p, or "" if p has no phone or gateway.
func (p *Person) SMSAddress() string {
	if !p.Phone.Valid || !p.SMSGateway.Valid {
		return ""
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, p.Phone.String)
	if digits == "" || p.SMSGateway.String == "" {
		return ""
	}
	return digits + "@" + p.SMSGateway.String
}

// NewPerson contains information needed to create a new Person.
type NewPerson struct {
	Name       string      `json:"name" validate:"required,notblank"`
	Username   string      `json:"username" validate:"required,alphanum_"`
	Email      string      `json:"email" validate:"required,email"`
	Phone      null.String `json:"phone" validate:"omitempty,max=32"`
	SMSGateway null.String `json:"sms_gateway" validate:"omitempty,hostname"`
	Graduation null.String `json:"graduation" validate:"omitempty,semester"`
	GroupIDs   []string    `json:"group_ids" validate:"omitempty,dive,uuid"`
}

func (np *NewPerson) Clean() {
	np.Name = core.CleanString(np.Name)
	np.Username = core.CleanString(np.Username, true /* lower */)
	np.Email = core.CleanString(np.Email, true /* lower */)
	np.Phone = cleanNullString(np.Phone)
	np.SMSGateway = cleanNullString(np.SMSGateway)
	np.Graduation = normalizeSemester(cleanNullString(np.Graduation))
}

// UpdatePerson defines what information may be provided to modify an existing Person.
type UpdatePerson struct {
	Name       *string     `json:"name" validate:"omitempty,notblank"`
	Email      *string     `json:"email" validate:"omitempty,email"`
	Phone      null.String `json:"phone" validate:"omitempty,max=32"`
	SMSGateway null.String `json:"sms_gateway" validate:"omitempty,hostname"`
	Graduation null.String `json:"graduation" validate:"omitempty,semester"`
}

func (up *UpdatePerson) Clean() {
	if up.Name != nil {
		name := core.CleanString(*up.Name)
		up.Name = &name
	}
	if up.Email != nil {
		email := core.CleanString(*up.Email, true /* lower */)
		up.Email = &email
	}
	up.Phone = cleanNullString(up.Phone)
	up.SMSGateway = cleanNullString(up.SMSGateway)
	up.Graduation = normalizeSemester(cleanNullString(up.Graduation))
}

type QueryFilter struct {
	IDs       []string
	GroupID   string
	Graduated bool // only people with a graduation semester
}

func cleanNullString(s null.String) null.String {
	if !s.Valid {
		return s
	}
	str := core.CleanString(s.String)
	return null.NewString(str, str != "")
}

// normalizeSemester stores graduation semesters in their short code form.
func normalizeSemester(s null.String) null.String {
	if !s.Valid {
		return s
	}
	if sem, err := core.ParseSemester(s.String); err == nil {
		return null.StringFrom(sem.Code())
	}
	return s
}
