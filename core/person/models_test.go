package person

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"
)

func TestPerson_SMSAddress(t *testing.T) {
	tests := []struct {
		name string
		p    Person
		want string
	}{
		{name: "none"},
		{name: "phone only", p: Person{Phone: null.StringFrom("5105550100")}},
		{name: "gateway only", p: Person{SMSGateway: null.StringFrom("txt.att.net")}},
		{name: "formatted phone", p: Person{Phone: null.StringFrom("+1 (510) 555-0100"), SMSGateway: null.StringFrom("txt.att.net")}, want: "15105550100@txt.att.net"},
		{name: "no digits", p: Person{Phone: null.StringFrom("n/a"), SMSGateway: null.StringFrom("txt.att.net")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.SMSAddress())
		})
	}
}

func TestNewPerson_Clean(t *testing.T) {
	np := NewPerson{Name: " Ann ", Username: " ANN ", Email: " Ann@X.edu ", Phone: null.StringFrom("  "), Graduation: null.StringFrom("Spring 2026")}
	np.Clean()
	assert.Equal(t, "Ann", np.Name)
	assert.Equal(t, "ann", np.Username)
	assert.Equal(t, "ann@x.edu", np.Email)
	assert.False(t, np.Phone.Valid, "blank becomes null")
	assert.Equal(t, null.StringFrom("sp2026"), np.Graduation)
}
