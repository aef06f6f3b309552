package person_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/lo-maxwell/hkn-rails/core"
	"github.com/lo-maxwell/hkn-rails/core/person"
	testutil "github.com/lo-maxwell/hkn-rails/tests"
)

func TestService_Create(t *testing.T) {
	s := testutil.NewServices(t)
	ctx := context.Background()
	officers := testutil.CreateGroup(t, s, "officers")
	testutil.CreatePerson(t, s, "ann")

	tests := []struct {
		name      string
		np        person.NewPerson
		wantField string
	}{
		{
			name: "valid",
			np: person.NewPerson{Name: "Bob B", Username: " Bob_B ", Email: "BOB@berkeley.edu",
				Graduation: null.StringFrom("Fall 2025"), GroupIDs: []string{officers.ID}},
		},
		{name: "username taken", np: person.NewPerson{Name: "Ann 2", Username: "ann", Email: "ann2@berkeley.edu"}, wantField: "username"},
		{name: "email taken", np: person.NewPerson{Name: "Ann 3", Username: "ann3", Email: "ann@berkeley.edu"}, wantField: "email"},
		{name: "bad username", np: person.NewPerson{Name: "Eve", Username: "eve!", Email: "eve@berkeley.edu"}, wantField: "username"},
		{name: "bad email", np: person.NewPerson{Name: "Eve", Username: "eve", Email: "eve"}, wantField: "email"},
		{name: "bad graduation", np: person.NewPerson{Name: "Eve", Username: "eve", Email: "eve@berkeley.edu", Graduation: null.StringFrom("someday")}, wantField: "graduation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := s.People.Create(ctx, tt.np)
			if tt.wantField != "" {
				flds, ok := core.FieldErrors(err, s.Translator)
				require.True(t, ok, "got %v", err)
				assert.Equal(t, tt.wantField, flds[0].Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "bob_b", p.Username)
			assert.Equal(t, "bob@berkeley.edu", p.Email)
			assert.Equal(t, null.StringFrom("fa2025"), p.Graduation)
			require.Len(t, p.Groups, 1)
			assert.True(t, p.InGroup(officers.ID))
			assert.True(t, p.InGroupNamed("officers"))
		})
	}
}

func TestService_Update(t *testing.T) {
	s := testutil.NewServices(t)
	ctx := context.Background()
	ann := testutil.CreatePerson(t, s, "ann")
	testutil.CreatePerson(t, s, "bob")

	taken := "bob@berkeley.edu"
	_, err := s.People.Update(ctx, ann.ID, person.UpdatePerson{Email: &taken})
	flds, ok := core.FieldErrors(err, s.Translator)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, "email", flds[0].Field)

	name := "Ann A"
	p, err := s.People.Update(ctx, ann.ID, person.UpdatePerson{
		Name:       &name,
		Phone:      null.StringFrom("510-555-0100"),
		SMSGateway: null.StringFrom("vtext.com"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ann A", p.Name)
	assert.Equal(t, "5105550100@vtext.com", p.SMSAddress())

	_, err = s.People.Update(ctx, "nope", person.UpdatePerson{Name: &name})
	assert.Equal(t, person.ErrNotFound, err)
}

func TestService_Graduating(t *testing.T) {
	s := testutil.NewServices(t)
	ctx := context.Background()
	for uname, grad := range map[string]string{"ann": "sp2024", "bob": "fa2025", "cat": "su2024", "dan": ""} {
		np := person.NewPerson{Name: uname, Username: uname, Email: uname + "@berkeley.edu"}
		if grad != "" {
			np.Graduation = null.StringFrom(grad)
		}
		_, err := s.People.Create(ctx, np)
		require.NoError(t, err)
	}

	people, err := s.People.Graduating(ctx)
	require.NoError(t, err)
	got := make([]string, 0, len(people))
	for _, p := range people {
		got = append(got, p.Username)
	}
	assert.Equal(t, []string{"bob", "cat", "ann"}, got)
}

func TestService_GetAndDelete(t *testing.T) {
	s := testutil.NewServices(t)
	ctx := context.Background()
	members := testutil.CreateGroup(t, s, "members")
	ann := testutil.CreatePerson(t, s, "ann", members)

	p, err := s.People.GetByUsername(ctx, " ANN ")
	require.NoError(t, err)
	assert.Equal(t, ann.ID, p.ID)
	assert.True(t, p.InGroup(members.ID))

	people, err := s.People.Members(ctx, members.ID)
	require.NoError(t, err)
	assert.Len(t, people, 1)
	_, err = s.People.Members(ctx, "nope")
	assert.Error(t, err)

	require.NoError(t, s.People.Delete(ctx, ann.ID))
	_, err = s.People.Get(ctx, ann.ID)
	assert.Equal(t, person.ErrNotFound, err)
	people, err = s.People.Members(ctx, members.ID)
	require.NoError(t, err)
	assert.Empty(t, people)
}
