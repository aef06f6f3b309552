package group_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lo-maxwell/hkn-rails/core"
	"github.com/lo-maxwell/hkn-rails/core/group"
	testutil "github.com/lo-maxwell/hkn-rails/tests"
)

func TestService_Create(t *testing.T) {
	s := testutil.NewServices(t)
	ctx := context.Background()
	testutil.CreateGroup(t, s, "officers")

	tests := []struct {
		name      string
		ng        group.NewGroup
		wantField string
	}{
		{name: "valid", ng: group.NewGroup{Name: " tutors ", Description: "Office hours"}},
		{name: "blank", ng: group.NewGroup{Name: "   "}, wantField: "name"},
		{name: "taken", ng: group.NewGroup{Name: "officers"}, wantField: "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grp, err := s.Groups.Create(ctx, tt.ng)
			if tt.wantField != "" {
				flds, ok := core.FieldErrors(err, s.Translator)
				require.True(t, ok, "got %v", err)
				assert.Equal(t, tt.wantField, flds[0].Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "tutors", grp.Name)
		})
	}
}

func TestService_Update(t *testing.T) {
	s := testutil.NewServices(t)
	ctx := context.Background()
	officers := testutil.CreateGroup(t, s, "officers")
	testutil.CreateGroup(t, s, "tutors")

	taken := "tutors"
	_, err := s.Groups.Update(ctx, officers.ID, group.UpdateGroup{Name: &taken})
	_, ok := core.FieldErrors(err, s.Translator)
	assert.True(t, ok)

	same, desc := "officers", "Run the chapter"
	grp, err := s.Groups.Update(ctx, officers.ID, group.UpdateGroup{Name: &same, Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Run the chapter", grp.Description)

	_, err = s.Groups.Update(ctx, "nope", group.UpdateGroup{Name: &same})
	assert.Equal(t, group.ErrNotFound, err)
}

func TestService_Membership(t *testing.T) {
	s := testutil.NewServices(t)
	ctx := context.Background()
	officers := testutil.CreateGroup(t, s, "officers")
	tutors := testutil.CreateGroup(t, s, "tutors")
	ann := testutil.CreatePerson(t, s, "ann", officers)
	bob := testutil.CreatePerson(t, s, "bob")

	require.NoError(t, s.Groups.AddMember(ctx, tutors.ID, ann.ID))
	require.NoError(t, s.Groups.AddMember(ctx, tutors.ID, bob.ID))
	assert.Equal(t, group.ErrNotFound, s.Groups.AddMember(ctx, "nope", bob.ID))

	groups, err := s.Groups.GroupsOf(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"officers", "tutors"}, []string{groups[0].Name, groups[1].Name})

	ids, err := s.Groups.MemberIDs(ctx, tutors.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{ann.ID, bob.ID}, ids)

	require.NoError(t, s.Groups.RemoveMember(ctx, tutors.ID, bob.ID))
	ids, err = s.Groups.MemberIDs(ctx, tutors.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{ann.ID}, ids)

	groups, err = s.Groups.GroupsOf(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, groups, "anonymous has no groups")
}

func TestService_Delete(t *testing.T) {
	s := testutil.NewServices(t)
	ctx := context.Background()
	officers := testutil.CreateGroup(t, s, "officers")
	ann := testutil.CreatePerson(t, s, "ann", officers)
	et := testutil.CreateEventType(t, s, "Social")
	evt := testutil.CreateEvent(t, s, "Meeting", et, time.Now(), time.Hour, testutil.ViewableBy(officers))

	require.NoError(t, s.Groups.Delete(ctx, officers.ID))
	p, err := s.People.Get(ctx, ann.ID)
	require.NoError(t, err)
	assert.Empty(t, p.Groups)

	got, err := s.Events.Get(ctx, evt.ID)
	require.NoError(t, err)
	assert.False(t, got.ViewPermissionGroupID.Valid, "events of a deleted group become public")
	assert.Equal(t, group.ErrNotFound, s.Groups.Delete(ctx, officers.ID))
}
