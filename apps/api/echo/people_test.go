package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	echoapi "github.com/lo-maxwell/hkn-rails/apps/api/echo"
	"github.com/lo-maxwell/hkn-rails/core/group"
	"github.com/lo-maxwell/hkn-rails/core/person"
	emailsvc "github.com/lo-maxwell/hkn-rails/services/email"
	testutil "github.com/lo-maxwell/hkn-rails/tests"
)

func Test_home(t *testing.T) {
	app := setup(t)
	rec := app.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to HKN API!", rec.Body.String())
}

func Test_personApi_me(t *testing.T) {
	app := setup(t)
	ann := testutil.CreatePerson(t, app.Services, "ann")
	token := getToken(t, app, ann)

	tests := []httpTest{
		{name: "auth required", method: http.MethodGet, path: "/v1/people/me", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "me", method: http.MethodGet, path: "/v1/people/me", token: token, wantCode: http.StatusOK, wantData: marchallObj(t, ann)},
		{
			name: "invalid graduation", method: http.MethodPut, path: "/v1/people/me", token: token,
			body: []byte(`{"graduation": "someday"}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"graduation": "must be a semester code like fa2024"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt.method, tt.path, tt.token, tt.body))
		})
	}

	rec := app.do(http.MethodPut, "/v1/people/me", token, []byte(`{"graduation": "Spring 2025", "phone": "(510) 555-0100"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated person.Person
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, null.StringFrom("sp2025"), updated.Graduation)
	assert.Equal(t, null.StringFrom("(510) 555-0100"), updated.Phone)

	// deleted people lose access
	require.NoError(t, app.People.Delete(context.Background(), ann.ID))
	rec = app.do(http.MethodGet, "/v1/people/me", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func Test_personApi_tokenRefresh(t *testing.T) {
	app := setup(t)
	ann := testutil.CreatePerson(t, app.Services, "ann")

	rec := app.do(http.MethodPost, "/v1/people/me/token-refresh", getToken(t, app, ann))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp echoapi.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	rec = app.do(http.MethodGet, "/v1/people/me", resp.Token)
	assert.Equal(t, http.StatusOK, rec.Code)

	expired := echoapi.GetPersonClaims(app.Conf, ann, 1)
	token, err := echoapi.GenerateToken(app.Conf, expired)
	require.NoError(t, err)
	rec = app.do(http.MethodPost, "/v1/people/me/token-refresh", token)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})}, rec)
}

func Test_personApi_admin(t *testing.T) {
	app := setup(t)
	ann := testutil.CreatePerson(t, app.Services, "ann")

	tests := []httpTest{
		{
			name: "admin required", method: http.MethodPost, path: "/v1/people", token: getToken(t, app, ann),
			body: []byte(`{}`), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "duplicate username", method: http.MethodPost, path: "/v1/people", token: app.adminToken,
			body:     []byte(`{"name": "Ann Bis", "username": "ANN", "email": "other@berkeley.edu"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"username": person.ErrUsernameExists.Error()}),
		},
		{
			name: "created", method: http.MethodPost, path: "/v1/people", token: app.adminToken,
			body:     []byte(`{"name": "Bob", "username": "bob", "email": "bob@berkeley.edu", "graduation": "fa2024"}`),
			wantCode: http.StatusCreated,
		},
		{
			name: "cannot delete self", method: http.MethodDelete, path: "/v1/people/" + app.admin.ID, token: app.adminToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "deleted", method: http.MethodDelete, path: "/v1/people/" + ann.ID, token: app.adminToken, wantCode: http.StatusNoContent},
		{
			name: "gone", method: http.MethodGet, path: "/v1/people/" + ann.ID, token: app.adminToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: person.ErrNotFound.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt.method, tt.path, tt.token, tt.body))
		})
	}

	rec := app.do(http.MethodGet, "/v1/people", app.adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeIDs(t, rec), 2) // admin, bob
}

func Test_personApi_graduations(t *testing.T) {
	app := setup(t)
	ctx := context.Background()
	alumrel := testutil.CreateGroup(t, app.Services, app.Conf.AlumniRelationsGroup)
	officer := testutil.CreatePerson(t, app.Services, "officer", alumrel)
	ann := testutil.CreatePerson(t, app.Services, "ann")
	bob := testutil.CreatePerson(t, app.Services, "bob")

	for p, sem := range map[string]string{ann.ID: "fa2023", bob.ID: "sp2024"} {
		_, err := app.People.Update(ctx, p, person.UpdatePerson{Graduation: null.StringFrom(sem)})
		require.NoError(t, err)
	}

	tests := []struct {
		name     string
		token    string
		wantCode int
	}{
		{name: "plain member", token: getToken(t, app, ann), wantCode: http.StatusForbidden},
		{name: "alumni relations", token: getToken(t, app, officer), wantCode: http.StatusOK},
		{name: "admin", token: app.adminToken, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodGet, "/v1/people/graduations", tt.token)
			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, []string{bob.ID, ann.ID}, decodeIDs(t, rec))
			}
		})
	}
}

func Test_groupApi(t *testing.T) {
	app := setup(t)
	ann := testutil.CreatePerson(t, app.Services, "ann")

	rec := app.do(http.MethodPost, "/v1/groups", getToken(t, app, ann), []byte(`{"name": "tutors"}`))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(http.MethodPost, "/v1/groups", app.adminToken, []byte(`{"name": " "}`))
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"name": "this field is required"})}, rec)

	rec = app.do(http.MethodPost, "/v1/groups", app.adminToken, []byte(`{"name": "tutors", "description": "Tutoring committee"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tutors group.Group
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tutors))

	rec = app.do(http.MethodPost, "/v1/groups", app.adminToken, []byte(`{"name": "tutors"}`))
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"name": group.ErrNameExists.Error()})}, rec)

	rec = app.do(http.MethodPut, "/v1/groups/"+tutors.ID, app.adminToken, []byte(`{"description": "Tutors"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	// membership
	membersPath := "/v1/groups/" + tutors.ID + "/members"
	rec = app.do(http.MethodPost, membersPath, app.adminToken, marchallObj(t, map[string]string{"person_id": ann.ID}))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = app.do(http.MethodGet, membersPath, app.adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{ann.ID}, decodeIDs(t, rec))

	rec = app.do(http.MethodDelete, membersPath+"/"+ann.ID, app.adminToken)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = app.do(http.MethodGet, membersPath, app.adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeIDs(t, rec))

	rec = app.do(http.MethodGet, "/v1/groups", app.adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeIDs(t, rec), 2) // officers, tutors

	rec = app.do(http.MethodDelete, "/v1/groups/"+tutors.ID, app.adminToken)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = app.do(http.MethodGet, "/v1/groups/"+tutors.ID, app.adminToken)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: group.ErrNotFound.Error()})}, rec)
}

func Test_tourApi_request(t *testing.T) {
	app := setup(t)
	emailsvc.ResetSentMessages()

	tests := []httpTest{
		{
			name: "invalid", body: []byte(`{"name": "Jo", "date": "next friday", "email": "nope"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		{
			name: "sent", body: []byte(`{"name": "Jo", "date": "next friday", "email": "Jo@Example.com", "comments": "Two visitors"}`),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(http.MethodPost, "/v1/tours", "", tt.body))
		})
	}

	sent := emailsvc.LastSentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, app.Conf.Tours.Recipient, sent[0].To[0].Address)
	require.NotNil(t, sent[0].ReplyTo)
	assert.Equal(t, "jo@example.com", sent[0].ReplyTo.Address)
}
