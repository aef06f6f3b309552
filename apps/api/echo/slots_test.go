package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lo-maxwell/hkn-rails/core/slot"
	testutil "github.com/lo-maxwell/hkn-rails/tests"
)

func Test_slotApi_crud(t *testing.T) {
	app := setup(t)
	tutor := testutil.CreatePerson(t, app.Services, "tutor")

	tests := []httpTest{
		{
			name: "admin required", method: http.MethodPost, path: "/v1/slots", token: getToken(t, app, tutor),
			body: []byte(`{"room": 0, "wday": 1, "hour": 11}`), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "invalid", method: http.MethodPost, path: "/v1/slots", token: app.adminToken,
			body: []byte(`{"room": 3, "wday": 6, "hour": 11}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"room": "room needs to be 0 (Cory) or 1 (Soda)",
				"wday": "must be a weekday from 1 (Monday) to 5 (Friday)",
			}),
		},
		{
			name: "created", method: http.MethodPost, path: "/v1/slots", token: app.adminToken,
			body: []byte(`{"room": 0, "wday": 1, "hour": 11}`), wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt.method, tt.path, tt.token, tt.body))
		})
	}

	rec := app.do(http.MethodGet, "/v1/slots", "")
	require.Equal(t, http.StatusOK, rec.Code)
	ids := decodeIDs(t, rec)
	require.Len(t, ids, 1)

	rec = app.do(http.MethodPut, "/v1/slots/"+ids[0], app.adminToken, []byte(`{"hour": 12}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated slot.Slot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, 12, updated.Hour)

	rec = app.do(http.MethodGet, "/v1/slots?hour=11", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeIDs(t, rec))

	rec = app.do(http.MethodDelete, "/v1/slots/"+ids[0], app.adminToken)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = app.do(http.MethodGet, "/v1/slots/"+ids[0], "")
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: slot.ErrNotFound.Error()})}, rec)
}

func Test_slotApi_assign(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	cory := testutil.CreateSlot(t, app.Services, slot.Cory, 2, 13)
	soda := testutil.CreateSlot(t, app.Services, slot.Soda, 2, 13)
	ann := testutil.CreatePerson(t, app.Services, "ann")
	bob := testutil.CreatePerson(t, app.Services, "bob")

	assignBody := func(id string) []byte { return marchallObj(t, map[string]string{"tutor_id": id}) }
	tests := []httpTest{
		{name: "auth required", path: "/v1/slots/" + cory.ID + "/tutors", body: assignBody(ann.ID), wantCode: http.StatusUnauthorized},
		{name: "assigned", path: "/v1/slots/" + cory.ID + "/tutors", token: app.adminToken, body: assignBody(ann.ID), wantCode: http.StatusOK},
		{name: "idempotent", path: "/v1/slots/" + cory.ID + "/tutors", token: app.adminToken, body: assignBody(ann.ID), wantCode: http.StatusOK},
		{name: "other tutor in mirror", path: "/v1/slots/" + soda.ID + "/tutors", token: app.adminToken, body: assignBody(bob.ID), wantCode: http.StatusOK},
		{
			name: "double booked", path: "/v1/slots/" + soda.ID + "/tutors", token: app.adminToken, body: assignBody(ann.ID),
			wantCode: http.StatusConflict,
		},
		{
			name: "unknown tutor", path: "/v1/slots/" + soda.ID + "/tutors", token: app.adminToken,
			body: assignBody("5e7e4b2c-8d36-4d59-9c47-0b1f5c0d1e2f"), wantCode: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(http.MethodPost, tt.path, tt.token, tt.body))
		})
	}

	rec := app.do(http.MethodGet, "/v1/slots/"+soda.ID+"/tutors", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{bob.ID}, decodeIDs(t, rec))

	rec = app.do(http.MethodDelete, "/v1/slots/"+cory.ID+"/tutors/"+ann.ID, app.adminToken)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.do(http.MethodGet, "/v1/slots/"+cory.ID+"/history", app.adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var changes []slot.SlotChange
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &changes))
	require.Len(t, changes, 2)
	assert.Equal(t, slot.ActionAssign, changes[0].Action)
	assert.Equal(t, slot.ActionUnassign, changes[1].Action)

	// ann is free again, so the soda slot takes her
	rec = app.do(http.MethodPost, "/v1/slots/"+soda.ID+"/tutors", app.adminToken, assignBody(ann.ID))
	assert.Equal(t, http.StatusOK, rec.Code)
	tutors, err := app.Slots.TutorsOf(ctx, soda.ID)
	require.NoError(t, err)
	assert.Len(t, tutors, 2)
}

func Test_slotApi_availabilities(t *testing.T) {
	app := setup(t)
	slt := testutil.CreateSlot(t, app.Services, slot.Soda, 3, 14)
	tutor := testutil.CreatePerson(t, app.Services, "tutor")
	token := getToken(t, app, tutor)

	tests := []httpTest{
		{
			name: "invalid preference", body: []byte(`{"wday": 3, "hour": 14, "preference": 4}`),
			wantCode: http.StatusBadRequest,
		},
		{name: "declared", body: []byte(`{"wday": 3, "hour": 14, "preference": 2}`), wantCode: http.StatusOK},
		{name: "redeclared", body: []byte(`{"wday": 3, "hour": 14, "preference": 3, "preferred_room": 1}`), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(http.MethodPost, "/v1/people/me/availabilities", token, tt.body))
		})
	}

	rec := app.do(http.MethodGet, "/v1/slots/"+slt.ID+"/availabilities", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var avails []slot.Availability
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &avails))
	require.Len(t, avails, 1)
	assert.Equal(t, tutor.ID, avails[0].PersonID)
	assert.Equal(t, 3, avails[0].Preference)
}
