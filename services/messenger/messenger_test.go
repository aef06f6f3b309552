package messenger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/lo-maxwell/hkn-rails/core"
	"github.com/lo-maxwell/hkn-rails/core/person"
	emailsvc "github.com/lo-maxwell/hkn-rails/services/email"
)

func TestMessenger_Send(t *testing.T) {
	conf := core.NewTestConfig()
	msgr := New(emailsvc.NewConsoleServiceMock(conf), conf)

	tests := []struct {
		name     string
		person   person.Person
		wantTo   string
		wantSubj string
		wantErr  bool
	}{
		{
			name:     "email",
			person:   person.Person{Name: "Ann", Username: "ann", Email: "ann@berkeley.edu"},
			wantTo:   "ann@berkeley.edu",
			wantSubj: emailSubject,
		},
		{
			name: "sms gateway",
			person: person.Person{
				Name: "Bob", Username: "bob", Email: "bob@berkeley.edu",
				Phone: null.StringFrom("(510) 555-0100"), SMSGateway: null.StringFrom("txt.att.net"),
			},
			wantTo: "5105550100@txt.att.net",
		},
		{
			name:    "no address",
			person:  person.Person{Name: "Nobody", Username: "nobody"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emailsvc.ResetSentMessages()
			err := msgr.Send(context.Background(), tt.person, "Tutoring starts at 2p.")
			if tt.wantErr {
				assert.Error(t, err)
				assert.Empty(t, emailsvc.LastSentMessages())
				return
			}
			require.NoError(t, err)
			sent := emailsvc.LastSentMessages()
			require.Len(t, sent, 1)
			assert.Equal(t, tt.wantTo, sent[0].To[0].Address)
			assert.Equal(t, tt.wantSubj, sent[0].Subject)
			assert.Equal(t, "Tutoring starts at 2p.", sent[0].TextContent)
		})
	}
}

func TestMessenger_Disabled(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Notifications.Enabled = false
	msgr := New(emailsvc.NewConsoleServiceMock(conf), conf)

	emailsvc.ResetSentMessages()
	err := msgr.Send(context.Background(), person.Person{Email: "ann@berkeley.edu"}, "hi")
	assert.NoError(t, err)
	assert.Empty(t, emailsvc.LastSentMessages())
}
