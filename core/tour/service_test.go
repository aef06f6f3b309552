package tour_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lo-maxwell/hkn-rails/core"
	"github.com/lo-maxwell/hkn-rails/core/tour"
	emailsvc "github.com/lo-maxwell/hkn-rails/services/email"
	testutil "github.com/lo-maxwell/hkn-rails/tests"
)

func TestService_Request(t *testing.T) {
	s := testutil.NewServices(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		req       tour.Request
		wantField string
	}{
		{
			name: "valid",
			req: tour.Request{Name: " Ada Lovelace ", Date: "March 3, 2pm", Email: "ADA@example.com",
				Phone: "510-555-0100", Comments: "A group of 5"},
		},
		{name: "missing date", req: tour.Request{Name: "Ada", Email: "ada@example.com"}, wantField: "date"},
		{name: "bad email", req: tour.Request{Name: "Ada", Date: "soon", Email: "ada"}, wantField: "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emailsvc.ResetSentMessages()
			err := s.Tours.Request(ctx, tt.req)
			if tt.wantField != "" {
				flds, ok := core.FieldErrors(err, s.Translator)
				require.True(t, ok, "got %v", err)
				assert.Equal(t, tt.wantField, flds[0].Field)
				assert.Empty(t, emailsvc.LastSentMessages())
				return
			}
			require.NoError(t, err)
			sent := emailsvc.LastSentMessages()
			require.Len(t, sent, 1)
			msg := sent[0]
			assert.Equal(t, "Department Tour Request", msg.Subject)
			assert.Equal(t, s.Conf.Tours.Recipient, msg.To[0].Address)
			assert.Equal(t, "ada@example.com", msg.ReplyTo.Address)
			assert.Contains(t, msg.TextContent, "Ada Lovelace")
			assert.Contains(t, msg.TextContent, "March 3, 2pm")
			assert.Contains(t, msg.HTMLContent, "A group of 5")
		})
	}
}
