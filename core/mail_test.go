package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lo-maxwell/hkn-rails/core"
	appfs "github.com/lo-maxwell/hkn-rails/fs"
)

func TestEmailMessage_Render(t *testing.T) {
	require.NoError(t, core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, true))

	msg := &core.EmailMessage{
		TemplateName: "dept_tour_request",
		TemplateData: map[string]string{
			"Name": "Ada", "Date": "March 3", "Email": "ada@example.com", "Phone": "", "Comments": "Bringing 3 kids",
		},
	}
	require.NoError(t, msg.Render("https://hkn.test"))
	assert.Contains(t, msg.TextContent, "Ada")
	assert.Contains(t, msg.TextContent, "March 3")
	assert.Contains(t, msg.HTMLContent, "Bringing 3 kids")
	assert.True(t, msg.HasContent())

	plain := &core.EmailMessage{BodyStr: "hi", TemplateName: "dept_tour_request"}
	require.NoError(t, plain.Render(""))
	assert.Equal(t, "hi", plain.TextContent, "BodyStr wins over the text template")

	missing := &core.EmailMessage{TemplateName: "dept_tour_request", TemplateData: map[string]string{}}
	assert.Error(t, missing.Render(""), "strict templates reject missing keys")

	assert.Error(t, core.ParseEmailTemplates(appfs.FS, "templates/nope", false))
}
