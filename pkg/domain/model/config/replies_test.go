package config_test

import (
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/seito-lab/taskfunnel/pkg/domain/model/config"
)

func TestFillDefaultsKeepsOverrides(t *testing.T) {
	r := config.Replies{
		TaskCreated: "✅ {title}",
	}
	r.FillDefaults()

	gt.Value(t, r.TaskCreated).Equal("✅ {title}")
	gt.Value(t, r.Failure).Equal(config.DefaultReplies().Failure)
	gt.NoError(t, r.Validate())
}

func TestValidateRejectsMissingTokens(t *testing.T) {
	r := config.DefaultReplies()
	r.DoneOK = "Done!"
	gt.Error(t, r.Validate())
}

func TestRendering(t *testing.T) {
	r := config.DefaultReplies()

	gt.Value(t, r.RenderTaskCreated("Buy coffee beans")).Equal("Added: Buy coffee beans")
	gt.Value(t, r.RenderDoneOK("Buy coffee beans")).Equal("Done: Buy coffee beans")
	gt.Value(t, r.RenderDoneNotFound("007")).Equal(`Could not find an open task matching "007".`)
	gt.Value(t, r.RenderOpenHeader(3)).Equal("Open tasks (3):")
}
