// Package notify delivers "your scaffold is ready" notifications.
// Generation takes a minute or more, so classroom deployments post to a
// Slack channel instead of making students watch a spinner.
package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/slack-go/slack"

	"github.com/scaffy/scaffy/model"
)

// SlackNotifier posts session-completion messages to a Slack channel.
type SlackNotifier struct {
	api     *slack.Client
	channel string
}

// NewSlackNotifier creates a notifier posting to the given channel ID.
func NewSlackNotifier(botToken, channel string) *SlackNotifier {
	return &SlackNotifier{
		api:     slack.New(botToken),
		channel: channel,
	}
}

// ScaffoldReady posts a summary of the completed session. Failures are
// logged and swallowed: notifications never affect the submission outcome.
func (n *SlackNotifier) ScaffoldReady(ctx context.Context, state model.SessionState) {
	if state.Breakdown == nil {
		return
	}

	text := fmt.Sprintf("Scaffold ready: `%s` — %d tasks in %s (%s)\n> %s",
		state.ID,
		len(state.Breakdown.Tasks),
		state.Request.TargetLanguage,
		state.Breakdown.TotalEstimatedTime,
		model.Truncate(state.Breakdown.Overview, 200),
	)

	_, _, err := n.api.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(text, false),
	)
	if err != nil {
		log.Printf("slack notification failed: %v", err)
	}
}
