package slackbot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/slack-go/slack"

	"github.com/brewcrew/barista/internal/store"
)

const voteActionPrefix = "vote_"

// pollBlocks renders a poll as a section plus one button per option.
// Buttons are grouped in action blocks of five, the Slack layout limit.
func pollBlocks(poll *store.Poll) []slack.Block {
	header := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("📊 *%s*\nVote by clicking a button. You can change your vote until the poll closes.", poll.Topic),
			false, false),
		nil, nil)

	blocks := []slack.Block{header}

	var buttons []slack.BlockElement
	for i, option := range poll.Options {
		button := slack.NewButtonBlockElement(
			voteActionPrefix+strconv.Itoa(i),
			strconv.Itoa(i),
			slack.NewTextBlockObject(slack.PlainTextType, option, true, false),
		)
		buttons = append(buttons, button)
		if len(buttons) == 5 {
			blocks = append(blocks, slack.NewActionBlock(fmt.Sprintf("poll_%s_%d", poll.ID, len(blocks)), buttons...))
			buttons = nil
		}
	}
	if len(buttons) > 0 {
		blocks = append(blocks, slack.NewActionBlock(fmt.Sprintf("poll_%s_%d", poll.ID, len(blocks)), buttons...))
	}
	return blocks
}

// pollFallbackText is the notification text for clients that don't render
// blocks.
func pollFallbackText(poll *store.Poll) string {
	return fmt.Sprintf("Poll: %s (%s)", poll.Topic, strings.Join(poll.Options, " / "))
}

// voteIndex extracts the option index from a vote button action ID.
func voteIndex(actionID string) (int, bool) {
	if !strings.HasPrefix(actionID, voteActionPrefix) {
		return 0, false
	}
	index, err := strconv.Atoi(strings.TrimPrefix(actionID, voteActionPrefix))
	if err != nil {
		return 0, false
	}
	return index, true
}
