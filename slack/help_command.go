package mispricerslack

import (
	"github.com/slack-go/slack"
)

type HelpHandler struct{}

func NewHelpHandler() *HelpHandler {
	return &HelpHandler{}
}

func (h *HelpHandler) HandleCommand(cmd slack.SlashCommand, client Poster) error {
	helpText := "Available commands:\n" +
		"/help - Show this help message\n" +
		"/mispricing <symbol> [YYYY-MM-DD] - Flag mispriced options and backtest the signals\n" +
		"/models <symbol> [YYYY-MM-DD] - Compare pricing model errors against the market"

	_, _, err := client.PostMessage(cmd.ChannelID,
		slack.MsgOptionText(helpText, false))
	return err
}
