package mispricerslack

import (
	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
)

type Handler struct {
	helpHandler       *HelpHandler
	mispricingHandler *MispricingHandler
}

func NewHandler(runner Runner, logger zerolog.Logger) *Handler {
	return &Handler{
		helpHandler:       NewHelpHandler(),
		mispricingHandler: NewMispricingHandler(runner, logger),
	}
}

// Handle acknowledges the request and dispatches it by command name.
func (h *Handler) Handle(evt *socketmode.Event, client *socketmode.Client) error {
	client.Ack(*evt.Request)

	data, ok := evt.Data.(slack.SlashCommand)
	if !ok {
		return nil
	}
	return h.Dispatch(data, client)
}

func (h *Handler) Dispatch(cmd slack.SlashCommand, client Poster) error {
	switch cmd.Command {
	case "/help":
		return h.helpHandler.HandleCommand(cmd, client)
	case "/mispricing", "/models":
		return h.mispricingHandler.HandleCommand(cmd, client)
	}
	return nil
}
