package mispricerslack

import (
	"context"
	"log"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
)

type SlackBot struct {
	client       *slack.Client
	socketClient *socketmode.Client
	eventHandler *Handler
	logger       zerolog.Logger
}

func NewSlackBot(appToken, botToken string, debug bool, runner Runner, logger zerolog.Logger) *SlackBot {
	client := slack.New(
		botToken,
		slack.OptionAppLevelToken(appToken),
	)

	socketClient := socketmode.New(
		client,
		socketmode.OptionDebug(debug),
		socketmode.OptionLog(log.New(logger.With().Str("component", "socketmode").Logger(), "", 0)),
	)

	return &SlackBot{
		client:       client,
		socketClient: socketClient,
		eventHandler: NewHandler(runner, logger),
		logger:       logger,
	}
}

// Start serves slash commands until ctx is cancelled or the connection fails.
func (sb *SlackBot) Start(ctx context.Context) error {
	go func() {
		for evt := range sb.socketClient.Events {
			switch evt.Type {
			case socketmode.EventTypeConnected:
				sb.logger.Info().Msg("Connected to Slack")
			case socketmode.EventTypeSlashCommand:
				if err := sb.eventHandler.Handle(&evt, sb.socketClient); err != nil {
					sb.logger.Error().Err(err).Msg("Slash command failed")
				}
			}
		}
	}()

	return sb.socketClient.RunContext(ctx)
}
