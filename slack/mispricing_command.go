package mispricerslack

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/bcdannyboy/mispricer/pipeline"
)

const (
	dateLayout = "2006-01-02"
	runTimeout = 2 * time.Minute
	maxListed  = 10
)

// Runner is the part of pipeline.Runner the bot drives.
type Runner interface {
	Backtest(ctx context.Context, req pipeline.Request) (*pipeline.BacktestResult, error)
	Compare(ctx context.Context, req pipeline.Request) (*pipeline.CompareResult, error)
}

// Poster posts chat messages. *socketmode.Client satisfies it.
type Poster interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
}

type MispricingHandler struct {
	runner Runner
	logger zerolog.Logger
}

func NewMispricingHandler(runner Runner, logger zerolog.Logger) *MispricingHandler {
	return &MispricingHandler{runner: runner, logger: logger}
}

// HandleCommand serves /mispricing <symbol> [YYYY-MM-DD] and
// /models <symbol> [YYYY-MM-DD]. The run happens in the background and its
// result is posted as a thread reply.
func (h *MispricingHandler) HandleCommand(cmd slack.SlashCommand, client Poster) error {
	req, err := parseArgs(cmd.Text)
	if err != nil {
		_, _, perr := client.PostMessage(cmd.ChannelID,
			slack.MsgOptionText(fmt.Sprintf("%s. Usage: %s <symbol> [YYYY-MM-DD]", err, cmd.Command), false))
		return perr
	}

	compare := cmd.Command == "/models"
	what := "mispricing scan"
	if compare {
		what = "model comparison"
	}
	_, ts, err := client.PostMessage(cmd.ChannelID,
		slack.MsgOptionText(fmt.Sprintf("Starting %s for %s...", what, req.Ticker), false))
	if err != nil {
		return err
	}

	go h.respond(client, cmd.ChannelID, ts, req, compare)
	return nil
}

func (h *MispricingHandler) respond(client Poster, channelID, ts string, req pipeline.Request, compare bool) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	var text string
	if compare {
		res, err := h.runner.Compare(ctx, req)
		if err != nil {
			text = fmt.Sprintf("Model comparison for %s failed: %s", req.Ticker, err)
		} else {
			text = FormatComparison(res)
		}
	} else {
		res, err := h.runner.Backtest(ctx, req)
		if err != nil {
			text = fmt.Sprintf("Mispricing scan for %s failed: %s", req.Ticker, err)
		} else {
			text = FormatBacktest(res)
		}
	}

	if _, _, err := client.PostMessage(channelID, slack.MsgOptionText(text, false), slack.MsgOptionTS(ts)); err != nil {
		h.logger.Error().Err(err).Str("channel", channelID).Msg("Failed to post result")
	}
}

func parseArgs(text string) (pipeline.Request, error) {
	args := strings.Fields(text)
	if len(args) < 1 || len(args) > 2 {
		return pipeline.Request{}, fmt.Errorf("invalid number of arguments")
	}
	req := pipeline.Request{Ticker: strings.ToUpper(args[0])}
	if len(args) == 2 {
		if _, err := time.Parse(dateLayout, args[1]); err != nil {
			return pipeline.Request{}, fmt.Errorf("invalid expiration %q", args[1])
		}
		req.Expiration = args[1]
	}
	return req, nil
}

// FormatBacktest renders a run as a short chat message: summary first, then
// up to maxListed signals.
func FormatBacktest(res *pipeline.BacktestResult) string {
	a := res.Artifact
	var b strings.Builder
	fmt.Fprintf(&b, "*%s %s* (%s, threshold %.0f%%)\n", a.Ticker, a.Expiration, a.Model, a.Threshold*100)
	fmt.Fprintf(&b, "Spot %.2f | %d signals | %d skipped | %d filtered out\n",
		a.Market.Spot, len(a.Signals), len(a.Diagnostics), res.Dropped)
	fmt.Fprintf(&b, "Trades %d | PnL %.2f | Final cash %.2f\n", a.Summary.NumTrades, a.Summary.TotalPnL, a.Summary.FinalCash)
	for i, s := range a.Signals {
		if i == maxListed {
			fmt.Fprintf(&b, "...and %d more\n", len(a.Signals)-maxListed)
			break
		}
		fmt.Fprintf(&b, "%s %.2f: market %.2f model %.2f (%.1f%%)\n",
			strings.ToUpper(string(s.Action)), s.Strike, s.MarketPrice, s.ModelPrice, s.RelativeError*100)
	}
	return strings.TrimRight(b.String(), "\n")
}

func FormatComparison(res *pipeline.CompareResult) string {
	a := res.Artifact
	var b strings.Builder
	fmt.Fprintf(&b, "*%s %s* model comparison, %d quotes\n", a.Ticker, a.Expiration, len(a.Comparison.Rows))
	for _, s := range a.Stats {
		fmt.Fprintf(&b, "%s: mean error %.2f%%, max %.2f%%, priced %d, failed %d\n",
			s.Model, s.MeanRelError*100, s.MaxRelError*100, s.Priced, s.Failed)
	}
	return strings.TrimRight(b.String(), "\n")
}
