package escalation

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vodeneev/oddsmerge/internal/pkg/models"
	"github.com/Vodeneev/oddsmerge/internal/resolver"
)

var rows = []models.Comparison{
	{Source: "betfair", Home: "Arsenal", Away: "Chelsea", League: "English Premier League"},
	{Source: "the_odds_api", Home: "Arsenal FC", Away: "Chelsea FC", League: "EPL"},
}

func TestRenderTableListsEveryRow(t *testing.T) {
	out := RenderTable(rows)
	for _, want := range []string{"Source", "Home", "Away", "League", "the_odds_api", "Chelsea FC", "English Premier League"} {
		assert.Contains(t, out, want)
	}
}

func TestTerminalDecisions(t *testing.T) {
	tests := []struct {
		input string
		want  resolver.Decision
	}{
		{"y\n", resolver.Confirm},
		{"n\n", resolver.Reject},
		{"e\n", resolver.Abort},
		{"maybe\n\nY\n", resolver.Confirm},
		{"", resolver.Abort},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		term := NewTerminal(strings.NewReader(tt.input), &out)

		got, err := term.Escalate(context.Background(), rows)
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
		assert.Contains(t, out.String(), Prompt)
	}
}

func TestTerminalReportsInvalidInput(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(strings.NewReader("x\nn\n"), &out)

	got, err := term.Escalate(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, resolver.Reject, got)
	assert.Equal(t, 1, strings.Count(out.String(), "Invalid input"))
}

func TestTerminalGivesUpAfterMaxAttempts(t *testing.T) {
	term := NewTerminal(strings.NewReader(strings.Repeat("?\n", 5)+"y\n"), io.Discard)
	term.maxAttempts = 3

	got, err := term.Escalate(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, resolver.Abort, got)
}

func TestTerminalCancellation(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	term := NewTerminal(pr, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := term.Escalate(ctx, rows)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAutoEscalator(t *testing.T) {
	auto := Auto{Threshold: 0.75}

	d, err := auto.Escalate(context.Background(), []models.Comparison{
		{Source: "a", Home: "FC Porto", Away: "Benfica", League: "Primeira Liga"},
		{Source: "b", Home: "Porto", Away: "SL Benfica", League: "Primeira  Liga"},
	})
	require.NoError(t, err)
	assert.Equal(t, resolver.Confirm, d)

	d, err = auto.Escalate(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, resolver.Reject, d, "league abbreviation is not similar enough")

	d, err = auto.Escalate(context.Background(), []models.Comparison{
		{Source: "a", Home: "Arsenal", Away: "Chelsea", League: "EPL"},
		{Source: "b", Home: "Everton", Away: "Chelsea", League: "EPL"},
	})
	require.NoError(t, err)
	assert.Equal(t, resolver.Reject, d)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.Equal(t, 1.0, Similarity("porto", "porto"))
	assert.InDelta(t, 0.8, Similarity("porto", "porta"), 1e-9)
	assert.Equal(t, "porto", normalizeTeam("F.C. Porto"))
	assert.Equal(t, "manchester united", normalizeTeam("  Manchester   United FC "))
}

func TestStatic(t *testing.T) {
	d, err := Static(resolver.Confirm).Escalate(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, resolver.Confirm, d)
}

type fakeBot struct {
	sent      []tgbotapi.Chattable
	requested []tgbotapi.Chattable
	stopped   bool
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.sent = append(b.sent, c)
	return tgbotapi.Message{MessageID: 42, Chat: &tgbotapi.Chat{ID: 7}}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.requested = append(b.requested, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) StopReceivingUpdates() { b.stopped = true }

func callback(messageID int, chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    data,
		Message: &tgbotapi.Message{MessageID: messageID, Chat: &tgbotapi.Chat{ID: chatID}},
	}}
}

func TestTelegramWaitsForItsOwnMessage(t *testing.T) {
	bot := &fakeBot{}
	updates := make(chan tgbotapi.Update, 4)
	updates <- tgbotapi.Update{}
	updates <- callback(41, 7, "y")
	updates <- callback(42, 7, "x")
	updates <- callback(42, 7, "n")

	tg := newTelegram(bot, 7, updates)
	d, err := tg.Escalate(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, resolver.Reject, d)

	require.Len(t, bot.sent, 2, "prompt and final edit")
	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	assert.Contains(t, msg.Text, "Arsenal FC")
	assert.Len(t, bot.requested, 2, "invalid and valid presses are both answered")

	require.NoError(t, tg.Close())
	assert.True(t, bot.stopped)
}

func TestTelegramCancellation(t *testing.T) {
	tg := newTelegram(&fakeBot{}, 7, make(chan tgbotapi.Update))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tg.Escalate(ctx, rows)
	assert.ErrorIs(t, err, context.Canceled)
}
