package services

import (
	"context"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"github.com/icodeDev93/telegram-challenge-bot/internal/session"
	"github.com/icodeDev93/telegram-challenge-bot/internal/sheets"
	"github.com/icodeDev93/telegram-challenge-bot/internal/telegram"
)

// Messenger is the slice of the Telegram client the dispatcher needs.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, replyMarkup interface{}) error
	GetFile(ctx context.Context, fileID string) (*telegram.File, error)
	DownloadFile(ctx context.Context, filePath string) ([]byte, error)
}

// Gateway is the spreadsheet/file-storage surface the dispatcher needs.
type Gateway interface {
	GetCurrentWeek(ctx context.Context) (int, bool, error)
	UploadPhoto(ctx context.Context, data []byte, filename string) (string, error)
	AppendSubmission(ctx context.Context, userID int64, username string, week int, timestamp, answer, score string) error
	LeaderboardTop(ctx context.Context, n int) ([]sheets.Record, error)
	UserPointsAndRank(ctx context.Context, userID int64) (float64, string, error)
}

const leaderboardSize = 10

// BotService routes inbound Telegram updates to handlers, consulting
// and mutating the session store and calling out to the gateway.
type BotService struct {
	tg         Messenger
	gateway    Gateway
	sessions   session.Store
	channelURL string
	now        func() time.Time
}

func NewBotService(tg Messenger, gateway Gateway, sessions session.Store, channelURL string) *BotService {
	return &BotService{
		tg:         tg,
		gateway:    gateway,
		sessions:   sessions,
		channelURL: channelURL,
		now:        time.Now,
	}
}

// HandleUpdate dispatches one update. User-facing failure messages are
// sent from inside the handlers; the returned error carries the detail
// for logging only.
func (b *BotService) HandleUpdate(ctx context.Context, upd *telegram.Update) error {
	msg := upd.Message
	if msg == nil || msg.From == nil {
		return nil
	}

	var err error
	handler := "unknown"

	switch {
	case isCommand(msg.Text, "start"):
		handler = "start"
		err = b.handleStart(ctx, msg)
	case len(msg.Photo) > 0:
		handler = "photo"
		err = b.handlePhoto(ctx, msg)
	case msg.Text == telegram.ButtonPartake:
		handler = "partake"
		err = b.handlePartake(ctx, msg)
	case msg.Text == telegram.ButtonCheckPoints:
		handler = "check_points"
		err = b.handleCheckPoints(ctx, msg)
	case msg.Text == telegram.ButtonLeaderboard:
		handler = "leaderboard"
		err = b.handleLeaderboard(ctx, msg)
	case msg.Text == telegram.ButtonMainChannel:
		handler = "main_channel"
		err = b.handleMainChannel(ctx, msg)
	default:
		err = b.tg.SendMessage(ctx, msg.Chat.ID, "Use /start or the menu buttons.", telegram.MainMenuKeyboard())
	}

	if err != nil {
		botUpdatesTotal.WithLabelValues(handler, "error").Inc()
	} else {
		botUpdatesTotal.WithLabelValues(handler, "ok").Inc()
	}
	return err
}

func (b *BotService) handleStart(ctx context.Context, msg *telegram.Message) error {
	week, ok, err := b.gateway.GetCurrentWeek(ctx)
	if err != nil {
		b.sendOrLog(ctx, msg.Chat.ID, "Something went wrong. Try again or contact admin.", nil)
		return fmt.Errorf("fetch current week: %w", err)
	}
	if !ok {
		return b.tg.SendMessage(ctx, msg.Chat.ID, "Current week is not set. Contact admin.", nil)
	}

	if err := b.sessions.Set(ctx, msg.From.ID, session.Session{WeekNumber: week}); err != nil {
		b.sendOrLog(ctx, msg.Chat.ID, "Something went wrong. Try again or contact admin.", nil)
		return fmt.Errorf("create session: %w", err)
	}

	name := msg.From.FirstName
	if name == "" {
		name = msg.From.Username
	}
	text := fmt.Sprintf("Hi %s! How may I assist you?", name)
	return b.tg.SendMessage(ctx, msg.Chat.ID, text, telegram.MainMenuKeyboard())
}

func (b *BotService) handlePartake(ctx context.Context, msg *telegram.Message) error {
	_, ok, err := b.sessions.Get(ctx, msg.From.ID)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	if !ok {
		return b.tg.SendMessage(ctx, msg.Chat.ID, "Please /start first.", nil)
	}

	if err := b.sessions.Update(ctx, msg.From.ID, func(s *session.Session) {
		s.AwaitingPhoto = true
	}); err != nil {
		return fmt.Errorf("mark awaiting photo: %w", err)
	}

	return b.tg.SendMessage(ctx, msg.Chat.ID, "Upload a screenshot of your answer", nil)
}

func (b *BotService) handlePhoto(ctx context.Context, msg *telegram.Message) error {
	state, ok, err := b.sessions.Get(ctx, msg.From.ID)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	if !ok || !state.AwaitingPhoto {
		return b.tg.SendMessage(ctx, msg.Chat.ID,
			"If you want to submit, press 'Partake in the challenge' first.", nil)
	}

	if err := b.submitPhoto(ctx, msg, state); err != nil {
		// Session stays in awaiting so the user can retry.
		submissionFailures.Inc()
		b.sendOrLog(ctx, msg.Chat.ID, "Failed to process submission. Try again or contact admin.", nil)
		return fmt.Errorf("submit photo: %w", err)
	}

	if err := b.sessions.Update(ctx, msg.From.ID, func(s *session.Session) {
		s.AwaitingPhoto = false
	}); err != nil {
		return fmt.Errorf("clear awaiting photo: %w", err)
	}

	return b.tg.SendMessage(ctx, msg.Chat.ID, "Submission received. Thanks and good luck!", nil)
}

func (b *BotService) submitPhoto(ctx context.Context, msg *telegram.Message, state session.Session) error {
	// Telegram lists photo sizes smallest first.
	fileID := msg.Photo[len(msg.Photo)-1].FileID

	file, err := b.tg.GetFile(ctx, fileID)
	if err != nil {
		return fmt.Errorf("get file info: %w", err)
	}

	data, err := b.tg.DownloadFile(ctx, file.FilePath)
	if err != nil {
		return fmt.Errorf("download photo: %w", err)
	}

	now := b.now().UTC()
	url, err := b.gateway.UploadPhoto(ctx, data, submissionFilename(msg.From.ID, file.FilePath, now))
	if err != nil {
		return fmt.Errorf("upload photo: %w", err)
	}

	err = b.gateway.AppendSubmission(ctx, msg.From.ID, displayName(msg.From),
		state.WeekNumber, now.Format(time.RFC3339), url, "")
	if err != nil {
		return fmt.Errorf("append submission: %w", err)
	}
	return nil
}

func (b *BotService) handleCheckPoints(ctx context.Context, msg *telegram.Message) error {
	points, rank, err := b.gateway.UserPointsAndRank(ctx, msg.From.ID)
	if err != nil {
		b.sendOrLog(ctx, msg.Chat.ID, "Something went wrong. Try again or contact admin.", nil)
		return fmt.Errorf("fetch points: %w", err)
	}

	if rank == "" {
		rank = "unranked"
	}
	text := fmt.Sprintf("You have %s points and you rank number %s on the leaderboard!",
		formatPoints(points), rank)
	return b.tg.SendMessage(ctx, msg.Chat.ID, text, nil)
}

func (b *BotService) handleLeaderboard(ctx context.Context, msg *telegram.Message) error {
	top, err := b.gateway.LeaderboardTop(ctx, leaderboardSize)
	if err != nil {
		b.sendOrLog(ctx, msg.Chat.ID, "Something went wrong. Try again or contact admin.", nil)
		return fmt.Errorf("fetch leaderboard: %w", err)
	}

	if len(top) == 0 {
		return b.tg.SendMessage(ctx, msg.Chat.ID, "Leaderboard is empty.", nil)
	}

	lines := make([]string, 0, len(top)+1)
	lines = append(lines, "Top 10:")
	for i, rec := range top {
		username := rec.Get("username")
		if username == "" {
			username = "N/A"
		}
		lines = append(lines, fmt.Sprintf("%d. %s — %s", i+1, username, formatPoints(rec.Float("total_points"))))
	}
	return b.tg.SendMessage(ctx, msg.Chat.ID, strings.Join(lines, "\n"), nil)
}

func (b *BotService) handleMainChannel(ctx context.Context, msg *telegram.Message) error {
	if err := b.tg.SendMessage(ctx, msg.Chat.ID,
		"Click on the link below to return to the main channel.", nil); err != nil {
		return err
	}
	return b.tg.SendMessage(ctx, msg.Chat.ID, b.channelURL, nil)
}

// sendOrLog delivers a user-facing failure message; the original error
// is what gets reported, so a failed send is only logged.
func (b *BotService) sendOrLog(ctx context.Context, chatID int64, text string, replyMarkup interface{}) {
	if err := b.tg.SendMessage(ctx, chatID, text, replyMarkup); err != nil {
		log.Printf("bot: failed to send %q to chat %d: %v", text, chatID, err)
	}
}

// isCommand matches the first token of a message against /cmd,
// tolerating the /cmd@botname form used in group chats.
func isCommand(text, cmd string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	name := strings.SplitN(fields[0], "@", 2)[0]
	return name == "/"+cmd
}

func displayName(u *telegram.User) string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}

// submissionFilename is {userID}_{UTC timestamp}{ext}, with the
// extension taken from the Telegram file path.
func submissionFilename(userID int64, filePath string, now time.Time) string {
	ext := path.Ext(filePath)
	if ext == "" {
		ext = ".jpg"
	}
	return fmt.Sprintf("%d_%s%s", userID, now.Format("20060102T150405"), ext)
}

// formatPoints prints whole numbers without a decimal part, matching
// how the sheet shows them.
func formatPoints(p float64) string {
	if p == float64(int64(p)) {
		return fmt.Sprintf("%d", int64(p))
	}
	return fmt.Sprintf("%g", p)
}
