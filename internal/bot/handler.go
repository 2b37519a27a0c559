package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"sync"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"staybook/internal/app"
	"staybook/internal/booking"
	"staybook/internal/catalog"
	"staybook/internal/config"
	"staybook/internal/media"
	"staybook/internal/session"
)

// maxPhotoSize bounds downloaded photos.
const maxPhotoSize = 10 << 20

// Sender delivers a text message to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

type telegramSender struct {
	bot *tgbot.Bot
}

func (s telegramSender) Send(ctx context.Context, chatID int64, text string) error {
	_, err := s.bot.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	return err
}

// Handler is the chat front-end of the app. It answers a single owner and is
// the navigator behind the session gate.
type Handler struct {
	bot    *tgbot.Bot
	app    *app.App
	owner  int64
	sender Sender
	http   *http.Client
	log    logrus.FieldLogger
	now    func() time.Time

	// dmu serializes commands; the fields below it belong to the running command.
	dmu          sync.Mutex
	pendingEmail string
	photos       []media.Photo
	category     string
	query        string
	listingID    string
	picker       *booking.RangePicker
	adPhotos     []media.Photo

	mu         sync.Mutex
	current    session.Route
	inDispatch bool
	redirected bool
}

func newHandler(a *app.App, owner int64, sender Sender, logger logrus.FieldLogger) *Handler {
	return &Handler{
		app:      a,
		owner:    owner,
		sender:   sender,
		http:     &http.Client{Timeout: 30 * time.Second},
		log:      logger.WithField("component", "bot_handler"),
		now:      time.Now,
		category: catalog.CategoryAll,
	}
}

// NewHandler creates the Telegram bot for the owner configured in cfg.
func NewHandler(cfg config.Config, a *app.App, logger logrus.FieldLogger) (*Handler, error) {
	h := newHandler(a, cfg.TelegramOwnerID, nil, logger)

	b, err := tgbot.New(cfg.TelegramBotToken, tgbot.WithDefaultHandler(h.defaultHandler))
	if err != nil {
		h.log.WithError(err).Error("Failed to create Telegram bot instance")
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	h.bot = b
	h.sender = telegramSender{bot: b}

	h.registerHandlers()

	h.log.WithField("owner_id", h.owner).Info("Telegram bot handler initialized")
	return h, nil
}

// registerHandlers sets up the command handlers. Everything else reaches defaultHandler.
func (h *Handler) registerHandlers() {
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/start", tgbot.MatchTypeExact, h.startHandler)
	h.log.Info("Registered /start command handler")
}

// Start begins polling for updates from Telegram.
// This function blocks until the context is cancelled.
func (h *Handler) Start(ctx context.Context) {
	h.log.Info("Starting Telegram bot polling...")
	h.bot.Start(ctx)
	h.log.Info("Telegram bot polling stopped.")
}

// authorized drops updates that are not messages from the owner.
func (h *Handler) authorized(update *models.Update) bool {
	if update.Message == nil || update.Message.From == nil {
		return false
	}
	if update.Message.From.ID != h.owner {
		h.log.WithField("user_id", update.Message.From.ID).Warn("Ignoring message from unknown user")
		return false
	}
	return true
}

// startHandler handles the /start command.
func (h *Handler) startHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if !h.authorized(update) {
		return
	}
	h.log.WithField("command", "/start").Info("Received /start command")
	h.reply(ctx, update, h.dispatch(ctx, "/start"))
}

func (h *Handler) defaultHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if !h.authorized(update) {
		return
	}
	msg := update.Message

	if len(msg.Photo) > 0 {
		photo, err := h.downloadPhoto(ctx, msg.Photo[len(msg.Photo)-1].FileID)
		if err != nil {
			h.log.WithError(err).Error("Failed to download photo")
			h.reply(ctx, update, "Erreur: impossible de récupérer la photo.")
			return
		}
		h.reply(ctx, update, h.addPhoto(photo))
		return
	}

	h.reply(ctx, update, h.dispatch(ctx, msg.Text))
}

func (h *Handler) reply(ctx context.Context, update *models.Update, text string) {
	if err := h.sender.Send(ctx, update.Message.Chat.ID, text); err != nil {
		h.log.WithError(err).WithField("chat_id", update.Message.Chat.ID).Error("Failed to send reply")
	}
}

// downloadPhoto fetches the largest size of a photo sent to the bot.
func (h *Handler) downloadPhoto(ctx context.Context, fileID string) (media.Photo, error) {
	file, err := h.bot.GetFile(ctx, &tgbot.GetFileParams{FileID: fileID})
	if err != nil {
		return media.Photo{}, fmt.Errorf("failed to resolve file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.bot.FileDownloadLink(file), nil)
	if err != nil {
		return media.Photo{}, fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := h.http.Do(req)
	if err != nil {
		return media.Photo{}, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return media.Photo{}, fmt.Errorf("file download answered %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoSize))
	if err != nil {
		return media.Photo{}, fmt.Errorf("failed to read file: %w", err)
	}
	return media.Photo{Ext: path.Ext(file.FilePath), Data: data}, nil
}
