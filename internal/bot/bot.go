package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"character_catcher/internal/config"
	"character_catcher/internal/domain"
	"character_catcher/internal/engine"
	"character_catcher/internal/logger"
	"character_catcher/internal/repository"
	"character_catcher/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot runs the Telegram side: every group message feeds the spawn engine,
// commands drive the economy, and admins manage the catalog and cadence.
type Bot struct {
	api       *tgbotapi.BotAPI
	cfg       *config.Config
	engine    *engine.Engine
	ledger    *service.LedgerService
	economy   *service.EconomyService
	shop      *service.ShopService
	admin     *service.AdminService
	userRepo  *repository.UserRepository
	statsRepo *repository.StatsRepository
	chatRepo  *repository.ChatRepository

	stopCh chan struct{}
	wg     sync.WaitGroup
	log    *slog.Logger
}

type Deps struct {
	Engine    *engine.Engine
	Ledger    *service.LedgerService
	Economy   *service.EconomyService
	Shop      *service.ShopService
	Admin     *service.AdminService
	UserRepo  *repository.UserRepository
	StatsRepo *repository.StatsRepository
	ChatRepo  *repository.ChatRepository
}

func New(cfg *config.Config, deps Deps) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}

	log := logger.With("component", "bot")
	log.Info("bot authorized", "username", api.Self.UserName)

	return &Bot{
		api:       api,
		cfg:       cfg,
		engine:    deps.Engine,
		ledger:    deps.Ledger,
		economy:   deps.Economy,
		shop:      deps.Shop,
		admin:     deps.Admin,
		userRepo:  deps.UserRepo,
		statsRepo: deps.StatsRepo,
		chatRepo:  deps.ChatRepo,
		stopCh:    make(chan struct{}),
		log:       log,
	}, nil
}

// Start runs the update loop and the interval-spawn ticker. Blocks until Stop.
func (b *Bot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("starting bot update loop")

	b.wg.Add(1)
	go b.runTicker()

	for {
		select {
		case <-b.stopCh:
			b.log.Info("stopping bot update loop")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}

			if update.Message == nil || update.Message.From == nil || update.Message.From.IsBot {
				continue
			}

			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				b.handleMessage(msg)
			}(update.Message)
		}
	}
}

// Stop gracefully stops the bot
func (b *Bot) Stop() {
	b.log.Info("stopping bot...")
	close(b.stopCh)
	b.api.StopReceivingUpdates()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("bot stopped gracefully")
	case <-time.After(10 * time.Second):
		b.log.Warn("bot shutdown timeout, some handlers may not have completed")
	}
}

// runTicker drives timer spawns for chats that configured an interval.
func (b *Bot) runTicker() {
	defer b.wg.Done()

	ticker := time.NewTicker(time.Duration(b.cfg.TickSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			chats, err := b.chatRepo.ListWithInterval(ctx)
			if err != nil {
				b.log.Error("list interval chats", "error", err)
				cancel()
				continue
			}
			for _, settings := range chats {
				if _, err := b.engine.OnTick(ctx, settings.ChatID); err != nil {
					b.log.Error("tick spawn", "chat_id", settings.ChatID, "error", err)
				}
			}
			cancel()
		}
	}
}

// handleMessage routes one update: commands to their handlers, everything
// else through the spawn engine as a guess.
func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Keep the user row fresh so settlement and transfers have a target.
	user := &domain.User{
		ID:        msg.From.ID,
		Username:  msg.From.UserName,
		FirstName: msg.From.FirstName,
	}
	if err := b.userRepo.Upsert(ctx, user); err != nil {
		b.log.Error("upsert user", "user_id", msg.From.ID, "error", err)
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	if msg.Text == "" {
		return
	}

	claim, _, err := b.engine.OnMessage(ctx, msg.Chat.ID, msg.From.ID, msg.Text)
	if err != nil {
		b.log.Error("handle message", "chat_id", msg.Chat.ID, "error", err)
		return
	}

	switch claim.Status {
	case engine.ClaimSuccess:
		b.reply(msg, fmt.Sprintf(
			"🎉 <b>%s</b> caught <b>%s</b>! (%s, %s)\n💰 +%d coins, balance: %d",
			displayName(msg.From), claim.Character.Name, claim.Character.Anime,
			claim.Character.Rarity.String(), claim.Reward, claim.NewBalance))
	case engine.ClaimAlreadyClaimed:
		b.reply(msg, fmt.Sprintf("⏱ Too slow, <b>%s</b> was already caught!", claim.Character.Name))
	}
	// Spawn delivery happens through SpawnPublished.
}

// SpawnPublished announces a fresh spawn to the chat. Implements the engine's
// publisher hook.
func (b *Bot) SpawnPublished(ctx context.Context, chatID int64, c domain.Character) {
	caption := fmt.Sprintf("✨ A wild character appeared!\nRarity: <b>%s</b>\nType their name to catch them!", c.Rarity.String())

	if c.ImageURL != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(c.ImageURL))
		photo.Caption = caption
		photo.ParseMode = "HTML"
		if _, err := b.api.Send(photo); err == nil {
			return
		}
		// Fall through to plain text when the image cannot be delivered.
	}

	text := tgbotapi.NewMessage(chatID, caption)
	text.ParseMode = "HTML"
	if _, err := b.api.Send(text); err != nil {
		b.log.Error("announce spawn", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(msg *tgbotapi.Message, text string) {
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ParseMode = "HTML"
	reply.ReplyToMessageID = msg.MessageID

	if _, err := b.api.Send(reply); err != nil {
		b.log.Error("error sending message", "error", err)
	}
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return "@" + u.UserName
	}
	return u.FirstName
}
