package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"character_catcher/internal/domain"
	"character_catcher/internal/repository"
	"character_catcher/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	var response string

	switch msg.Command() {
	case "start", "help":
		response = b.helpMessage(msg.From.ID)

	case "balance":
		response = b.handleBalance(ctx, msg.From.ID)

	case "pay":
		response = b.handlePay(ctx, msg)

	case "gift":
		response = b.handleGift(ctx, msg)

	case "shop":
		response = b.handleShop(ctx, msg.Chat.ID)

	case "buy":
		response = b.handleBuy(ctx, msg)

	case "redeem":
		response = b.handleRedeem(ctx, msg)

	case "collection", "harem":
		response = b.handleCollection(ctx, msg)

	case "top":
		response = b.handleTopChat(ctx, msg.Chat.ID)

	case "gtop":
		response = b.handleTopGlobal(ctx)

	case "rich":
		response = b.handleTopBalances(ctx)

	case "history":
		response = b.handleHistory(ctx, msg.From.ID)

	default:
		if b.cfg.IsAdmin(msg.From.ID) {
			handled, adminResponse := b.handleAdminCommand(ctx, msg)
			if handled {
				if adminResponse != "" {
					b.reply(msg, adminResponse)
				}
				return
			}
		}
		response = "❌ Unknown command. Use /help for the list."
	}

	b.reply(msg, response)
}

func (b *Bot) helpMessage(userID int64) string {
	help := `<b>🎴 Character Catcher</b>

Characters appear in the chat as people talk. Type the character's name to catch them and earn coins.

<b>💰 Economy:</b>
/balance - Your coin balance
/history - Recent balance changes
/pay &lt;amount&gt; - Send coins (reply to the recipient)
/gift &lt;character_id&gt; - Gift a character (reply to the recipient)
/redeem &lt;code&gt; - Redeem a code

<b>🛒 Shop:</b>
/shop - This chat's rotation
/buy &lt;number&gt; - Buy an item from the rotation

<b>📚 Collection:</b>
/collection [rarity] - Your characters

<b>🏆 Leaderboards:</b>
/top - Best catchers in this chat
/gtop - Best catchers globally
/rich - Richest users`

	if b.cfg.IsAdmin(userID) {
		help += "\n\n" + adminHelp
	}
	return help
}

func (b *Bot) handleBalance(ctx context.Context, userID int64) string {
	balance, err := b.userRepo.GetBalance(ctx, userID)
	if err != nil {
		return fmt.Sprintf("❌ Error: %v", err)
	}
	return fmt.Sprintf("💰 Your balance: <b>%d</b> coins", balance)
}

func (b *Bot) handlePay(ctx context.Context, msg *tgbotapi.Message) string {
	recipient := replyTarget(msg)
	if recipient == nil {
		return "❌ Reply to the recipient's message: /pay <amount>"
	}

	amount, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
	if err != nil || amount <= 0 {
		return "❌ Usage: /pay <amount> (reply to the recipient)"
	}

	err = b.ledger.Transfer(ctx, msg.From.ID, recipient.ID, amount, map[string]interface{}{
		"chat_id": msg.Chat.ID,
	})
	switch {
	case errors.Is(err, service.ErrInsufficientFunds):
		return "❌ Not enough coins."
	case errors.Is(err, repository.ErrUserNotFound):
		return "❌ The recipient has not talked to the bot yet."
	case err != nil:
		return fmt.Sprintf("❌ Transfer failed: %v", err)
	}
	return fmt.Sprintf("✅ Sent <b>%d</b> coins to %s", amount, displayName(recipient))
}

func (b *Bot) handleGift(ctx context.Context, msg *tgbotapi.Message) string {
	recipient := replyTarget(msg)
	if recipient == nil {
		return "❌ Reply to the recipient's message: /gift <character_id>"
	}

	characterID, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
	if err != nil {
		return "❌ Usage: /gift <character_id> (reply to the recipient)"
	}

	_, err = b.economy.GiftByCharacter(ctx, msg.From.ID, recipient.ID, characterID)
	switch {
	case errors.Is(err, service.ErrSelfGift):
		return "❌ You cannot gift to yourself."
	case errors.Is(err, repository.ErrEntryNotFound):
		return "❌ You do not own that character."
	case err != nil:
		return fmt.Sprintf("❌ Gift failed: %v", err)
	}
	return fmt.Sprintf("🎁 Character gifted to %s!", displayName(recipient))
}

func (b *Bot) handleShop(ctx context.Context, chatID int64) string {
	items, err := b.shop.Items(ctx, chatID)
	if err != nil {
		if errors.Is(err, service.ErrShopEmpty) {
			return "🛒 The shop is empty right now."
		}
		return fmt.Sprintf("❌ Error: %v", err)
	}

	var sb strings.Builder
	sb.WriteString("<b>🛒 Shop rotation</b>\n\n")
	for i, item := range items {
		fmt.Fprintf(&sb, "%d. <b>%s</b> (%s, %s) - %d coins\n",
			i+1, item.Character.Name, item.Character.Anime,
			item.Character.Rarity.String(), item.Price)
	}
	sb.WriteString("\nBuy with /buy <number>. Rotation refreshes hourly.")
	return sb.String()
}

func (b *Bot) handleBuy(ctx context.Context, msg *tgbotapi.Message) string {
	n, err := strconv.Atoi(strings.TrimSpace(msg.CommandArguments()))
	if err != nil || n < 1 {
		return "❌ Usage: /buy <number> (see /shop)"
	}

	item, err := b.shop.Buy(ctx, msg.Chat.ID, msg.From.ID, n)
	switch {
	case errors.Is(err, service.ErrShopItemNotFound):
		return "❌ No such item in the current rotation."
	case errors.Is(err, service.ErrInsufficientFunds):
		return "❌ Not enough coins."
	case err != nil:
		return fmt.Sprintf("❌ Purchase failed: %v", err)
	}
	return fmt.Sprintf("✅ You bought <b>%s</b> (%s) for %d coins!",
		item.Character.Name, item.Character.Rarity.String(), item.Price)
}

func (b *Bot) handleRedeem(ctx context.Context, msg *tgbotapi.Message) string {
	code := strings.ToUpper(strings.TrimSpace(msg.CommandArguments()))
	if code == "" {
		return "❌ Usage: /redeem <code>"
	}

	reward, err := b.economy.Redeem(ctx, msg.From.ID, code)
	switch {
	case errors.Is(err, repository.ErrCodeNotFound):
		return "❌ Invalid code."
	case errors.Is(err, repository.ErrAlreadyRedeemed):
		return "❌ You already redeemed this code."
	case errors.Is(err, service.ErrCodeExhausted):
		return "❌ This code has no uses left."
	case errors.Is(err, service.ErrCodeExpired):
		return "❌ This code has expired."
	case err != nil:
		return fmt.Sprintf("❌ Redeem failed: %v", err)
	}

	parts := []string{}
	if reward.CoinAmount > 0 {
		parts = append(parts, fmt.Sprintf("%d coins", reward.CoinAmount))
	}
	if reward.CharacterID != nil {
		parts = append(parts, "a character")
	}
	return fmt.Sprintf("🎉 Code redeemed! You received %s.", strings.Join(parts, " and "))
}

func (b *Bot) handleCollection(ctx context.Context, msg *tgbotapi.Message) string {
	var rarity domain.Rarity // zero means all tiers
	if args := strings.TrimSpace(msg.CommandArguments()); args != "" {
		rarity = domain.ParseRarity(args)
	}

	items, err := b.economy.Collection(ctx, msg.From.ID, rarity)
	if err != nil {
		return fmt.Sprintf("❌ Error: %v", err)
	}
	if len(items) == 0 {
		return "📚 Your collection is empty. Catch some characters first!"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>📚 Collection of %s</b>\n\n", displayName(msg.From))
	shown := items
	if len(shown) > 30 {
		shown = shown[:30]
	}
	for _, item := range shown {
		fmt.Fprintf(&sb, "• #%d <b>%s</b> (%s, %s)",
			item.Character.ID, item.Character.Name,
			item.Character.Anime, item.Character.Rarity.String())
		if item.Count > 1 {
			fmt.Fprintf(&sb, " x%d", item.Count)
		}
		sb.WriteString("\n")
	}
	if len(items) > len(shown) {
		fmt.Fprintf(&sb, "\n…and %d more.", len(items)-len(shown))
	}
	return sb.String()
}

func (b *Bot) handleTopChat(ctx context.Context, chatID int64) string {
	top, err := b.statsRepo.TopChat(ctx, chatID, 10)
	if err != nil {
		return fmt.Sprintf("❌ Error: %v", err)
	}
	return formatGuessTop("🏆 Top catchers in this chat", top)
}

func (b *Bot) handleTopGlobal(ctx context.Context) string {
	top, err := b.statsRepo.TopGlobal(ctx, 10)
	if err != nil {
		return fmt.Sprintf("❌ Error: %v", err)
	}
	return formatGuessTop("🌍 Top catchers worldwide", top)
}

func (b *Bot) handleTopBalances(ctx context.Context) string {
	top, err := b.userRepo.TopBalances(ctx, 10)
	if err != nil {
		return fmt.Sprintf("❌ Error: %v", err)
	}
	if len(top) == 0 {
		return "Nobody has any coins yet."
	}

	var sb strings.Builder
	sb.WriteString("<b>💰 Richest users</b>\n\n")
	for i, row := range top {
		fmt.Fprintf(&sb, "%d. %s - %d coins\n", i+1, rankName(row.Username, row.FirstName), row.Balance)
	}
	return sb.String()
}

func (b *Bot) handleHistory(ctx context.Context, userID int64) string {
	transactions, err := b.ledger.History(ctx, userID, 10)
	if err != nil {
		return fmt.Sprintf("❌ Error: %v", err)
	}
	if len(transactions) == 0 {
		return "No transactions yet."
	}

	var sb strings.Builder
	sb.WriteString("<b>📜 Recent transactions</b>\n\n")
	for _, tx := range transactions {
		sign := "+"
		if tx.Amount < 0 {
			sign = ""
		}
		fmt.Fprintf(&sb, "• %s%d (%s) %s\n",
			sign, tx.Amount, tx.Type, tx.CreatedAt.Format("02 Jan 15:04"))
	}
	return sb.String()
}

func formatGuessTop(title string, top []domain.GuessStats) string {
	if len(top) == 0 {
		return "Nobody has caught anything yet."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b>\n\n", title)
	for i, row := range top {
		fmt.Fprintf(&sb, "%d. %s - %d catches\n", i+1, rankName(row.Username, row.FirstName), row.Guesses)
	}
	return sb.String()
}

func rankName(username, firstName string) string {
	if username != "" {
		return "@" + username
	}
	if firstName != "" {
		return firstName
	}
	return "anonymous"
}

// replyTarget extracts the human the command was sent in reply to.
func replyTarget(msg *tgbotapi.Message) *tgbotapi.User {
	if msg.ReplyToMessage == nil || msg.ReplyToMessage.From == nil || msg.ReplyToMessage.From.IsBot {
		return nil
	}
	return msg.ReplyToMessage.From
}
