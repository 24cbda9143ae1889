package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"character_catcher/internal/domain"
	"character_catcher/internal/engine"
	"character_catcher/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const adminHelp = `<b>🔧 Admin commands</b>

<b>Spawning:</b>
/spawn - Force a spawn in this chat
/clearspawn - Remove this chat's active spawn
/changetime &lt;messages&gt; - Messages between spawns
/setinterval &lt;seconds&gt; - Timer spawns (0 disables)
/setexpiry &lt;seconds&gt; - Unclaimed spawn lifetime (0 = forever)
/settings - Show this chat's cadence
/resetsettings - Back to defaults

<b>Catalog:</b>
/upload &lt;rarity&gt; | &lt;anime&gt; | &lt;name&gt; [| image_url] - Add a character
/setrarity &lt;id&gt; &lt;rarity&gt; - Move a character between tiers
/enable &lt;id&gt; / /disable &lt;id&gt; - Toggle spawn eligibility
/find &lt;query&gt; - Search the catalog
/reload - Rebuild the catalog snapshot

<b>Economy:</b>
/give &lt;coins&gt; [character_id] - Grant (reply to the recipient)
/createcode &lt;coins&gt; &lt;max_uses&gt; &lt;days&gt; [character_id] - Mint a code
/codes - List codes
/delcode &lt;code&gt; - Delete a code`

// handleAdminCommand is reached only for callers in the admin list. The first
// return value reports whether the command was recognized; an empty response
// for a recognized command means the announcement goes out another way.
func (b *Bot) handleAdminCommand(ctx context.Context, msg *tgbotapi.Message) (bool, string) {
	switch msg.Command() {
	case "spawn":
		return true, b.handleForceSpawn(ctx, msg.Chat.ID)

	case "clearspawn":
		cleared, err := b.admin.ClearSpawn(ctx, msg.Chat.ID)
		if err != nil {
			return true, fmt.Sprintf("❌ Error: %v", err)
		}
		if !cleared {
			return true, "ℹ️ No active spawn in this chat."
		}
		return true, "✅ Spawn cleared."

	case "changetime":
		return true, b.handleChangeTime(ctx, msg)

	case "setinterval":
		return true, b.handleSetInterval(ctx, msg)

	case "setexpiry":
		return true, b.handleSetExpiry(ctx, msg)

	case "settings":
		return true, b.handleSettings(ctx, msg.Chat.ID)

	case "resetsettings":
		if err := b.admin.ResetChatSettings(ctx, msg.Chat.ID); err != nil {
			return true, fmt.Sprintf("❌ Error: %v", err)
		}
		return true, "✅ Chat settings reset to defaults."

	case "upload":
		return true, b.handleUpload(ctx, msg)

	case "setrarity":
		return true, b.handleSetRarity(ctx, msg)

	case "enable":
		return true, b.handleToggle(ctx, msg, true)

	case "disable":
		return true, b.handleToggle(ctx, msg, false)

	case "find":
		return true, b.handleFind(ctx, msg)

	case "reload":
		if err := b.admin.ReloadCatalog(ctx); err != nil {
			return true, fmt.Sprintf("❌ Error: %v", err)
		}
		return true, "✅ Catalog reloaded."

	case "give":
		return true, b.handleGive(ctx, msg)

	case "createcode":
		return true, b.handleCreateCode(ctx, msg)

	case "codes":
		return true, b.handleListCodes(ctx)

	case "delcode":
		return true, b.handleDeleteCode(ctx, msg)
	}
	return false, ""
}

func (b *Bot) handleForceSpawn(ctx context.Context, chatID int64) string {
	result, err := b.engine.ForceSpawn(ctx, chatID)
	if err != nil {
		return fmt.Sprintf("❌ Error: %v", err)
	}
	switch result.Status {
	case engine.SpawnAlreadyActive:
		return "ℹ️ An unclaimed spawn is already pending."
	case engine.SpawnSkipped:
		return "❌ The catalog has no enabled characters."
	}
	// The announcement itself goes through the publisher.
	return ""
}

func (b *Bot) handleChangeTime(ctx context.Context, msg *tgbotapi.Message) string {
	n, err := strconv.Atoi(strings.TrimSpace(msg.CommandArguments()))
	if err != nil {
		return "❌ Usage: /changetime <messages>"
	}
	if err := b.admin.SetSpawnThreshold(ctx, msg.Chat.ID, n); err != nil {
		if errors.Is(err, service.ErrThresholdOutOfRange) {
			return fmt.Sprintf("❌ %v", err)
		}
		return fmt.Sprintf("❌ Error: %v", err)
	}
	return fmt.Sprintf("✅ A character now appears every <b>%d</b> messages.", n)
}

func (b *Bot) handleSetInterval(ctx context.Context, msg *tgbotapi.Message) string {
	n, err := strconv.Atoi(strings.TrimSpace(msg.CommandArguments()))
	if err != nil || n < 0 {
		return "❌ Usage: /setinterval <seconds> (0 disables timer spawns)"
	}
	if err := b.admin.SetSpawnInterval(ctx, msg.Chat.ID, n); err != nil {
		return fmt.Sprintf("❌ Error: %v", err)
	}
	if n == 0 {
		return "✅ Timer spawns disabled."
	}
	return fmt.Sprintf("✅ Timer spawns every <b>%d</b> seconds.", n)
}

func (b *Bot) handleSetExpiry(ctx context.Context, msg *tgbotapi.Message) string {
	n, err := strconv.Atoi(strings.TrimSpace(msg.CommandArguments()))
	if err != nil || n < 0 {
		return "❌ Usage: /setexpiry <seconds> (0 = spawns never expire)"
	}
	if err := b.admin.SetSpawnExpiry(ctx, msg.Chat.ID, n); err != nil {
		return fmt.Sprintf("❌ Error: %v", err)
	}
	if n == 0 {
		return "✅ Unclaimed spawns now persist until caught."
	}
	return fmt.Sprintf("✅ Unclaimed spawns can be replaced after <b>%d</b> seconds.", n)
}

func (b *Bot) handleSettings(ctx context.Context, chatID int64) string {
	settings, err := b.admin.ChatSettings(ctx, chatID)
	if err != nil {
		return fmt.Sprintf("❌ Error: %v", err)
	}

	interval := "off"
	if settings.IntervalSeconds > 0 {
		interval = fmt.Sprintf("%ds", settings.IntervalSeconds)
	}
	expiry := "never"
	if settings.ExpirySeconds > 0 {
		expiry = fmt.Sprintf("%ds", settings.ExpirySeconds)
	}
	return fmt.Sprintf(`<b>⚙️ Chat settings</b>

• Spawn every: %d messages
• Timer spawns: %s
• Spawn expiry: %s`,
		settings.SpawnThreshold, interval, expiry)
}

func (b *Bot) handleUpload(ctx context.Context, msg *tgbotapi.Message) string {
	parts := strings.Split(msg.CommandArguments(), "|")
	if len(parts) < 3 {
		return "❌ Usage: /upload <rarity> | <anime> | <name> [| image_url]"
	}

	rarity := domain.ParseRarity(parts[0])
	anime := strings.TrimSpace(parts[1])
	name := strings.TrimSpace(parts[2])
	imageURL := ""
	if len(parts) > 3 {
		imageURL = strings.TrimSpace(parts[3])
	}
	if name == "" {
		return "❌ Character name is required."
	}

	c, err := b.admin.AddCharacter(ctx, name, anime, rarity, imageURL)
	if err != nil {
		return fmt.Sprintf("❌ Upload failed: %v", err)
	}
	return fmt.Sprintf("✅ Added <b>%s</b> (#%d, %s, %s).", c.Name, c.ID, c.Anime, c.Rarity.String())
}

func (b *Bot) handleSetRarity(ctx context.Context, msg *tgbotapi.Message) string {
	fields := strings.Fields(msg.CommandArguments())
	if len(fields) != 2 {
		return "❌ Usage: /setrarity <character_id> <rarity>"
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return "❌ Invalid character id."
	}
	if err := b.admin.SetCharacterRarity(ctx, id, domain.ParseRarity(fields[1])); err != nil {
		return fmt.Sprintf("❌ Error: %v", err)
	}
	return "✅ Rarity updated."
}

func (b *Bot) handleToggle(ctx context.Context, msg *tgbotapi.Message, enabled bool) string {
	id, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
	if err != nil {
		return "❌ Usage: /enable <character_id> or /disable <character_id>"
	}
	if err := b.admin.SetCharacterEnabled(ctx, id, enabled); err != nil {
		return fmt.Sprintf("❌ Error: %v", err)
	}
	if enabled {
		return "✅ Character can spawn again."
	}
	return "✅ Character removed from the spawn pool."
}

func (b *Bot) handleFind(ctx context.Context, msg *tgbotapi.Message) string {
	query := strings.TrimSpace(msg.CommandArguments())
	if query == "" {
		return "❌ Usage: /find <name or anime>"
	}

	characters, err := b.admin.SearchCharacters(ctx, query, 15)
	if err != nil {
		return fmt.Sprintf("❌ Error: %v", err)
	}
	if len(characters) == 0 {
		return "Nothing found."
	}

	var sb strings.Builder
	sb.WriteString("<b>🔎 Search results</b>\n\n")
	for _, c := range characters {
		state := ""
		if !c.Enabled {
			state = " (disabled)"
		}
		fmt.Fprintf(&sb, "• #%d <b>%s</b> (%s, %s)%s\n",
			c.ID, c.Name, c.Anime, c.Rarity.String(), state)
	}
	return sb.String()
}

func (b *Bot) handleGive(ctx context.Context, msg *tgbotapi.Message) string {
	recipient := replyTarget(msg)
	if recipient == nil {
		return "❌ Reply to the recipient's message: /give <coins> [character_id]"
	}

	fields := strings.Fields(msg.CommandArguments())
	if len(fields) < 1 {
		return "❌ Usage: /give <coins> [character_id] (reply to the recipient)"
	}
	coins, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || coins < 0 {
		return "❌ Invalid coin amount."
	}

	var characterID *int64
	if len(fields) > 1 {
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return "❌ Invalid character id."
		}
		characterID = &id
	}

	if err := b.economy.AdminGrant(ctx, msg.From.ID, recipient.ID, characterID, coins); err != nil {
		return fmt.Sprintf("❌ Grant failed: %v", err)
	}
	return fmt.Sprintf("✅ Granted to %s.", displayName(recipient))
}

func (b *Bot) handleCreateCode(ctx context.Context, msg *tgbotapi.Message) string {
	fields := strings.Fields(msg.CommandArguments())
	if len(fields) < 3 {
		return "❌ Usage: /createcode <coins> <max_uses> <days> [character_id]"
	}

	coins, err1 := strconv.ParseInt(fields[0], 10, 64)
	maxUses, err2 := strconv.Atoi(fields[1])
	days, err3 := strconv.Atoi(fields[2])
	if err1 != nil || err2 != nil || err3 != nil || coins < 0 || maxUses < 0 || days < 0 {
		return "❌ Usage: /createcode <coins> <max_uses> <days> [character_id]"
	}

	var characterID *int64
	if len(fields) > 3 {
		id, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return "❌ Invalid character id."
		}
		characterID = &id
	}

	code, err := b.admin.CreateCode(ctx, msg.From.ID, coins, characterID, maxUses, days)
	if err != nil {
		return fmt.Sprintf("❌ Error: %v", err)
	}
	return fmt.Sprintf("✅ Code created: <code>%s</code>", code.Code)
}

func (b *Bot) handleListCodes(ctx context.Context) string {
	codes, err := b.admin.ListCodes(ctx)
	if err != nil {
		return fmt.Sprintf("❌ Error: %v", err)
	}
	if len(codes) == 0 {
		return "No active codes."
	}

	var sb strings.Builder
	sb.WriteString("<b>🎟 Redeem codes</b>\n\n")
	for _, code := range codes {
		uses := fmt.Sprintf("%d/∞", code.UseCount)
		if code.MaxUses > 0 {
			uses = fmt.Sprintf("%d/%d", code.UseCount, code.MaxUses)
		}
		fmt.Fprintf(&sb, "• <code>%s</code> - %d coins, uses %s", code.Code, code.CoinAmount, uses)
		if code.ExpiresAt != nil {
			fmt.Fprintf(&sb, ", expires %s", code.ExpiresAt.Format("02 Jan 2006"))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (b *Bot) handleDeleteCode(ctx context.Context, msg *tgbotapi.Message) string {
	code := strings.ToUpper(strings.TrimSpace(msg.CommandArguments()))
	if code == "" {
		return "❌ Usage: /delcode <code>"
	}
	if err := b.admin.DeleteCode(ctx, code); err != nil {
		return fmt.Sprintf("❌ Error: %v", err)
	}
	return "✅ Code deleted."
}
