package utils

import (
	"fmt"
	"math/rand"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"uikitstore/models"
)

// GenerateUIID returns a public listing id of the form ui-NNNNN.
func GenerateUIID() string {
	return fmt.Sprintf("ui-%d", 10000+rand.Intn(90000))
}

func FormatUSD(amount decimal.Decimal) string {
	return "$" + amount.String()
}

// EscapeMarkdown escapes the characters legacy Telegram Markdown treats as markup.
func EscapeMarkdown(text string) string {
	chars := []string{"_", "*", "`", "["}
	for _, char := range chars {
		text = strings.ReplaceAll(text, char, "\\"+char)
	}
	return text
}

func GetUserDisplayName(user *tgbotapi.User) string {
	name := user.FirstName
	if user.LastName != "" {
		name += " " + user.LastName
	}
	if name == "" && user.UserName != "" {
		name = "@" + user.UserName
	}
	return name
}

// BuyerLabel names a storefront user for admin-facing messages.
func BuyerLabel(user *models.User) string {
	if user == nil {
		return "unknown buyer"
	}
	label := user.Name
	if label == "" {
		label = user.UID
	}
	if user.TelegramUsername != "" {
		label += " (@" + user.TelegramUsername + ")"
	}
	return label
}

func SumUSD(items []models.UI) decimal.Decimal {
	total := decimal.Zero
	for _, ui := range items {
		total = total.Add(ui.Price.USD)
	}
	return total
}

func JoinTitles(items []models.UI) string {
	titles := make([]string, len(items))
	for i, ui := range items {
		titles[i] = ui.Title
	}
	return strings.Join(titles, ", ")
}

// PaymentInfo is the copyable block a buyer forwards along with the transfer.
func PaymentInfo(items []models.UI) string {
	blocks := make([]string, len(items))
	for i, ui := range items {
		blocks[i] = fmt.Sprintf("UI Title: %q\nUI ID: %s\nPrice (USD): %s\nPrice (GHC): %s\nPrice (USDT): %s",
			ui.Title, ui.UIID, FormatUSD(ui.Price.USD), ui.Price.GHC.String(), ui.Price.USDT.String())
	}
	return strings.Join(blocks, "\n\n")
}
