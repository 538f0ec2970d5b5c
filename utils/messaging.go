package utils

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"uikitstore/logger"
	"uikitstore/models"
)

const (
	CallbackVerifyPrefix = "payment_verify_"
	CallbackRejectPrefix = "payment_reject_"

	// PendingMarker closes every payment notice until an admin decides.
	PendingMarker = "⏳ Pending verification"
)

// Messenger is the part of *tgbotapi.BotAPI used for outgoing messages.
type Messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

func SendMessage(bot Messenger, chatID int64, text string, parseMode string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if parseMode != "" {
		msg.ParseMode = parseMode
	}
	_, err := bot.Send(msg)
	return err
}

func SendMessageWithKeyboard(bot Messenger, chatID int64, text string, parseMode string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if parseMode != "" {
		msg.ParseMode = parseMode
	}
	msg.ReplyMarkup = keyboard
	_, err := bot.Send(msg)
	return err
}

func EditMessageText(bot Messenger, chatID int64, messageID int, text string, parseMode string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if parseMode != "" {
		edit.ParseMode = parseMode
	}
	_, err := bot.Send(edit)
	return err
}

// RemoveKeyboard strips the inline keyboard from a sent message.
func RemoveKeyboard(bot Messenger, chatID int64, messageID int) error {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	_, err := bot.Request(edit)
	return err
}

func AnswerCallback(bot Messenger, callbackID, text string) error {
	_, err := bot.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

func CreatePaymentActionKeyboard(paymentID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Verify", CallbackVerifyPrefix+paymentID),
			tgbotapi.NewInlineKeyboardButtonData("❌ Reject", CallbackRejectPrefix+paymentID),
		),
	)
}

// ParsePaymentCallback splits callback data into a settlement status and payment id.
func ParsePaymentCallback(data string) (models.PaymentStatus, string, bool) {
	switch {
	case strings.HasPrefix(data, CallbackVerifyPrefix):
		id := strings.TrimPrefix(data, CallbackVerifyPrefix)
		return models.PaymentVerified, id, id != ""
	case strings.HasPrefix(data, CallbackRejectPrefix):
		id := strings.TrimPrefix(data, CallbackRejectPrefix)
		return models.PaymentRejected, id, id != ""
	}
	return "", "", false
}

// Notifier posts payment events to the admin group and to buyers.
type Notifier struct {
	bot          Messenger
	adminGroupID int64
}

func NewNotifier(bot Messenger, adminGroupID int64) *Notifier {
	return &Notifier{bot: bot, adminGroupID: adminGroupID}
}

func PaymentNoticeText(p *models.Payment, buyer *models.User) string {
	var b strings.Builder
	b.WriteString("🧾 *New payment record*\n\n")
	fmt.Fprintf(&b, "*Payment:* `%s`\n", p.ID)
	fmt.Fprintf(&b, "*Buyer:* %s\n", EscapeMarkdown(BuyerLabel(buyer)))
	fmt.Fprintf(&b, "*Items:* %s\n", EscapeMarkdown(p.UITitle))
	fmt.Fprintf(&b, "*Total:* %s\n", EscapeMarkdown(FormatUSD(p.UIPrice)))
	if p.ReceiptURL != "" {
		fmt.Fprintf(&b, "*Receipt:* %s\n", EscapeMarkdown(p.ReceiptURL))
	}
	b.WriteString("\n" + PendingMarker)
	return b.String()
}

func (n *Notifier) PaymentCreated(ctx context.Context, p *models.Payment, buyer *models.User) {
	if n.adminGroupID == 0 {
		return
	}
	err := SendMessageWithKeyboard(n.bot, n.adminGroupID, PaymentNoticeText(p, buyer), tgbotapi.ModeMarkdown,
		CreatePaymentActionKeyboard(p.ID))
	if err != nil {
		logger.Error(ctx, "Failed to post payment notice", zap.String("payment_id", p.ID), zap.Error(err))
	}
}

func (n *Notifier) PaymentSettled(ctx context.Context, p *models.Payment) {
	chatID, err := strconv.ParseInt(p.UserID, 10, 64)
	if err != nil {
		logger.Warn(ctx, "Buyer has no Telegram chat", zap.String("uid", p.UserID))
		return
	}

	var text string
	switch p.Status {
	case models.PaymentVerified:
		text = fmt.Sprintf("✅ Your payment for %s has been verified. Your UI kits are ready to download.",
			EscapeMarkdown(p.UITitle))
	case models.PaymentRejected:
		text = fmt.Sprintf("❌ Your payment for %s was rejected. Contact support if you think this is a mistake.",
			EscapeMarkdown(p.UITitle))
	default:
		return
	}

	if err := SendMessage(n.bot, chatID, text, tgbotapi.ModeMarkdown); err != nil {
		logger.Error(ctx, "Failed to notify buyer", zap.String("payment_id", p.ID), zap.Error(err))
	}
}

// SendPendingDigest summarizes the pending queue in the admin group.
func (n *Notifier) SendPendingDigest(ctx context.Context, pending []models.Payment) error {
	if n.adminGroupID == 0 || len(pending) == 0 {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 *%d payment(s) awaiting verification*\n\n", len(pending))
	for i, p := range pending {
		if i == 20 {
			fmt.Fprintf(&b, "…and %d more", len(pending)-i)
			break
		}
		fmt.Fprintf(&b, "• `%s` %s %s\n", p.ID, EscapeMarkdown(FormatUSD(p.UIPrice)), EscapeMarkdown(p.UITitle))
	}

	if err := SendMessage(n.bot, n.adminGroupID, b.String(), tgbotapi.ModeMarkdown); err != nil {
		return fmt.Errorf("send digest: %w", err)
	}
	logger.Info(ctx, "Pending payment digest sent", zap.Int("count", len(pending)))
	return nil
}
