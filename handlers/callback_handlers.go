package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"uikitstore/database"
	"uikitstore/logger"
	"uikitstore/models"
	"uikitstore/storefront"
	"uikitstore/utils"
)

// CallbackHandler handles the Verify/Reject buttons on admin-group payment notices.
type CallbackHandler struct {
	bot        utils.Messenger
	moderation *storefront.Moderation
}

func NewCallbackHandler(bot utils.Messenger, moderation *storefront.Moderation) *CallbackHandler {
	return &CallbackHandler{
		bot:        bot,
		moderation: moderation,
	}
}

func (h *CallbackHandler) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	userID := strconv.FormatInt(callback.From.ID, 10)

	status, paymentID, ok := utils.ParsePaymentCallback(callback.Data)
	if !ok {
		logger.Warn(ctx, "Unknown callback data", zap.String("data", callback.Data))
		h.answer(ctx, callback, "")
		return
	}

	isAdmin, err := h.moderation.IsAdmin(ctx, userID)
	if err != nil {
		logger.Error(ctx, "Admin check failed", zap.String("uid", userID), zap.Error(err))
		h.answer(ctx, callback, storefront.GenericFailure)
		return
	}
	if !isAdmin {
		h.answer(ctx, callback, "Only admins can do that.")
		return
	}

	var payment *models.Payment
	if status == models.PaymentVerified {
		payment, err = h.moderation.Verify(ctx, models.KindPayment, paymentID)
	} else {
		payment, err = h.moderation.Reject(ctx, models.KindPayment, paymentID)
	}
	switch {
	case errors.Is(err, database.ErrPaymentSettled):
		h.answer(ctx, callback, "This payment has already been settled.")
		h.removeKeyboard(ctx, callback)
		return
	case errors.Is(err, database.ErrNotFound):
		h.answer(ctx, callback, "Payment not found.")
		h.removeKeyboard(ctx, callback)
		return
	case err != nil:
		logger.Error(ctx, "Callback moderation failed",
			zap.String("payment_id", paymentID), zap.String("admin", userID), zap.Error(err))
		h.answer(ctx, callback, storefront.GenericFailure)
		return
	}

	adminName := utils.GetUserDisplayName(callback.From)
	logger.Info(ctx, "Payment settled from Telegram",
		zap.String("payment_id", payment.ID), zap.String("status", string(payment.Status)), zap.String("admin", userID))

	if payment.Status == models.PaymentVerified {
		h.answer(ctx, callback, "Payment verified.")
	} else {
		h.answer(ctx, callback, "Payment rejected.")
	}

	if callback.Message == nil {
		return
	}
	text := settledNoticeText(callback.Message.Text, payment.Status, adminName)
	if err := utils.EditMessageText(h.bot, callback.Message.Chat.ID, callback.Message.MessageID, text, ""); err != nil {
		logger.Warn(ctx, "Failed to edit payment notice", zap.String("payment_id", payment.ID), zap.Error(err))
	}
	h.removeKeyboard(ctx, callback)
}

// settledNoticeText replaces the pending marker of a notice with the decision.
func settledNoticeText(original string, status models.PaymentStatus, adminName string) string {
	outcome := fmt.Sprintf("✅ Verified by %s", adminName)
	if status == models.PaymentRejected {
		outcome = fmt.Sprintf("❌ Rejected by %s", adminName)
	}
	if strings.Contains(original, utils.PendingMarker) {
		return strings.Replace(original, utils.PendingMarker, outcome, 1)
	}
	return strings.TrimSpace(original + "\n\n" + outcome)
}

func (h *CallbackHandler) answer(ctx context.Context, callback *tgbotapi.CallbackQuery, text string) {
	if err := utils.AnswerCallback(h.bot, callback.ID, text); err != nil {
		logger.Warn(ctx, "Failed to answer callback", zap.Error(err))
	}
}

func (h *CallbackHandler) removeKeyboard(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}
	if err := utils.RemoveKeyboard(h.bot, callback.Message.Chat.ID, callback.Message.MessageID); err != nil {
		logger.Warn(ctx, "Failed to remove keyboard", zap.Error(err))
	}
}
