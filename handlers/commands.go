package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"uikitstore/models"
	"uikitstore/storefront"
)

type commandRequest struct {
	Action string            `json:"action" binding:"required"`
	Target string            `json:"target"`
	Args   map[string]string `json:"args"`
}

// Command dispatches a declarative page action to the session's App.
func (h *Handler) Command(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errBadRequest)
		return
	}
	h.run(c, func(ctx context.Context, app *storefront.App) (gin.H, error) {
		return dispatch(ctx, app, req)
	})
}

func dispatch(ctx context.Context, app *storefront.App, req commandRequest) (gin.H, error) {
	target := strings.TrimSpace(req.Target)

	switch req.Action {
	case "navigate":
		page, err := app.Navigate(ctx, storefront.Page(target))
		return gin.H{"page": page}, err
	case "tab":
		return nil, app.SelectTab(storefront.Tab(target))
	case "detail":
		return nil, app.ShowDetail(ctx, target)
	case "back":
		page, err := app.Back(ctx)
		return gin.H{"page": page}, err
	case "category":
		return nil, app.SelectCategory(target)
	case "search":
		app.Search(req.Args["query"])
		return nil, nil
	case "bookmark":
		return nil, app.ToggleBookmark(ctx, target)
	case "cart-add":
		return nil, app.AddToCart(ctx, target)
	case "cart-remove":
		return nil, app.RemoveFromCart(ctx, target)
	case "cart-open":
		return nil, app.OpenCart()
	case "pay-prepare":
		return nil, app.PreparePayment(ctx, splitIDs(target))
	case "pay-confirm":
		return nil, app.InitiatePayment(ctx, splitIDs(target), req.Args["receipt"])
	case "download":
		url, err := app.Download(target)
		if err != nil {
			return nil, err
		}
		return gin.H{"url": url}, nil
	case "telegram-save":
		return nil, app.SaveTelegram(ctx, req.Args["username"])
	case "modal-close":
		app.CloseModal()
		return nil, nil
	case "verify":
		kind, id := splitQueueTarget(target)
		return nil, app.Verify(ctx, kind, id)
	case "reject":
		kind, id := splitQueueTarget(target)
		return nil, app.Reject(ctx, kind, id)
	case "payment-method":
		return nil, app.AssignPaymentMethod(ctx, target, req.Args["method"])
	}
	return nil, errUnknownCommand
}

// splitIDs parses a comma-separated id list, dropping blanks.
func splitIDs(raw string) []string {
	ids := []string{}
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// splitQueueTarget parses "<kind>:<id>".
func splitQueueTarget(raw string) (models.VerifyKind, string) {
	kind, id, _ := strings.Cut(raw, ":")
	return models.VerifyKind(kind), id
}
