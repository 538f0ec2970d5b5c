package storefront

import (
	"context"
	"strings"

	"uikitstore/models"
)

// Navigate moves to page, redirecting to home when the session may not see it.
// It returns the page actually shown.
func (a *App) Navigate(ctx context.Context, page Page) (Page, error) {
	switch page {
	case PageHome, PageDashboard, PageProfile, PageAdmin:
	case PageDetail:
		return a.currentPage(), preconditionErr(ErrUnknownPage, "Select a UI kit to view its details.")
	default:
		return a.currentPage(), notFoundErr(ErrUnknownPage, "That page does not exist.")
	}

	var (
		signedIn bool
		isAdmin  bool
		epoch    uint64
	)
	a.mu.Lock()
	signedIn, isAdmin, epoch = a.state.Session != nil, a.state.IsAdmin, a.epoch
	a.mu.Unlock()

	switch {
	case page.Gated() && !signedIn:
		a.flash(FlashError, "Please sign in to continue.")
		page = PageHome
	case page == PageAdmin && !isAdmin:
		a.flash(FlashError, "Only admins can access the admin panel.")
		page = PageHome
	}

	switch page {
	case PageHome:
		a.ensureCatalog(ctx)
		a.read(func(s *State) {
			s.Page, s.Tab = PageHome, ""
			if s.ActiveCategory == "" && len(s.Categories) > 0 {
				s.ActiveCategory = s.Categories[0].ID
			}
		})
	case PageDashboard:
		// Purchases and bookmarks are resolved against the catalog.
		a.ensureCatalog(ctx)
		a.read(func(s *State) { s.Page, s.Tab = PageDashboard, TabPurchased })
	case PageProfile:
		a.read(func(s *State) { s.Page, s.Tab = PageProfile, "" })
	case PageAdmin:
		a.read(func(s *State) { s.Page, s.Tab = PageAdmin, TabVerifyUI })
		a.loadAdminQueues(ctx, epoch)
	}
	return page, nil
}

func (a *App) currentPage() Page {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Page
}

// ShowDetail opens the detail page of a verified listing from any page.
func (a *App) ShowDetail(ctx context.Context, uiID string) error {
	a.ensureCatalog(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.state.FindUI(uiID); !ok {
		err := notFoundErr(ErrUnknownProduct, "That UI kit could not be found.")
		a.state.Flash = &Flash{Level: FlashError, Message: err.Message}
		return err
	}
	if a.state.Page != PageDetail {
		a.state.BackTarget = a.state.Page
	}
	a.state.Page = PageDetail
	a.state.Tab = ""
	a.state.DetailUIID = uiID
	return nil
}

// Back leaves the detail page for the page it was opened from.
func (a *App) Back(ctx context.Context) (Page, error) {
	a.mu.Lock()
	target := a.state.BackTarget
	if a.state.Page != PageDetail {
		target = a.state.Page
	}
	a.state.DetailUIID = ""
	a.state.BackTarget = PageNone
	a.mu.Unlock()

	if target == PageNone || target == PageDetail {
		target = PageHome
	}
	return a.Navigate(ctx, target)
}

// SelectTab switches the visible slice of the current page without fetching.
func (a *App) SelectTab(tab Tab) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, t := range pageTabs[a.state.Page] {
		if t == tab {
			a.state.Tab = tab
			return nil
		}
	}
	return preconditionErr(ErrInvalidTab, "That tab is not available here.")
}

// SelectCategory filters the grid by category and clears any search.
func (a *App) SelectCategory(categoryID string) error {
	if !models.CategoryExists(categoryID) {
		return notFoundErr(ErrUnknownCategory, "That category does not exist.")
	}
	a.mu.Lock()
	a.state.ActiveCategory = categoryID
	a.state.Query = ""
	a.mu.Unlock()
	return nil
}

// Search filters the grid by a case-insensitive title or description match
// across every category. An empty query restores the active category.
func (a *App) Search(query string) {
	a.mu.Lock()
	a.state.Query = strings.TrimSpace(query)
	a.mu.Unlock()
}
