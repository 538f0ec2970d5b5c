package storefront

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNavigate_GatedPagesRedirectHome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	anon := f.app("anon")

	for _, page := range []Page{PageDashboard, PageProfile, PageAdmin} {
		got, err := anon.Navigate(ctx, page)
		require.NoError(t, err)
		assert.Equal(t, PageHome, got)
		assert.Equal(t, PageHome, anon.Snapshot().Page)
	}

	buyer := f.signedIn(t, "42")
	got, err := buyer.Navigate(ctx, PageAdmin)
	require.NoError(t, err)
	assert.Equal(t, PageHome, got)

	got, err = buyer.Navigate(ctx, PageDashboard)
	require.NoError(t, err)
	assert.Equal(t, PageDashboard, got)
	assert.Equal(t, TabPurchased, buyer.Snapshot().Tab)

	admin := f.signedIn(t, "admin")
	got, err = admin.Navigate(ctx, PageAdmin)
	require.NoError(t, err)
	assert.Equal(t, PageAdmin, got)
	assert.Equal(t, TabVerifyUI, admin.Snapshot().Tab)
}

func TestNavigate_HomeLoadsCatalogAndFirstCategory(t *testing.T) {
	f := newFixture(t)
	app := f.app("anon")

	page, err := app.Navigate(context.Background(), PageHome)
	require.NoError(t, err)
	assert.Equal(t, PageHome, page)

	s := app.Snapshot()
	assert.True(t, s.CatalogLoaded)
	assert.Len(t, s.Categories, 5)
	assert.Equal(t, "dashboards", s.ActiveCategory)
}

func TestNavigate_UnknownPage(t *testing.T) {
	f := newFixture(t)
	_, err := f.app("anon").Navigate(context.Background(), Page("settings"))
	assert.ErrorIs(t, err, ErrUnknownPage)
}

func TestSelectTab_OnlyWithinPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.signedIn(t, "42")
	_, err := app.Navigate(ctx, PageDashboard)
	require.NoError(t, err)

	require.NoError(t, app.SelectTab(TabPayments))
	assert.Equal(t, TabPayments, app.Snapshot().Tab)
	assert.ErrorIs(t, app.SelectTab(TabVerifyUI), ErrInvalidTab)
	assert.Equal(t, TabPayments, app.Snapshot().Tab)
}

func TestDetailAndBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.signedIn(t, "42")
	_, err := app.Navigate(ctx, PageDashboard)
	require.NoError(t, err)

	require.NoError(t, app.ShowDetail(ctx, p2))
	s := app.Snapshot()
	assert.Equal(t, PageDetail, s.Page)
	assert.Equal(t, p2, s.DetailUIID)
	assert.Equal(t, PageDashboard, s.BackTarget)

	page, err := app.Back(ctx)
	require.NoError(t, err)
	assert.Equal(t, PageDashboard, page)
}

func TestBack_DefaultsHomeAfterSignOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.signedIn(t, "42")
	_, err := app.Navigate(ctx, PageProfile)
	require.NoError(t, err)
	require.NoError(t, app.ShowDetail(ctx, p1))
	require.NoError(t, app.SignOut(ctx))

	page, err := app.Back(ctx)
	require.NoError(t, err)
	assert.Equal(t, PageHome, page)
}

func TestUnverifiedListingsStayOffCatalogFacingViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.signedIn(t, "admin")

	for _, ui := range app.Snapshot().VisibleCatalog() {
		assert.NotEqual(t, u1, ui.UIID)
	}

	app.Search("secret")
	assert.Empty(t, app.Snapshot().VisibleCatalog())

	err := app.ShowDetail(ctx, u1)
	assert.ErrorIs(t, err, ErrUnknownProduct)

	_, err = app.Navigate(ctx, PageAdmin)
	require.NoError(t, err)
	queue := app.Snapshot().UnverifiedUIs
	require.Len(t, queue, 1)
	assert.Equal(t, u1, queue[0].UIID)
}

func TestSearchAndCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.app("anon")
	_, err := app.Navigate(ctx, PageHome)
	require.NoError(t, err)

	ids := func() []string {
		var out []string
		for _, ui := range app.Snapshot().VisibleCatalog() {
			out = append(out, ui.UIID)
		}
		return out
	}

	assert.Equal(t, []string{p1}, ids())

	app.Search("  PACK ")
	assert.Equal(t, []string{p3}, ids())

	app.Search("modern")
	assert.ElementsMatch(t, []string{p1, p2, p3}, ids())

	app.Search("")
	assert.Equal(t, []string{p1}, ids())

	require.NoError(t, app.SelectCategory("landing"))
	assert.Equal(t, []string{p2}, ids())
	assert.ErrorIs(t, app.SelectCategory("games"), ErrUnknownCategory)
}
