package database

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"uikitstore/models"
)

func price(ghc, usd, usdt int64, eth, bnb string) models.Price {
	return models.Price{
		GHC:  decimal.NewFromInt(ghc),
		USD:  decimal.NewFromInt(usd),
		USDT: decimal.NewFromInt(usdt),
		ETH:  decimal.RequireFromString(eth),
		BNB:  decimal.RequireFromString(bnb),
	}
}

// SampleCatalog is the development catalog loaded when SEED_CATALOG is set.
func SampleCatalog() []models.UI {
	return []models.UI{
		{
			UIID: "ui-12345", Title: "Creative Dashboard Kit",
			Desc:     "A modern dashboard UI kit with creative elements for your next project.",
			Image:    "https://via.placeholder.com/400x300/4a6bff/ffffff?text=Dashboard+UI",
			Category: "dashboards",
			Notes:    "Includes light and dark mode variants. Fully responsive design.",
			Price:    price(150, 25, 25, "0.01", "0.05"),
			Verified: true,
		},
		{
			UIID: "ui-12346", Title: "E-commerce Product Page",
			Desc:     "Beautiful product page design for e-commerce websites.",
			Image:    "https://via.placeholder.com/400x300/ff6b6b/ffffff?text=E-commerce+UI",
			Category: "ecommerce",
			Notes:    "Includes product gallery, variants selector, and checkout section.",
			Price:    price(120, 20, 20, "0.008", "0.04"),
			Verified: true,
		},
		{
			UIID: "ui-12347", Title: "Mobile App Onboarding",
			Desc:     "Clean onboarding screens for mobile applications.",
			Image:    "https://via.placeholder.com/400x300/6bffb4/ffffff?text=Mobile+UI",
			Category: "mobile",
			Notes:    "Designed for iOS and Android. Includes 5 screens.",
			Price:    price(90, 15, 15, "0.006", "0.03"),
			Verified: true,
		},
		{
			UIID: "ui-12348", Title: "Landing Page Template",
			Desc:     "Conversion-focused landing page for SaaS products.",
			Image:    "https://via.placeholder.com/400x300/ffb46b/ffffff?text=Landing+Page",
			Category: "landing",
			Notes:    "Includes hero section, features, testimonials, and CTA sections.",
			Price:    price(180, 30, 30, "0.012", "0.06"),
		},
		{
			UIID: "ui-12349", Title: "UI Component Library",
			Desc:     "Collection of reusable UI components for React projects.",
			Image:    "https://via.placeholder.com/400x300/b46bff/ffffff?text=Components",
			Category: "components",
			Notes:    "Includes buttons, forms, modals, cards, and navigation components.",
			Price:    price(210, 35, 35, "0.014", "0.07"),
			Verified: true,
		},
		{
			UIID: "ui-12350", Title: "Analytics Dashboard",
			Desc:     "Data visualization dashboard with charts and metrics.",
			Image:    "https://via.placeholder.com/400x300/6bd5ff/ffffff?text=Analytics+Dash",
			Category: "dashboards",
			Notes:    "Includes line, bar, and pie charts. Dark mode supported.",
			Price:    price(240, 40, 40, "0.016", "0.08"),
			Verified: true,
		},
		{
			UIID: "ui-12351", Title: "Shopping Cart Flow",
			Desc:     "Complete shopping cart and checkout flow for e-commerce.",
			Image:    "https://via.placeholder.com/400x300/ff6bd5/ffffff?text=Shopping+Cart",
			Category: "ecommerce",
			Notes:    "Includes cart, shipping, payment, and confirmation screens.",
			Price:    price(150, 25, 25, "0.01", "0.05"),
		},
		{
			UIID: "ui-12352", Title: "Mobile Navigation Patterns",
			Desc:     "Collection of modern mobile navigation designs.",
			Image:    "https://via.placeholder.com/400x300/6bff6b/ffffff?text=Mobile+Nav",
			Category: "mobile",
			Notes:    "Bottom nav, hamburger menus, tab bars, and more.",
			Price:    price(90, 15, 15, "0.006", "0.03"),
			Verified: true,
		},
		{
			UIID: "ui-12353", Title: "Portfolio Landing Page",
			Desc:     "Elegant portfolio page for designers and creatives.",
			Image:    "https://via.placeholder.com/400x300/ff6b6b/ffffff?text=Portfolio",
			Category: "landing",
			Notes:    "Showcase your work with this clean and modern design.",
			Price:    price(120, 20, 20, "0.008", "0.04"),
			Verified: true,
		},
		{
			UIID: "ui-12354", Title: "Form Elements Pack",
			Desc:     "Collection of styled form elements and inputs.",
			Image:    "https://via.placeholder.com/400x300/6bffb4/ffffff?text=Form+Elements",
			Category: "components",
			Notes:    "Text inputs, selects, checkboxes, radios, and more.",
			Price:    price(90, 15, 15, "0.006", "0.03"),
			Verified: true,
		},
	}
}

// SeedCatalog inserts every listing whose ui_id is not already present.
func SeedCatalog(ctx context.Context, store Store, uis []models.UI) (int, error) {
	inserted := 0
	for i := range uis {
		exists, err := store.UIIDExists(ctx, uis[i].UIID)
		if err != nil {
			return inserted, fmt.Errorf("check %s: %w", uis[i].UIID, err)
		}
		if exists {
			continue
		}
		ui := uis[i]
		if err := store.CreateUI(ctx, &ui); err != nil {
			return inserted, fmt.Errorf("seed %s: %w", ui.UIID, err)
		}
		inserted++
	}
	return inserted, nil
}
