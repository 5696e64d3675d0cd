package handlers

import (
	"github.com/jmoiron/sqlx"

	"techypad/internal/config"
	"techypad/internal/identity"
	"techypad/internal/payment"
	"techypad/internal/pricing"
	"techypad/internal/realtime"
	"techypad/internal/repos"
	"techypad/internal/services"
)

type Deps struct {
	Config   config.Config
	Auth     *services.AuthService
	Checkout *services.CheckoutService
	Sessions *repos.AdminSessionRepo

	HomeHandler     *HomeHandler
	CartHandler     *CartHandler
	CheckoutHandler *CheckoutHandler
	AuthHandler     *AuthHandler
	OrderHandler    *OrderHandler
	AdminHandler    *AdminHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config, feed realtime.Feed, gw payment.Gateway) *Deps {
	reg := pricing.WithSalePrice(cfg.SalePrice)
	cookies := Cookies{Secure: cfg.CookieSecure}

	userRepo := repos.NewUserRepo(db)
	orderRepo := repos.NewOrderRepo(db, feed)
	sessions := repos.NewAdminSessionRepo(db)

	provider := identity.NewLocalProvider(userRepo, identity.NewTokenManager(cfg.JWTSecret), cfg.SessionTTL, cfg.RequireConfirmation)
	authSvc := services.NewAuthService(provider, repos.NewOrderedUsersRepo(db))
	cartSvc := services.NewCartService(repos.NewCartRepo(db), reg)
	orderSvc := services.NewOrderService(orderRepo)
	checkoutSvc := services.NewCheckoutService(reg, cartSvc, authSvc, orderRepo, gw)
	catalogSvc := services.NewCatalogService(reg, cfg.SupportEmail)

	return &Deps{
		Config:   cfg,
		Auth:     authSvc,
		Checkout: checkoutSvc,
		Sessions: sessions,

		HomeHandler:     &HomeHandler{Catalog: catalogSvc, Cart: cartSvc, Auth: authSvc, Cookies: cookies},
		CartHandler:     &CartHandler{Cart: cartSvc, Auth: authSvc, Cookies: cookies},
		CheckoutHandler: &CheckoutHandler{Checkout: checkoutSvc, Cookies: cookies, SupportEmail: cfg.SupportEmail},
		AuthHandler:     &AuthHandler{Auth: authSvc, Cookies: cookies},
		OrderHandler:    &OrderHandler{Orders: orderSvc, Table: orderRepo, Feed: feed},
		AdminHandler: &AdminHandler{
			Orders:            orderSvc,
			Table:             orderRepo,
			Feed:              feed,
			Auth:              authSvc,
			Sessions:          sessions,
			Cookies:           cookies,
			AdminEmail:        cfg.AdminEmail,
			AdminPasswordHash: cfg.AdminPasswordHash,
		},
	}
}
