package routes

import (
	"net/http"

	"eventweb/auth"
	"eventweb/events"
	"eventweb/middleware"
	"eventweb/ratelim"
	"eventweb/templates"
	"eventweb/websites"

	"github.com/julienschmidt/httprouter"
)

// Handlers bundles every HTTP surface the router serves.
type Handlers struct {
	Auth      *auth.Handler
	Events    *events.Handler
	Templates *templates.Handler
	Websites  *websites.Handler
}

func AddStaticRoutes(router *httprouter.Router, prefix, dir string) {
	router.ServeFiles(prefix+"/*filepath", http.Dir(dir))
}

func AddAuthRoutes(router *httprouter.Router, h *auth.Handler, tokens *middleware.Tokens, rl *ratelim.RateLimiter) {
	router.POST("/auth/register", rl.Limit(h.Register))
	router.POST("/auth/login", rl.Limit(h.Login))
	router.POST("/auth/logout", middleware.Chain(rl.Limit, tokens.Authenticate)(h.Logout))
	router.GET("/auth/check", tokens.Authenticate(h.CheckAuthState))
	router.PUT("/auth/change-password", middleware.Chain(rl.Limit, tokens.Authenticate)(h.ChangePassword))
}

func AddEventsRoutes(router *httprouter.Router, h *events.Handler, tokens *middleware.Tokens) {
	router.POST("/event", tokens.Authenticate(h.CreateEvent))
	router.GET("/event", tokens.Authenticate(h.GetUserEvents))
	router.GET("/event/:eventId", tokens.Authenticate(h.GetEvent))
	router.PATCH("/event/:eventId", tokens.Authenticate(h.UpdateEvent))
	router.DELETE("/event/:eventId", tokens.Authenticate(h.DeleteEvent))
}

func AddTemplateRoutes(router *httprouter.Router, h *templates.Handler, tokens *middleware.Tokens) {
	router.POST("/template", tokens.Authenticate(h.AddTemplate))
	router.GET("/template", h.GetAllTemplates)
	router.GET("/template/:templateId", h.GetTemplate)
}

func AddWebsiteRoutes(router *httprouter.Router, h *websites.Handler, tokens *middleware.Tokens, rl *ratelim.RateLimiter) {
	router.POST("/website/create", tokens.Authenticate(h.CreateWebsite))
	router.GET("/websites/published", tokens.Authenticate(h.GetPublishedWebsites))
	router.GET("/website/:websiteId", tokens.Authenticate(h.GetWebsite))
	router.DELETE("/website/:websiteId", tokens.Authenticate(h.DeleteWebsite))
	router.GET("/website/:websiteId/qrcode", tokens.Authenticate(h.GetQRCode))
	router.PATCH("/website/:websiteId/sections", tokens.Authenticate(h.SaveWebsite))
	router.GET("/website/:websiteId/sections/:section", tokens.Authenticate(h.GetSection))
	router.PATCH("/website/:websiteId/sections/:section", tokens.Authenticate(h.UpdateSection))
	router.POST("/website/publish/:websiteId", tokens.Authenticate(h.PublishWebsite))
	router.POST("/website/unpublish/:websiteId", tokens.Authenticate(h.UnpublishWebsite))
	router.POST("/website/sendEmail", rl.Limit(h.SendEmail))

	router.GET("/public/:subdomain", rl.Limit(h.GetPublicWebsite))
}

// RoutesWrapper registers every API route on router.
func RoutesWrapper(router *httprouter.Router, h Handlers, tokens *middleware.Tokens, rl *ratelim.RateLimiter) {
	AddAuthRoutes(router, h.Auth, tokens, rl)
	AddEventsRoutes(router, h.Events, tokens)
	AddTemplateRoutes(router, h.Templates, tokens)
	AddWebsiteRoutes(router, h.Websites, tokens, rl)
}
