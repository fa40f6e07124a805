package auth

import (
	"context"
	"net/http"
	"time"

	"eventweb/globals"
	"eventweb/utils"

	"github.com/julienschmidt/httprouter"
)

const requestTimeout = 5 * time.Second

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     globals.AccessTokenCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in Registration
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if _, err := h.svc.Register(ctx, in); err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondSuccess(w, http.StatusCreated, "You have been registered. Please proceed to login.", nil)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in Credentials
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sess, err := h.svc.Login(ctx, in)
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	http.SetCookie(w, h.sessionCookie(sess.Token, int(h.svc.tokens.TTL().Seconds())))
	utils.RespondSuccess(w, http.StatusOK, "Successfully logged in", sess)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	raw, _ := r.Context().Value(globals.TokenKey).(string)
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.svc.Logout(ctx, raw); err != nil {
		utils.RespondError(w, err)
		return
	}
	http.SetCookie(w, h.sessionCookie("", -1))
	utils.RespondSuccess(w, http.StatusOK, "Logged out successfully", nil)
}

func (h *Handler) CheckAuthState(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := utils.ActorID(r)
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	u, err := h.svc.Me(ctx, actor)
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondSuccess(w, http.StatusOK, "User is authenticated", u)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := utils.ActorID(r)
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	var in PasswordChange
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.svc.ChangePassword(ctx, actor, in); err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondSuccess(w, http.StatusOK, "Password has been updated successfully", nil)
}
