package templates

import (
	"context"
	"net/http"
	"time"

	"eventweb/utils"

	"github.com/julienschmidt/httprouter"
)

const requestTimeout = 5 * time.Second

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) AddTemplate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in NewTemplate
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	t, err := h.svc.Add(ctx, in)
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondSuccess(w, http.StatusCreated, "Successfully added template", t)
}

func (h *Handler) GetAllTemplates(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	list, err := h.svc.List(ctx)
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondSuccess(w, http.StatusOK, "Successfully fetched templates", list)
}

func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := utils.ParseObjectID(ps.ByName("templateId"), "template id")
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	t, err := h.svc.Get(ctx, id)
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondSuccess(w, http.StatusOK, "Successfully fetched template", t)
}
