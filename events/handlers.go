package events

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"eventweb/apperr"
	"eventweb/models"
	"eventweb/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const requestTimeout = 5 * time.Second

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := utils.ActorID(r)
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	var in NewEvent
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	ev, err := h.svc.Create(ctx, actor, in)
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondSuccess(w, http.StatusCreated, "Successfully created event", ev)
}

func (h *Handler) GetUserEvents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := utils.ActorID(r)
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	list, err := h.svc.List(ctx, actor)
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondSuccess(w, http.StatusOK, "Successfully fetched events", list)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, id, ok := actorAndEvent(w, r, ps)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	ev, err := h.svc.Get(ctx, actor, id)
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondSuccess(w, http.StatusOK, "Successfully fetched event", ev)
}

// patchRequest accepts the patchable fields and catches attempts to move
// an event to another organizer or website.
type patchRequest struct {
	models.EventPatch
	ID        json.RawMessage `json:"_id"`
	Organizer json.RawMessage `json:"organizer"`
	Website   json.RawMessage `json:"website"`
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, id, ok := actorAndEvent(w, r, ps)
	if !ok {
		return
	}
	var in patchRequest
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondError(w, err)
		return
	}
	if in.ID != nil || in.Organizer != nil || in.Website != nil {
		utils.RespondError(w, apperr.Validation("Event id, organizer and website cannot be changed"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	ev, err := h.svc.Update(ctx, actor, id, in.EventPatch)
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondSuccess(w, http.StatusOK, "Successfully updated event", ev)
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, id, ok := actorAndEvent(w, r, ps)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.svc.Delete(ctx, actor, id); err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondSuccess(w, http.StatusOK, "Successfully deleted event and linked website", nil)
}

func actorAndEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (actor, id primitive.ObjectID, ok bool) {
	actor, err := utils.ActorID(r)
	if err != nil {
		utils.RespondError(w, err)
		return actor, id, false
	}
	id, err = utils.ParseObjectID(ps.ByName("eventId"), "event id")
	if err != nil {
		utils.RespondError(w, err)
		return actor, id, false
	}
	return actor, id, true
}
