package websites

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"sort"
	"strconv"
	"time"

	"eventweb/apperr"
	"eventweb/content"
	"eventweb/mailer"
	"eventweb/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	requestTimeout = 10 * time.Second
	// uploads may take longer than plain reads
	uploadTimeout = 60 * time.Second
	// MaxSectionBody caps a section update including its files.
	MaxSectionBody  = 32 << 20
	multipartMemory = 8 << 20
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func actorAndWebsite(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (actor, id primitive.ObjectID, ok bool) {
	actor, err := utils.ActorID(r)
	if err != nil {
		utils.RespondError(w, err)
		return actor, id, false
	}
	id, err = utils.ParseObjectID(ps.ByName("websiteId"), "website id")
	if err != nil {
		utils.RespondError(w, err)
		return actor, id, false
	}
	return actor, id, true
}

func (h *Handler) CreateWebsite(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := utils.ActorID(r)
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	var req CloneRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	site, err := h.svc.Clone(ctx, actor, req)
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondSuccess(w, http.StatusCreated,
		"You have selected the template. Now you can proceed to its customization.",
		map[string]string{"websiteId": site.ID.Hex()})
}

func (h *Handler) GetWebsite(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, id, ok := actorAndWebsite(w, r, ps)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	view, err := h.svc.Get(ctx, actor, id)
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondSuccess(w, http.StatusOK, "Successfully fetched website", view)
}

func (h *Handler) GetSection(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, id, ok := actorAndWebsite(w, r, ps)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sec, err := h.svc.GetSection(ctx, actor, id, ps.ByName("section"))
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondSuccess(w, http.StatusOK, "Successfully fetched section", sec)
}

func (h *Handler) UpdateSection(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, id, ok := actorAndWebsite(w, r, ps)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxSectionBody)
	upd, err := ParseSectionUpdate(r)
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), uploadTimeout)
	defer cancel()

	res, err := h.svc.UpdateSection(ctx, actor, id, ps.ByName("section"), upd)
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondSuccess(w, http.StatusOK, "Successfully updated section", res)
}

func (h *Handler) SaveWebsite(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, id, ok := actorAndWebsite(w, r, ps)
	if !ok {
		return
	}
	var body struct {
		Sections json.RawMessage `json:"sections"`
	}
	if err := utils.DecodeJSON(w, r, &body); err != nil {
		utils.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	site, err := h.svc.SaveAll(ctx, actor, id, body.Sections)
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondSuccess(w, http.StatusOK, "Website updated successfully", site)
}

func (h *Handler) DeleteWebsite(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, id, ok := actorAndWebsite(w, r, ps)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.svc.Delete(ctx, actor, id); err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondSuccess(w, http.StatusOK, "Successfully deleted website", nil)
}

func (h *Handler) PublishWebsite(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, id, ok := actorAndWebsite(w, r, ps)
	if !ok {
		return
	}
	var body struct {
		Subdomain string `json:"subdomain"`
	}
	if err := utils.DecodeJSON(w, r, &body); err != nil {
		utils.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	site, err := h.svc.Publish(ctx, actor, id, body.Subdomain)
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondSuccess(w, http.StatusOK, "Website published successfully", site)
}

func (h *Handler) UnpublishWebsite(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, id, ok := actorAndWebsite(w, r, ps)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.svc.Unpublish(ctx, actor, id); err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondSuccess(w, http.StatusOK, "Website unpublished", nil)
}

func (h *Handler) GetPublicWebsite(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	view, err := h.svc.Public(ctx, ps.ByName("subdomain"))
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondSuccess(w, http.StatusOK, "Successfully fetched website", view)
}

func (h *Handler) GetPublishedWebsites(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := utils.ActorID(r)
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	list, err := h.svc.Published(ctx, actor)
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondSuccess(w, http.StatusOK, "Successfully fetched published websites", list)
}

func (h *Handler) GetQRCode(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, id, ok := actorAndWebsite(w, r, ps)
	if !ok {
		return
	}
	size := 0
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			utils.RespondError(w, apperr.Validation("Invalid size"))
			return
		}
		size = n
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	png, err := h.svc.QRCode(ctx, actor, id, size)
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *Handler) SendEmail(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var form mailer.ContactForm
	if err := utils.DecodeJSON(w, r, &form); err != nil {
		utils.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.svc.SendContact(ctx, form); err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondSuccess(w, http.StatusOK, "Email sent successfully", nil)
}

// ParseSectionUpdate reads a section edit from a multipart form, a urlencoded
// form or a JSON object of flattened paths.
func ParseSectionUpdate(r *http.Request) (SectionUpdate, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return SectionUpdate{}, apperr.Wrap(apperr.KindValidation, "Invalid form data", err)
		}
		upd := fromValues(r.MultipartForm.Value)
		keys := make([]string, 0, len(r.MultipartForm.File))
		for k := range r.MultipartForm.File {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			for _, fh := range r.MultipartForm.File[k] {
				f, err := fh.Open()
				if err != nil {
					return SectionUpdate{}, apperr.Wrap(apperr.KindValidation, "Unreadable file "+fh.Filename, err)
				}
				data, err := io.ReadAll(f)
				f.Close()
				if err != nil {
					return SectionUpdate{}, apperr.Wrap(apperr.KindValidation, "Unreadable file "+fh.Filename, err)
				}
				upd.Files = append(upd.Files, File{Path: k, Data: data})
			}
		}
		return upd, nil
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return SectionUpdate{}, apperr.Wrap(apperr.KindValidation, "Invalid form data", err)
		}
		return fromValues(r.PostForm), nil
	default:
		return fromJSON(r.Body)
	}
}

func fromValues(values map[string][]string) SectionUpdate {
	var upd SectionUpdate
	for k, vals := range values {
		if k == RemovalField {
			if len(vals) > 0 {
				upd.ImagesToRemove = []byte(vals[0])
			}
			continue
		}
		switch len(vals) {
		case 0:
		case 1:
			upd.Fields = append(upd.Fields, Field{Path: k, Value: content.Str(vals[0])})
		default:
			upd.Fields = append(upd.Fields, Field{Path: k, Value: content.StrList(vals...)})
		}
	}
	return upd
}

func fromJSON(body io.Reader) (SectionUpdate, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return SectionUpdate{}, apperr.Wrap(apperr.KindValidation, "Invalid request body", err)
	}
	v, err := content.ParseJSON(data)
	if err != nil {
		return SectionUpdate{}, apperr.Wrap(apperr.KindValidation, "Invalid request body", err)
	}
	if v.Kind() != content.Mapping {
		return SectionUpdate{}, apperr.Validation("Request body must be an object")
	}
	var upd SectionUpdate
	for _, k := range v.Keys() {
		field, _ := v.Lookup(k)
		if k != RemovalField {
			upd.Fields = append(upd.Fields, Field{Path: k, Value: field})
			continue
		}
		switch field.Kind() {
		case content.Null:
		case content.String:
			s, _ := field.AsString()
			upd.ImagesToRemove = []byte(s)
		default:
			raw, err := json.Marshal(field)
			if err != nil {
				return SectionUpdate{}, apperr.Wrap(apperr.KindValidation, "Malformed imagesToRemove", err)
			}
			upd.ImagesToRemove = raw
		}
	}
	return upd, nil
}
