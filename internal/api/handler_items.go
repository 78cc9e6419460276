package api

import (
	"errors"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"asset-tracker-backend/internal/item"
	"asset-tracker-backend/internal/model"
	"asset-tracker-backend/internal/mw"
	"asset-tracker-backend/internal/store"
)

// Form fields with their own handling; everything else is a scalar field.
const (
	fieldExistingPhotos = "existingPhotos"
	fieldPhotos         = "photos"
	fieldUserID         = "userId"
	fieldID             = "id"
)

// itemForm is the decoded multipart body of an item create or update.
type itemForm struct {
	fields         map[string]string
	existingPhotos []string
	maintenance    []byte
	loans          []byte
	files          []*multipart.FileHeader
}

// readItemForm parses the body with the engine's multipart memory limit, the
// same one current-user resolution uses when it reads the userId field.
func readItemForm(c *gin.Context) (*itemForm, error) {
	_, err := c.MultipartForm()
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, err
	}

	values := c.Request.PostForm
	if values == nil {
		values = url.Values{}
	}

	form := &itemForm{fields: make(map[string]string, len(values))}
	for key, vs := range values {
		if len(vs) == 0 {
			continue
		}
		switch key {
		case fieldExistingPhotos, fieldExistingPhotos + "[]":
			form.existingPhotos = append(form.existingPhotos, vs...)
		case string(item.Maintenance):
			form.maintenance = []byte(vs[0])
		case string(item.Loans):
			form.loans = []byte(vs[0])
		case fieldUserID:
		default:
			form.fields[key] = vs[0]
		}
	}
	if c.Request.MultipartForm != nil {
		form.files = c.Request.MultipartForm.File[fieldPhotos]
	}
	return form, nil
}

// storePhotos saves every uploaded file and returns their public paths.
func (h *Handler) storePhotos(files []*multipart.FileHeader) ([]string, error) {
	paths := make([]string, 0, len(files))
	for _, fh := range files {
		p, err := h.photos.Save(fh)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// ListItems returns every item with both histories.
func (h *Handler) ListItems(c *gin.Context) {
	items, err := h.items.List(c.Request.Context(), store.ItemFilter{
		Category:      c.Query("category"),
		MachineStatus: c.Query("status"),
		Query:         c.Query("q"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) GetItem(c *gin.Context) {
	it, err := h.items.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

// CreateItem handles the multipart create form.
func (h *Handler) CreateItem(c *gin.Context) {
	form, err := readItemForm(c)
	if err != nil {
		badRequest(c, "invalid form: "+err.Error())
		return
	}
	paths, err := h.storePhotos(form.files)
	if err != nil {
		h.respondError(c, err)
		return
	}

	id := form.fields[fieldID]
	delete(form.fields, fieldID)

	created, err := h.items.Create(c.Request.Context(), mw.Actor(c), item.CreateRequest{
		ID:                 id,
		Fields:             form.fields,
		NewPhotos:          paths,
		MaintenanceRecords: form.maintenance,
		LoanRecords:        form.loans,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateItem handles the multipart edit form. Only the fields sent are changed.
func (h *Handler) UpdateItem(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.items.Get(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	form, err := readItemForm(c)
	if err != nil {
		badRequest(c, "invalid form: "+err.Error())
		return
	}
	paths, err := h.storePhotos(form.files)
	if err != nil {
		h.respondError(c, err)
		return
	}
	delete(form.fields, fieldID)

	updated, err := h.items.Update(c.Request.Context(), mw.Actor(c), id, item.UpdateRequest{
		Fields:             form.fields,
		ExistingPhotos:     form.existingPhotos,
		NewPhotos:          paths,
		MaintenanceRecords: form.maintenance,
		LoanRecords:        form.loans,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteItem(c *gin.Context) {
	if err := h.items.Delete(c.Request.Context(), mw.Actor(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddMaintenance appends one maintenance record from a JSON body.
func (h *Handler) AddMaintenance(c *gin.Context) {
	var record model.MaintenanceRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		badRequest(c, err.Error())
		return
	}
	created, err := h.items.AddMaintenance(c.Request.Context(), mw.Actor(c), c.Param("id"), record)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// AddLoan appends one loan record from a JSON body.
func (h *Handler) AddLoan(c *gin.Context) {
	var record model.LoanRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		badRequest(c, err.Error())
		return
	}
	created, err := h.items.AddLoan(c.Request.Context(), mw.Actor(c), c.Param("id"), record)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ReplaceMaintenance swaps the maintenance history for the JSON array body.
func (h *Handler) ReplaceMaintenance(c *gin.Context) {
	h.replaceRecords(c, item.Maintenance)
}

// ReplaceLoans swaps the loan history for the JSON array body.
func (h *Handler) ReplaceLoans(c *gin.Context) {
	h.replaceRecords(c, item.Loans)
}

func (h *Handler) replaceRecords(c *gin.Context, kind item.RecordKind) {
	raw, err := c.GetRawData()
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	updated, err := h.items.ReplaceRecords(c.Request.Context(), mw.Actor(c), c.Param("id"), kind, raw)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
