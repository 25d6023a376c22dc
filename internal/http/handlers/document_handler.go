// Document HTTP handlers.
//
//   - POST   /documents              (register a reserved number, idempotent)
//   - GET    /documents              (caller's department, ETag/304)
//   - GET    /documents/my-documents (registered by the caller)
//   - GET    /documents/all          (admin)
//   - GET    /documents/recent       (admin, ?limit=)
//   - GET    /documents/user-stats   (caller's counters)
//   - PUT    /documents/{id}         (admin)
//   - DELETE /documents/{id}         (admin)
package handlers

import (
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-docregistry-backend/internal/services"
	"github.com/tbourn/go-docregistry-backend/internal/utils"
)

// maxRecentLimit caps ?limit= on the recent feed.
const maxRecentLimit = 50

// RegisterDocumentRequest promotes a reservation into a document.
type RegisterDocumentRequest struct {
	Number      string   `json:"number" binding:"required" example:"0042"`
	Title       string   `json:"title" binding:"required" example:"Supply contract"`
	Type        string   `json:"type" binding:"required" example:"IN"`
	Department  string   `json:"department" example:"Finance"`
	Sender      string   `json:"sender" example:"ACME Ltd"`
	Recipient   string   `json:"recipient" example:"Finance"`
	Description string   `json:"description" example:"Signed copy"`
	Attachments []string `json:"attachments"`
}

// UpdateDocumentRequest carries an admin edit. The number cannot change.
type UpdateDocumentRequest struct {
	Title       string `json:"title" binding:"required" example:"Supply contract (amended)"`
	Type        string `json:"type" binding:"required" example:"IN"`
	Department  string `json:"department" example:"Finance"`
	Sender      string `json:"sender"`
	Recipient   string `json:"recipient"`
	Description string `json:"description"`
}

// RegisterDocument godoc
// @ID          registerDocument
// @Summary     Register a document
// @Description Consumes the caller department's reservation of the number.
// @Description Supports Idempotency-Key.
// @Tags        Documents
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key  header  string                            false  "Key for safe retries"
// @Param       body             body    handlers.RegisterDocumentRequest  true   "Document"
// @Success     201  {object}  services.DocumentView
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     403  {object}  handlers.ErrorResponse  "Number reserved by another department"
// @Failure     409  {object}  handlers.ErrorResponse  "Number already registered, or Idempotency-Key in progress"
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /documents [post]
func (h *Handlers) RegisterDocument(c *gin.Context) {
	done, handled := h.beginIdempotent(c)
	if handled {
		return
	}
	defer done()

	var req RegisterDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "number, title and type are required")
		return
	}

	me := caller(c)
	doc, err := h.alloc.RegisterDocument(c.Request.Context(), me, services.RegisterInput{
		Number:      req.Number,
		Title:       req.Title,
		Type:        parseType(req.Type),
		Department:  req.Department,
		Sender:      req.Sender,
		Recipient:   req.Recipient,
		Description: req.Description,
		Attachments: req.Attachments,
	})
	if err != nil {
		failWith(c, err)
		return
	}
	h.audit.LogDocument(c.Request.Context(), me,
		fmt.Sprintf("Registered %s document #%s: %s", doc.Type, doc.Number, doc.Title))

	h.okRemembered(c, http.StatusCreated, doc)
}

// ListDocuments godoc
// @ID          listDocuments
// @Summary     Documents of my department
// @Description Newest first. Answers 304 when If-None-Match matches the weak ETag.
// @Tags        Documents
// @Produce     json
// @Security    BearerAuth
// @Param       If-None-Match  header  string  false  "ETag from a previous response"
// @Success     200  {array}   services.DocumentView
// @Success     304  "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /documents [get]
func (h *Handlers) ListDocuments(c *gin.Context) {
	me := caller(c)
	ctx := c.Request.Context()

	count, last, err := h.docs.Fingerprint(ctx, me.Department)
	if err != nil {
		failWith(c, err)
		return
	}
	var ts int64
	if last != nil {
		ts = last.UTC().UnixNano()
	}
	etag := documentsETag(me.Department, count, ts)
	c.Header("ETag", etag)
	c.Header("Cache-Control", "private, no-cache")
	if ifNoneMatch(c.GetHeader("If-None-Match"), etag) {
		c.Status(http.StatusNotModified)
		return
	}

	docs, err := h.docs.ListDepartment(ctx, me)
	if err != nil {
		failWith(c, err)
		return
	}
	ok(c, http.StatusOK, docs)
}

// documentsETag hashes the department so the tag stays a valid quoted string.
func documentsETag(department string, count, ts int64) string {
	f := fnv.New64a()
	_, _ = f.Write([]byte(department))
	return fmt.Sprintf(`W/"docs-%x-%d-%d"`, f.Sum64(), count, ts)
}

func ifNoneMatch(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, part := range strings.Split(header, ",") {
		p := strings.TrimSpace(part)
		if p == "*" || p == etag || "W/"+p == etag {
			return true
		}
	}
	return false
}

// MyDocuments godoc
// @ID          listMyDocuments
// @Summary     Documents I registered
// @Tags        Documents
// @Produce     json
// @Security    BearerAuth
// @Success     200  {array}   services.DocumentView
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /documents/my-documents [get]
func (h *Handlers) MyDocuments(c *gin.Context) {
	docs, err := h.docs.ListMine(c.Request.Context(), caller(c))
	if err != nil {
		failWith(c, err)
		return
	}
	ok(c, http.StatusOK, docs)
}

// AllDocuments godoc
// @ID          listAllDocuments
// @Summary     All documents
// @Tags        Documents
// @Produce     json
// @Security    BearerAuth
// @Success     200  {array}   services.DocumentView
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /documents/all [get]
func (h *Handlers) AllDocuments(c *gin.Context) {
	docs, err := h.docs.ListAll(c.Request.Context())
	if err != nil {
		failWith(c, err)
		return
	}
	ok(c, http.StatusOK, docs)
}

// RecentDocuments godoc
// @ID          listRecentDocuments
// @Summary     Recently registered documents
// @Tags        Documents
// @Produce     json
// @Security    BearerAuth
// @Param       limit  query     int  false  "Max items (default 5, max 50)"
// @Success     200    {array}   services.DocumentView
// @Failure     401    {object}  handlers.ErrorResponse
// @Failure     403    {object}  handlers.ErrorResponse
// @Failure     500    {object}  handlers.ErrorResponse
// @Router      /documents/recent [get]
func (h *Handlers) RecentDocuments(c *gin.Context) {
	limit := utils.Limit(c.Query("limit"), services.DefaultRecentLimit, maxRecentLimit)
	docs, err := h.docs.Recent(c.Request.Context(), limit)
	if err != nil {
		failWith(c, err)
		return
	}
	ok(c, http.StatusOK, docs)
}

// UserStats godoc
// @ID          userStats
// @Summary     My registry counters
// @Tags        Documents
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  services.UserStats
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /documents/user-stats [get]
func (h *Handlers) UserStats(c *gin.Context) {
	st, err := h.docs.Stats(c.Request.Context(), caller(c))
	if err != nil {
		failWith(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}

// UpdateDocument godoc
// @ID          updateDocument
// @Summary     Edit a document
// @Tags        Documents
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                          true  "Document ID"
// @Param       body  body      handlers.UpdateDocumentRequest  true  "New values"
// @Success     200   {object}  services.DocumentView
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     403   {object}  handlers.ErrorResponse
// @Failure     404   {object}  handlers.ErrorResponse
// @Failure     500   {object}  handlers.ErrorResponse
// @Router      /documents/{id} [put]
func (h *Handlers) UpdateDocument(c *gin.Context) {
	var req UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title and type are required")
		return
	}
	doc, err := h.docs.Update(c.Request.Context(), c.Param("id"), services.DocumentUpdate{
		Title:       req.Title,
		Type:        parseType(req.Type),
		Department:  req.Department,
		Sender:      req.Sender,
		Recipient:   req.Recipient,
		Description: req.Description,
	})
	if err != nil {
		failWith(c, err)
		return
	}
	h.audit.LogDocument(c.Request.Context(), caller(c), fmt.Sprintf("Updated document #%s", doc.Number))
	ok(c, http.StatusOK, doc)
}

// DeleteDocument godoc
// @ID          deleteDocument
// @Summary     Delete a document
// @Tags        Documents
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Document ID"
// @Success     200  {object}  handlers.MessageResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /documents/{id} [delete]
func (h *Handlers) DeleteDocument(c *gin.Context) {
	doc, err := h.docs.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		failWith(c, err)
		return
	}
	h.audit.LogDocument(c.Request.Context(), caller(c), fmt.Sprintf("Deleted document #%s", doc.Number))
	ok(c, http.StatusOK, MessageResponse{Message: "Document deleted successfully"})
}
