package main

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"faktur/models"
	"faktur/pkg/gate"
	"faktur/pkg/mailer"
	"faktur/pkg/qr"
	"faktur/pkg/store"
	"faktur/pkg/view"
)

const (
	maxLogoSize    = 2 << 20 // 2 MB
	maxLogoWidth   = 512
	viewCookieName = "view_token"
)

// app wires the handlers to their collaborators. Everything is injected so
// tests can run against the in-memory store and a fake mail sender.
type app struct {
	cfg    Config
	store  store.Store
	mail   mailer.Sender
	render *view.Renderer
	gate   *gate.Gate
}

func (a *app) setupRoutes(r *gin.Engine) {
	r.GET("/invoices", a.listInvoicesHandler)
	r.POST("/invoices", a.createInvoiceHandler)
	r.GET("/invoices/number/:number", a.findByNumberHandler)
	r.GET("/invoices/:id", a.getInvoiceHandler)
	r.PUT("/invoices/:id", a.updateInvoiceHandler)
	r.DELETE("/invoices/:id", a.deleteInvoiceHandler)
	r.POST("/invoices/:id/items", a.addLineItemHandler)
	r.PUT("/invoices/:id/items/:itemId", a.updateLineItemHandler)
	r.DELETE("/invoices/:id/items/:itemId", a.deleteLineItemHandler)
	r.POST("/invoices/:id/logo", a.uploadLogoHandler)
	r.POST("/invoices/:id/send", a.sendInvoiceHandler)
	r.GET("/invoices/:id/qr", a.qrHandler)
	r.GET("/view/:id", a.publicViewHandler)
	r.POST("/view/:id/unlock", a.unlockHandler)
}

type lineItemRequest struct {
	Description string `json:"description" binding:"required"`
	Quantity    int    `json:"quantity"`
	Rate        string `json:"rate" binding:"required"`
}

type createInvoiceRequest struct {
	InvoiceNumber string `json:"invoiceNumber"`

	CompanyName    string `json:"companyName" binding:"required"`
	CompanyEmail   string `json:"companyEmail" binding:"required,email"`
	CompanyPhone   string `json:"companyPhone"`
	CompanyWebsite string `json:"companyWebsite"`
	CompanyAddress string `json:"companyAddress"`

	ClientName    string `json:"clientName" binding:"required"`
	ClientEmail   string `json:"clientEmail" binding:"required,email"`
	ClientCompany string `json:"clientCompany"`
	ClientPhone   string `json:"clientPhone"`
	ClientAddress string `json:"clientAddress"`

	InvoiceDate string `json:"invoiceDate" binding:"required"`
	DueDate     string `json:"dueDate"`
	Notes       string `json:"notes"`

	IsHosted            bool   `json:"isHosted"`
	IsPasswordProtected bool   `json:"isPasswordProtected"`
	Password            string `json:"password"`

	LineItems []lineItemRequest `json:"lineItems" binding:"dive"`
}

// fieldErrors turns a binding failure into a field-keyed error map.
func fieldErrors(err error) gin.H {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := map[string]string{}
		for _, fe := range verrs {
			name := fe.Field()
			if name != "" {
				name = strings.ToLower(name[:1]) + name[1:]
			}
			switch fe.Tag() {
			case "required":
				fields[name] = "required"
			case "email":
				fields[name] = "must be a valid email address"
			default:
				fields[name] = "invalid value"
			}
		}
		return gin.H{"errors": fields}
	}
	return gin.H{"error": err.Error()}
}

// respondStoreError maps store errors onto the HTTP surface.
func respondStoreError(c *gin.Context, err error) {
	var verr *store.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"errors": verr.Fields})
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func (a *app) listInvoicesHandler(c *gin.Context) {
	invs, err := a.store.List()
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, invs)
}

func (a *app) getInvoiceHandler(c *gin.Context) {
	inv, err := a.store.Get(c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (a *app) findByNumberHandler(c *gin.Context) {
	inv, err := a.store.FindByNumber(c.Param("number"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (a *app) createInvoiceHandler(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, fieldErrors(err))
		return
	}
	inv := models.Invoice{
		InvoiceNumber:       req.InvoiceNumber,
		CompanyName:         req.CompanyName,
		CompanyEmail:        req.CompanyEmail,
		CompanyPhone:        req.CompanyPhone,
		CompanyWebsite:      req.CompanyWebsite,
		CompanyAddress:      req.CompanyAddress,
		ClientName:          req.ClientName,
		ClientEmail:         req.ClientEmail,
		ClientCompany:       req.ClientCompany,
		ClientPhone:         req.ClientPhone,
		ClientAddress:       req.ClientAddress,
		InvoiceDate:         req.InvoiceDate,
		DueDate:             req.DueDate,
		Notes:               req.Notes,
		IsHosted:            req.IsHosted,
		IsPasswordProtected: req.IsPasswordProtected,
		Password:            req.Password,
	}
	for _, li := range req.LineItems {
		inv.LineItems = append(inv.LineItems, models.LineItem{
			Description: li.Description,
			Quantity:    li.Quantity,
			Rate:        li.Rate,
		})
	}
	created, err := a.store.Create(&inv)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (a *app) updateInvoiceHandler(c *gin.Context) {
	var patch store.InvoicePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, fieldErrors(err))
		return
	}
	inv, err := a.store.Update(c.Param("id"), patch)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (a *app) deleteInvoiceHandler(c *gin.Context) {
	existed, err := a.store.Delete(c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	if !existed {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *app) addLineItemHandler(c *gin.Context) {
	var req lineItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, fieldErrors(err))
		return
	}
	inv, err := a.store.AddLineItem(c.Param("id"), models.LineItem{
		Description: req.Description,
		Quantity:    req.Quantity,
		Rate:        req.Rate,
	})
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (a *app) updateLineItemHandler(c *gin.Context) {
	var patch store.LineItemPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, fieldErrors(err))
		return
	}
	inv, err := a.store.UpdateLineItem(c.Param("id"), c.Param("itemId"), patch)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (a *app) deleteLineItemHandler(c *gin.Context) {
	inv, err := a.store.DeleteLineItem(c.Param("id"), c.Param("itemId"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// uploadLogoHandler accepts a company logo image (max 2 MB), normalizes it to
// a bounded-width PNG and stores it on the invoice as a data URI.
func (a *app) uploadLogoHandler(c *gin.Context) {
	if _, err := a.store.Get(c.Param("id")); err != nil {
		respondStoreError(c, err)
		return
	}
	file, err := c.FormFile("logo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": gin.H{"logo": "file missing"}})
		return
	}
	if file.Size > maxLogoSize {
		c.JSON(http.StatusBadRequest, gin.H{"errors": gin.H{"logo": "file too large (max 2MB)"}})
		return
	}
	if ct := file.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"errors": gin.H{"logo": "only image uploads are accepted"}})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "open upload failed"})
		return
	}
	defer f.Close()
	img, err := imaging.Decode(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": gin.H{"logo": "not a decodable image"}})
		return
	}
	if img.Bounds().Dx() > maxLogoWidth {
		img = imaging.Resize(img, maxLogoWidth, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "re-encode failed"})
		return
	}
	dataURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	inv, err := a.store.Update(c.Param("id"), store.InvoicePatch{CompanyLogo: &dataURI})
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

type sendInvoiceRequest struct {
	To      string `json:"to" binding:"required,email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// sendInvoiceHandler emails the rendered invoice. Only a successful delivery
// moves the status to sent; on failure the invoice is left untouched.
func (a *app) sendInvoiceHandler(c *gin.Context) {
	var req sendInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, fieldErrors(err))
		return
	}
	inv, err := a.store.Get(c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	var html bytes.Buffer
	if err := a.render.Render(&html, "invoice.html", inv); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "render failed"})
		return
	}
	subject := req.Subject
	if subject == "" {
		subject = fmt.Sprintf("Invoice %s from %s", inv.InvoiceNumber, inv.CompanyName)
	}
	body := req.Message
	if inv.IsHosted && inv.HostedURL != "" {
		body = strings.TrimSpace(body + "\n\nView this invoice online: " + inv.HostedURL)
	}
	if err := a.mail.Send(mailer.Message{To: req.To, Subject: subject, Body: body, HTML: html.String()}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delivery failed"})
		return
	}
	sent := models.StatusSent
	inv, err = a.store.Update(inv.ID, store.InvoicePatch{Status: &sent})
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "invoice sent", "invoice": inv})
}

// qrHandler returns a PNG QR code linking to the hosted view.
func (a *app) qrHandler(c *gin.Context) {
	inv, err := a.store.Get(c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	if !inv.IsHosted || inv.HostedURL == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "invoice is not hosted"})
		return
	}
	png, err := qr.Encode(inv.HostedURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "qr generation failed"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

type lockedPage struct {
	ID    string
	Error string
}

// publicViewHandler renders the hosted invoice, or the lock prompt while the
// gate is Locked.
func (a *app) publicViewHandler(c *gin.Context) {
	inv, err := a.store.Get(c.Param("id"))
	if err != nil || !inv.IsHosted {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	token, _ := c.Cookie(viewCookieName)
	if a.gate.StateFor(inv, token) == gate.Locked {
		a.renderHTML(c, http.StatusUnauthorized, "locked.html", lockedPage{ID: inv.ID})
		return
	}
	a.renderHTML(c, http.StatusOK, "invoice.html", inv)
}

// unlockHandler checks the submitted password and plants the unlock cookie.
func (a *app) unlockHandler(c *gin.Context) {
	inv, err := a.store.Get(c.Param("id"))
	if err != nil || !inv.IsHosted {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	password := c.PostForm("password")
	token, err := a.gate.Unlock(inv, password)
	if err != nil {
		a.renderHTML(c, http.StatusUnauthorized, "locked.html", lockedPage{ID: inv.ID, Error: "Wrong password, try again."})
		return
	}
	if token != "" {
		c.SetCookie(viewCookieName, token, int(a.cfg.ViewTokenTTL.Seconds()), "/view/"+inv.ID, "", false, true)
	}
	c.Redirect(http.StatusSeeOther, "/view/"+inv.ID)
}

func (a *app) renderHTML(c *gin.Context, code int, name string, data any) {
	var buf bytes.Buffer
	if err := a.render.Render(&buf, name, data); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "render failed"})
		return
	}
	c.Data(code, "text/html; charset=utf-8", buf.Bytes())
}
