package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/asientos/internal/id"
	"github.com/cleared-dev/asientos/internal/journal"
	"github.com/cleared-dev/asientos/internal/model"
)

const dateLayout = "2006-01-02"

type lineReq struct {
	Account    string          `json:"account"`
	Debit      decimal.Decimal `json:"debit"`
	Credit     decimal.Decimal `json:"credit"`
	ClientID   string          `json:"client_id"`
	SupplierID string          `json:"supplier_id"`
	Detail     string          `json:"detail"`
	Reference  string          `json:"reference"`
}

type entryReq struct {
	Type       string          `json:"type"`
	Folio      int             `json:"folio"`
	Date       string          `json:"date"`
	Memo       string          `json:"memo"`
	Total      decimal.Decimal `json:"total"`
	ClientID   string          `json:"client_id"`
	SupplierID string          `json:"supplier_id"`
	Journal    string          `json:"journal"`
	Lines      []lineReq       `json:"lines"`
}

type lineResp struct {
	Seq        int             `json:"seq"`
	Account    string          `json:"account"`
	Debit      decimal.Decimal `json:"debit"`
	Credit     decimal.Decimal `json:"credit"`
	ClientID   string          `json:"client_id,omitempty"`
	SupplierID string          `json:"supplier_id,omitempty"`
	Detail     string          `json:"detail,omitempty"`
	Reference  string          `json:"reference,omitempty"`
}

type entryResp struct {
	ID         string            `json:"id"`
	Key        string            `json:"key"`
	Type       string            `json:"type"`
	Folio      int               `json:"folio"`
	Date       string            `json:"date"`
	Memo       string            `json:"memo"`
	Total      decimal.Decimal   `json:"total"`
	Status     model.EntryStatus `json:"status"`
	ClientID   string            `json:"client_id,omitempty"`
	SupplierID string            `json:"supplier_id,omitempty"`
	Journal    string            `json:"journal,omitempty"`
	ReversalOf string            `json:"reversal_of,omitempty"`
	CreatedBy  string            `json:"created_by,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	Lines      []lineResp        `json:"lines"`
}

func (r entryReq) toModel(actor string) (model.EntryHeader, []model.Line, error) {
	h := model.EntryHeader{
		Type:       r.Type,
		Folio:      r.Folio,
		Memo:       r.Memo,
		Total:      r.Total,
		ClientID:   r.ClientID,
		SupplierID: r.SupplierID,
		Journal:    r.Journal,
		CreatedBy:  actor,
	}
	if r.Date != "" {
		d, err := time.Parse(dateLayout, r.Date)
		if err != nil {
			return h, nil, err
		}
		h.Date = d
	}

	lines := make([]model.Line, 0, len(r.Lines))
	for _, l := range r.Lines {
		lines = append(lines, model.Line{
			Account:    l.Account,
			Debit:      l.Debit,
			Credit:     l.Credit,
			ClientID:   l.ClientID,
			SupplierID: l.SupplierID,
			Detail:     l.Detail,
			Reference:  l.Reference,
		})
	}
	return h, lines, nil
}

func toEntryResp(h model.EntryHeader, lines []model.Line) entryResp {
	resp := entryResp{
		ID:         h.ID,
		Key:        id.FormatHeaderKey(h.Type, h.Folio),
		Type:       h.Type,
		Folio:      h.Folio,
		Date:       h.Date.Format(dateLayout),
		Memo:       h.Memo,
		Total:      h.Total,
		Status:     h.Status,
		ClientID:   h.ClientID,
		SupplierID: h.SupplierID,
		Journal:    h.Journal,
		ReversalOf: h.ReversalOf,
		CreatedBy:  h.CreatedBy,
		CreatedAt:  h.CreatedAt,
		Lines:      make([]lineResp, 0, len(lines)),
	}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, lineResp{
			Seq:        l.Seq,
			Account:    l.Account,
			Debit:      l.Debit,
			Credit:     l.Credit,
			ClientID:   l.ClientID,
			SupplierID: l.SupplierID,
			Detail:     l.Detail,
			Reference:  l.Reference,
		})
	}
	return resp
}

func (h *Handler) bindEntry(c *gin.Context) (model.EntryHeader, []model.Line, bool) {
	var req entryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return model.EntryHeader{}, nil, false
	}
	hdr, lines, err := req.toModel(actor(c))
	if err != nil {
		badRequest(c, "date must be YYYY-MM-DD")
		return model.EntryHeader{}, nil, false
	}
	return hdr, lines, true
}

// respondEntry loads ref and writes it with status.
func (h *Handler) respondEntry(c *gin.Context, status int, ref string) {
	hdr, lines, err := h.Journal.Entry(c.Request.Context(), ref)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(status, toEntryResp(hdr, lines))
}

// PostEntry handles POST /api/entries.
func (h *Handler) PostEntry(c *gin.Context) {
	hdr, lines, ok := h.bindEntry(c)
	if !ok {
		return
	}
	hid, err := h.Journal.Post(c.Request.Context(), hdr, lines)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondEntry(c, http.StatusCreated, hid)
}

// ValidateEntry handles POST /api/entries/validate. Nothing is stored.
func (h *Handler) ValidateEntry(c *gin.Context) {
	hdr, lines, ok := h.bindEntry(c)
	if !ok {
		return
	}
	if err := h.Journal.Validate(lines, hdr.Total); err != nil {
		h.fail(c, err)
		return
	}
	debits, credits := journal.Sums(lines)
	c.JSON(http.StatusOK, gin.H{"valid": true, "debits": debits, "credits": credits})
}

// SaveDraft handles POST /api/entries/draft.
func (h *Handler) SaveDraft(c *gin.Context) {
	hdr, lines, ok := h.bindEntry(c)
	if !ok {
		return
	}
	hid, err := h.Journal.SaveDraft(c.Request.Context(), hdr, lines)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondEntry(c, http.StatusCreated, hid)
}

// GetEntry handles GET /api/entries/:ref.
func (h *Handler) GetEntry(c *gin.Context) {
	h.respondEntry(c, http.StatusOK, c.Param("ref"))
}

// RegisterEntry handles POST /api/entries/:ref/register.
func (h *Handler) RegisterEntry(c *gin.Context) {
	ref := c.Param("ref")
	if err := h.Journal.Register(c.Request.Context(), ref, actor(c)); err != nil {
		h.fail(c, err)
		return
	}
	h.respondEntry(c, http.StatusOK, ref)
}

// ReverseEntry handles POST /api/entries/:ref/reverse and returns the
// reversal entry.
func (h *Handler) ReverseEntry(c *gin.Context) {
	rid, err := h.Journal.Reverse(c.Request.Context(), c.Param("ref"), actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondEntry(c, http.StatusCreated, rid)
}
