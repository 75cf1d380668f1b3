package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/asientos/internal/model"
	"github.com/cleared-dev/asientos/internal/report"
)

type balanceResp struct {
	Account  string          `json:"account"`
	Period   string          `json:"period"`
	Opening  decimal.Decimal `json:"opening"`
	Movement decimal.Decimal `json:"movement"`
	Closing  decimal.Decimal `json:"closing"`
}

func toBalanceResp(b model.PeriodBalance) balanceResp {
	return balanceResp{
		Account:  b.Account,
		Period:   b.Period.String(),
		Opening:  b.Opening,
		Movement: b.Movement(),
		Closing:  b.Closing,
	}
}

// ListAccounts handles GET /api/accounts.
func (h *Handler) ListAccounts(c *gin.Context) {
	chart, err := h.Accounts.Chart(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": chart.All()})
}

// GetBalance handles GET /api/accounts/:code/balances/:period. The balance
// is derived on the fly and not stored.
func (h *Handler) GetBalance(c *gin.Context) {
	p, err := model.ParsePeriod(c.Param("period"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	b, err := h.Journal.ComputeBalance(c.Request.Context(), c.Param("code"), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toBalanceResp(b))
}

// RecomputeBalance handles POST /api/accounts/:code/balances/:period/recompute.
func (h *Handler) RecomputeBalance(c *gin.Context) {
	p, err := model.ParsePeriod(c.Param("period"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	b, err := h.Journal.RecomputeBalance(c.Request.Context(), c.Param("code"), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toBalanceResp(b))
}

// TrialBalance handles GET /api/reports/trial-balance. Query parameters:
// period (required), level, zero, format=json|xlsx.
func (h *Handler) TrialBalance(c *gin.Context) {
	p, err := model.ParsePeriod(c.Query("period"))
	if err != nil {
		badRequest(c, "period is required: "+err.Error())
		return
	}
	opts := report.Options{IncludeZero: c.Query("zero") == "true"}
	if lv := c.Query("level"); lv != "" {
		opts.MaxLevel, err = strconv.Atoi(lv)
		if err != nil || opts.MaxLevel < 0 {
			badRequest(c, "level must be a non-negative integer")
			return
		}
	}

	ctx := c.Request.Context()
	chart, err := h.Accounts.Chart(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	tb, err := report.BuildTrialBalance(ctx, chart, h.Journal, p, opts)
	if err != nil {
		h.fail(c, err)
		return
	}

	switch c.DefaultQuery("format", "json") {
	case "json":
		c.JSON(http.StatusOK, tb)
	case "xlsx":
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"balance_%s.xlsx\"", tb.Period))
		if err := report.WriteXLSX(c.Writer, tb); err != nil {
			h.Log.Error("writing trial balance workbook", "err", err)
		}
	default:
		badRequest(c, "format must be json or xlsx")
	}
}
