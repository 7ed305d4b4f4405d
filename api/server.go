// Package api is the thin HTTP surface over the trading service. Every
// trade goes through trading.Service.SubmitTrade.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rustyeddy/propfirm/challenge"
	"github.com/rustyeddy/propfirm/pricing"
	"github.com/rustyeddy/propfirm/trading"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"
)

type Handler struct {
	svc    *trading.Service
	prices pricing.Resolver
}

func NewHandler(svc *trading.Service, prices pricing.Resolver) *Handler {
	return &Handler{svc: svc, prices: prices}
}

// NewRouter registers every route on a fresh gin engine.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLog())

	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		api.GET("/price/:symbol", h.Price)

		challenges := api.Group("/challenges")
		{
			challenges.POST("", h.CreateChallenge)
			challenges.GET("/:id", h.GetChallenge)
			challenges.POST("/:id/activate", h.Activate)
			challenges.GET("/:id/trades", h.ListTrades)
			challenges.POST("/:id/verify", h.Verify)
			challenges.POST("/:id/unblock", h.Unblock)
		}

		api.POST("/trades/execute", h.ExecuteTrade)
	}
	return r
}

func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Writer.Status() >= http.StatusInternalServerError {
			logs.Errorf("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
		}
	}
}

// Serve runs the router on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, r http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logs.Infof("propfirm api listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logs.Info("propfirm api shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// StatusFor maps a rejection code to an HTTP status.
func StatusFor(code challenge.Code) int {
	switch code {
	case challenge.CodeNotActive:
		return http.StatusForbidden
	case challenge.CodeNotFound:
		return http.StatusNotFound
	case challenge.CodeIntegrity:
		return http.StatusConflict
	case challenge.CodeInsufficientFunds:
		return http.StatusUnprocessableEntity
	case challenge.CodePriceUnavailable, challenge.CodeLockTimeout, challenge.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	case challenge.CodeInvalidTradeType, challenge.CodeInvalidVolume, challenge.CodeInvalidPlan, challenge.CodeInvalidChallenge:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	out := trading.Outcome(trading.TradeResult{}, err)
	c.JSON(StatusFor(out.ErrorCode), gin.H{
		"errorCode": out.ErrorCode,
		"message":   out.Message,
	})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"errorCode": "BAD_REQUEST", "message": msg})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "propfirm",
	})
}

func (h *Handler) Price(c *gin.Context) {
	sym, err := pricing.NormalizeSymbol(c.Param("symbol"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	p, err := h.prices.Resolve(c.Request.Context(), sym)
	if err != nil {
		writeError(c, challenge.Reject(challenge.CodePriceUnavailable, "%v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": sym, "price": p})
}

type createChallengeRequest struct {
	UserID   string `json:"userId"`
	Plan     string `json:"plan"`
	Activate bool   `json:"activate"`
}

func (h *Handler) CreateChallenge(c *gin.Context) {
	var req createChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	ch, err := h.svc.CreateChallenge(c.Request.Context(), req.UserID, req.Plan, req.Activate)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"challenge": ch})
}

func (h *Handler) GetChallenge(c *gin.Context) {
	ch, err := h.svc.Challenge(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"challenge": ch})
}

func (h *Handler) Activate(c *gin.Context) {
	ch, err := h.svc.Activate(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"challenge": ch})
}

func (h *Handler) ListTrades(c *gin.Context) {
	trades, err := h.svc.Trades(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if trades == nil {
		trades = []challenge.Trade{}
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades, "count": len(trades)})
}

func (h *Handler) Verify(c *gin.Context) {
	report, err := h.svc.Verify(c.Request.Context(), c.Param("id"))
	body := gin.H{
		"challengeId":   report.ChallengeID,
		"match":         report.Match,
		"stored":        report.Stored,
		"reconstructed": report.Reconstructed,
		"diff":          report.Diff,
		"trades":        report.Trades,
		"divergences":   report.Divergences,
	}
	if err != nil {
		code, _ := challenge.CodeOf(err)
		body["errorCode"] = code
		body["message"] = err.Error()
		c.JSON(StatusFor(code), body)
		return
	}
	c.JSON(http.StatusOK, body)
}

// Unblock is the operator's release of an integrity block, after the
// ledger has been inspected. The next access re-hydrates from the store
// and is verified again.
func (h *Handler) Unblock(c *gin.Context) {
	chID := c.Param("id")
	if !h.svc.Blocked(chID) {
		writeError(c, challenge.Reject(challenge.CodeNotFound, "challenge %s is not blocked", chID))
		return
	}
	h.svc.Unblock(chID)
	c.JSON(http.StatusOK, gin.H{"challengeId": chID, "blocked": false})
}

// executeRequest accepts the legacy field names type and volume. A client
// price, if sent, is not even decoded.
type executeRequest struct {
	ChallengeID string `json:"challengeId"`
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	Size        any    `json:"size"`
	Volume      any    `json:"volume"`
}

func (h *Handler) ExecuteTrade(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}

	side := req.Side
	if side == "" {
		side = req.Type
	}
	size, ok := sizeString(req.Size)
	if !ok {
		size, _ = sizeString(req.Volume)
	}
	// Everything else is left to SubmitTrade so its precondition order holds.
	if strings.TrimSpace(req.ChallengeID) == "" {
		badRequest(c, "challengeId is required")
		return
	}

	res, err := h.svc.SubmitTrade(c.Request.Context(), trading.TradeRequest{
		ChallengeID: req.ChallengeID,
		Symbol:      req.Symbol,
		Side:        side,
		Size:        size,
	})
	out := trading.Outcome(res, err)
	if !out.OK() {
		c.JSON(StatusFor(out.ErrorCode), out)
		return
	}
	c.JSON(http.StatusOK, out)
}

// sizeString accepts a JSON number or a numeric string.
func sizeString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, x != ""
	case float64:
		return decimal.NewFromFloat(x).String(), true
	}
	return "", false
}
