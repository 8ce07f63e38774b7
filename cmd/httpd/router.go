package httpd

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/newswire/newswire/cmd/common"
	"github.com/newswire/newswire/internal/domain"
)

func newRouter(deps *common.Deps) *gin.Engine {
	if !deps.Config.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	h := &handlers{deps: deps}

	router.GET("/healthz", h.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/news/latest", h.latest)
		v1.GET("/news/search", h.search)
		v1.GET("/news/symbol/:symbol", h.symbol)
		v1.GET("/sources", h.sources)
		v1.POST("/collect", h.collect)
	}

	return router
}

type handlers struct {
	deps *common.Deps
}

type articlesResponse struct {
	Count    int               `json:"count"`
	Articles []*domain.Article `json:"articles"`
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) latest(c *gin.Context) {
	articles, err := h.deps.Orchestrator.GetLatestNews(c.Request.Context(), sourceIDs(c), count(c))
	if err != nil {
		h.fail(c, err)

		return
	}

	c.JSON(http.StatusOK, articlesResponse{Count: len(articles), Articles: articles})
}

func (h *handlers) search(c *gin.Context) {
	keyword := c.Query("q")
	if keyword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})

		return
	}

	force := c.Query("force") == "true"

	articles, err := h.deps.Orchestrator.SearchNews(c.Request.Context(), keyword, days(c), sourceIDs(c), count(c), force)
	if err != nil {
		h.fail(c, err)

		return
	}

	c.JSON(http.StatusOK, articlesResponse{Count: len(articles), Articles: articles})
}

func (h *handlers) symbol(c *gin.Context) {
	ticker := strings.ToUpper(c.Param("symbol"))
	force := c.Query("force") == "true"

	articles, err := h.deps.Orchestrator.GetNewsBySymbol(c.Request.Context(), ticker, days(c), sourceIDs(c), count(c), force)
	if err != nil {
		h.fail(c, err)

		return
	}

	c.JSON(http.StatusOK, articlesResponse{Count: len(articles), Articles: articles})
}

type collectRequest struct {
	Keywords []string `json:"keywords"`
	Symbols  []string `json:"symbols"`
	Limit    int      `json:"limit"`
}

func (h *handlers) collect(c *gin.Context) {
	var req collectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})

		return
	}
	if len(req.Keywords) == 0 && len(req.Symbols) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "keywords or symbols required"})

		return
	}

	stats, err := h.deps.Orchestrator.CollectFromAllSources(c.Request.Context(), req.Keywords, req.Symbols, req.Limit)
	if err != nil {
		h.fail(c, err)

		return
	}

	total := 0
	for _, n := range stats {
		total += n
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats, "total": total})
}

func (h *handlers) sources(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sources": h.deps.Registry.IDs()})
}

func (h *handlers) fail(c *gin.Context, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	h.deps.Logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func sourceIDs(c *gin.Context) []string {
	raw := c.Query("sources")
	if raw == "" {
		return nil
	}

	return strings.Split(raw, ",")
}

func count(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("count"))
	if err != nil {
		return 0
	}

	return n
}

func days(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("days"))
	if err != nil {
		return 0
	}

	return n
}
