package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strconv"

	"duunihaku/services/search/internal/errors"
	"duunihaku/services/search/internal/models"
	"duunihaku/services/search/internal/render"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed templates/index.html
var templateFS embed.FS

func parseIndexTemplate() (*template.Template, error) {
	return template.New("index.html").Funcs(template.FuncMap{
		// Same markup the load-more controller appends.
		"cards": func(listings []models.Listing) template.HTML {
			return template.HTML(render.Cards(listings))
		},
	}).ParseFS(templateFS, "templates/index.html")
}

type indexData struct {
	Query    models.Query
	Jobs     []models.Listing
	HasNext  bool
	NextPage int
	Error    string
}

// parseQuery reads haku, alue and page. A missing page is 1.
func parseQuery(c *gin.Context) (models.Query, error) {
	query := models.Query{
		Haku: c.Query("haku"),
		Alue: c.Query("alue"),
		Page: 1,
	}
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return query, errors.InvalidInput("page must be a positive integer", err)
		}
		query.Page = page
	}
	return query, nil
}

func (s *Server) handleLoadMore(c *gin.Context) {
	query, err := parseQuery(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	page, err := s.searcher.Search(c.Request.Context(), query)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if page.Jobs == nil {
		page.Jobs = []models.Listing{}
	}

	c.JSON(http.StatusOK, page)
}

func (s *Server) handleIndex(c *gin.Context) {
	query, err := parseQuery(c)
	if err != nil {
		s.renderIndex(c, errors.HTTPStatus(err), indexData{Query: query, Error: "Virheellinen sivunumero."})
		return
	}

	page, err := s.searcher.Search(c.Request.Context(), query)
	if err != nil {
		s.logger.Error("index search failed", zap.Error(err))
		s.renderIndex(c, errors.HTTPStatus(err), indexData{Query: query, Error: "Haku epäonnistui. Yritä myöhemmin uudelleen."})
		return
	}

	s.renderIndex(c, http.StatusOK, indexData{
		Query:    query,
		Jobs:     page.Jobs,
		HasNext:  page.HasNext,
		NextPage: query.Page + 1,
	})
}

func (s *Server) renderIndex(c *gin.Context, status int, data indexData) {
	var buf bytes.Buffer
	if err := s.index.Execute(&buf, data); err != nil {
		s.logger.Error("rendering index failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "internal error")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.JSON(status, gin.H{
		"error": string(errors.TypeOf(err)),
	})
}
