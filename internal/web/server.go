package web

import (
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KaramelBytes/datacopilot/internal/dataset"
	"github.com/KaramelBytes/datacopilot/internal/session"
)

const (
	EndPointPage     = "/"
	EndPointUpload   = "/upload"
	EndPointAsk      = "/ask"
	EndPointDownload = "/download"
	EndPointHealth   = "/healthz"
	EndPointMetrics  = "/metrics"

	// DownloadName is the fixed file name of the exported dataset.
	DownloadName = "your_data.csv"

	maxUploadBytes = 64 << 20
)

//go:embed templates/page.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("page.html").Funcs(template.FuncMap{
	"dataURI": func(b []byte) template.URL {
		return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(b))
	},
}).ParseFS(templateFS, "templates/page.html"))

// Handlers serves the session surface for one Session.
type Handlers struct {
	sess      *session.Session
	logger    log.Interface
	maxUpload int64
}

func NewHandlers(sess *session.Session, logger log.Interface) *Handlers {
	if logger == nil {
		logger = log.Log
	}
	return &Handlers{sess: sess, logger: logger, maxUpload: maxUploadBytes}
}

// NewRouter wires the page, form actions, download, health and metrics routes.
func NewRouter(h *Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	router.Use(requestLogger(h.logger))
	router.SetHTMLTemplate(pageTemplate)
	router.MaxMultipartMemory = maxUploadBytes

	router.GET(EndPointPage, h.Page)
	router.POST(EndPointUpload, h.Upload)
	router.POST(EndPointAsk, h.Ask)
	router.GET(EndPointDownload, h.Download)
	router.GET(EndPointHealth, h.Health)
	router.GET(EndPointMetrics, gin.WrapH(promhttp.Handler()))
	return router
}

// Page renders the full state on every request.
func (h *Handlers) Page(c *gin.Context) {
	c.HTML(http.StatusOK, "page.html", h.sess.View())
}

func (h *Handlers) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		h.logger.WithError(err).Debug("upload without file")
		c.Redirect(http.StatusSeeOther, EndPointPage)
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.logger.WithError(err).Error("open uploaded file")
		c.Redirect(http.StatusSeeOther, EndPointPage)
		return
	}
	defer f.Close()
	// One byte past the limit tells an oversized file from one that fits.
	data, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
	if err != nil {
		h.logger.WithError(err).Error("read uploaded file")
		c.Redirect(http.StatusSeeOther, EndPointPage)
		return
	}
	if int64(len(data)) > h.maxUpload {
		h.sess.Reject(fh.Filename, fmt.Errorf("%w (%d bytes)", dataset.ErrTooLarge, h.maxUpload))
		c.Redirect(http.StatusSeeOther, EndPointPage)
		return
	}
	// Parse failures are reported through the session notice.
	_ = h.sess.Upload(fh.Filename, data)
	c.Redirect(http.StatusSeeOther, EndPointPage)
}

func (h *Handlers) Ask(c *gin.Context) {
	_, _, _ = h.sess.Ask(c.Request.Context(), c.PostForm("question"))
	c.Redirect(http.StatusSeeOther, EndPointPage)
}

func (h *Handlers) Download(c *gin.Context) {
	b, err := h.sess.Export()
	if errors.Is(err, dataset.ErrNoDataset) {
		c.String(http.StatusNotFound, "no dataset uploaded")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("export dataset")
		c.String(http.StatusInternalServerError, "export failed")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+DownloadName+`"`)
	c.Data(http.StatusOK, "text/csv", b)
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"service":     "datacopilot",
		"has_dataset": h.sess.Dataset() != nil,
	})
}

func requestLogger(logger log.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).Round(time.Millisecond).String(),
		}).Debug("request")
	}
}
