package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/aquilax/cmsnode/database"
	"github.com/aquilax/cmsnode/node"
	"github.com/gorilla/feeds"
	"github.com/gorilla/mux"
	"github.com/sourcegraph/sitemap"
	"go.uber.org/zap"
)

const feedSize = 20

type Engine struct {
	config  *Config
	m       *Model
	tp      *TransPool
	th      *Throttle
	logger  *zap.Logger
	metrics *Metrics
}

type appHandler func(http.ResponseWriter, *http.Request) error

func NewEngine(config *Config, db database.Database, logger *zap.Logger, metrics *Metrics) *Engine {
	return &Engine{
		config:  config,
		m:       NewModel(db),
		tp:      NewTransPool(config.Translations),
		th:      NewThrottle(config.WriteCooldown),
		logger:  logger,
		metrics: metrics,
	}
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("GO_ENV") != "" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func listenAddress(c *Config) string {
	port := os.Getenv("PORT")
	if port == "" {
		return c.Server
	}
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

// Run loads the configuration, opens the database and serves HTTP until
// interrupted.
func Run(args []string) error {
	config := NewConfig()
	if err := config.Load(args); err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := NewMetrics("cmsnode")
	db, err := openDatabase(ctx, config, metrics)
	if err != nil {
		return err
	}
	defer db.Close()

	e := NewEngine(config, db, logger, metrics)
	if err := e.tp.Load(config.Language); err != nil {
		logger.Warn("Failed to load translations", zap.String("language", config.Language), zap.Error(err))
	}

	srv := &http.Server{
		Addr:              listenAddress(config),
		Handler:           e.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			zap.String("address", srv.Addr),
			zap.String("database", config.Database),
			zap.Bool("cache", config.Cache),
		)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (e *Engine) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(RequestID, Instrument(e.logger, e.metrics))

	r.Handle("/", appHandler(e.indexHandler)).Methods("GET")
	r.Handle("/sitemap.xml", appHandler(e.sitemapHandler)).Methods("GET")
	r.Handle("/metrics", e.metrics.Handler()).Methods("GET")

	r.Handle("/folders", appHandler(e.foldersHandler)).Methods("GET")
	r.Handle("/folders", appHandler(e.addFolderHandler)).Methods("POST")
	r.Handle("/folders/{folderID:[0-9]+}", appHandler(e.folderHandler)).Methods("GET")
	r.Handle("/folders/{folderID:[0-9]+}/nodes", appHandler(e.folderNodesHandler)).Methods("GET")
	r.Handle("/folders/{folderID:[0-9]+}/feed.xml", appHandler(e.feedHandler)).Methods("GET")

	r.Handle("/blocks", appHandler(e.addBlockHandler)).Methods("POST")
	r.Handle("/blocks/{blockID:[0-9]+}", appHandler(e.blockHandler)).Methods("GET")
	r.Handle("/blocks/{blockID:[0-9]+}/nodes", appHandler(e.blockNodesHandler)).Methods("GET")

	r.Handle("/nodes", appHandler(e.addNodeHandler)).Methods("POST")
	r.Handle("/nodes/{nodeID:[0-9]+}", appHandler(e.nodeHandler)).Methods("GET")
	r.Handle("/nodes/{nodeID:[0-9]+}", appHandler(e.editNodeHandler)).Methods("POST")
	r.Handle("/nodes/{nodeID:[0-9]+}", appHandler(e.deleteNodeHandler)).Methods("DELETE")
	r.Handle("/nodes/{nodeID:[0-9]+}/controller", appHandler(e.controllerHandler)).Methods("GET")
	r.Handle("/nodes/{nodeID:[0-9]+}/snapshot", appHandler(e.snapshotHandler)).Methods("GET")
	return r
}

func (fn appHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := fn(w, r); err != nil {
		status, body := statusFor(err)
		if status >= http.StatusInternalServerError {
			zap.L().Error("Request failed",
				zap.String("path", r.URL.Path),
				zap.String("requestID", requestID(r.Context())),
				zap.Error(err),
			)
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}
}

func (e *Engine) session() *Session {
	return NewSession(e.config, e.tp.Get(e.config.Language))
}

func baseURL(r *http.Request) string {
	if r.TLS != nil {
		return "https://" + r.Host
	}
	return "http://" + r.Host
}

func (e *Engine) indexHandler(w http.ResponseWriter, r *http.Request) error {
	s := e.session()
	s.Set("description", e.config.Description)
	s.Set("language", e.config.Language)
	s.Set("links", map[string]string{
		"folders": "/folders",
		"sitemap": "/sitemap.xml",
		"metrics": "/metrics",
	})
	return s.render(w, http.StatusOK)
}

func (e *Engine) foldersHandler(w http.ResponseWriter, r *http.Request) error {
	fl, err := e.m.db.GetFolders(r.Context())
	if err != nil {
		return err
	}
	if fl == nil {
		fl = []node.FolderRecord{}
	}
	s := e.session()
	s.Set("folders", fl)
	return s.render(w, http.StatusOK)
}

func (e *Engine) addFolderHandler(w http.ResponseWriter, r *http.Request) error {
	s := e.session()
	if err := r.ParseForm(); err != nil {
		return badRequest(s.Lang("Invalid form"), err)
	}
	f := &node.FolderRecord{
		Title:    strings.TrimSpace(r.PostFormValue("title")),
		URIPart:  strings.TrimSpace(r.PostFormValue("uri_part")),
		IsActive: true,
	}
	if f.Title == "" {
		return badRequest(s.Lang("Title is required"), nil)
	}
	if v := r.PostFormValue("parent_id"); v != "" {
		parentID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return badRequest(s.Lang("Invalid parent folder"), err)
		}
		f.ParentID = parentID
	}
	if v := r.PostFormValue("is_active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest(s.Lang("Invalid active flag"), err)
		}
		f.IsActive = active
	}
	f.URIPart = f.Slug()
	if _, err := e.m.db.AddFolder(r.Context(), f); err != nil {
		return err
	}
	s.Set("folder", f)
	return s.render(w, http.StatusCreated)
}

func (e *Engine) folderHandler(w http.ResponseWriter, r *http.Request) error {
	folderID, err := parseID(mux.Vars(r)["folderID"])
	if err != nil {
		return err
	}
	f, err := e.m.getFolder(r.Context(), folderID)
	if err != nil {
		return err
	}
	total, err := e.m.db.GetTotalFolderNodes(r.Context(), folderID)
	if err != nil {
		return err
	}
	s := e.session()
	s.Set("folder", f)
	s.Set("slug", f.Slug())
	s.Set("total", total)
	return s.render(w, http.StatusOK)
}

func (e *Engine) folderNodesHandler(w http.ResponseWriter, r *http.Request) error {
	folderID, err := parseID(mux.Vars(r)["folderID"])
	if err != nil {
		return err
	}
	f, err := e.m.getFolder(r.Context(), folderID)
	if err != nil {
		return err
	}
	ipp := e.config.ItemsPerPage
	page := getPageNumber(r.URL.Query().Get("page"), ipp)
	blocks, err := e.m.getFolderBlocks(r.Context(), folderID, ipp, page*ipp, e.nodeView)
	if err != nil {
		return err
	}
	total, err := e.m.db.GetTotalFolderNodes(r.Context(), folderID)
	if err != nil {
		return err
	}
	s := e.session()
	s.Set("folder", f)
	s.Set("blocks", blocks)
	s.Set("total", total)
	s.Set("pagination", Pagination(PaginationConfig{
		page:  page + 1,
		ipp:   ipp,
		total: total,
		url:   r.URL.Path,
		param: "page",
	}))
	return s.render(w, http.StatusOK)
}

func (e *Engine) addBlockHandler(w http.ResponseWriter, r *http.Request) error {
	s := e.session()
	if err := r.ParseForm(); err != nil {
		return badRequest(s.Lang("Invalid form"), err)
	}
	b := &node.BlockRecord{
		Name:        strings.TrimSpace(r.PostFormValue("name")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
	}
	if b.Name == "" {
		return badRequest(s.Lang("Name is required"), nil)
	}
	if v := r.PostFormValue("position"); v != "" {
		position, err := strconv.Atoi(v)
		if err != nil {
			return badRequest(s.Lang("Invalid position"), err)
		}
		b.Position = position
	}
	if _, err := e.m.db.AddBlock(r.Context(), b); err != nil {
		return err
	}
	s.Set("block", b)
	return s.render(w, http.StatusCreated)
}

func (e *Engine) blockHandler(w http.ResponseWriter, r *http.Request) error {
	blockID, err := parseID(mux.Vars(r)["blockID"])
	if err != nil {
		return err
	}
	b, err := e.m.db.GetBlock(r.Context(), blockID)
	if err != nil {
		return err
	}
	s := e.session()
	s.Set("block", b)
	return s.render(w, http.StatusOK)
}

func (e *Engine) blockNodesHandler(w http.ResponseWriter, r *http.Request) error {
	blockID, err := parseID(mux.Vars(r)["blockID"])
	if err != nil {
		return err
	}
	s := e.session()
	activeOnly := false
	if v := r.URL.Query().Get("active"); v != "" {
		if activeOnly, err = strconv.ParseBool(v); err != nil {
			return badRequest(s.Lang("Invalid active flag"), err)
		}
	}
	b, err := e.m.db.GetBlock(r.Context(), blockID)
	if err != nil {
		return err
	}
	nl, err := e.m.db.GetBlockNodes(r.Context(), blockID, activeOnly)
	if err != nil {
		return err
	}
	views, err := e.nodeViews(nl)
	if err != nil {
		return err
	}
	s.Set("block", b)
	s.Set("nodes", views)
	return s.render(w, http.StatusOK)
}

func (e *Engine) feedHandler(w http.ResponseWriter, r *http.Request) error {
	folderID, err := parseID(mux.Vars(r)["folderID"])
	if err != nil {
		return err
	}
	f, err := e.m.getFolder(r.Context(), folderID)
	if err != nil {
		return err
	}
	nl, err := e.m.recentFolderNodes(r.Context(), folderID, feedSize)
	if err != nil {
		return err
	}
	base := baseURL(r)
	feed := &feeds.Feed{
		Title:       e.config.Title + ": " + f.Title,
		Link:        &feeds.Link{Href: base + "/folders/" + strconv.FormatInt(f.ID, 10)},
		Description: e.config.Description,
		Author:      &feeds.Author{Name: e.config.AuthorName, Email: e.config.AuthorEmail},
		Created:     time.Now(),
	}
	for _, n := range nl {
		id := strconv.FormatInt(n.ID(), 10)
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          id,
			Title:       n.Module() + " #" + id,
			Link:        &feeds.Link{Href: base + "/nodes/" + id},
			Description: renderText(n.Description()),
			Created:     n.CreatedAt(),
		})
	}
	w.Header().Set("Content-Type", "application/rss+xml")
	return feed.WriteRss(w)
}

func (e *Engine) sitemapHandler(w http.ResponseWriter, r *http.Request) error {
	fl, err := e.m.activeFolders(r.Context())
	if err != nil {
		return err
	}
	base := baseURL(r)
	var urlSet sitemap.URLSet
	for i := range fl {
		f := &fl[i]
		urlSet.URLs = append(urlSet.URLs, sitemap.URL{
			Loc:        base + "/folders/" + strconv.FormatInt(f.ID, 10),
			LastMod:    &f.CreatedAt,
			ChangeFreq: sitemap.Daily,
			Priority:   0.7,
		})
	}
	xml, err := sitemap.Marshal(&urlSet)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/xml")
	_, err = w.Write(xml)
	return err
}
