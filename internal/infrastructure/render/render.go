package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/labstack/echo/v4"

	"github.com/bibliodesign/site/internal/domain/entities"
	"github.com/bibliodesign/site/internal/infrastructure/config"
	"github.com/bibliodesign/site/internal/infrastructure/logger"
)

//go:embed templates
var embedded embed.FS

const (
	publicLayout  = "layout.html"
	adminLayout   = "admin/layout.html"
	adminPartials = "admin/partials.html"
)

type page struct {
	layout string
	file   string
}

// pages maps every renderable name to its layout and body file
var pages = map[string]page{
	"index":              {publicLayout, "pages/index.html"},
	"about":              {publicLayout, "pages/about.html"},
	"services":           {publicLayout, "pages/services.html"},
	"process":            {publicLayout, "pages/process.html"},
	"portfolio":          {publicLayout, "pages/portfolio.html"},
	"contact":            {publicLayout, "pages/contact.html"},
	"error":              {publicLayout, "pages/error.html"},
	"admin/login":        {adminLayout, "admin/login.html"},
	"admin/dashboard":    {adminLayout, "admin/dashboard.html"},
	"admin/content":      {adminLayout, "admin/content.html"},
	"admin/testimonials": {adminLayout, "admin/testimonials.html"},
	"admin/portfolio":    {adminLayout, "admin/portfolio.html"},
	"admin/team":         {adminLayout, "admin/team.html"},
	"admin/services":     {adminLayout, "admin/services.html"},
	"admin/inquiries":    {adminLayout, "admin/inquiries.html"},
}

// Pages returns every renderable page name
func Pages() []string {
	names := make([]string, 0, len(pages))
	for name := range pages {
		names = append(names, name)
	}
	return names
}

// PageData is the value every template executes against
type PageData struct {
	Content      entities.SiteContent
	Testimonials []entities.Record
	Projects     []entities.Record
	Team         []entities.Record
	Services     []entities.Record
	Inquiries    []entities.Record
	Success      bool
	Error        string
	Username     string
	Status       int
	Message      string
}

// Listing feeds the shared admin record table
type Listing struct {
	Collection string
	Records    []entities.Record
}

var funcs = template.FuncMap{
	"isUpload":   func(field string) bool { return field == "image" || field == "photo" },
	"pathEscape": url.PathEscape,
	"listing": func(collection string, records []entities.Record) Listing {
		return Listing{Collection: collection, Records: records}
	},
	"title": func(s string) string {
		s = strings.ReplaceAll(s, "_", " ")
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
}

// Renderer executes the page templates and implements echo.Renderer.
// When configured with a directory and watch enabled, edits on disk are
// picked up without a restart.
type Renderer struct {
	mu        sync.RWMutex
	fsys      fs.FS
	templates map[string]*template.Template
	logger    *logger.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// New parses all templates, from cfg.Dir if set or the embedded copy otherwise
func New(cfg config.TemplatesConfig, appLogger *logger.Logger) (*Renderer, error) {
	r := &Renderer{logger: appLogger.WithComponent("render")}

	if cfg.Dir == "" {
		sub, err := fs.Sub(embedded, "templates")
		if err != nil {
			return nil, err
		}
		r.fsys = sub
	} else {
		r.fsys = os.DirFS(cfg.Dir)
	}

	if err := r.Reload(); err != nil {
		return nil, err
	}

	if cfg.Dir != "" && cfg.Watch {
		if err := r.watch(cfg.Dir); err != nil {
			return nil, fmt.Errorf("failed to watch templates: %w", err)
		}
	}

	return r, nil
}

// Reload re-parses every page. On error the previous set stays active.
func (r *Renderer) Reload() error {
	parsed := make(map[string]*template.Template, len(pages))
	for name, p := range pages {
		files := []string{p.layout, p.file}
		if p.layout == adminLayout {
			files = []string{p.layout, adminPartials, p.file}
		}
		t, err := template.New(filepath.Base(p.layout)).Funcs(funcs).ParseFS(r.fsys, files...)
		if err != nil {
			return fmt.Errorf("parse template %s: %w", name, err)
		}
		parsed[name] = t
	}

	r.mu.Lock()
	r.templates = parsed
	r.mu.Unlock()

	return nil
}

// Render implements echo.Renderer
func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.Execute(w, name, data)
}

// Execute renders the named page into w
func (r *Renderer) Execute(w io.Writer, name string, data interface{}) error {
	r.mu.RLock()
	t, ok := r.templates[name]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}

	return t.Execute(w, data)
}

func (r *Renderer) watch(dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
	if err != nil {
		w.Close()
		return err
	}

	r.watcher = w
	r.done = make(chan struct{})
	go r.run()

	r.logger.Infow("Watching templates", "dir", dir)
	return nil
}

func (r *Renderer) run() {
	defer close(r.done)

	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".html") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if err := r.Reload(); err != nil {
				r.logger.Warnw("Template reload failed", "file", event.Name, "error", err)
				continue
			}
			r.logger.Infow("Templates reloaded", "file", event.Name)

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Errorw("Template watcher error", "error", err)
		}
	}
}

// Close stops the template watcher, if any
func (r *Renderer) Close() error {
	if r.watcher == nil {
		return nil
	}
	err := r.watcher.Close()
	<-r.done
	return err
}
