package main

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/myrjola/billeffect/internal/contexthelpers"
	"github.com/myrjola/billeffect/internal/errors"
	"github.com/myrjola/billeffect/internal/models"
	"github.com/myrjola/billeffect/ui"
)

type BaseTemplateData struct {
	CurrentPath string
	Flash       string
}

func (app *application) newBaseTemplateData(r *http.Request) BaseTemplateData {
	ctx := r.Context()
	return BaseTemplateData{
		CurrentPath: contexthelpers.CurrentPath(ctx),
		Flash:       app.sessionManager.PopString(ctx, string(flashSessionKey)),
	}
}

// templateCache holds one parsed template set per page.
type templateCache struct {
	pages map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	// nonce and csrf are overridden per request in render.
	"nonce": func() template.HTMLAttr {
		panic("not implemented")
	},
	"csrf": func() template.HTML {
		panic("not implemented")
	},
	"date": func(t time.Time) string {
		return models.FormatDate(t)
	},
	"percent": func(f float64) string {
		return fmt.Sprintf("%.0f%%", f*100) //nolint:mnd // fraction to percent.
	},
}

// newTemplateCache parses the pages under ui/templates/pages.
//
// Each page is a directory that together with base.gohtml and the partials has to define a template named "page".
func newTemplateCache() (*templateCache, error) {
	pageDirs, err := fs.Glob(ui.Files, "templates/pages/*")
	if err != nil {
		return nil, errors.Wrap(err, "glob pages")
	}
	cache := &templateCache{pages: make(map[string]*template.Template, len(pageDirs))}
	for _, dir := range pageDirs {
		name := path.Base(dir)
		var t *template.Template
		if t, err = template.New(name).Funcs(templateFuncs).ParseFS(ui.Files,
			"templates/base.gohtml",
			"templates/partials/*.gohtml",
			path.Join(dir, "*.gohtml"),
		); err != nil {
			return nil, errors.Wrap(err, "parse page", slog.String("page", name))
		}
		cache.pages[name] = t
	}
	return cache, nil
}

func (app *application) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	var (
		err error
		t   *template.Template
	)

	base, ok := app.templates.pages[page]
	if !ok {
		app.serverError(w, r, errors.New("unknown page", slog.String("template", page)))
		return
	}
	if t, err = base.Clone(); err != nil {
		app.serverError(w, r, errors.Wrap(err, "clone template", slog.String("template", page)))
		return
	}

	buf := new(bytes.Buffer)
	ctx := r.Context()
	nonce := fmt.Sprintf("nonce=\"%s\"", contexthelpers.CSPNonce(ctx))
	csrf := fmt.Sprintf("<input type=\"hidden\" name=\"csrf_token\" value=\"%s\"/>", contexthelpers.CSRFToken(ctx))
	t.Funcs(template.FuncMap{
		"nonce": func() template.HTMLAttr {
			return template.HTMLAttr(nonce) //nolint:gosec // we trust the nonce since it's not provided by user.
		},
		"csrf": func() template.HTML {
			return template.HTML(csrf) //nolint:gosec // we trust the csrf since it's not provided by user.
		},
	})
	if err = t.ExecuteTemplate(buf, "base", data); err != nil {
		app.serverError(w, r, errors.Wrap(err, "execute template", slog.String("template", page)))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	_, _ = buf.WriteTo(w)
}
