package http

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"go.uber.org/zap"

	"newscheck/ml"
)

//go:embed templates/*.html static/*
var embeddedFS embed.FS

var pageTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"percent": func(p float64) string { return fmt.Sprintf("%.1f%%", p*100) },
}).ParseFS(embeddedFS, "templates/index.html"))

// pageData 页面模板数据
type pageData struct {
	Text        string
	Result      *ml.Prediction
	Error       string
	ModelLoaded bool
}

// RegisterPageHandlers 注册页面与静态资源
func RegisterPageHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", handleIndex)
	mux.HandleFunc("POST /{$}", handleIndexSubmit)
	mux.Handle("GET /static/", staticHandler())
}

func staticHandler() http.Handler {
	staticFS, err := fs.Sub(embeddedFS, "static")
	if err != nil {
		panic("failed to create embedded static filesystem: " + err.Error())
	}
	fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		fileServer.ServeHTTP(w, r)
	})
}

func handleIndex(w http.ResponseWriter, r *http.Request) {
	renderPage(w, http.StatusOK, pageData{ModelLoaded: modelLoaded()})
}

// handleIndexSubmit 无JavaScript时的表单提交
func handleIndexSubmit(w http.ResponseWriter, r *http.Request) {
	data := pageData{ModelLoaded: modelLoaded()}
	if err := r.ParseForm(); err != nil {
		data.Error = "invalid form submission"
		renderPage(w, http.StatusBadRequest, data)
		return
	}
	data.Text = r.PostFormValue("text")

	result, err := predict(r.Context(), data.Text)
	if err != nil {
		status, msg := predictionError(err)
		data.Error = msg
		renderPage(w, status, data)
		return
	}
	data.Result = &result
	renderPage(w, http.StatusOK, data)
}

func renderPage(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		logger.Error("Failed to render page", zap.Error(err))
	}
}

func modelLoaded() bool {
	return detectorSvc != nil && detectorSvc.Loaded()
}
