package server

import (
	"context"
	"embed"
	"html/template"
	"net/http"

	"tasklist-app/internal/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

func render(w http.ResponseWriter, status int, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		logger.Error(context.Background(), err, "Ошибка рендеринга шаблона", "template", name)
	}
}
