package server

import (
	"net/http"
	"time"

	"tasklist-app/internal/auth"
	"tasklist-app/internal/logger"
	"tasklist-app/internal/manager"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Маршруты-константы: единая точка, куда редиректят успешные операции.
const (
	routeTasks = "/tasks"
	routeLogin = "/login"
)

type Server struct {
	tasks    *manager.TaskManager
	users    *manager.UserManager
	sessions *auth.Sessions
}

func NewRouter(tm *manager.TaskManager, um *manager.UserManager, sessions *auth.Sessions) *chi.Mux {
	s := &Server{
		tasks:    tm,
		users:    um,
		sessions: sessions,
	}

	r := chi.NewRouter()
	r.Use(requestLogger)

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, routeTasks, http.StatusFound)
	})

	r.Get(routeLogin, s.showLogin)
	r.Post(routeLogin, s.doLogin)
	r.Get("/register", s.showRegister)
	r.Post("/register", s.doRegister)
	r.Post("/logout", s.doLogout)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Все страницы задач закрыты одной общей проверкой сессии
	r.Group(func(r chi.Router) {
		r.Use(sessions.RequireAuth(routeLogin))

		r.Get(routeTasks, s.taskList)
		r.Get(routeTasks+"/create", s.showTaskCreate)
		r.Post(routeTasks+"/create", s.doTaskCreate)
		r.Get(routeTasks+"/{id}", s.taskDetail)
		r.Get(routeTasks+"/{id}/update", s.showTaskUpdate)
		r.Post(routeTasks+"/{id}/update", s.doTaskUpdate)
		r.Get(routeTasks+"/{id}/delete", s.showTaskDelete)
		r.Post(routeTasks+"/{id}/delete", s.doTaskDelete)

		r.Get("/profile", s.profile)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug(r.Context(), "Запрос обработан",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start).String(),
		)
	})
}
