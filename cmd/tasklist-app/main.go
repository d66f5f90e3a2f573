package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	server "tasklist-app"
	"tasklist-app/internal/auth"
	"tasklist-app/internal/logger"
	"tasklist-app/internal/manager"
	"tasklist-app/internal/storage"

	"github.com/joho/godotenv"
)

func main() {
	// .env опционален: в контейнере переменные приходят из окружения
	_ = godotenv.Load()

	logger.Init(os.Getenv("LOG_FILE"), os.Getenv("LOG_LEVEL"))

	ctx := context.Background()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logger.Error(ctx, nil, "JWT_SECRET не задан")
		os.Exit(1)
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./data/tasklist.db"
	}
	os.MkdirAll(filepath.Dir(dbPath), 0755)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		logger.Error(ctx, err, "Не удалось открыть хранилище", "path", dbPath)
		os.Exit(1)
	}
	defer store.Close()

	logger.Info(ctx, "SQLite база данных инициализирована", "path", dbPath)

	tm := manager.NewTaskManager(store)
	um := manager.NewUserManager(store)
	sessions := auth.NewSessions(secret)

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      server.NewRouter(tm, um, sessions),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.Info(ctx, "Сервер запущен", "addr", addr)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error(ctx, err, "Сервер остановлен")
		os.Exit(1)
	}
}
