package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"tasklist-app/internal/manager"
	"tasklist-app/internal/storage"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	username := flag.String("user", "", "Создать пользователя с таким именем")
	password := flag.String("password", "", "Пароль для создаваемого пользователя")
	flag.Parse()

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./data/tasklist.db"
	}

	log.Println("🔄 Создание базы данных...")

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		log.Fatal("❌ Ошибка создания каталога:", err)
	}

	// NewSQLiteStorage создает таблицы сам
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		log.Fatal("❌ Ошибка открытия БД:", err)
	}
	defer store.Close()

	log.Println("✅ Таблицы users и tasks созданы")

	if *username != "" {
		if *password == "" {
			log.Fatal("❌ Для создания пользователя нужен --password")
		}

		um := manager.NewUserManager(store)
		user, err := um.Register(*username, *password)
		if err != nil {
			log.Fatal("❌ Ошибка создания пользователя:", err)
		}
		log.Printf("✅ Пользователь %s создан (id=%d)", user.Username, user.ID)
	}

	log.Println("🎉 Миграция завершена успешно!")
	log.Println("📁 База данных:", dbPath)
}
