package storage

import (
	"database/sql"
	"fmt"
	"time"

	"tasklist-app/internal/models"

	_ "modernc.org/sqlite"
)

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия БД: %w", err)
	}

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	// Создаем таблицы
	if err := createTables(db); err != nil {
		return nil, err
	}

	return &SQLiteStorage{db: db}, nil
}

func createTables(db *sql.DB) error {
	createUsersTable := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		telegram_id INTEGER UNIQUE,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`

	createTasksTable := `
	CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`

	if _, err := db.Exec(createUsersTable); err != nil {
		return fmt.Errorf("ошибка создания таблицы users: %w", err)
	}

	if _, err := db.Exec(createTasksTable); err != nil {
		return fmt.Errorf("ошибка создания таблицы tasks: %w", err)
	}

	createLinkCodesTable := `
	CREATE TABLE IF NOT EXISTS link_codes (
		code TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id),
		expires_at DATETIME NOT NULL
	)`

	if _, err := db.Exec(createLinkCodesTable); err != nil {
		return fmt.Errorf("ошибка создания таблицы link_codes: %w", err)
	}

	return nil
}

// Закрытие соединения
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Методы для работы с задачами

func (s *SQLiteStorage) AddTask(userID int, title, description string, completed bool) (int, error) {
	query := `
	INSERT INTO tasks (user_id, title, description, completed, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	now := time.Now()
	result, err := s.db.Exec(query, userID, title, description, completed, now, now)
	if err != nil {
		return 0, err
	}

	id, err := result.LastInsertId()
	return int(id), err
}

func (s *SQLiteStorage) GetTask(userID, id int) (*models.Task, error) {
	query := `
	SELECT id, user_id, title, description, completed, created_at, updated_at
	FROM tasks WHERE id = ? AND user_id = ?`

	var task models.Task
	err := s.db.QueryRow(query, id, userID).Scan(
		&task.ID, &task.UserID, &task.Title, &task.Description,
		&task.Completed, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	return &task, nil
}

func (s *SQLiteStorage) GetUserTasks(userID int) ([]models.Task, error) {
	query := `
	SELECT id, user_id, title, description, completed, created_at, updated_at
	FROM tasks WHERE user_id = ? ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTasks(rows)
}

// SearchTasks ищет задачи по префиксу заголовка. Сравнение через substr,
// потому что LIKE в SQLite нечувствителен к регистру для ASCII.
func (s *SQLiteStorage) SearchTasks(userID int, prefix string) ([]models.Task, error) {
	query := `
	SELECT id, user_id, title, description, completed, created_at, updated_at
	FROM tasks
	WHERE user_id = ? AND substr(title, 1, length(?)) = ?
	ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(query, userID, prefix, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTasks(rows)
}

func (s *SQLiteStorage) CountIncomplete(userID int) (int, error) {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM tasks WHERE user_id = ? AND completed = FALSE",
		userID,
	).Scan(&count)
	return count, err
}

func (s *SQLiteStorage) UpdateTask(userID, id int, req models.UpdateTaskRequest) (*models.Task, error) {
	// Сначала получаем текущую задачу (заодно проверяем владельца)
	task, err := s.GetTask(userID, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Completed != nil {
		task.Completed = *req.Completed
	}
	task.UpdatedAt = time.Now()

	query := `
	UPDATE tasks
	SET title = ?, description = ?, completed = ?, updated_at = ?
	WHERE id = ? AND user_id = ?`

	_, err = s.db.Exec(query,
		task.Title, task.Description, task.Completed, task.UpdatedAt,
		id, userID,
	)
	if err != nil {
		return nil, err
	}

	return task, nil
}

func (s *SQLiteStorage) DeleteTask(userID, id int) error {
	result, err := s.db.Exec("DELETE FROM tasks WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrTaskNotFound
	}

	return nil
}

// Методы для работы с пользователями

func (s *SQLiteStorage) CreateUser(user *models.User) (int, error) {
	var exists int
	err := s.db.QueryRow("SELECT COUNT(*) FROM users WHERE username = ?", user.Username).Scan(&exists)
	if err != nil {
		return 0, err
	}
	if exists > 0 {
		return 0, ErrUsernameTaken
	}

	query := `
	INSERT INTO users (username, password_hash, telegram_id, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)`

	var telegramID interface{}
	if user.TelegramID != 0 {
		telegramID = user.TelegramID
	}

	result, err := s.db.Exec(query,
		user.Username, user.PasswordHash, telegramID, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}

	id, err := result.LastInsertId()
	return int(id), err
}

func (s *SQLiteStorage) GetUserByID(id int) (*models.User, error) {
	return s.getUser("SELECT id, username, password_hash, telegram_id, created_at, updated_at FROM users WHERE id = ?", id)
}

func (s *SQLiteStorage) GetUserByUsername(username string) (*models.User, error) {
	return s.getUser("SELECT id, username, password_hash, telegram_id, created_at, updated_at FROM users WHERE username = ?", username)
}

func (s *SQLiteStorage) GetUserByTelegramID(telegramID int64) (*models.User, error) {
	return s.getUser("SELECT id, username, password_hash, telegram_id, created_at, updated_at FROM users WHERE telegram_id = ?", telegramID)
}

func (s *SQLiteStorage) getUser(query string, arg interface{}) (*models.User, error) {
	var user models.User
	var telegramID sql.NullInt64

	err := s.db.QueryRow(query, arg).Scan(
		&user.ID, &user.Username, &user.PasswordHash,
		&telegramID, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if telegramID.Valid {
		user.TelegramID = telegramID.Int64
	}

	return &user, nil
}

func (s *SQLiteStorage) LinkTelegram(userID int, telegramID int64) error {
	result, err := s.db.Exec(
		"UPDATE users SET telegram_id = ?, updated_at = ? WHERE id = ?",
		telegramID, time.Now(), userID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (s *SQLiteStorage) SaveLinkCode(code string, userID int, expiresAt time.Time) error {
	_, err := s.db.Exec(
		"INSERT INTO link_codes (code, user_id, expires_at) VALUES (?, ?, ?)",
		code, userID, expiresAt,
	)
	return err
}

func (s *SQLiteStorage) ConsumeLinkCode(code string) (int, error) {
	var userID int
	var expiresAt time.Time

	err := s.db.QueryRow(
		"SELECT user_id, expires_at FROM link_codes WHERE code = ?", code,
	).Scan(&userID, &expiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrLinkCodeInvalid
		}
		return 0, err
	}

	// Код одноразовый: удаляем независимо от того, истек он или нет
	if _, err := s.db.Exec("DELETE FROM link_codes WHERE code = ?", code); err != nil {
		return 0, err
	}

	if time.Now().After(expiresAt) {
		return 0, ErrLinkCodeInvalid
	}

	return userID, nil
}

// Вспомогательная функция для сканирования задач
func scanTasks(rows *sql.Rows) ([]models.Task, error) {
	var tasks []models.Task
	for rows.Next() {
		var task models.Task
		err := rows.Scan(
			&task.ID, &task.UserID, &task.Title, &task.Description,
			&task.Completed, &task.CreatedAt, &task.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}
