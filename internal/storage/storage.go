package storage

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"tasklist-app/internal/models"
)

var (
	ErrTaskNotFound    = errors.New("задача не найдена")
	ErrUserNotFound    = errors.New("пользователь не найден")
	ErrUsernameTaken   = errors.New("имя пользователя уже занято")
	ErrLinkCodeInvalid = errors.New("код привязки не найден или истек")
)

// Storage - интерфейс для абстракции хранилища.
// Все методы задач принимают userID: чужие задачи из хранилища
// не возвращаются никогда.
type Storage interface {
	// Tasks
	AddTask(userID int, title, description string, completed bool) (int, error)
	GetTask(userID, id int) (*models.Task, error)
	GetUserTasks(userID int) ([]models.Task, error)
	SearchTasks(userID int, prefix string) ([]models.Task, error)
	CountIncomplete(userID int) (int, error)
	UpdateTask(userID, id int, req models.UpdateTaskRequest) (*models.Task, error)
	DeleteTask(userID, id int) error

	// Users
	CreateUser(user *models.User) (int, error)
	GetUserByID(id int) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	GetUserByTelegramID(telegramID int64) (*models.User, error)
	LinkTelegram(userID int, telegramID int64) error

	// Коды привязки Telegram. Хранятся в БД, потому что веб-сервер
	// и бот - разные процессы.
	SaveLinkCode(code string, userID int, expiresAt time.Time) error
	ConsumeLinkCode(code string) (int, error)

	// Закрытие соединения
	Close() error
}

type memoryLinkCode struct {
	userID    int
	expiresAt time.Time
}

// MemoryStorage - хранилище в памяти. Используется в тестах
// и как запасной вариант без файла БД.
type MemoryStorage struct {
	tasks      map[int]models.Task
	users      map[int]*models.User
	linkCodes  map[string]memoryLinkCode
	nextTaskID int
	nextUserID int
	mu         sync.Mutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		tasks:      make(map[int]models.Task),
		users:      make(map[int]*models.User),
		linkCodes:  make(map[string]memoryLinkCode),
		nextTaskID: 1,
		nextUserID: 1,
	}
}

func (m *MemoryStorage) AddTask(userID int, title, description string, completed bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextTaskID
	now := time.Now()
	m.tasks[id] = models.Task{
		ID:          id,
		UserID:      userID,
		Title:       title,
		Description: description,
		Completed:   completed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.nextTaskID++

	return id, nil
}

func (m *MemoryStorage) GetTask(userID, id int) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok || task.UserID != userID {
		return nil, ErrTaskNotFound
	}
	return &task, nil
}

func (m *MemoryStorage) GetUserTasks(userID int) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.userTasksLocked(userID), nil
}

func (m *MemoryStorage) SearchTasks(userID int, prefix string) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var tasks []models.Task
	for _, task := range m.userTasksLocked(userID) {
		if strings.HasPrefix(task.Title, prefix) {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func (m *MemoryStorage) CountIncomplete(userID int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, task := range m.tasks {
		if task.UserID == userID && !task.Completed {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStorage) UpdateTask(userID, id int, req models.UpdateTaskRequest) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok || task.UserID != userID {
		return nil, ErrTaskNotFound
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

	m.tasks[id] = task
	return &task, nil
}

func (m *MemoryStorage) DeleteTask(userID, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok || task.UserID != userID {
		return ErrTaskNotFound
	}

	delete(m.tasks, task.ID)
	return nil
}

func (m *MemoryStorage) CreateUser(user *models.User) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == user.Username {
			return 0, ErrUsernameTaken
		}
	}

	id := m.nextUserID
	m.nextUserID++

	stored := *user
	stored.ID = id
	m.users[id] = &stored

	return id, nil
}

func (m *MemoryStorage) GetUserByID(id int) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *MemoryStorage) GetUserByUsername(username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, user := range m.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MemoryStorage) GetUserByTelegramID(telegramID int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, user := range m.users {
		if user.TelegramID == telegramID && telegramID != 0 {
			copied := *user
			return &copied, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MemoryStorage) LinkTelegram(userID int, telegramID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}

	user.TelegramID = telegramID
	user.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStorage) SaveLinkCode(code string, userID int, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.linkCodes[code] = memoryLinkCode{userID: userID, expiresAt: expiresAt}
	return nil
}

func (m *MemoryStorage) ConsumeLinkCode(code string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lc, ok := m.linkCodes[code]
	if !ok {
		return 0, ErrLinkCodeInvalid
	}
	delete(m.linkCodes, code)

	if time.Now().After(lc.expiresAt) {
		return 0, ErrLinkCodeInvalid
	}
	return lc.userID, nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

// userTasksLocked возвращает задачи пользователя в порядке хранилища:
// новые сверху, как в SQLite-версии. Вызывать под мьютексом.
func (m *MemoryStorage) userTasksLocked(userID int) []models.Task {
	var tasks []models.Task
	for _, task := range m.tasks {
		if task.UserID == userID {
			tasks = append(tasks, task)
		}
	}

	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		}
		return tasks[i].ID > tasks[j].ID
	})

	return tasks
}
