package manager

import (
	"context"
	"errors"
	"time"

	"tasklist-app/internal/logger"
	"tasklist-app/internal/models"
	"tasklist-app/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	createTaskCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasklist_tasks_created_total",
			Help: "Total number of CreateTask operations",
		},
		[]string{"status"},
	)

	updateTaskCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasklist_tasks_updated_total",
			Help: "Total number of UpdateTask operations",
		},
		[]string{"status"},
	)

	deleteTaskCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasklist_tasks_deleted_total",
			Help: "Total number of DeleteTask operations",
		},
		[]string{"status"},
	)

	taskTitleLength = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tasklist_task_title_length_bytes",
			Help:    "Length distribution of task titles",
			Buckets: []float64{10, 25, 50, 100, 200},
		},
	)

	listTasksDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tasklist_list_tasks_duration_seconds",
			Help:    "Duration of ListTasks operation in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 1000
)

// ErrTaskNotFound - задачи нет или она принадлежит другому пользователю.
// Снаружи эти два случая неразличимы.
var ErrTaskNotFound = storage.ErrTaskNotFound

// ValidationError - ошибка проверки данных формы, привязанная к полю.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// TaskManager отвечает за доступ к задачам. Каждый метод принимает
// userID явно: никакого "текущего пользователя" внутри нет.
type TaskManager struct {
	storage storage.Storage
}

func NewTaskManager(s storage.Storage) *TaskManager {
	return &TaskManager{storage: s}
}

// ListTasks возвращает задачи пользователя и число незавершенных.
// Поиск - строгий префикс заголовка, пустая строка означает "без фильтра".
// Счетчик незавершенных считается по всем задачам пользователя,
// фильтр поиска на него не влияет.
func (tm *TaskManager) ListTasks(userID int, search string) ([]models.Task, int, error) {
	startTime := time.Now()
	defer func() {
		listTasksDuration.Observe(time.Since(startTime).Seconds())
	}()

	var tasks []models.Task
	var err error

	if search != "" {
		tasks, err = tm.storage.SearchTasks(userID, search)
	} else {
		tasks, err = tm.storage.GetUserTasks(userID)
	}
	if err != nil {
		return nil, 0, err
	}

	count, err := tm.storage.CountIncomplete(userID)
	if err != nil {
		return nil, 0, err
	}

	return tasks, count, nil
}

func (tm *TaskManager) GetTask(userID, id int) (*models.Task, error) {
	return tm.storage.GetTask(userID, id)
}

// CreateTask создает задачу. Владелец всегда равен userID:
// подсунуть чужого владельца через форму невозможно.
func (tm *TaskManager) CreateTask(userID int, req models.CreateTaskRequest) (int, error) {
	if err := validateTitle(req.Title); err != nil {
		createTaskCount.WithLabelValues("error").Inc()
		return 0, err
	}
	if err := validateDescription(req.Description); err != nil {
		createTaskCount.WithLabelValues("error").Inc()
		return 0, err
	}

	id, err := tm.storage.AddTask(userID, req.Title, req.Description, req.Completed)
	if err != nil {
		createTaskCount.WithLabelValues("error").Inc()
		return 0, err
	}

	createTaskCount.WithLabelValues("success").Inc()
	taskTitleLength.Observe(float64(len(req.Title)))

	logger.Info(context.Background(), "Задача создана", "taskID", id, "userID", userID)
	return id, nil
}

// UpdateTask обновляет только заголовок, описание и флаг завершения.
// Владелец неизменяем.
func (tm *TaskManager) UpdateTask(userID, id int, req models.UpdateTaskRequest) (*models.Task, error) {
	if req.Title != nil {
		if err := validateTitle(*req.Title); err != nil {
			updateTaskCount.WithLabelValues("error").Inc()
			return nil, err
		}
	}
	if req.Description != nil {
		if err := validateDescription(*req.Description); err != nil {
			updateTaskCount.WithLabelValues("error").Inc()
			return nil, err
		}
	}

	task, err := tm.storage.UpdateTask(userID, id, req)
	if err != nil {
		updateTaskCount.WithLabelValues("error").Inc()
		return nil, err
	}

	updateTaskCount.WithLabelValues("success").Inc()
	return task, nil
}

// DeleteTask удаляет задачу. Повторное удаление того же id
// возвращает ErrTaskNotFound.
func (tm *TaskManager) DeleteTask(userID, id int) error {
	if err := tm.storage.DeleteTask(userID, id); err != nil {
		deleteTaskCount.WithLabelValues("error").Inc()
		return err
	}

	deleteTaskCount.WithLabelValues("success").Inc()
	logger.Info(context.Background(), "Задача удалена", "taskID", id, "userID", userID)
	return nil
}

// IsValidation сообщает, является ли ошибка ошибкой валидации формы.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func validateTitle(title string) error {
	if title == "" {
		return &ValidationError{Field: "title", Message: "заголовок задачи обязателен"}
	}
	if len(title) > maxTitleLength {
		return &ValidationError{Field: "title", Message: "заголовок не может превышать 200 символов"}
	}
	return nil
}

func validateDescription(description string) error {
	if len(description) > maxDescriptionLength {
		return &ValidationError{Field: "description", Message: "описание не может превышать 1000 символов"}
	}
	return nil
}
