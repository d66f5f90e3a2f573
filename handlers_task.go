package server

import (
	"errors"
	"net/http"
	"strconv"

	"tasklist-app/internal/auth"
	"tasklist-app/internal/logger"
	"tasklist-app/internal/manager"
	"tasklist-app/internal/models"

	"github.com/go-chi/chi/v5"
)

type taskListData struct {
	Username string
	Tasks    []models.Task
	Count    int
	Search   string
}

type taskDetailData struct {
	Username string
	Task     *models.Task
}

type taskFormData struct {
	Username    string
	Title       string
	Description string
	Completed   bool
	Errors      map[string]string
	Action      string
	IsEdit      bool
}

type profileData struct {
	Username       string
	TelegramLinked bool
	LinkCode       string
}

func (s *Server) taskList(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r.Context())

	search := r.URL.Query().Get("search-area")
	tasks, count, err := s.tasks.ListTasks(user.UserID, search)
	if err != nil {
		logger.Error(r.Context(), err, "Ошибка получения списка задач", "userID", user.UserID)
		http.Error(w, "внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	render(w, http.StatusOK, "task_list.html", taskListData{
		Username: user.Username,
		Tasks:    tasks,
		Count:    count,
		Search:   search,
	})
}

func (s *Server) taskDetail(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r.Context())

	id, ok := taskID(w, r)
	if !ok {
		return
	}

	task, err := s.tasks.GetTask(user.UserID, id)
	if err != nil {
		s.taskError(w, r, err, user.UserID, id)
		return
	}

	render(w, http.StatusOK, "task_detail.html", taskDetailData{
		Username: user.Username,
		Task:     task,
	})
}

func (s *Server) showTaskCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r.Context())
	render(w, http.StatusOK, "task_form.html", taskFormData{
		Username: user.Username,
		Errors:   map[string]string{},
		Action:   routeTasks + "/create",
	})
}

func (s *Server) doTaskCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Error(w, "некорректная форма", http.StatusBadRequest)
		return
	}

	req := models.CreateTaskRequest{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		Completed:   r.PostFormValue("complete") == "on",
	}

	// Владелец берется из сессии, из формы его взять нельзя
	if _, err := s.tasks.CreateTask(user.UserID, req); err != nil {
		if manager.IsValidation(err) {
			var ve *manager.ValidationError
			errors.As(err, &ve)
			render(w, http.StatusBadRequest, "task_form.html", taskFormData{
				Username:    user.Username,
				Title:       req.Title,
				Description: req.Description,
				Completed:   req.Completed,
				Errors:      map[string]string{ve.Field: ve.Message},
				Action:      routeTasks + "/create",
			})
			return
		}
		logger.Error(r.Context(), err, "Ошибка создания задачи", "userID", user.UserID)
		http.Error(w, "внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, routeTasks, http.StatusSeeOther)
}

func (s *Server) showTaskUpdate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r.Context())

	id, ok := taskID(w, r)
	if !ok {
		return
	}

	task, err := s.tasks.GetTask(user.UserID, id)
	if err != nil {
		s.taskError(w, r, err, user.UserID, id)
		return
	}

	render(w, http.StatusOK, "task_form.html", taskFormData{
		Username:    user.Username,
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		Errors:      map[string]string{},
		Action:      routeTasks + "/" + strconv.Itoa(id) + "/update",
		IsEdit:      true,
	})
}

func (s *Server) doTaskUpdate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r.Context())

	id, ok := taskID(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "некорректная форма", http.StatusBadRequest)
		return
	}

	title := r.PostFormValue("title")
	description := r.PostFormValue("description")
	completed := r.PostFormValue("complete") == "on"

	req := models.UpdateTaskRequest{
		Title:       &title,
		Description: &description,
		Completed:   &completed,
	}

	if _, err := s.tasks.UpdateTask(user.UserID, id, req); err != nil {
		if manager.IsValidation(err) {
			var ve *manager.ValidationError
			errors.As(err, &ve)
			render(w, http.StatusBadRequest, "task_form.html", taskFormData{
				Username:    user.Username,
				Title:       title,
				Description: description,
				Completed:   completed,
				Errors:      map[string]string{ve.Field: ve.Message},
				Action:      routeTasks + "/" + strconv.Itoa(id) + "/update",
				IsEdit:      true,
			})
			return
		}
		s.taskError(w, r, err, user.UserID, id)
		return
	}

	http.Redirect(w, r, routeTasks, http.StatusSeeOther)
}

func (s *Server) showTaskDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r.Context())

	id, ok := taskID(w, r)
	if !ok {
		return
	}

	task, err := s.tasks.GetTask(user.UserID, id)
	if err != nil {
		s.taskError(w, r, err, user.UserID, id)
		return
	}

	render(w, http.StatusOK, "task_confirm_delete.html", taskDetailData{
		Username: user.Username,
		Task:     task,
	})
}

func (s *Server) doTaskDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r.Context())

	id, ok := taskID(w, r)
	if !ok {
		return
	}

	if err := s.tasks.DeleteTask(user.UserID, id); err != nil {
		s.taskError(w, r, err, user.UserID, id)
		return
	}

	http.Redirect(w, r, routeTasks, http.StatusSeeOther)
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.CurrentUser(r.Context())

	user, err := s.users.GetUserByID(claims.UserID)
	if err != nil {
		logger.Error(r.Context(), err, "Ошибка загрузки профиля", "userID", claims.UserID)
		http.Error(w, "внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	data := profileData{
		Username:       user.Username,
		TelegramLinked: user.TelegramID != 0,
	}
	if !data.TelegramLinked {
		code, err := s.users.CreateLinkCode(user.ID)
		if err != nil {
			logger.Error(r.Context(), err, "Не удалось создать код привязки", "userID", user.ID)
			http.Error(w, "внутренняя ошибка сервера", http.StatusInternalServerError)
			return
		}
		data.LinkCode = code
	}

	render(w, http.StatusOK, "profile.html", data)
}

// taskID достает числовой id из пути. Нечисловой id равнозначен
// несуществующей задаче.
func taskID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}

func (s *Server) taskError(w http.ResponseWriter, r *http.Request, err error, userID, id int) {
	if errors.Is(err, manager.ErrTaskNotFound) {
		http.NotFound(w, r)
		return
	}
	logger.Error(r.Context(), err, "Ошибка операции над задачей", "userID", userID, "taskID", id)
	http.Error(w, "внутренняя ошибка сервера", http.StatusInternalServerError)
}
