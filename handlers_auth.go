package server

import (
	"errors"
	"net/http"

	"tasklist-app/internal/logger"
	"tasklist-app/internal/manager"
)

type loginData struct {
	Username string
	Error    string
}

type registerData struct {
	Username string
	Errors   map[string]string
}

func (s *Server) showLogin(w http.ResponseWriter, r *http.Request) {
	// Залогиненного пользователя сразу уводим к задачам
	if s.sessions.IsAuthenticated(r) {
		http.Redirect(w, r, routeTasks, http.StatusFound)
		return
	}
	render(w, http.StatusOK, "login.html", loginData{})
}

func (s *Server) doLogin(w http.ResponseWriter, r *http.Request) {
	// Действующая сессия остается как есть, пароль не перепроверяем
	if s.sessions.IsAuthenticated(r) {
		http.Redirect(w, r, routeTasks, http.StatusFound)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "некорректная форма", http.StatusBadRequest)
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	user, err := s.users.Authenticate(username, password)
	if err != nil {
		if errors.Is(err, manager.ErrInvalidCredentials) {
			render(w, http.StatusUnauthorized, "login.html", loginData{
				Username: username,
				Error:    "Неверное имя пользователя или пароль",
			})
			return
		}
		logger.Error(r.Context(), err, "Ошибка при входе", "username", username)
		http.Error(w, "внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	s.establishSession(w, r, user.ID, username)
}

func (s *Server) showRegister(w http.ResponseWriter, r *http.Request) {
	if s.sessions.IsAuthenticated(r) {
		http.Redirect(w, r, routeTasks, http.StatusFound)
		return
	}
	render(w, http.StatusOK, "register.html", registerData{Errors: map[string]string{}})
}

func (s *Server) doRegister(w http.ResponseWriter, r *http.Request) {
	if s.sessions.IsAuthenticated(r) {
		http.Redirect(w, r, routeTasks, http.StatusFound)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "некорректная форма", http.StatusBadRequest)
		return
	}

	username := r.PostFormValue("username")
	password1 := r.PostFormValue("password1")
	password2 := r.PostFormValue("password2")

	fieldErrors := map[string]string{}
	if password1 != password2 {
		fieldErrors["password"] = "Пароли не совпадают"
	}

	if len(fieldErrors) == 0 {
		user, err := s.users.Register(username, password1)
		switch {
		case err == nil:
			// Нового пользователя сразу логиним
			s.establishSession(w, r, user.ID, user.Username)
			return
		case errors.Is(err, manager.ErrUsernameTaken):
			fieldErrors["username"] = "Имя пользователя уже занято"
		case manager.IsValidation(err):
			var ve *manager.ValidationError
			errors.As(err, &ve)
			fieldErrors[ve.Field] = ve.Message
		default:
			logger.Error(r.Context(), err, "Ошибка регистрации", "username", username)
			http.Error(w, "внутренняя ошибка сервера", http.StatusInternalServerError)
			return
		}
	}

	render(w, http.StatusBadRequest, "register.html", registerData{
		Username: username,
		Errors:   fieldErrors,
	})
}

func (s *Server) doLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.ClearCookie(w)
	http.Redirect(w, r, routeLogin, http.StatusFound)
}

func (s *Server) establishSession(w http.ResponseWriter, r *http.Request, userID int, username string) {
	user, err := s.users.GetUserByID(userID)
	if err != nil {
		logger.Error(r.Context(), err, "Пользователь пропал после аутентификации", "userID", userID)
		http.Error(w, "внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	token, err := s.sessions.GenerateToken(user)
	if err != nil {
		logger.Error(r.Context(), err, "Не удалось выпустить токен", "userID", userID)
		http.Error(w, "внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	s.sessions.SetCookie(w, token)
	logger.Info(r.Context(), "Сессия установлена", "userID", userID, "username", username)
	http.Redirect(w, r, routeTasks, http.StatusFound)
}
