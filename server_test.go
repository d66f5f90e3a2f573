package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"tasklist-app/internal/auth"
	"tasklist-app/internal/manager"
	"tasklist-app/internal/storage"

	"github.com/go-chi/chi/v5"
)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()

	store := storage.NewMemoryStorage()
	tm := manager.NewTaskManager(store)
	um := manager.NewUserManager(store)
	sessions := auth.NewSessions("test-secret")

	return NewRouter(tm, um, sessions)
}

func postForm(router *chi.Mux, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func get(router *chi.Mux, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// registerUser регистрирует пользователя через HTTP и возвращает cookie сессии.
func registerUser(t *testing.T, router *chi.Mux, username string) *http.Cookie {
	t.Helper()

	rec := postForm(router, "/register", url.Values{
		"username":  {username},
		"password1": {"секрет123"},
		"password2": {"секрет123"},
	}, nil)

	if rec.Code != http.StatusFound {
		t.Fatalf("Регистрация должна редиректить, получено %d: %s", rec.Code, rec.Body.String())
	}

	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookie && c.Value != "" {
			return c
		}
	}
	t.Fatal("После регистрации нет cookie сессии")
	return nil
}

func createTask(t *testing.T, router *chi.Mux, cookie *http.Cookie, title string) {
	t.Helper()

	rec := postForm(router, "/tasks/create", url.Values{
		"title":       {title},
		"description": {""},
	}, cookie)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("Создание задачи должно редиректить, получено %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/tasks" {
		t.Fatalf("Редирект должен вести на /tasks, получено %s", loc)
	}
}

func TestUnauthenticatedRedirect(t *testing.T) {
	router := newTestRouter(t)

	paths := []string{"/tasks", "/tasks/1", "/tasks/create", "/tasks/1/update", "/tasks/1/delete", "/profile"}
	for _, path := range paths {
		rec := get(router, path, nil)
		if rec.Code != http.StatusFound {
			t.Errorf("%s без сессии: ожидался 302, получено %d", path, rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/login" {
			t.Errorf("%s без сессии должен редиректить на /login, получено %s", path, loc)
		}
	}
}

func TestRegisterAndLogin(t *testing.T) {
	router := newTestRouter(t)
	cookie := registerUser(t, router, "alice")

	t.Run("Session works", func(t *testing.T) {
		rec := get(router, "/tasks", cookie)
		if rec.Code != http.StatusOK {
			t.Fatalf("Список задач с сессией: ожидался 200, получено %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "alice") {
			t.Error("Страница должна показывать имя пользователя")
		}
	})

	t.Run("Login with fresh session", func(t *testing.T) {
		rec := postForm(router, "/login", url.Values{
			"username": {"alice"},
			"password": {"секрет123"},
		}, nil)
		if rec.Code != http.StatusFound {
			t.Fatalf("Вход с верным паролем: ожидался редирект, получено %d", rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/tasks" {
			t.Errorf("Редирект должен вести на /tasks, получено %s", loc)
		}
	})

	t.Run("Wrong password re-renders form", func(t *testing.T) {
		rec := postForm(router, "/login", url.Values{
			"username": {"alice"},
			"password": {"не тот пароль"},
		}, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Неверный пароль: ожидался 401, получено %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Неверное имя пользователя или пароль") {
			t.Error("Форма должна показывать общее сообщение об ошибке")
		}
	})
}

func TestRegisterValidationErrors(t *testing.T) {
	router := newTestRouter(t)

	t.Run("Password mismatch", func(t *testing.T) {
		rec := postForm(router, "/register", url.Values{
			"username":  {"alice"},
			"password1": {"секрет123"},
			"password2": {"другой"},
		}, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Ожидался 400, получено %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Пароли не совпадают") {
			t.Error("Форма должна показывать ошибку про пароли")
		}
	})

	t.Run("Username taken", func(t *testing.T) {
		registerUser(t, router, "bob")
		rec := postForm(router, "/register", url.Values{
			"username":  {"bob"},
			"password1": {"секрет123"},
			"password2": {"секрет123"},
		}, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Ожидался 400, получено %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "уже занято") {
			t.Error("Форма должна показывать ошибку про занятое имя")
		}
	})
}

func TestAlreadyAuthenticatedRedirects(t *testing.T) {
	router := newTestRouter(t)
	cookie := registerUser(t, router, "alice")

	t.Run("GET login", func(t *testing.T) {
		rec := get(router, "/login", cookie)
		if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/tasks" {
			t.Errorf("Залогиненный на /login должен уйти на /tasks, получено %d %s",
				rec.Code, rec.Header().Get("Location"))
		}
	})

	t.Run("GET register", func(t *testing.T) {
		rec := get(router, "/register", cookie)
		if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/tasks" {
			t.Errorf("Залогиненный на /register должен уйти на /tasks, получено %d", rec.Code)
		}
	})

	t.Run("POST login skips credential check", func(t *testing.T) {
		// Пароль неверный, но сессия уже есть - редирект без перепроверки
		rec := postForm(router, "/login", url.Values{
			"username": {"alice"},
			"password": {"совершенно неверный"},
		}, cookie)
		if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/tasks" {
			t.Errorf("Вход при действующей сессии должен сразу редиректить, получено %d", rec.Code)
		}
	})
}

func TestTaskListSearchScenario(t *testing.T) {
	router := newTestRouter(t)
	cookie := registerUser(t, router, "alice")

	createTask(t, router, cookie, "Buy milk")

	t.Run("List shows task and count", func(t *testing.T) {
		rec := get(router, "/tasks", cookie)
		body := rec.Body.String()
		if !strings.Contains(body, "Buy milk") {
			t.Error("Список должен содержать задачу")
		}
		if !strings.Contains(body, `id="count">1<`) {
			t.Errorf("Счетчик незавершенных должен быть 1: %s", body)
		}
	})

	t.Run("Matching search", func(t *testing.T) {
		rec := get(router, "/tasks?search-area=Buy", cookie)
		body := rec.Body.String()
		if !strings.Contains(body, "Buy milk") {
			t.Error("Поиск по Buy должен найти задачу")
		}
		// Введенный текст возвращается в форму
		if !strings.Contains(body, `value="Buy"`) {
			t.Error("Строка поиска должна вернуться в форму")
		}
	})

	t.Run("Non-matching search keeps count", func(t *testing.T) {
		rec := get(router, "/tasks?search-area=Eggs", cookie)
		body := rec.Body.String()
		if strings.Contains(body, "Buy milk") {
			t.Error("Поиск по Eggs не должен находить задачу")
		}
		if !strings.Contains(body, `id="count">1<`) {
			t.Error("Счетчик не должен зависеть от фильтра")
		}
	})
}

func TestTaskCreateValidation(t *testing.T) {
	router := newTestRouter(t)
	cookie := registerUser(t, router, "alice")

	rec := postForm(router, "/tasks/create", url.Values{
		"title":       {""},
		"description": {"описание без заголовка"},
	}, cookie)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Ожидался 400, получено %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "заголовок задачи обязателен") {
		t.Error("Форма должна показывать ошибку валидации")
	}
	// Введенные данные не теряются
	if !strings.Contains(body, "описание без заголовка") {
		t.Error("Введенное описание должно вернуться в форму")
	}
}

func TestTaskUpdateFlow(t *testing.T) {
	router := newTestRouter(t)
	cookie := registerUser(t, router, "alice")
	createTask(t, router, cookie, "старый заголовок")

	t.Run("Form is prefilled", func(t *testing.T) {
		rec := get(router, "/tasks/1/update", cookie)
		if rec.Code != http.StatusOK {
			t.Fatalf("Ожидался 200, получено %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "старый заголовок") {
			t.Error("Форма должна быть заполнена текущими значениями")
		}
	})

	t.Run("Update and complete", func(t *testing.T) {
		rec := postForm(router, "/tasks/1/update", url.Values{
			"title":       {"новый заголовок"},
			"description": {""},
			"complete":    {"on"},
		}, cookie)
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("Обновление должно редиректить, получено %d", rec.Code)
		}

		list := get(router, "/tasks", cookie)
		body := list.Body.String()
		if !strings.Contains(body, "новый заголовок") {
			t.Error("Список должен показывать новый заголовок")
		}
		if !strings.Contains(body, `id="count">0<`) {
			t.Error("Завершенная задача не должна считаться незавершенной")
		}
	})

	t.Run("Update missing task", func(t *testing.T) {
		rec := postForm(router, "/tasks/99/update", url.Values{
			"title":       {"что угодно"},
			"description": {""},
		}, cookie)
		if rec.Code != http.StatusNotFound {
			t.Errorf("Обновление несуществующей задачи: ожидался 404, получено %d", rec.Code)
		}
	})
}

func TestTaskDeleteFlow(t *testing.T) {
	router := newTestRouter(t)
	cookie := registerUser(t, router, "alice")
	createTask(t, router, cookie, "на удаление")

	t.Run("Confirm page", func(t *testing.T) {
		rec := get(router, "/tasks/1/delete", cookie)
		if rec.Code != http.StatusOK {
			t.Fatalf("Ожидался 200, получено %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "на удаление") {
			t.Error("Страница подтверждения должна показывать задачу")
		}
	})

	t.Run("Delete then repeat", func(t *testing.T) {
		rec := postForm(router, "/tasks/1/delete", nil, cookie)
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("Удаление должно редиректить, получено %d", rec.Code)
		}

		// Повторное удаление - 404, не крах
		rec = postForm(router, "/tasks/1/delete", nil, cookie)
		if rec.Code != http.StatusNotFound {
			t.Errorf("Повторное удаление: ожидался 404, получено %d", rec.Code)
		}
	})
}

func TestOwnershipIsolationHTTP(t *testing.T) {
	router := newTestRouter(t)
	aliceCookie := registerUser(t, router, "alice")
	bobCookie := registerUser(t, router, "bobby")

	createTask(t, router, aliceCookie, "задача Алисы")

	t.Run("List", func(t *testing.T) {
		rec := get(router, "/tasks", bobCookie)
		if strings.Contains(rec.Body.String(), "задача Алисы") {
			t.Error("Чужая задача не должна появляться в списке")
		}
	})

	t.Run("Detail", func(t *testing.T) {
		rec := get(router, "/tasks/1", bobCookie)
		if rec.Code != http.StatusNotFound {
			t.Errorf("Чужая задача должна отдавать 404, получено %d", rec.Code)
		}
	})

	t.Run("Update", func(t *testing.T) {
		rec := postForm(router, "/tasks/1/update", url.Values{
			"title":       {"взлом"},
			"description": {""},
		}, bobCookie)
		if rec.Code != http.StatusNotFound {
			t.Errorf("Чужую задачу нельзя обновить, получено %d", rec.Code)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		rec := postForm(router, "/tasks/1/delete", nil, bobCookie)
		if rec.Code != http.StatusNotFound {
			t.Errorf("Чужую задачу нельзя удалить, получено %d", rec.Code)
		}

		// У владельца задача цела
		rec = get(router, "/tasks/1", aliceCookie)
		if rec.Code != http.StatusOK {
			t.Errorf("Задача владельца должна остаться, получено %d", rec.Code)
		}
	})
}

func TestTaskDetail(t *testing.T) {
	router := newTestRouter(t)
	cookie := registerUser(t, router, "alice")
	createTask(t, router, cookie, "Купить молоко")

	t.Run("Existing task", func(t *testing.T) {
		rec := get(router, "/tasks/1", cookie)
		if rec.Code != http.StatusOK {
			t.Fatalf("Ожидался 200, получено %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Купить молоко") {
			t.Error("Страница должна показывать задачу")
		}
	})

	t.Run("Missing task", func(t *testing.T) {
		rec := get(router, "/tasks/99", cookie)
		if rec.Code != http.StatusNotFound {
			t.Errorf("Ожидался 404, получено %d", rec.Code)
		}
	})

	t.Run("Non-numeric id", func(t *testing.T) {
		rec := get(router, "/tasks/abc", cookie)
		if rec.Code != http.StatusNotFound {
			t.Errorf("Нечисловой id: ожидался 404, получено %d", rec.Code)
		}
	})
}

func TestLogout(t *testing.T) {
	router := newTestRouter(t)
	cookie := registerUser(t, router, "alice")

	rec := postForm(router, "/logout", nil, cookie)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Fatalf("Выход должен редиректить на /login, получено %d", rec.Code)
	}

	// Cookie сброшена
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookie && c.MaxAge >= 0 {
			t.Error("Cookie сессии должна быть сброшена")
		}
	}
}

func TestProfileLinkCode(t *testing.T) {
	router := newTestRouter(t)
	cookie := registerUser(t, router, "alice")

	rec := get(router, "/profile", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("Ожидался 200, получено %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/link ") {
		t.Error("Профиль должен показывать команду привязки с кодом")
	}
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)

	rec := get(router, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Ожидался 200, получено %d", rec.Code)
	}
}
