package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"tasklist-app/internal/logger"
	"tasklist-app/internal/manager"
	"tasklist-app/internal/models"
	"tasklist-app/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/joho/godotenv"
)

type Bot struct {
	api   *tgbotapi.BotAPI
	tasks *manager.TaskManager
	users *manager.UserManager
}

func NewBot(token string, tm *manager.TaskManager, um *manager.UserManager) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания бота: %w", err)
	}

	logger.Info(context.Background(), "Бот авторизован", "username", bot.Self.UserName)

	return &Bot{
		api:   bot,
		tasks: tm,
		users: um,
	}, nil
}

func (b *Bot) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates, err := b.api.GetUpdatesChan(u)
	if err != nil {
		return fmt.Errorf("ошибка получения updates: %w", err)
	}

	logger.Info(context.Background(), "Бот запущен и слушает сообщения")

	for update := range updates {
		if update.Message == nil {
			continue
		}

		go b.handleMessage(update.Message)
	}

	return nil
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	ctx := context.Background()

	logger.Debug(ctx, "Получено сообщение",
		"user", msg.From.UserName,
		"text", msg.Text,
	)

	if msg.IsCommand() {
		b.handleCommand(msg)
		return
	}

	// Обычный текст от привязанного пользователя превращается в задачу
	if strings.TrimSpace(msg.Text) != "" {
		b.addTask(msg, msg.Text)
	}
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.sendWelcomeMessage(msg.Chat.ID)
	case "link":
		b.linkAccount(msg)
	case "add":
		b.addTask(msg, msg.CommandArguments())
	case "list":
		b.listTasks(msg)
	case "search":
		b.searchTasks(msg)
	case "done":
		b.completeTask(msg)
	case "delete":
		b.deleteTask(msg)
	case "help":
		b.sendHelp(msg.Chat.ID)
	default:
		b.sendMessage(msg.Chat.ID, "Неизвестная команда. Используйте /help для списка команд.")
	}
}

func (b *Bot) sendWelcomeMessage(chatID int64) {
	text := `Добро пожаловать!

Это бот вашего списка задач. Сначала привяжите аккаунт:
откройте страницу профиля в веб-приложении, скопируйте код
и отправьте команду /link КОД.

Дальше - /help.`

	b.sendMessage(chatID, text)
}

func (b *Bot) sendHelp(chatID int64) {
	text := `Доступные команды:
/link КОД - Привязать аккаунт
/add [задача] - Добавить задачу
/list - Показать все задачи
/search [префикс] - Поиск по началу заголовка
/done [номер] - Отметить задачу выполненной
/delete [номер] - Удалить задачу
/help - Помощь

Обычное текстовое сообщение тоже добавляет задачу.`

	b.sendMessage(chatID, text)
}

func (b *Bot) linkAccount(msg *tgbotapi.Message) {
	code := strings.TrimSpace(msg.CommandArguments())
	if code == "" {
		b.sendMessage(msg.Chat.ID, "Укажите код: /link КОД")
		return
	}

	user, err := b.users.ConsumeLinkCode(code, int64(msg.From.ID))
	if err != nil {
		b.sendMessage(msg.Chat.ID, "Не получилось привязать аккаунт: "+err.Error())
		return
	}

	b.sendMessage(msg.Chat.ID, fmt.Sprintf("Аккаунт %s привязан. Отправьте /list для списка задач.", user.Username))
}

// currentUser находит пользователя по Telegram ID отправителя.
func (b *Bot) currentUser(msg *tgbotapi.Message) (*models.User, bool) {
	user, err := b.users.GetUserByTelegramID(int64(msg.From.ID))
	if err != nil {
		b.sendMessage(msg.Chat.ID, "Аккаунт не привязан. Откройте профиль в веб-приложении и отправьте /link КОД.")
		return nil, false
	}
	return user, true
}

func (b *Bot) addTask(msg *tgbotapi.Message, text string) {
	user, ok := b.currentUser(msg)
	if !ok {
		return
	}

	title := strings.TrimSpace(text)
	if title == "" {
		b.sendMessage(msg.Chat.ID, "Укажите текст задачи: /add Купить молоко")
		return
	}

	id, err := b.tasks.CreateTask(user.ID, models.CreateTaskRequest{Title: title})
	if err != nil {
		b.sendMessage(msg.Chat.ID, "Не удалось добавить задачу: "+err.Error())
		return
	}

	b.sendMessage(msg.Chat.ID, fmt.Sprintf("Задача №%d добавлена", id))
}

func (b *Bot) listTasks(msg *tgbotapi.Message) {
	user, ok := b.currentUser(msg)
	if !ok {
		return
	}

	tasks, count, err := b.tasks.ListTasks(user.ID, "")
	if err != nil {
		b.sendMessage(msg.Chat.ID, "Не удалось получить задачи: "+err.Error())
		return
	}

	b.sendMessage(msg.Chat.ID, formatTasks(tasks, count))
}

func (b *Bot) searchTasks(msg *tgbotapi.Message) {
	user, ok := b.currentUser(msg)
	if !ok {
		return
	}

	prefix := strings.TrimSpace(msg.CommandArguments())
	tasks, count, err := b.tasks.ListTasks(user.ID, prefix)
	if err != nil {
		b.sendMessage(msg.Chat.ID, "Не удалось выполнить поиск: "+err.Error())
		return
	}

	b.sendMessage(msg.Chat.ID, formatTasks(tasks, count))
}

func (b *Bot) completeTask(msg *tgbotapi.Message) {
	user, ok := b.currentUser(msg)
	if !ok {
		return
	}

	id, err := strconv.Atoi(strings.TrimSpace(msg.CommandArguments()))
	if err != nil {
		b.sendMessage(msg.Chat.ID, "Укажите номер задачи: /done 1")
		return
	}

	completed := true
	if _, err := b.tasks.UpdateTask(user.ID, id, models.UpdateTaskRequest{Completed: &completed}); err != nil {
		b.sendMessage(msg.Chat.ID, "Не удалось отметить задачу: "+err.Error())
		return
	}

	b.sendMessage(msg.Chat.ID, fmt.Sprintf("Задача №%d выполнена", id))
}

func (b *Bot) deleteTask(msg *tgbotapi.Message) {
	user, ok := b.currentUser(msg)
	if !ok {
		return
	}

	id, err := strconv.Atoi(strings.TrimSpace(msg.CommandArguments()))
	if err != nil {
		b.sendMessage(msg.Chat.ID, "Укажите номер задачи: /delete 1")
		return
	}

	if err := b.tasks.DeleteTask(user.ID, id); err != nil {
		b.sendMessage(msg.Chat.ID, "Не удалось удалить задачу: "+err.Error())
		return
	}

	b.sendMessage(msg.Chat.ID, fmt.Sprintf("Задача №%d удалена", id))
}

func formatTasks(tasks []models.Task, incomplete int) string {
	if len(tasks) == 0 {
		return "Задач нет"
	}

	var sb strings.Builder
	for _, task := range tasks {
		status := "⬜"
		if task.Completed {
			status = "✅"
		}
		fmt.Fprintf(&sb, "%s №%d %s\n", status, task.ID, task.Title)
	}
	fmt.Fprintf(&sb, "\nНезавершенных: %d", incomplete)

	return sb.String()
}

func (b *Bot) sendMessage(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		logger.Error(context.Background(), err, "Ошибка отправки сообщения", "chatID", chatID)
	}
}

func main() {
	_ = godotenv.Load()

	logger.Init(os.Getenv("LOG_FILE"), os.Getenv("LOG_LEVEL"))

	ctx := context.Background()

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		logger.Error(ctx, nil, "TELEGRAM_BOT_TOKEN не задан")
		os.Exit(1)
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./data/tasklist.db"
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		logger.Error(ctx, err, "Не удалось открыть хранилище", "path", dbPath)
		os.Exit(1)
	}
	defer store.Close()

	bot, err := NewBot(token, manager.NewTaskManager(store), manager.NewUserManager(store))
	if err != nil {
		logger.Error(ctx, err, "Не удалось создать бота")
		os.Exit(1)
	}

	if err := bot.Start(); err != nil {
		logger.Error(ctx, err, "Бот остановлен")
		os.Exit(1)
	}
}
