package manager

import (
	"context"
	"errors"
	"time"

	"tasklist-app/internal/logger"
	"tasklist-app/internal/models"
	"tasklist-app/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials - неверная пара логин/пароль. Специально не
// уточняем, что именно не совпало.
var ErrInvalidCredentials = errors.New("неверное имя пользователя или пароль")

var ErrUsernameTaken = storage.ErrUsernameTaken

const linkCodeTTL = 10 * time.Minute

// UserManager отвечает за учетные записи: регистрацию, проверку пароля
// и привязку Telegram.
type UserManager struct {
	storage storage.Storage
}

func NewUserManager(s storage.Storage) *UserManager {
	return &UserManager{storage: s}
}

// Register создает пользователя и возвращает его. Пароль сразу
// хэшируется, открытым текстом он нигде не сохраняется.
func (um *UserManager) Register(username, password string) (*models.User, error) {
	if len(username) < 3 || len(username) > 20 {
		return nil, &ValidationError{Field: "username", Message: "имя пользователя должно быть от 3 до 20 символов"}
	}
	if len(password) < 6 || len(password) > 72 {
		return nil, &ValidationError{Field: "password", Message: "пароль должен быть от 6 до 72 символов"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	id, err := um.storage.CreateUser(user)
	if err != nil {
		return nil, err
	}
	user.ID = id

	logger.Info(context.Background(), "Пользователь зарегистрирован", "userID", id, "username", username)
	return user, nil
}

// Authenticate проверяет пару логин/пароль.
func (um *UserManager) Authenticate(username, password string) (*models.User, error) {
	user, err := um.storage.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (um *UserManager) GetUserByID(id int) (*models.User, error) {
	return um.storage.GetUserByID(id)
}

func (um *UserManager) GetUserByTelegramID(telegramID int64) (*models.User, error) {
	return um.storage.GetUserByTelegramID(telegramID)
}

// CreateLinkCode выдает одноразовый код для привязки Telegram-чата
// к учетной записи. Код действует 10 минут.
func (um *UserManager) CreateLinkCode(userID int) (string, error) {
	code := uuid.New().String()
	if err := um.storage.SaveLinkCode(code, userID, time.Now().Add(linkCodeTTL)); err != nil {
		return "", err
	}
	return code, nil
}

// ConsumeLinkCode гасит код и привязывает Telegram ID к пользователю.
func (um *UserManager) ConsumeLinkCode(code string, telegramID int64) (*models.User, error) {
	userID, err := um.storage.ConsumeLinkCode(code)
	if err != nil {
		return nil, err
	}

	if err := um.storage.LinkTelegram(userID, telegramID); err != nil {
		return nil, err
	}

	logger.Info(context.Background(), "Telegram привязан", "userID", userID, "telegramID", telegramID)
	return um.storage.GetUserByID(userID)
}
