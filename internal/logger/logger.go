package logger

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var log = logrus.New()

type Level = logrus.Level

const (
	LevelDebug = logrus.DebugLevel
	LevelInfo  = logrus.InfoLevel
	LevelError = logrus.ErrorLevel
)

func init() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetLevel(LevelInfo)
}

// Init настраивает вывод логов. Если filePath не пустой, пишем в файл
// с ротацией, иначе остаемся на stderr.
func Init(filePath, level string) {
	if filePath != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    10, // мегабайт
			MaxBackups: 3,
			MaxAge:     28, // дней
			Compress:   true,
		})
	}

	if lvl, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(lvl)
	}
}

func SetLevel(level Level) {
	log.SetLevel(level)
}

// SetOutput нужен тестам для перехвата вывода.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// Info пишет информационное сообщение с парами ключ-значение.
// Контекст зарезервирован под сквозные поля запроса.
func Info(ctx context.Context, msg string, kv ...interface{}) {
	log.WithFields(fields(kv)).Info(msg)
}

func Error(ctx context.Context, err error, msg string, kv ...interface{}) {
	entry := log.WithFields(fields(kv))
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(msg)
}

func Debug(ctx context.Context, msg string, kv ...interface{}) {
	log.WithFields(fields(kv)).Debug(msg)
}

func fields(kv []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		f[key] = kv[i+1]
	}
	return f
}
