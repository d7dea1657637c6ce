package reporting

import (
	"log"
	"net/http"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
)

// Config - настройки отправки ошибок в Rollbar
type Config struct {
	Token       string
	Environment string
	CodeVersion string
	ServerHost  string
}

// Init настраивает глобальный клиент Rollbar.
// Без токена отправка отключена, ошибки только пишутся в лог.
func Init(cfg Config) {
	rollbar.SetToken(cfg.Token)
	rollbar.SetEnvironment(cfg.Environment)
	rollbar.SetCodeVersion(cfg.CodeVersion)
	rollbar.SetServerHost(cfg.ServerHost)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(cfg.Token != "")

	if cfg.Token == "" {
		log.Println("[Reporting] Rollbar token не задан, отправка ошибок отключена")
		return
	}
	log.Printf("[Reporting] Rollbar включен (environment=%s)", cfg.Environment)
}

// Error отправляет ошибку с дополнительными полями
func Error(err error, extras map[string]interface{}) {
	if err == nil {
		return
	}
	if extras == nil {
		rollbar.Error(err)
		return
	}
	rollbar.Error(err, extras)
}

// RequestError отправляет ошибку, возникшую при обработке HTTP-запроса
func RequestError(r *http.Request, err error, extras map[string]interface{}) {
	if err == nil {
		return
	}
	rollbar.Error(err, r, extras)
}

// Close дожидается отправки накопленных ошибок
func Close() {
	rollbar.Close()
}
