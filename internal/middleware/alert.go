package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/quizfaber/quizserver/config"
	"github.com/quizfaber/quizserver/internal/service"
	"github.com/rs/zerolog/log"
)

// MailAlert emails the administrator when a response finishes with one of the
// configured status codes. The send happens off the request goroutine, a slow
// mail server never delays the response.
func MailAlert(cfg *config.Config, mailer service.MailerService) gin.HandlerFunc {
	codes := make(map[int]bool, len(cfg.Mail.AlertCodes))
	for _, code := range cfg.Mail.AlertCodes {
		codes[code] = true
	}
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if !codes[status] {
			return
		}
		subject := fmt.Sprintf("quiz server alert: %d on %s", status, c.FullPath())
		body := fmt.Sprintf("status: %d\nmethod: %s\npath: %s\nclient: %s\nerrors: %s",
			status, c.Request.Method, c.Request.URL.Path, c.ClientIP(), c.Errors.String())
		go func() {
			if err := mailer.SendAlert(subject, body); err != nil {
				log.Error().Err(err).Int("status", status).Msg("alert mail failed")
			}
		}()
	}
}
