package handlers

import (
	"sync"

	"task-marketplace-api/internal/apperr"
	"task-marketplace-api/internal/completion"
	"task-marketplace-api/internal/config"
	"task-marketplace-api/internal/database"
	"task-marketplace-api/internal/matching"
	"task-marketplace-api/internal/notify"
	"task-marketplace-api/internal/payment"
	"task-marketplace-api/internal/ratelimit"
	"task-marketplace-api/internal/stats"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-pkgz/lgr"
)

var (
	cfg      config.Config
	logger   lgr.L = lgr.Default()
	initOnce sync.Once

	chatLimiter *ratelimit.Limiter
)

// Init wires the handler package to the loaded configuration and logger.
// Safe to call more than once; later calls are no-ops.
func Init(c config.Config, l lgr.L) {
	initOnce.Do(func() {
		cfg = c
		if l != nil {
			logger = l
		}
		chatLimiter = ratelimit.New(c.ChatRateLimit, time.Duration(c.ChatRateWindowSeconds)*time.Second)
	})
}

func notifier() *notify.Notifier {
	return notify.NewNotifier(notify.GetHub())
}

func engine() *matching.Engine {
	return matching.NewEngine(database.GetDB(), logger, notifier())
}

func gate() *payment.Gate {
	return payment.NewGate(database.GetDB(), cfg.PaymentSecret, logger, notifier())
}

func coordinator() *completion.Coordinator {
	return completion.NewCoordinator(database.GetDB(), stats.NewRecorder(database.GetDB()), logger)
}

// respondError maps an error to its HTTP status and the {"error": "..."}
// payload used across the API.
func respondError(c *gin.Context, err error) {
	c.JSON(apperr.StatusCode(err), gin.H{
		"error": apperr.Message(err),
	})
}
