package middlewares

import (
	"verwaltung-backend/apperr"
	"verwaltung-backend/database"
	"verwaltung-backend/logs"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const txLocalKey = "tx"

// Tx opens a per-request database transaction and commits or rolls back
// based on the handler outcome. Apply it AFTER Idempotent so that a replayed
// response never opens a transaction, and so idempotency records are not
// tied to the handler transaction.
//
// Rollback on failure is what makes the outbox transactional: a rolled-back
// mutation leaves no delivery or job rows behind.
func Tx() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		tx := database.DB.Begin()
		if tx.Error != nil {
			return apperr.Database()
		}

		defer func() {
			if r := recover(); r != nil {
				_ = tx.Rollback()
				panic(r) // re-panic after rollback so fiber's handler can catch
			}
			if err != nil {
				_ = tx.Rollback()
				return
			}
			if e := tx.Commit().Error; e != nil {
				logs.Logger.WithError(e).Error("tx commit failed")
				err = apperr.Database()
			}
		}()

		c.Locals(txLocalKey, tx)
		err = c.Next()
		return err
	}
}

// TxFromCtx returns the per-request transaction, or the shared handle when
// the route did not open one.
func TxFromCtx(c *fiber.Ctx) *gorm.DB {
	if tx, ok := c.Locals(txLocalKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return database.DB
}
