package serverutils

import (
	"errors"

	"ai-dispatch-be/internal/entity"

	"github.com/gofiber/fiber/v2"
)

type WebResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

func SuccessResponse(message string, data interface{}) WebResponse {
	return WebResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func ErrorResponse(code int, message string) WebResponse {
	return WebResponse{
		Success: false,
		Message: message,
		Error: &ErrorBody{
			Code:    code,
			Message: message,
		},
	}
}

// ErrorHandlerMiddleware maps domain errors bubbling out of controllers to
// HTTP statuses. Internal-only errors (rate limits already retried, ledger
// write conflicts) are not in this table on purpose: reaching it with one is
// a bug and surfaces as 500.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		status := fiber.StatusInternalServerError
		switch {
		case errors.Is(err, entity.ErrUnknownProvider):
			status = fiber.StatusNotFound
		case errors.Is(err, entity.ErrInsufficientCredits):
			status = fiber.StatusPaymentRequired
		case errors.Is(err, entity.ErrAllProvidersExhausted):
			status = fiber.StatusBadGateway
		case errors.Is(err, entity.ErrRefundTargetInvalid):
			status = fiber.StatusConflict
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
		}

		// Controllers may stash a structured failure body (e.g. the dispatch
		// outcome with its error kind) for the client alongside the error.
		data := ctx.Locals("error_result")

		return ctx.Status(status).JSON(WebResponse{
			Success: false,
			Message: err.Error(),
			Data:    data,
			Error: &ErrorBody{
				Code:    status,
				Kind:    entity.ErrorKind(err),
				Message: err.Error(),
			},
		})
	}
}
