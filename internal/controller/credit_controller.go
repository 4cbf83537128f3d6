package controller

import (
	"strconv"

	"ai-dispatch-be/internal/dto"
	"ai-dispatch-be/internal/entity"
	"ai-dispatch-be/internal/pkg/serverutils"
	"ai-dispatch-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ICreditController interface {
	RegisterRoutes(r fiber.Router)
	GetBalance(ctx *fiber.Ctx) error
	GetTransactions(ctx *fiber.Ctx) error
	Refund(ctx *fiber.Ctx) error
	Adjust(ctx *fiber.Ctx) error
	Checkout(ctx *fiber.Ctx) error
	Webhook(ctx *fiber.Ctx) error
}

type creditController struct {
	ledger  service.ILedgerService
	payment service.IPaymentService
}

func NewCreditController(ledger service.ILedgerService, payment service.IPaymentService) ICreditController {
	return &creditController{ledger: ledger, payment: payment}
}

func (c *creditController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/credits")
	h.Get("/balance", serverutils.JwtMiddleware, c.GetBalance)
	h.Get("/transactions", serverutils.JwtMiddleware, c.GetTransactions)
	h.Post("/checkout", serverutils.JwtMiddleware, c.Checkout)

	// Support operations.
	h.Post("/transactions/:id/refund", serverutils.JwtMiddleware, serverutils.AdminOnly, c.Refund)
	h.Post("/adjustments", serverutils.JwtMiddleware, serverutils.AdminOnly, c.Adjust)

	// Gateway callback, authenticated by signature instead of JWT.
	p := r.Group("/payment")
	p.Post("/midtrans/notification", c.Webhook)
}

func (c *creditController) GetBalance(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromCtx(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid user id in token")
	}

	balance, err := c.ledger.GetBalance(ctx.Context(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Current balance", dto.BalanceResponse{
		UserId:  userId,
		Balance: balance.String(),
	}))
}

func (c *creditController) GetTransactions(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromCtx(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid user id in token")
	}

	limit, _ := strconv.Atoi(ctx.Query("limit", "20"))
	offset, _ := strconv.Atoi(ctx.Query("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, total, err := c.ledger.GetTransactions(ctx.Context(), userId, limit, offset)
	if err != nil {
		return err
	}

	res := dto.TransactionListResponse{
		Transactions: make([]dto.TransactionResponse, 0, len(rows)),
		Total:        total,
		Limit:        limit,
		Offset:       offset,
	}
	for _, row := range rows {
		res.Transactions = append(res.Transactions, toTransactionResponse(row))
	}
	return ctx.JSON(serverutils.SuccessResponse("Transaction history", res))
}

func (c *creditController) Refund(ctx *fiber.Ctx) error {
	originalId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid transaction id")
	}

	refund, err := c.ledger.Refund(ctx.Context(), originalId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Transaction refunded", dto.RefundResponse{
		RefundId:     refund.Id,
		OriginalId:   originalId,
		Amount:       refund.Amount.String(),
		BalanceAfter: refund.BalanceAfter.String(),
	}))
}

func (c *creditController) Adjust(ctx *fiber.Ctx) error {
	var req dto.AdjustmentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid amount")
	}

	row, err := c.ledger.Credit(ctx.Context(), req.UserId, amount, entity.TransactionTypeAdjustment, service.CreditContext{
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Adjustment applied", toTransactionResponse(row)))
}

func (c *creditController) Checkout(ctx *fiber.Ctx) error {
	var req dto.TopupRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	userId, err := serverutils.UserIdFromCtx(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid user id in token")
	}

	res, err := c.payment.CreateTopup(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Topup order created", res))
}

func (c *creditController) Webhook(ctx *fiber.Ctx) error {
	var req dto.MidtransWebhookRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.SendStatus(fiber.StatusBadRequest)
	}

	if err := c.payment.HandleNotification(ctx.Context(), &req); err != nil {
		// Non-200 makes the gateway retry the notification.
		return ctx.SendStatus(fiber.StatusInternalServerError)
	}
	return ctx.SendStatus(fiber.StatusOK)
}

func toTransactionResponse(row *entity.CreditTransaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		Id:            row.Id,
		Type:          string(row.Type),
		Amount:        row.Amount.String(),
		BalanceBefore: row.BalanceBefore.String(),
		BalanceAfter:  row.BalanceAfter.String(),
		Description:   row.Description,
		Metadata:      row.Metadata,
		AiProvider:    row.AiProvider,
		AiModel:       row.AiModel,
		TokensUsed:    row.TokensUsed,
		CreatedAt:     row.CreatedAt,
	}
}
