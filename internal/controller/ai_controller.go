package controller

import (
	"ai-dispatch-be/internal/dto"
	"ai-dispatch-be/internal/pkg/serverutils"
	"ai-dispatch-be/internal/service"
	"ai-dispatch-be/pkg/llm/registry"

	"github.com/gofiber/fiber/v2"
)

type IAiController interface {
	RegisterRoutes(r fiber.Router)
	Dispatch(ctx *fiber.Ctx) error
	ListProviders(ctx *fiber.Ctx) error
}

type aiController struct {
	service  service.IDispatchService
	registry *registry.Registry
}

func NewAiController(service service.IDispatchService, reg *registry.Registry) IAiController {
	return &aiController{service: service, registry: reg}
}

func (c *aiController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/ai")
	h.Post("/dispatch", serverutils.JwtMiddleware, c.Dispatch)

	// Provider catalog is public: clients need it to render model pickers
	// before authenticating.
	r.Get("/providers", c.ListProviders)
}

func (c *aiController) Dispatch(ctx *fiber.Ctx) error {
	var req dto.DispatchRequest
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

	res, err := c.service.Dispatch(ctx.Context(), userId, &req)
	if err != nil {
		// The response body still carries the structured failure; the error
		// handler middleware picks the status from the error chain.
		if res != nil {
			ctx.Locals("error_result", res)
		}
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Dispatch completed", res))
}

func (c *aiController) ListProviders(ctx *fiber.Ctx) error {
	descriptors := c.registry.List()
	res := make([]dto.ProviderResponse, 0, len(descriptors))
	for _, d := range descriptors {
		res = append(res, dto.ProviderResponse{
			Id:           d.Id,
			ModelName:    d.ModelName,
			CreditCost:   d.CreditCost.String(),
			VendorFamily: d.VendorFamily,
			Tier:         d.Tier,
			Aliases:      d.Aliases,
		})
	}
	return ctx.JSON(serverutils.SuccessResponse("Available providers", res))
}
