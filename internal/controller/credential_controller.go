package controller

import (
	"strings"

	"ai-dispatch-be/internal/dto"
	"ai-dispatch-be/internal/entity"
	"ai-dispatch-be/internal/pkg/serverutils"
	"ai-dispatch-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ICredentialController interface {
	RegisterRoutes(r fiber.Router)
	SetCredential(ctx *fiber.Ctx) error
	RemoveCredential(ctx *fiber.Ctx) error
	ListCredentials(ctx *fiber.Ctx) error
}

type credentialController struct {
	service service.ICredentialService
}

func NewCredentialController(service service.ICredentialService) ICredentialController {
	return &credentialController{service: service}
}

func (c *credentialController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/credentials", serverutils.JwtMiddleware)
	h.Get("/", c.ListCredentials)
	h.Put("/:vendor", c.SetCredential)
	h.Delete("/:vendor", c.RemoveCredential)
}

func (c *credentialController) SetCredential(ctx *fiber.Ctx) error {
	var req dto.SetCredentialRequest
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

	vendor := strings.ToLower(ctx.Params("vendor"))
	cred, err := c.service.SetCredential(ctx.Context(), userId, vendor, req.ApiKey)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Credential stored", toCredentialResponse(cred)))
}

func (c *credentialController) RemoveCredential(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromCtx(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid user id in token")
	}

	vendor := strings.ToLower(ctx.Params("vendor"))
	if err := c.service.RemoveCredential(ctx.Context(), userId, vendor); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Credential removed", nil))
}

func (c *credentialController) ListCredentials(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromCtx(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid user id in token")
	}

	creds, err := c.service.ListCredentials(ctx.Context(), userId)
	if err != nil {
		return err
	}

	res := make([]dto.CredentialResponse, 0, len(creds))
	for _, cred := range creds {
		res = append(res, toCredentialResponse(cred))
	}
	return ctx.JSON(serverutils.SuccessResponse("Stored credentials", res))
}

func toCredentialResponse(cred *entity.ApiCredential) dto.CredentialResponse {
	return dto.CredentialResponse{
		VendorFamily: cred.VendorFamily,
		KeyHint:      maskKey(cred.ApiKey),
		UpdatedAt:    cred.UpdatedAt,
	}
}

// maskKey keeps only the last four characters of an API key.
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
