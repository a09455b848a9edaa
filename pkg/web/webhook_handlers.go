package web

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/autoflowhq/autoflow/pkg/instagram"
	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/gofiber/fiber/v3"
)

const (
	sourceAPI       = "api"
	signatureHeader = "X-Hub-Signature-256"
)

var errInvalidJSON = errors.New("invalid JSON format")

// VerifyInstagramWebhook answers the hub.challenge subscription handshake.
func (h *APIHandlers) VerifyInstagramWebhook(c fiber.Ctx) error {
	challenge, ok := instagram.VerifyChallenge(
		c.Query("hub.mode"),
		c.Query("hub.verify_token"),
		c.Query("hub.challenge"),
		h.webhook.VerifyToken,
	)
	if !ok {
		return forbidden(c, "verification token mismatch")
	}

	return c.SendString(challenge)
}

// ReceiveInstagramWebhook normalizes a delivery into inbound events and submits each one.
func (h *APIHandlers) ReceiveInstagramWebhook(c fiber.Ctx) error {
	body := c.Body()

	if h.webhook.AppSecret != "" && !instagram.VerifySignature(body, c.Get(signatureHeader), h.webhook.AppSecret) {
		return forbidden(c, "invalid signature")
	}

	var payload instagram.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	inbound := instagram.Normalize(&payload, time.Now().UTC())

	for _, event := range inbound {
		if err := h.events.Submit(c.Context(), event); err != nil {
			return internalError(c, err)
		}
	}

	return c.JSON(WebhookResponse{Received: len(inbound)})
}

// ReceiveEvent accepts a generic {eventType, senderId, payload} event.
func (h *APIHandlers) ReceiveEvent(c fiber.Ctx) error {
	var event models.InboundEvent
	if err := c.Bind().JSON(&event); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(event); err != nil {
		return badRequest(c, err.Error())
	}

	if event.Source == "" {
		event.Source = sourceAPI
	}

	if err := h.events.Submit(c.Context(), &event); err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(WebhookResponse{Received: 1})
}
