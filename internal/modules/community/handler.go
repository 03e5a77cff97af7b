package community

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/campus/internal/domain"
	"github.com/nfrund/campus/internal/middleware"
)

// Handler serves the REST side of community chat.
type Handler struct {
	service *Service
}

// NewHandler creates a new community Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// sendRequest is the body of the REST send endpoint.
type sendRequest struct {
	UserID      string             `json:"userId" validate:"required"`
	Content     string             `json:"content"`
	MessageType domain.MessageType `json:"messageType" validate:"omitempty,oneof=text file"`
	FileURL     string             `json:"fileUrl"`
}

// GetMessages returns the history of a community, oldest first.
func (h *Handler) GetMessages(c echo.Context) error {
	communityID := c.Param("communityId")
	messages, err := h.service.History(c.Request().Context(), communityID)
	if err != nil {
		if errors.Is(err, domain.ErrCommunityNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Community not found")
		}
		middleware.FromContext(c.Request().Context()).Error("Failed to load community history",
			"community_id", communityID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load messages").SetInternal(err)
	}
	return c.JSON(http.StatusOK, messages)
}

// PostMessage sends a message for clients that are not connected to the gateway.
func (h *Handler) PostMessage(c echo.Context) error {
	var req sendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format.")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	delivery, err := h.service.SendChannelMessage(c.Request().Context(), SendChannelMessageRequest{
		CommunityID: c.Param("communityId"),
		Content:     req.Content,
		MessageType: req.MessageType,
		FileURL:     req.FileURL,
	}, req.UserID)
	if err != nil {
		// Mapped to a status code by the server's error handler.
		return err
	}
	return c.JSON(http.StatusCreated, delivery.Message)
}
