package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"retro-board-api/internal/dto"
	"retro-board-api/internal/response"
	"retro-board-api/internal/service"
)

// BoardHandler serves the REST surface: board creation, snapshot
// reads and the plain-text export.
type BoardHandler struct {
	boardService service.BoardService
	logger       *zap.Logger
}

func NewBoardHandler(boardService service.BoardService, logger *zap.Logger) *BoardHandler {
	return &BoardHandler{
		boardService: boardService,
		logger:       logger,
	}
}

// CreateBoard godoc
// @Summary Create a retrospective board
// @Description Creates a board with its columns and the admin participant
// @Tags boards
// @Accept json
// @Produce json
// @Param request body dto.CreateBoardRequest true "Board definition"
// @Success 201 {object} dto.CreateBoardResponse
// @Router /api/boards [post]
func (h *BoardHandler) CreateBoard(c *gin.Context) {
	var req dto.CreateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	result, err := h.boardService.CreateBoard(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusCreated, result)
}

// GetBoard godoc
// @Summary Get a board snapshot
// @Description Returns the full board state including columns and comments
// @Tags boards
// @Produce json
// @Param boardId path string true "Board ID"
// @Success 200 {object} dto.BoardSnapshot
// @Router /api/boards/{boardId} [get]
func (h *BoardHandler) GetBoard(c *gin.Context) {
	boardID, err := uuid.Parse(c.Param("boardId"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid board ID")
		return
	}

	board, err := h.boardService.GetBoard(c.Request.Context(), boardID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, board)
}

// ExportBoard godoc
// @Summary Export a board as plain text
// @Description Downloads the board contents as a text file
// @Tags boards
// @Produce plain
// @Param boardId path string true "Board ID"
// @Success 200 {string} string
// @Router /api/boards/{boardId}/export [get]
func (h *BoardHandler) ExportBoard(c *gin.Context) {
	boardID, err := uuid.Parse(c.Param("boardId"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid board ID")
		return
	}

	text, err := h.boardService.ExportBoard(c.Request.Context(), boardID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("retro-board-%s.txt", boardID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}

// handleServiceError maps service AppErrors to HTTP statuses.
func (h *BoardHandler) handleServiceError(c *gin.Context, err error) {
	if appErr, ok := err.(*response.AppError); ok {
		status := http.StatusInternalServerError
		switch appErr.Code {
		case response.ErrCodeNotFound:
			status = http.StatusNotFound
		case response.ErrCodeValidation:
			status = http.StatusBadRequest
		case response.ErrCodeUnauthorized:
			status = http.StatusUnauthorized
		case response.ErrCodeForbidden:
			status = http.StatusForbidden
		case response.ErrCodeAlreadyExists:
			status = http.StatusConflict
		}
		response.SendError(c, status, appErr.Code, appErr.Message)
		return
	}

	h.logger.Error("Unhandled service error", zap.Error(err))
	response.SendError(c, http.StatusInternalServerError, response.ErrCodeInternal, "Internal server error")
}
