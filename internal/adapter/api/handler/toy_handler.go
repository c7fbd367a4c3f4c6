package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/InbalMary/mistertoy-mongo-backend/internal/adapter/api/middleware"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/entity"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/query"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/usecase"
	"github.com/InbalMary/mistertoy-mongo-backend/pkg/errors"
	"github.com/InbalMary/mistertoy-mongo-backend/pkg/response"
)

type ToyHandler struct {
	toyUseCase *usecase.ToyUseCase
}

func NewToyHandler(toyUseCase *usecase.ToyUseCase) *ToyHandler {
	return &ToyHandler{
		toyUseCase: toyUseCase,
	}
}

type createToyRequest struct {
	Name    string   `json:"name" validate:"required"`
	Price   float64  `json:"price" validate:"gte=0"`
	InStock bool     `json:"inStock"`
	Labels  []string `json:"labels"`
}

// updateToyRequest has no id field; the id always comes from the path.
type updateToyRequest struct {
	Name    *string  `json:"name" validate:"omitempty,min=1"`
	Price   *float64 `json:"price" validate:"omitempty,gte=0"`
	InStock *bool    `json:"inStock"`
	Labels  []string `json:"labels"`
}

type addMsgRequest struct {
	Txt string `json:"txt" validate:"required"`
}

func (h *ToyHandler) ListToys(c echo.Context) error {
	spec := query.ParseFilter(c.QueryParams())

	page, err := h.toyUseCase.Query(c.Request().Context(), spec)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, page)
}

func (h *ToyHandler) GetToy(c echo.Context) error {
	id := c.Param("id")

	toy, err := h.toyUseCase.GetByID(c.Request().Context(), id)
	if err != nil {
		return response.Error(c, err)
	}
	if toy == nil {
		return response.Error(c, errors.NotFound("Toy", nil))
	}
	return response.Success(c, toy)
}

func (h *ToyHandler) CreateToy(c echo.Context) error {
	var req createToyRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	toy, err := h.toyUseCase.Add(c.Request().Context(), usecase.ToyInput{
		Name:    req.Name,
		Price:   req.Price,
		InStock: req.InStock,
		Labels:  req.Labels,
	}, middleware.IdentityFrom(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, toy)
}

func (h *ToyHandler) UpdateToy(c echo.Context) error {
	id := c.Param("id")

	var req updateToyRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	toy, err := h.toyUseCase.Update(c.Request().Context(), id, entity.ToyPatch{
		Name:    req.Name,
		Price:   req.Price,
		InStock: req.InStock,
		Labels:  req.Labels,
	}, middleware.IdentityFrom(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, toy)
}

func (h *ToyHandler) RemoveToy(c echo.Context) error {
	id, err := h.toyUseCase.Remove(c.Request().Context(), c.Param("id"), middleware.IdentityFrom(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"removedId": id})
}

func (h *ToyHandler) AddToyMsg(c echo.Context) error {
	var req addMsgRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	msg, err := h.toyUseCase.AddMessage(c.Request().Context(), c.Param("id"), req.Txt, middleware.IdentityFrom(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, msg)
}

// RemoveToyMsg answers with the whole toy, not the removed id.
func (h *ToyHandler) RemoveToyMsg(c echo.Context) error {
	toy, err := h.toyUseCase.RemoveMessage(c.Request().Context(), c.Param("id"), c.Param("msgId"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, toy)
}

func (h *ToyHandler) GetLabels(c echo.Context) error {
	labels, err := h.toyUseCase.GetLabels(c.Request().Context())
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, labels)
}

func (h *ToyHandler) GetLabelStats(c echo.Context) error {
	labelStats, err := h.toyUseCase.GetLabelStats(c.Request().Context())
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, labelStats)
}
