package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nikolaydubina/fpdecimal"

	"github.com/tidechain/matchbook/pkg/core"
	"github.com/tidechain/matchbook/pkg/logging"
)

// HTTPService exposes order book operations as a JSON API
type HTTPService struct {
	manager *OrderBookManager
}

// NewHTTPService creates an HTTPService over the given manager
func NewHTTPService(manager *OrderBookManager) *HTTPService {
	return &HTTPService{manager: manager}
}

// Router builds the gin engine with all routes registered
func (s *HTTPService) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.RequestLogger())
	router.Use(metricsMiddleware())

	router.POST("/books", s.createBook)
	router.GET("/books", s.listBooks)
	router.DELETE("/books/:book", s.deleteBook)

	router.POST("/books/:book/orders", s.createOrder)
	router.DELETE("/books/:book/orders/:id", s.cancelOrder)
	router.PUT("/books/:book/orders/:id", s.modifyOrder)

	router.GET("/books/:book/depth", s.depth)
	router.GET("/books/:book/size", s.size)

	return router
}

type createBookRequest struct {
	Name    string            `json:"name" binding:"required"`
	Backend string            `json:"backend"`
	Options map[string]string `json:"options"`
}

type createOrderRequest struct {
	OrderID  string `json:"order_id" binding:"required"`
	Side     string `json:"side" binding:"required"`
	Type     string `json:"type"`
	Price    string `json:"price" binding:"required"`
	Quantity string `json:"quantity" binding:"required"`
}

type modifyOrderRequest struct {
	Side     string `json:"side" binding:"required"`
	Price    string `json:"price" binding:"required"`
	Quantity string `json:"quantity" binding:"required"`
}

type tradesResponse struct {
	OrderID string       `json:"order_id"`
	Trades  []core.Trade `json:"trades"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps typed errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidQuantity), errors.Is(err, core.ErrInvalidSide),
		errors.Is(err, core.ErrInvalidPrice), errors.Is(err, core.ErrInvalidOrderType):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrOrderNotFound), errors.Is(err, ErrOrderBookNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDuplicateOrderID), errors.Is(err, ErrOrderBookExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), errorResponse{Error: err.Error()})
}

func (s *HTTPService) createBook(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var info *OrderBookInfo
	var err error
	switch req.Backend {
	case "", "memory":
		info, err = s.manager.CreateMemoryOrderBook(c.Request.Context(), req.Name)
	case "redis":
		info, err = s.manager.CreateRedisOrderBook(c.Request.Context(), req.Name, req.Options)
	default:
		c.JSON(http.StatusBadRequest, errorResponse{Error: "unknown backend: " + req.Backend})
		return
	}
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, info)
}

func (s *HTTPService) listBooks(c *gin.Context) {
	c.JSON(http.StatusOK, s.manager.ListOrderBooks(c.Request.Context()))
}

func (s *HTTPService) deleteBook(c *gin.Context) {
	if err := s.manager.DeleteOrderBook(c.Request.Context(), c.Param("book")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *HTTPService) createOrder(c *gin.Context) {
	book, _, err := s.manager.GetOrderBook(c.Request.Context(), c.Param("book"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	order, err := parseOrder(req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	trades, err := book.AddOrder(c.Request.Context(), order)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, tradesResponse{OrderID: order.ID(), Trades: trades})
}

func parseOrder(req createOrderRequest) (*core.Order, error) {
	side, err := core.SideFromString(req.Side)
	if err != nil {
		return nil, err
	}

	orderType := core.TypeGTC
	switch req.Type {
	case "", "GTC", "gtc":
	case "IOC", "ioc":
		orderType = core.TypeIOC
	default:
		return nil, core.ErrInvalidOrderType
	}

	price, err := fpdecimal.FromString(req.Price)
	if err != nil {
		return nil, core.ErrInvalidPrice
	}
	quantity, err := fpdecimal.FromString(req.Quantity)
	if err != nil {
		return nil, core.ErrInvalidQuantity
	}

	return core.NewOrder(orderType, req.OrderID, side, price, quantity)
}

func (s *HTTPService) cancelOrder(c *gin.Context) {
	book, _, err := s.manager.GetOrderBook(c.Request.Context(), c.Param("book"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	if _, err := book.CancelOrder(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *HTTPService) modifyOrder(c *gin.Context) {
	book, _, err := s.manager.GetOrderBook(c.Request.Context(), c.Param("book"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	var req modifyOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	side, err := core.SideFromString(req.Side)
	if err != nil {
		abortWithError(c, err)
		return
	}
	price, err := fpdecimal.FromString(req.Price)
	if err != nil {
		abortWithError(c, core.ErrInvalidPrice)
		return
	}
	quantity, err := fpdecimal.FromString(req.Quantity)
	if err != nil {
		abortWithError(c, core.ErrInvalidQuantity)
		return
	}

	orderID := c.Param("id")
	trades, err := book.ModifyOrder(c.Request.Context(), orderID, side, price, quantity)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, tradesResponse{OrderID: orderID, Trades: trades})
}

func (s *HTTPService) depth(c *gin.Context) {
	book, _, err := s.manager.GetOrderBook(c.Request.Context(), c.Param("book"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, book.GetOrderInfos())
}

func (s *HTTPService) size(c *gin.Context) {
	book, _, err := s.manager.GetOrderBook(c.Request.Context(), c.Param("book"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"size": book.Size()})
}
