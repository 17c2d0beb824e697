package http

import (
	"context"
	"errors"
	"time"

	"github.com/cristianortiz/bidstream/internal/auction/application"
	"github.com/cristianortiz/bidstream/internal/auction/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionHTTPHandler exposes the auction module over REST.
type AuctionHTTPHandler struct {
	auctionService application.AuctionService
	defaultWindow  time.Duration
}

func NewAuctionHTTPHandler(auctionService application.AuctionService, defaultWindow time.Duration) *AuctionHTTPHandler {
	return &AuctionHTTPHandler{
		auctionService: auctionService,
		defaultWindow:  defaultWindow,
	}
}

func (h *AuctionHTTPHandler) RegisterRoutes(app *fiber.App) {
	app.Post("/auctions", h.createAuction)
	app.Get("/auctions/:auctionID", h.getAuctionState)
	app.Post("/auctions/:auctionID/publish", h.publishAuction)
	app.Post("/auctions/:auctionID/cancel", h.cancelAuction)
	app.Post("/auctions/:auctionID/complete", h.completeAuction)
	app.Post("/auctions/:auctionID/bids", h.submitBid)
}

type createAuctionRequest struct {
	SellerID         uuid.UUID        `json:"seller_id"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	StartingPrice    decimal.Decimal  `json:"starting_price"`
	BidIncrement     decimal.Decimal  `json:"bid_increment"`
	ReservePrice     *decimal.Decimal `json:"reserve_price,omitempty"`
	StartTime        time.Time        `json:"start_time"`
	EndTime          time.Time        `json:"end_time"`
	AutoExtendWindow string           `json:"auto_extend_window,omitempty"` // duration, e.g. "5m"
}

func (h *AuctionHTTPHandler) createAuction(c *fiber.Ctx) error {
	var req createAuctionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	window := h.defaultWindow
	if req.AutoExtendWindow != "" {
		parsed, err := time.ParseDuration(req.AutoExtendWindow)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid auto_extend_window")
		}
		window = parsed
	}

	auction, err := h.auctionService.CreateAuction(c.Context(), application.CreateAuctionDTO{
		SellerID:         req.SellerID,
		Title:            req.Title,
		Description:      req.Description,
		StartingPrice:    req.StartingPrice,
		BidIncrement:     req.BidIncrement,
		ReservePrice:     req.ReservePrice,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		AutoExtendWindow: window,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"auction_id": auction.ID,
		"status":     auction.Status,
	})
}

func (h *AuctionHTTPHandler) getAuctionState(c *fiber.Ctx) error {
	auctionID, err := uuid.Parse(c.Params("auctionID"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid auction id")
	}

	snapshot, err := h.auctionService.GetAuctionState(c.Context(), auctionID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(snapshot)
}

type submitBidRequest struct {
	BidderID   uuid.UUID        `json:"bidder_id"`
	Amount     decimal.Decimal  `json:"amount"`
	IsAutoBid  bool             `json:"is_auto_bid,omitempty"`
	AutoBidMax *decimal.Decimal `json:"auto_bid_max,omitempty"`
}

func (h *AuctionHTTPHandler) submitBid(c *fiber.Ctx) error {
	auctionID, err := uuid.Parse(c.Params("auctionID"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid auction id")
	}

	var req submitBidRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	bid, err := h.auctionService.SubmitBid(c.Context(), application.SubmitBidDTO{
		AuctionID:  auctionID,
		BidderID:   req.BidderID,
		Amount:     req.Amount,
		IsAutoBid:  req.IsAutoBid,
		AutoBidMax: req.AutoBidMax,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"bid_id":    bid.ID,
		"amount":    bid.Amount,
		"status":    bid.Status,
		"placed_at": bid.PlacedAt,
	})
}

func (h *AuctionHTTPHandler) publishAuction(c *fiber.Ctx) error {
	return h.lifecycle(c, h.auctionService.PublishAuction)
}

func (h *AuctionHTTPHandler) cancelAuction(c *fiber.Ctx) error {
	return h.lifecycle(c, h.auctionService.CancelAuction)
}

func (h *AuctionHTTPHandler) completeAuction(c *fiber.Ctx) error {
	return h.lifecycle(c, h.auctionService.CompleteAuction)
}

func (h *AuctionHTTPHandler) lifecycle(c *fiber.Ctx, op func(ctx context.Context, auctionID uuid.UUID) (*domain.Auction, error)) error {
	auctionID, err := uuid.Parse(c.Params("auctionID"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid auction id")
	}

	auction, err := op(c.Context(), auctionID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"auction_id": auction.ID,
		"status":     auction.Status,
		"end_time":   auction.EndTime,
	})
}

func respondError(c *fiber.Ctx, err error) error {
	var tooLow *domain.BidTooLowError
	if errors.As(err, &tooLow) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bid_too_low",
			"minimum": tooLow.Minimum,
		})
	}

	switch {
	case errors.Is(err, domain.ErrAuctionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "auction_not_found"})
	case errors.Is(err, domain.ErrSelfBidForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "self_bid_forbidden"})
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidAutoBid):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrAuctionNotActive),
		errors.Is(err, domain.ErrCancellationBlocked),
		errors.Is(err, domain.ErrAuctionNotDraft),
		errors.Is(err, domain.ErrStaleSchedule),
		errors.Is(err, domain.ErrAuctionNotEnded),
		errors.Is(err, domain.ErrAuctionAlreadyFinal),
		errors.Is(err, domain.ErrConcurrentModification):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
