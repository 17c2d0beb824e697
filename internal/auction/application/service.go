package application

import (
	"context"

	"github.com/cristianortiz/bidstream/internal/auction/domain"
	"github.com/google/uuid"
)

// AuctionService is the application interface of the auction module, the
// surface infra layers (HTTP, WS) call into.
type AuctionService interface {
	// SubmitBid handles a bid submission against an auction ledger, returns
	// the accepted bid or a validation/concurrency error the caller can act on
	SubmitBid(ctx context.Context, cmd SubmitBidDTO) (*domain.Bid, error)
	GetAuctionState(ctx context.Context, auctionID uuid.UUID) (*AuctionSnapshot, error)
	CreateAuction(ctx context.Context, cmd CreateAuctionDTO) (*domain.Auction, error)
	PublishAuction(ctx context.Context, auctionID uuid.UUID) (*domain.Auction, error)
	CancelAuction(ctx context.Context, auctionID uuid.UUID) (*domain.Auction, error)
	CompleteAuction(ctx context.Context, auctionID uuid.UUID) (*domain.Auction, error)
}

type auctionService struct {
	submitBidUC *SubmitBidUseCase
	stateUC     *GetAuctionStateUseCase
	lifecycleUC *LifecycleUseCase
}

func NewAuctionService(submitBidUC *SubmitBidUseCase, stateUC *GetAuctionStateUseCase, lifecycleUC *LifecycleUseCase) AuctionService {
	return &auctionService{
		submitBidUC: submitBidUC,
		stateUC:     stateUC,
		lifecycleUC: lifecycleUC,
	}
}

func (as *auctionService) SubmitBid(ctx context.Context, cmd SubmitBidDTO) (*domain.Bid, error) {
	return as.submitBidUC.Execute(ctx, cmd)
}

func (as *auctionService) GetAuctionState(ctx context.Context, auctionID uuid.UUID) (*AuctionSnapshot, error) {
	return as.stateUC.Execute(ctx, auctionID)
}

func (as *auctionService) CreateAuction(ctx context.Context, cmd CreateAuctionDTO) (*domain.Auction, error) {
	return as.lifecycleUC.Create(ctx, cmd)
}

func (as *auctionService) PublishAuction(ctx context.Context, auctionID uuid.UUID) (*domain.Auction, error) {
	return as.lifecycleUC.Publish(ctx, auctionID)
}

func (as *auctionService) CancelAuction(ctx context.Context, auctionID uuid.UUID) (*domain.Auction, error) {
	return as.lifecycleUC.Cancel(ctx, auctionID)
}

func (as *auctionService) CompleteAuction(ctx context.Context, auctionID uuid.UUID) (*domain.Auction, error) {
	return as.lifecycleUC.Complete(ctx, auctionID)
}
