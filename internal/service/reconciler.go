package service

import (
	"context"
	"errors"

	"franchise-ledger-backend/internal/domain"
	"franchise-ledger-backend/internal/gateway"
	"franchise-ledger-backend/internal/logger"
	"franchise-ledger-backend/internal/repository"
)

type reconcilerService struct {
	txRepo repository.TransactionRepository
	txSvc  TransactionService
}

func NewReconcilerService(txRepo repository.TransactionRepository, txSvc TransactionService) ReconcilerService {
	return &reconcilerService{txRepo: txRepo, txSvc: txSvc}
}

// HandleEvent maps one provider event onto the local transaction lifecycle.
// Events for unknown intents, replayed events and events arriving after the
// transaction reached a terminal state are all acknowledged as no-ops;
// returning an error makes the provider redeliver, so only genuine processing
// failures bubble up.
func (s *reconcilerService) HandleEvent(ctx context.Context, event *gateway.Event) error {
	intent := event.Data.Object
	if intent.ID == "" {
		logger.WarnContext(ctx, "webhook event without intent id ignored", "event_id", event.ID, "event_type", event.Type)
		return nil
	}

	tx, err := s.txRepo.GetByProviderID(ctx, intent.ID)
	if errors.Is(err, domain.ErrTransactionNotFound) {
		logger.WarnContext(ctx, "webhook for unknown payment intent ignored",
			"event_id", event.ID, "event_type", event.Type, "provider_transaction_id", intent.ID)
		return nil
	}
	if err != nil {
		return err
	}

	switch event.Type {
	case gateway.EventPaymentSucceeded:
		_, err = s.txSvc.Complete(ctx, tx.ID, intent.ID)
	case gateway.EventPaymentFailed:
		if tx.IsTerminal() {
			return s.skipTerminal(ctx, event, tx)
		}
		_, err = s.txSvc.Fail(ctx, tx.ID, intent.FailureReason())
	case gateway.EventPaymentCanceled:
		if tx.IsTerminal() {
			return s.skipTerminal(ctx, event, tx)
		}
		_, err = s.txSvc.Cancel(ctx, tx.ID, "cancelled by payment provider")
	case gateway.EventPaymentRequiresAction:
		if tx.IsTerminal() {
			return s.skipTerminal(ctx, event, tx)
		}
		_, err = s.txSvc.MarkProcessing(ctx, tx.ID, true)
	default:
		logger.DebugContext(ctx, "unhandled webhook event type", "event_id", event.ID, "event_type", event.Type)
		return nil
	}

	// A transition conflict means another delivery of this or a competing
	// event won the race. The outcome is already recorded; acknowledge.
	if domain.IsConflict(err) {
		logger.InfoContext(ctx, "webhook event lost transition race, acknowledged",
			"event_id", event.ID, "event_type", event.Type, "transaction_id", tx.ID, "error", err)
		return nil
	}
	return err
}

func (s *reconcilerService) skipTerminal(ctx context.Context, event *gateway.Event, tx *domain.Transaction) error {
	logger.InfoContext(ctx, "webhook event for settled transaction ignored",
		"event_id", event.ID, "event_type", event.Type,
		"transaction_id", tx.ID, "status", tx.Status)
	return nil
}
