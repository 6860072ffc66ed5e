package logsink

import (
	"context"

	"go.uber.org/zap"

	"github.com/bankops/ledger-service/internal/interfaces"
	"github.com/bankops/ledger-service/internal/models"
)

// Publisher writes one structured log line per committed operation.
type Publisher struct {
	logger *zap.Logger
}

func NewPublisher(logger *zap.Logger) *Publisher {
	return &Publisher{logger: logger}
}

func (p *Publisher) Publish(ctx context.Context, event models.Event) error {
	switch event.Type {
	case models.EventDeposit:
		p.logger.Info("deposit completed",
			zap.String("account_id", event.AccountID),
			zap.String("amount", event.Amount.String()),
			zap.String("balance", event.Balance.String()),
			zap.Uint64("sequence", event.Sequence),
		)
	case models.EventWithdraw:
		p.logger.Info("withdrawal completed",
			zap.String("account_id", event.AccountID),
			zap.String("amount", event.Amount.String()),
			zap.String("balance", event.Balance.String()),
			zap.Uint64("sequence", event.Sequence),
		)
	case models.EventTransfer:
		p.logger.Info("transfer completed",
			zap.String("from_account", event.FromAccount),
			zap.String("to_account", event.ToAccount),
			zap.String("amount", event.Amount.String()),
			zap.Uint64("sequence", event.Sequence),
		)
	case models.EventReset:
		p.logger.Info("system reset")
	}
	return nil
}

var _ interfaces.EventPublisher = (*Publisher)(nil)
