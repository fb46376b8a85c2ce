package service

import (
	"time"

	"github.com/mmynk/groupledger/internal/ledger"
	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/pkg/api"
)

func toAPIGroup(g *models.Group) *api.Group {
	return &api.Group{
		ID:        g.ID,
		Name:      g.Name,
		Currency:  g.Currency,
		Members:   g.Members,
		CreatedBy: g.CreatedBy,
		CreatedAt: g.CreatedAt,
	}
}

func toAPIExpense(e *models.Expense) *api.Expense {
	return &api.Expense{
		ID:           e.ID,
		GroupID:      e.GroupID,
		Payer:        e.Payer,
		Amount:       e.Amount,
		Category:     e.Category,
		Description:  e.Description,
		SplitWith:    e.SplitWith,
		SettlementID: e.SettlementID,
		CreatedAt:    e.CreatedAt,
	}
}

func toAPISettlement(s *models.Settlement) *api.Settlement {
	return &api.Settlement{
		ID:        s.ID,
		GroupID:   s.GroupID,
		From:      s.From,
		To:        s.To,
		Amount:    s.Amount,
		SettledAt: s.SettledAt,
		SettledBy: s.SettledBy,
	}
}

func toLedgerExpense(e *models.Expense) ledger.Expense {
	category := e.Category
	if e.SettlementID != "" {
		category = ledger.CategorySettlement
	}
	return ledger.Expense{
		Payer:     e.Payer,
		Amount:    e.Amount,
		SplitWith: e.SplitWith,
		Category:  category,
		CreatedAt: time.UnixMilli(e.CreatedAt),
	}
}

func toLedgerExpenses(expenses []*models.Expense) []ledger.Expense {
	out := make([]ledger.Expense, len(expenses))
	for i, e := range expenses {
		out[i] = toLedgerExpense(e)
	}
	return out
}

func toLedgerHistory(settlements []*models.Settlement) []ledger.SettlementRecord {
	out := make([]ledger.SettlementRecord, len(settlements))
	for i, s := range settlements {
		out[i] = ledger.SettlementRecord{
			From:      s.From,
			To:        s.To,
			Amount:    s.Amount,
			SettledAt: time.UnixMilli(s.SettledAt),
		}
	}
	return out
}
