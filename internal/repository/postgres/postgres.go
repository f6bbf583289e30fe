package postgres

import (
	"database/sql"

	_ "github.com/lib/pq"

	"franchise-ledger-backend/internal/repository"
)

type Store struct {
	db *sql.DB
	repository.AccountRepository
	repository.LedgerRepository
	repository.TransactionRepository
	repository.ScheduleRepository
	repository.ContractRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                    db,
		AccountRepository:     NewAccountRepository(db),
		LedgerRepository:      NewLedgerRepository(db),
		TransactionRepository: NewTransactionRepository(db),
		ScheduleRepository:    NewScheduleRepository(db),
		ContractRepository:    NewContractRepository(db),
	}
}
