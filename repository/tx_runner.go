// Package repository — TxRunner: çok adımlı yazmaların atomik çalıştırılması.
//
// Service katmanı SQL transaction detaylarını bilmez; InTx'e bir fonksiyon
// verir ve o fonksiyonun içindeki TÜM repository çağrıları tek transaction'da
// koşar. Fonksiyon nil dönerse COMMIT, error dönerse ROLLBACK
// (bkz. database.WithTx).
package repository

import (
	"context"
	"database/sql"

	"github.com/akinalp/masa/database"
)

// TxRepos, transaction'a bağlı repository demeti.
// InTx callback'ine geçilir — buradaki her repository aynı *sql.Tx üzerinde
// çalışır. Callback dışında KULLANILMAMALIDIR: transaction kapanınca geçersizdir.
type TxRepos struct {
	Users      UserRepository
	Moderation ModerationRepository
	Resets     PasswordResetRepository
}

// TxRunner, bir iş birimini transaction içinde çalıştırır.
type TxRunner interface {
	// InTx, fn'i tek bir transaction'da koşar. fn'in aldığı TxRepos'taki
	// tüm repository'ler o transaction'a bağlıdır.
	InTx(ctx context.Context, fn func(r *TxRepos) error) error
}

// sqliteTxRunner, TxRunner'ın database/sql implementasyonu.
type sqliteTxRunner struct {
	db *sql.DB
}

// NewSQLiteTxRunner, constructor.
func NewSQLiteTxRunner(db *sql.DB) TxRunner {
	return &sqliteTxRunner{db: db}
}

func (r *sqliteTxRunner) InTx(ctx context.Context, fn func(*TxRepos) error) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		// *sql.Tx de TxQuerier'ı karşılar — aynı constructor'lar
		// transaction-scoped instance'lar üretir.
		return fn(&TxRepos{
			Users:      NewSQLiteUserRepo(tx),
			Moderation: NewSQLiteModerationRepo(tx),
			Resets:     NewSQLiteResetTokenRepo(tx),
		})
	})
}
