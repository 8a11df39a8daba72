package database

import (
	"database/sql"
	stdlog "log"

	"github.com/investidor2021/notas-corretagem/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Creating database schema if needed", "databasePath", databasePath)
	} else {
		stdlog.Println("Creating database schema if needed:", databasePath)
	}

	createUsersTable := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := DB.Exec(createUsersTable); err != nil {
		stdlog.Fatalf("failed to create users table: %v", err)
	}

	// One row per ingested brokerage note; the unique constraint is what
	// lets the upload service skip documents it has already seen.
	createNotasTable := `
	CREATE TABLE IF NOT EXISTS notas (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		numero_nota TEXT NOT NULL,
		data_pregao TEXT NOT NULL,
		corretora TEXT,
		cnpj TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(user_id, numero_nota, data_pregao, cnpj),
		FOREIGN KEY(user_id) REFERENCES users(id)
	);`
	if _, err := DB.Exec(createNotasTable); err != nil {
		stdlog.Fatalf("failed to create notas table: %v", err)
	}

	// Trade lines as extracted, strings in the note's own format. The
	// engine normalizes on read; storage never interprets the values.
	createOperacoesTable := `
	CREATE TABLE IF NOT EXISTS operacoes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		numero_nota TEXT,
		corretora TEXT,
		cnpj TEXT,
		data_pregao TEXT NOT NULL,
		ativo TEXT NOT NULL,
		tipo_mercado TEXT,
		compra_venda TEXT,
		d_c TEXT,
		quantidade TEXT NOT NULL,
		preco TEXT,
		valor TEXT NOT NULL,
		taxas TEXT,
		vencimento TEXT,
		obs TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);`
	if _, err := DB.Exec(createOperacoesTable); err != nil {
		stdlog.Fatalf("failed to create operacoes table: %v", err)
	}

	createOperacoesIndex := `
	CREATE INDEX IF NOT EXISTS idx_operacoes_user_date ON operacoes(user_id, data_pregao);`
	if _, err := DB.Exec(createOperacoesIndex); err != nil {
		stdlog.Fatalf("failed to create operacoes index: %v", err)
	}
}
