package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	bolt "go.etcd.io/bbolt"

	"github.com/1001R/bpm/internal/config"
	"github.com/1001R/bpm/internal/entity"
	"github.com/1001R/bpm/internal/entrypoint/telegram"
	"github.com/1001R/bpm/internal/events/kafka"
	"github.com/1001R/bpm/internal/usecase"
	"github.com/1001R/bpm/internal/usecase/repository/idempotence"
	"github.com/1001R/bpm/internal/usecase/repository/ledger"
	"github.com/1001R/bpm/internal/usecase/repository/userstate"
	"github.com/1001R/bpm/pkg/mysql"
)

type ledgerStore interface {
	CreateAccount(ctx context.Context, accountID string) error
	Balance(ctx context.Context, accountID string) (int64, error)
	Append(ctx context.Context, tran entity.Transaction) (entity.Transaction, error)
	Page(ctx context.Context, accountID string, cursor entity.Cursor) (entity.Page, error)
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the yaml config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalln("[ERROR] load config:", err)
	}
	if cfg.Telegram.Token == "" {
		log.Fatalln("[ERROR] telegram token is not configured")
	}
	if len(cfg.Accounts) == 0 {
		log.Fatalln("[ERROR] no accounts configured")
	}

	// dialog state and update dedup always live in the local bolt file,
	// even when the ledger itself is backed by mysql
	db, err := bolt.Open(cfg.Store.Path, 0600, nil)
	if err != nil {
		log.Fatalln("[ERROR] open bolt db:", err)
	}
	defer db.Close()

	idempotenceRepo, err := idempotence.NewBoltDB(db)
	if err != nil {
		log.Fatalln("[ERROR] init idempotence repository:", err)
	}
	userstateRepo, err := userstate.NewBoltDB(db)
	if err != nil {
		log.Fatalln("[ERROR] init userstate repository:", err)
	}

	var store ledgerStore
	switch cfg.Store.Backend {
	case "boltdb":
		store, err = ledger.NewBoltDB(db)
		if err != nil {
			log.Fatalln("[ERROR] init bolt ledger:", err)
		}
	case "mysql":
		client, err := mysql.NewClient(cfg.Store.MySQL)
		if err != nil {
			log.Fatalln("[ERROR] connect to mysql:", err)
		}
		defer client.Close()

		store, err = ledger.NewMySQL(client)
		if err != nil {
			log.Fatalln("[ERROR] init mysql ledger:", err)
		}
	default:
		log.Fatalln("[ERROR] unknown store backend:", cfg.Store.Backend)
	}

	ctx := context.Background()

	// account provisioning is configuration driven, the engine itself
	// never creates accounts
	accounts := make(map[int64]telegram.Account, len(cfg.Accounts))
	for _, binding := range cfg.Accounts {
		if err := store.CreateAccount(ctx, binding.Account); err != nil {
			log.Fatalln("[ERROR] provision account:", err)
		}
		accounts[binding.TelegramID] = telegram.Account{
			ID:     binding.Account,
			Parent: binding.Parent,
		}
	}

	appendTransaction := usecase.NewAppendTransaction(store, nil)
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer publisher.Close()
		appendTransaction = usecase.NewAppendTransaction(store, publisher)
	}

	bot, err := telegram.New(
		cfg.Telegram.Token,
		accounts,
		usecase.NewIdempotence(idempotenceRepo),
		usecase.NewGetUserstate(userstateRepo),
		usecase.NewSaveUserstate(userstateRepo),
		usecase.NewGetBalance(store),
		usecase.NewGetStatement(store),
		usecase.NewFetchPage(store),
		appendTransaction,
	)
	if err != nil {
		log.Fatalln("[ERROR] init telegram bot:", err)
	}

	bot.Start(ctx)
	log.Println("bpm up and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down")
}
