package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	rest_adapter "github.com/mohammedaassou/go-digital-banking/internal/app/core/adapter/in/rest"
	memory_adapter "github.com/mohammedaassou/go-digital-banking/internal/app/core/adapter/out/memory"
	mysql_adapter "github.com/mohammedaassou/go-digital-banking/internal/app/core/adapter/out/mysql"
	"github.com/mohammedaassou/go-digital-banking/internal/app/core/usecase"
	"github.com/mohammedaassou/go-digital-banking/internal/app/seed"
	"github.com/mohammedaassou/go-digital-banking/pkg/journal"
	"github.com/mohammedaassou/go-digital-banking/pkg/mysql"
)

// StoreKind 設定使用哪種持久化後端
type StoreKind string

const (
	StoreKindMemory StoreKind = "memory"
	StoreKindMySQL  StoreKind = "mysql"
)

type ServerConfig struct {
	Addr         string   `yaml:"addr"`
	AllowOrigins []string `yaml:"allow_origins"`
}

type JournalConfig struct {
	Path string `yaml:"path"`
}

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreKind     `yaml:"store"`
	Journal JournalConfig `yaml:"journal"`
	Seed    bool          `yaml:"seed"`
	MySQL   mysql.Config  `yaml:"mysql"`
}

func main() {
	// 1. 載入設定
	cfg := loadConfig()

	// 2. 依設定初始化持久化後端
	var store usecase.BankStore
	switch cfg.Store {
	case StoreKindMySQL:
		dbClient, err := mysql.NewClient(cfg.MySQL)
		if err != nil {
			log.Fatalf("Failed to connect to MySQL: %v", err)
		}
		defer dbClient.Close()
		log.Println("Connected to MySQL successfully")

		sqlStore := mysql_adapter.NewStore(dbClient)
		if err := sqlStore.AutoMigrate(); err != nil {
			log.Fatalf("Failed to migrate schema: %v", err)
		}
		store = sqlStore
	case StoreKindMemory:
		var j *journal.Journal
		if cfg.Journal.Path != "" {
			var err error
			j, err = journal.Open(cfg.Journal.Path)
			if err != nil {
				log.Fatalf("Failed to open journal: %v", err)
			}
			defer j.Close()
		}
		memStore, err := memory_adapter.NewStore(j)
		if err != nil {
			log.Fatalf("Failed to init memory store: %v", err)
		}
		store = memStore
	default:
		log.Fatalf("Invalid store kind: %q", cfg.Store)
	}

	// 3. 初始化帳務引擎
	core := usecase.NewBankUseCase(store)

	// 4. 灌入展示資料 (只在空庫時執行，避免日誌重放後重複灌)
	if cfg.Seed {
		accounts, err := core.ListAccounts(context.Background())
		if err != nil {
			log.Fatalf("Failed to list accounts: %v", err)
		}
		if len(accounts) == 0 {
			if err := seed.Run(context.Background(), core); err != nil {
				log.Fatalf("Failed to seed: %v", err)
			}
		}
	}

	// 5. 啟動 REST server
	server := rest_adapter.NewServer(core)
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.Router(cfg.Server.AllowOrigins),
	}

	go func() {
		log.Printf("Starting REST server on %s", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to serve: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
	log.Println("Server exited")
}

func loadConfig() Config {
	cfgData, err := os.ReadFile("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
		log.Fatalf("Failed to parse config: %v", err)
	}

	// 補全預設配置 (如果 yaml 沒寫)
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Store == "" {
		cfg.Store = StoreKindMemory
	}
	if cfg.MySQL.MaxOpenConns == 0 {
		cfg.MySQL.MaxOpenConns = 100
	}
	if cfg.MySQL.MaxIdleConns == 0 {
		cfg.MySQL.MaxIdleConns = 10
	}
	if cfg.MySQL.ConnMaxLifetime == 0 {
		cfg.MySQL.ConnMaxLifetime = 30 * time.Minute
	}
	return cfg
}
