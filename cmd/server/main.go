package main

import (
	"fmt"
	stdlog "log"

	"github.com/gin-gonic/gin"

	"github.com/Vigneshd705/ChatApp/internal/ca"
	"github.com/Vigneshd705/ChatApp/internal/config"
	"github.com/Vigneshd705/ChatApp/internal/domain"
	"github.com/Vigneshd705/ChatApp/internal/enroll"
	"github.com/Vigneshd705/ChatApp/internal/gateway"
	"github.com/Vigneshd705/ChatApp/internal/handler"
	"github.com/Vigneshd705/ChatApp/internal/repository"
	"github.com/Vigneshd705/ChatApp/internal/session"
	"github.com/Vigneshd705/ChatApp/internal/statedb"
	"github.com/Vigneshd705/ChatApp/internal/token"
	"github.com/Vigneshd705/ChatApp/internal/wallet"
	"github.com/Vigneshd705/ChatApp/pkg/database"
	"github.com/Vigneshd705/ChatApp/pkg/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Failed to load config: %v", err)
	}

	log.Init(cfg.Log)
	logger := log.L()

	// Ledger state and wallet
	state, err := statedb.Open(cfg.Ledger.StatePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open ledger state")
	}
	defer state.Close()

	ids, err := wallet.Open(cfg.Wallet.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open wallet")
	}
	defer ids.Close()

	ledger := gateway.New(state, ids)

	// Issuing authority and enrollment workflow
	authority := ca.NewClient(cfg.Authority.URL, cfg.Authority.Timeout)
	enroller := enroll.New(ids, authority, ledger, enroll.Config{
		AdminID:     cfg.Authority.AdminID,
		Affiliation: cfg.Authority.Affiliation,
		MSPID:       cfg.Authority.MSPID,
	})

	// Local password store
	db, err := database.New(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db, &domain.LocalUser{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}

	// Session bridge
	tokens, err := token.NewManager(cfg.Session.TokenTTL, cfg.Session.Issuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create token manager")
	}
	bridge := session.New(repository.NewGormPasswordRepository(db), ids, tokens, cfg.Session.BcryptCost)

	// HTTP shell
	httpHandler := handler.NewHandler(bridge, enroller, ledger, cfg.Authority.AdminID)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(log.GinMiddleware(logger), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	httpHandler.RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info().Str("addr", addr).Msg("chat server starting")
	if err := r.Run(addr); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}
