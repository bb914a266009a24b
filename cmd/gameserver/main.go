// Package main provides the battle engine service binary. It wires the
// catalog, encounter, and effect repositories to the combat action handler
// and runs until signalled.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BmoandShiro/BemoriaVS-sub000/internal/config"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/combat"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/dice"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/encounter"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/loot"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/gameserver"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/observability"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/scripting"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/server"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	cryptoSrc := dice.NewCryptoSource()
	diceRoller := dice.NewLoggedRoller(cryptoSrc, logger)

	// Connect to PostgreSQL.
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)

	catalogRepo := postgres.NewCatalogRepository(pool.DB())
	encounterRepo := postgres.NewEncounterRepository(pool.DB())
	playerRepo := postgres.NewPlayerRepository(pool.DB())
	inventoryRepo := postgres.NewInventoryRepository(pool.DB())
	effectLedger := postgres.NewEffectLedger(pool.DB())

	// In-memory encounter state did not survive the restart; close out any
	// rows a previous process left active.
	abandoned, err := encounterRepo.AbandonActive(ctx)
	if err != nil {
		logger.Fatal("reconciling stale encounters", zap.Error(err))
	}
	if abandoned > 0 {
		logger.Warn("abandoned stale encounters", zap.Int64("count", abandoned))
	}

	// Load flavor scripts.
	scriptEngine := scripting.NewEngine(diceRoller, cfg.Game.ScriptInstructionLimit, logger)
	if err := scriptEngine.LoadDir(cfg.Game.ScriptDir); err != nil {
		logger.Fatal("loading flavor scripts", zap.Error(err))
	}
	defer scriptEngine.Close()

	handler := combat.NewHandler(combat.Config{
		Encounters: encounter.NewManager(),
		Store:      encounterRepo,
		Catalog:    catalogRepo,
		Players:    playerRepo,
		PlayerFX:   effectLedger,
		Presenter:  combat.NewLogPresenter(logger),
		Hooks:      scriptEngine,
		Loot:       loot.NewDistributor(inventoryRepo, logger),
		Source:     cryptoSrc,
		Logger:     logger,
		MaxParty:   cfg.Game.MaxPartySize,
	})
	dispatcher := gameserver.NewDispatcher(handler, logger)

	// Wire lifecycle
	lifecycle := server.NewLifecycle(logger)

	// Development console: battle commands on stdin, one per line, in the
	// shape the chat adapter delivers them: <player> <location> <command...>.
	lifecycle.Add("console", &server.FuncService{
		StartFn: func() error {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				fields := strings.SplitN(strings.TrimSpace(scanner.Text()), " ", 3)
				if len(fields) < 3 {
					logger.Info("usage: <player> <location> <command...>")
					continue
				}
				err := dispatcher.HandleMessage(ctx, gameserver.Message{
					IdentityID: fields[0],
					PlayerID:   fields[0],
					LocationID: fields[1],
					ChannelID:  "console",
					MessageID:  uuid.NewString(),
					Line:       fields[2],
				})
				if err != nil && !errors.Is(err, gameserver.ErrUnknownCommand) {
					logger.Warn("command rejected", zap.Error(err))
				}
			}
			return scanner.Err()
		},
		StopFn: func() {},
	})

	lifecycle.Add("postgres", &server.FuncService{
		StartFn: func() error {
			for {
				time.Sleep(30 * time.Second)
				if err := pool.Health(ctx, 5*time.Second); err != nil {
					logger.Warn("database health check failed", zap.Error(err))
				}
			}
		},
		StopFn: func() {
			pool.Close()
		},
	})

	logger.Info("battle engine initialized",
		zap.Duration("startup", time.Since(start)),
		zap.Int("max_party_size", cfg.Game.MaxPartySize),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
