package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"chainjack/internal/approve"
	"chainjack/internal/autopilot"
	"chainjack/internal/chain"
	"chainjack/internal/chain/chaintest"
	"chainjack/internal/config"
	"chainjack/internal/game"
	"chainjack/internal/journal"
	"chainjack/internal/logging"
	"chainjack/internal/submit"
	"chainjack/internal/table"
	httptransport "chainjack/internal/transport/http"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	if err := logging.Init(cfg.Log); err != nil {
		panic(err)
	}

	client := newChainClient(cfg.Chain)

	var jrnl submit.Journal
	if cfg.Server.JournalDSN != "" {
		j, err := journal.Open(context.Background(), cfg.Server.JournalDSN, log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("journal init failed")
		}
		defer j.Close()
		jrnl = j
	}

	opts := table.Options{
		PollInterval:  cfg.Automation.PollInterval,
		TickInterval:  cfg.Automation.TickInterval,
		SettleRetries: cfg.Automation.SettleRetries,
		Automation: autopilot.Config{
			SettlingDelay: cfg.Automation.SettlingDelay,
			RetryBackoff:  cfg.Automation.RetryBackoff,
			StuckAfter:    cfg.Automation.StuckAfter,
			MaxRetries:    cfg.Automation.MaxRetries,
		},
		Submit: submit.Config{
			ConfirmTimeout: cfg.Chain.ConfirmTimeout,
			FeeHeadroomPct: int(cfg.Chain.FeeHeadroomPct),
			FallbackFees:   chain.FeeQuote{MaxFee: cfg.Chain.FallbackGasFee},
		},
		Approval: approve.Config{
			Attempts: cfg.Automation.ApprovalAttempts,
			Backoff:  cfg.Automation.ApprovalBackoff,
		},
		Owner:        cfg.Chain.OwnerAddress,
		TableSpender: cfg.Chain.TableAddress,
		VaultSpender: cfg.Chain.VaultAddress,
	}
	reg := table.NewRegistry(client, jrnl, opts, log.Logger)
	defer reg.Shutdown()

	router := httptransport.NewRouter(reg, cfg.Server)
	httptransport.LogRoutes(router)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.HTTPAddr).Bool("fake_chain", cfg.Chain.Fake).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}

// newChainClient picks the real gateway or, for local runs without a chain,
// an in-process emulator playing one game from a shuffled deck.
func newChainClient(cfg config.ChainConfig) chain.Client {
	if cfg.Fake {
		return chaintest.NewEmulator(100, shuffledDeck())
	}
	return chain.NewRPCClient(cfg.RPCURL, cfg.RequestTimeout).
		WithReceiptInterval(cfg.ReceiptInterval)
}

func shuffledDeck() []game.Card {
	deck := make([]game.Card, 52)
	for i := range deck {
		deck[i] = game.Card(i + 1)
	}
	rand.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}
