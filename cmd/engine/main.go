package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shift_escalation_engine/internal/app"
	domainChannel "shift_escalation_engine/internal/domain/channel"
	"shift_escalation_engine/internal/infra/api"
	channelinfra "shift_escalation_engine/internal/infra/channel"
	"shift_escalation_engine/internal/infra/config"
	idb "shift_escalation_engine/internal/infra/database"
	"shift_escalation_engine/internal/infra/logger"
	"shift_escalation_engine/internal/infra/scheduler"

	"gopkg.in/telebot.v3"
)

func main() {
	fmt.Println("Attendance Escalation Engine starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	log := logger.Get()
	log.Infof("Configuration loaded. LogLevel: %s, Environment: %s", cfg.LogLevel, cfg.Environment)

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to database: %v", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully.")

	// Initialize Repositories
	policyRepo := idb.NewPostgresPolicyRepository(db)
	staffRepo := idb.NewPostgresStaffRepository(db)
	attendanceRepo := idb.NewPostgresAttendanceRepository(db)
	execRepo := idb.NewPostgresExecutionRepository(db)
	logRepo := idb.NewPostgresNotificationLogRepository(db)
	log.Info("Repositories initialized.")

	// Initialize push channel bot
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			log.Errorf("telebot: %v", err)
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		log.Fatalf("FATAL: Could not create push channel bot: %v", err)
	}

	// Channel adapter registry: explicit per-instance construction, no
	// environment-driven singletons.
	registry := domainChannel.NewRegistry()
	registry.Register(domainChannel.TypePush, channelinfra.NewTelebotPushAdapter(bot))
	registry.Register(domainChannel.TypeSMS, channelinfra.NewSMSAdapter(cfg.SMSProviderURL, cfg.SMSProviderToken, cfg.SMSFromNumber))
	registry.Register(domainChannel.TypeVoice, channelinfra.NewVoiceAdapter(cfg.VoiceProviderURL, cfg.VoiceProviderToken, cfg.VoiceFromNumber))
	log.Info("Channel adapters registered.")

	// Initialize services
	resolver := app.NewPolicyResolver(policyRepo, staffRepo, log)
	escalationService := app.NewEscalationService(resolver, execRepo, logRepo, staffRepo, attendanceRepo, registry, log)
	assignmentService := app.NewAssignmentService(staffRepo, attendanceRepo, logRepo, registry, log)
	log.Info("Escalation services initialized.")

	// Response correlation for push replies
	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()
	channelinfra.RegisterResponseHandlers(rootCtx, bot, escalationService)
	log.Info("Push response handlers registered.")

	// Escalation sweep scheduler
	sched := scheduler.NewEscalationScheduler(escalationService, execRepo, attendanceRepo, log, cfg.CronSpecSweep, cfg.SweepWorkers)
	sched.Start()

	// Read-only query API + clock-in hook
	server := api.NewServer(escalationService, assignmentService, execRepo, logRepo, attendanceRepo, log)
	go func() {
		if err := server.Run(cfg.HTTPListenAddr); err != nil {
			log.Fatalf("FATAL: HTTP server stopped: %v", err)
		}
	}()
	log.Infof("HTTP API listening on %s", cfg.HTTPListenAddr)

	log.Info("Application setup complete. Engine is running.")

	// Start bot in a goroutine so it doesn't block graceful shutdown handling
	go bot.Start()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down application...")
	sched.Stop()
	bot.Stop()
	log.Info("Application shut down gracefully.")
}
