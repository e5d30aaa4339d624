package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/daniss/Raggy-sub000/internal/citation"
	"github.com/daniss/Raggy-sub000/internal/client"
	"github.com/daniss/Raggy-sub000/internal/config"
	"github.com/daniss/Raggy-sub000/internal/model"
	"github.com/daniss/Raggy-sub000/internal/quota"
	"github.com/daniss/Raggy-sub000/internal/service"
	"github.com/daniss/Raggy-sub000/internal/storage"
	"github.com/daniss/Raggy-sub000/internal/transcript"
	"github.com/daniss/Raggy-sub000/pkg/logger"
)

func main() {
	var (
		configPath   string
		question     string
		resetSession bool
	)
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "path to config file")
	flag.StringVar(&question, "question", "", "ask one question and exit")
	flag.BoolVar(&resetSession, "reset-session", false, "clear the stored session quota (simulates re-authentication)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	store := newStore(cfg)
	if err := store.Init(); err != nil {
		logger.Errorf("Failed to initialize store, falling back to memory: %v", err)
		store = storage.NewMemoryStore()
		store.Init()
	}
	defer store.Close()

	if resetSession {
		if err := store.Delete(quota.StoreKey); err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
			logger.Fatalf("Failed to reset session: %v", err)
		}
		logger.Info("Session quota reset")
	}

	guard, err := quota.NewGuard(store, cfg.Quota.MaxQuestions, cfg.Quota.SessionTTL)
	if err != nil {
		logger.Fatalf("Failed to load quota state: %v", err)
	}

	svc := service.NewAskService(
		client.New(client.Config{
			BaseURL:      cfg.Backend.BaseURL,
			SessionToken: cfg.Backend.SessionToken,
		}),
		guard,
		transcript.New(),
	)
	svc.OnToken = func(delta string) {
		fmt.Print(delta)
	}

	// First interrupt cancels the in-flight answer (keeping the partial
	// text); an interrupt while idle exits.
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for range interrupts {
			if svc.Busy() {
				svc.Cancel()
				continue
			}
			fmt.Println()
			os.Exit(0)
		}
	}()

	ctx := context.Background()

	if question != "" {
		ask(ctx, svc, question)
		return
	}

	fmt.Printf("raggy — %d question(s) restante(s). /history, /retry, /quit\n", guard.Remaining())
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("vous> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "/quit":
			return
		case line == "/history":
			printHistory(svc.Transcript().Messages())
		case line == "/retry":
			done, err := svc.Retry(ctx)
			if err != nil {
				printSubmitError(err)
				continue
			}
			finish(svc, done)
		default:
			ask(ctx, svc, line)
		}
	}
}

func newStore(cfg *config.Config) storage.Store {
	if cfg.Storage.Type == "disk" {
		return storage.NewDiskStore(cfg.Storage.DataDir)
	}
	return storage.NewMemoryStore()
}

func ask(ctx context.Context, svc *service.AskService, question string) {
	done, err := svc.Submit(ctx, question)
	if err != nil {
		printSubmitError(err)
		return
	}
	finish(svc, done)
}

func finish(svc *service.AskService, done <-chan model.Message) {
	msg, ok := <-done
	fmt.Println()
	if !ok {
		return
	}

	if cause := svc.LastCause(); cause != nil {
		fmt.Printf("\n%s\n", msg.Content)
		fmt.Printf("(cause : %v — /retry pour réessayer)\n", cause)
		return
	}

	printSources(msg)
	if msg.Notice != "" {
		fmt.Printf("\n⚠ %s\n", msg.Notice)
	}
	fmt.Printf("(%d question(s) restante(s))\n", svc.Quota().Remaining())
}

func printSubmitError(err error) {
	switch {
	case errors.Is(err, quota.ErrExhausted):
		fmt.Println("Quota de questions épuisé pour cette session.")
	case errors.Is(err, quota.ErrSessionExpired):
		fmt.Println("Session expirée. Reconnectez-vous.")
	case errors.Is(err, service.ErrBusy):
		fmt.Println("Une réponse est déjà en cours.")
	default:
		fmt.Printf("Impossible d'envoyer la question : %v\n", err)
	}
}

func printSources(msg model.Message) {
	if len(msg.Sources) == 0 {
		return
	}

	refs := citation.References(msg.Content, msg.Sources)
	fmt.Printf("\nSources (%d citée(s)) :\n", len(refs))
	for _, src := range msg.Sources {
		fmt.Printf("  [%d] %s", src.Index, src.Filename)
		if src.Page > 0 {
			fmt.Printf(", p.%d", src.Page)
		}
		if src.Relevance > 0 {
			fmt.Printf(" (pertinence %.2f)", src.Relevance)
		}
		fmt.Println()
	}
}

func printHistory(messages []model.Message) {
	for _, msg := range messages {
		prefix := "vous"
		if msg.Role == model.RoleAssistant {
			prefix = "raggy"
		}
		state := ""
		if msg.IsStreaming {
			state = " (en cours)"
		}
		fmt.Printf("%s%s> %s\n", prefix, state, msg.Content)
	}
}
