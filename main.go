package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"messenger-client/internal/audit"
	"messenger-client/internal/cache"
	"messenger-client/internal/conversation"
	"messenger-client/internal/directory"
	"messenger-client/internal/gateway"
	"messenger-client/internal/observability"
	"messenger-client/internal/tui"
)

func main() {
	var offline bool
	var debugAddr string
	pflag.BoolVar(&offline, "offline", false, "list cached chats without contacting the gateway")
	pflag.StringVar(&debugAddr, "debug-addr", "", "serve /metrics and debug endpoints on this address")
	pflag.Parse()

	store, err := cache.Open(getEnv("CACHE_PATH", "messenger-cache.db"))
	if err != nil {
		log.Fatalf("failed to open cache: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	if offline {
		runOffline(ctx, store)
		return
	}

	shutdownTracing, err := observability.InitTracing(ctx, os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"), "messenger-client")
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer shutdownTracing(ctx)

	publisher := audit.NewPublisher(os.Getenv("AMQP_URL"), getEnv("AMQP_EXCHANGE", "client_events"))
	defer publisher.Close()
	log.Printf("audit publisher mode=%s", audit.PublisherMode(publisher))
	emitter := audit.NewEmitter(publisher, "client_events.messenger", "messenger-client", getEnv("ENVIRONMENT", "dev"))

	gw := gateway.New(getEnv("GATEWAY_URL", "http://127.0.0.1:8090"))

	// With credentials in the environment the TUI skips the login form.
	if email := os.Getenv("MESSENGER_EMAIL"); email != "" {
		user, err := gw.AuthWithPassword(ctx, email, os.Getenv("MESSENGER_PASSWORD"))
		if err != nil {
			log.Fatalf("login failed: %v", err)
		}
		emitter.Emit(ctx, audit.EventLogin, &user.ID, audit.Payload{})
	}

	dir := directory.New(gw, directory.WithRecorder(store))
	engine := conversation.NewEngine(gw, conversation.WithRecorder(store))
	defer engine.Close()

	if debugAddr != "" {
		go runDebugServer(debugAddr, emitter)
	}

	app := tui.New(ctx, gw, dir, engine, emitter)
	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
		log.Fatalf("ui error: %v", err)
	}
}

func runOffline(ctx context.Context, store *cache.Store) {
	chats, err := store.Chats(ctx)
	if err != nil {
		log.Fatalf("failed to read cache: %v", err)
	}
	if len(chats) == 0 {
		fmt.Println("cache is empty")
		return
	}
	for _, chat := range chats {
		msgs, err := store.Messages(ctx, chat.ID)
		if err != nil {
			log.Fatalf("failed to read cached messages: %v", err)
		}
		fmt.Printf("%s  %-30s  %d cached messages\n",
			chat.Updated.Local().Format("2006-01-02 15:04"), chat.Title, len(msgs))
	}
}

func runDebugServer(addr string, emitter *audit.Emitter) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/debug/audit-test", func(c *gin.Context) {
		emitter.Emit(c.Request.Context(), "audit_test", nil, audit.Payload{Detail: "debug endpoint"})
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if err := router.Run(addr); err != nil {
		log.Printf("debug server error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
