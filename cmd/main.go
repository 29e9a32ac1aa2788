package main

import (
	"context"
	"encoding/json"
	logg "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattermost/mattermost-server/v6/model"
	"go.uber.org/zap"

	"github.com/votepoll/bot/internal/api"
	"github.com/votepoll/bot/internal/authority"
	"github.com/votepoll/bot/internal/broadcaster"
	"github.com/votepoll/bot/internal/config"
	"github.com/votepoll/bot/internal/models"
	"github.com/votepoll/bot/internal/storage/tarantoolstore"
	"github.com/votepoll/bot/internal/transport/natsbus"
	"github.com/votepoll/bot/pkg/logger"
	"github.com/votepoll/bot/pkg/nats"
	"github.com/votepoll/bot/pkg/tarantool"
)

func main() {
	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	cfg, err := config.New()
	if err != nil {
		logg.Fatalf("failed to load config: %s", err)
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		logg.Fatalf("failed to initialize logger: %s", err)
	}
	conn, err := tarantool.New(cfg.Tarantool)
	if err != nil {
		logg.Fatalf("failed to connect to Tarantool: %s", err)
	}
	natsConn, err := nats.New(cfg.Nats)
	if err != nil {
		logg.Fatalf("failed to connect to NATS: %s", err)
	}

	client := model.NewAPIv4Client(cfg.MmURL)
	webSocketClient, err := model.NewWebSocketClient4(cfg.MmWsURL, cfg.BotToken)
	if err != nil {
		logg.Fatalf("failed to connect to webSocket: %v", err)
	}

	store := tarantoolstore.New(conn, log)
	bus := natsbus.New(natsConn, cfg.Nats.Subject, log)
	handler := api.New(client, cfg.ChannelID, store, log)

	client.SetToken(cfg.BotToken)
	webSocketClient.Listen()
	var botID string
	if user, _, err := client.GetUser("me", ""); err != nil {
		logg.Fatalf("failed to get user: %s", err)
	} else {
		botID = user.Id
	}

	bc := broadcaster.New(bus, handler, handler, botID, cfg.Moderator, log)
	handler.SetBroadcaster(bc)
	auth := authority.New(store, store, handler, cfg.Moderator, log)

	// Single intent-handling loop: each intent runs to completion before
	// the next is taken, which makes arrival order the serialization order.
	intents := make(chan models.Intent, 64)
	if err := bus.Subscribe(func(intent models.Intent) {
		intents <- intent
	}); err != nil {
		logg.Fatalf("failed to subscribe to intent channel: %s", err)
	}
	go func() {
		for intent := range intents {
			auth.HandleIntent(intent)
		}
	}()

	go func() {
		for event := range webSocketClient.EventChannel {
			switch event.EventType() {
			case model.WebsocketEventPosted:
				log.Debug("new message", zap.String("event", event.EventType()))
				api.HandleMessage(handler, event, botID)
			case model.WebsocketEventPostEdited:
				post := &model.Post{}
				raw, ok := event.GetData()["post"].(string)
				if !ok {
					continue
				}
				if err := json.Unmarshal([]byte(raw), post); err != nil {
					log.Error("error unmarshalling edited post", zap.Error(err))
					continue
				}
				handler.HandleEntryChanged(post.Id)
			}
		}
	}()

	select {
	case <-ctx.Done():
		close(intents)
		natsConn.Close()
		conn.CloseGraceful()
		webSocketClient.Close()
		stop()
		logg.Println("server graceful stopped")
	}
}
