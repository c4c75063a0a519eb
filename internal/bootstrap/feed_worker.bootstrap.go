package bootstrap

import (
	"context"
	"sync"

	"github.com/krobus00/fix-md-service/internal/config"
	"github.com/krobus00/fix-md-service/internal/entity"
	"github.com/krobus00/fix-md-service/internal/infrastructure"
	"github.com/krobus00/fix-md-service/internal/repository"
	"github.com/krobus00/fix-md-service/internal/service/exchange"
	"github.com/krobus00/fix-md-service/internal/util"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func StartFeedWorker(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := infrastructure.NewPostgresConnection(ctx, config.Env.Database["market_data"])
	util.ContinueOrFatal(err)
	infrastructure.StartPostgresHealthCheck(ctx, db, config.Env.Database["market_data"].PingInterval)

	nc, js, err := infrastructure.NewJetstream()
	util.ContinueOrFatal(err)

	feedSubscriptionRepo := repository.NewFeedSubscriptionRepository(db)

	exchange.InitBinanceExchange(js)

	exchangeName := entity.ExchangeName(config.Env.Feed.Exchange)
	feedExchange, ok := exchange.GlobalExchangeRegistry[exchangeName]
	if !ok {
		logrus.Fatalf("unknown feed exchange: %s", exchangeName)
	}

	for key, v := range exchange.GlobalExchangeRegistry {
		if publisher, ok := v.(entity.Publisher); ok {
			err := publisher.JetstreamEventInit(ctx)
			util.ContinueOrFatal(err)
			logrus.Info("initialized tick stream for exchange: ", key)
		}
	}

	subscriptions, err := feedSubscriptionRepo.GetByExchange(ctx, string(exchangeName))
	util.ContinueOrFatal(err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		err := feedExchange.SubscribeTickerData(ctx, subscriptions)
		if err != nil {
			logrus.Errorf("feed subscription stopped: %v", err)
		}
	}()

	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, map[string]operation{
		"feed subscription": func(ctx context.Context) error {
			cancel()
			wg.Wait()
			return nil
		},
		"database": func(ctx context.Context) error {
			return db.Close()
		},
		"nats connection": func(ctx context.Context) error {
			return infrastructure.CloseJetstream(nc)
		},
	})

	<-wait
}
