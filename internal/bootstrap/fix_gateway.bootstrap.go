package bootstrap

import (
	"context"

	"github.com/krobus00/fix-md-service/internal/config"
	fixhandler "github.com/krobus00/fix-md-service/internal/handler/marketdata/fix"
	"github.com/krobus00/fix-md-service/internal/infrastructure"
	"github.com/krobus00/fix-md-service/internal/repository"
	"github.com/krobus00/fix-md-service/internal/service/feed"
	"github.com/krobus00/fix-md-service/internal/service/marketdata"
	"github.com/krobus00/fix-md-service/internal/util"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func StartFIXGateway(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := infrastructure.NewPostgresConnection(ctx, config.Env.Database["market_data"])
	util.ContinueOrFatal(err)
	infrastructure.StartPostgresHealthCheck(ctx, db, config.Env.Database["market_data"].PingInterval)

	nc, js, err := infrastructure.NewJetstream()
	util.ContinueOrFatal(err)

	lastValues, err := feed.NewRedisLastValueStore(config.Env.Redis["market_data"].CacheDSN)
	util.ContinueOrFatal(err)

	marketTickRepo := repository.NewMarketTickRepository(db)

	store := feed.NewStore(config.Env.MarketData.PendingUpdateLimit)
	feedService := feed.NewService(js, store, marketTickRepo, lastValues, config.Env.Feed.Exchange, config.Env.MarketData.LastValueSaveInterval)

	err = feedService.WarmFromLastValues(ctx)
	if err != nil {
		logrus.Warnf("failed to warm market data view: %v", err)
	}

	err = feedService.JetstreamEventSubscribe(ctx)
	util.ContinueOrFatal(err)
	feedService.StartLastValueSaver(ctx)

	tracker := fixhandler.NewSessionTracker()
	sink := fixhandler.NewSink(tracker)

	marketDataService := marketdata.NewService(store, sink, config.Env.MarketData.DistributionInterval, config.Env.MarketData.DistributorJoinWait)
	marketDataService.Start(ctx)

	app := fixhandler.NewApp(marketDataService, tracker, sink)
	acceptor, err := infrastructure.NewFIXAcceptor(app)
	util.ContinueOrFatal(err)

	err = acceptor.Start()
	util.ContinueOrFatal(err)

	httpServer := infrastructure.NewHTTPServer()
	go func() {
		err := httpServer.Start()
		util.ContinueOrFatal(err)
	}()

	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, map[string]operation{
		"fix acceptor": func(ctx context.Context) error {
			acceptor.Stop()
			return nil
		},
		"distributor": func(ctx context.Context) error {
			return marketDataService.Shutdown()
		},
		"http server": func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		},
		"redis": func(ctx context.Context) error {
			return lastValues.Close()
		},
		"database": func(ctx context.Context) error {
			cancel()
			return db.Close()
		},
		"nats connection": func(ctx context.Context) error {
			return infrastructure.CloseJetstream(nc)
		},
	})

	<-wait
}
