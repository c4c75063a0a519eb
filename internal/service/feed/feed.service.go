package feed

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/guregu/null/v5"
	"github.com/krobus00/fix-md-service/internal/config"
	"github.com/krobus00/fix-md-service/internal/constant"
	"github.com/krobus00/fix-md-service/internal/entity"
	"github.com/krobus00/fix-md-service/internal/repository"
	"github.com/krobus00/fix-md-service/internal/util"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const defaultLastValueSaveInterval = 30 * time.Second

// Service consumes tick events from JetStream into the live store, persists
// them as tick history, and keeps the redis last-value cache current.
type Service struct {
	js             nats.JetStreamContext
	store          *Store
	marketTickRepo *repository.MarketTickRepository
	lastValues     LastValueStore
	exchange       string
	saveInterval   time.Duration
}

func NewService(js nats.JetStreamContext, store *Store, marketTickRepo *repository.MarketTickRepository, lastValues LastValueStore, exchange string, saveInterval time.Duration) *Service {
	if saveInterval <= 0 {
		saveInterval = defaultLastValueSaveInterval
	}

	return &Service{
		js:             js,
		store:          store,
		marketTickRepo: marketTickRepo,
		lastValues:     lastValues,
		exchange:       exchange,
		saveInterval:   saveInterval,
	}
}

func (s *Service) JetstreamEventInit(ctx context.Context) error {
	streamConfig := &nats.StreamConfig{
		Name:      constant.TickStreamName,
		Subjects:  []string{constant.TickStreamSubjectAll},
		Storage:   nats.FileStorage, // use MemoryStorage for ultra-low latency
		Retention: nats.LimitsPolicy,
		MaxAge:    5 * time.Minute,
		Replicas:  1,
	}

	stream, err := s.js.StreamInfo(constant.TickStreamName, nats.Context(ctx))
	if err != nil && !errors.Is(err, nats.ErrStreamNotFound) {
		logrus.Error(err)
		return err
	}

	if stream == nil {
		logrus.Infof("creating stream: %s", constant.TickStreamName)
		_, err = s.js.AddStream(streamConfig, nats.Context(ctx))
		return err
	}

	logrus.Infof("updating stream: %s", constant.TickStreamName)
	_, err = s.js.UpdateStream(streamConfig, nats.Context(ctx))
	if err != nil {
		logrus.Error(err)
		return err
	}

	logrus.Infof("stream %s is ready", constant.TickStreamName)

	return nil
}

func (s *Service) JetstreamEventSubscribe(ctx context.Context) error {
	err := s.JetstreamEventInit(ctx)
	if err != nil {
		logrus.Error(err)
		return err
	}

	_, err = s.js.QueueSubscribe(
		constant.GetTickStreamSubject(s.exchange),
		constant.GetTickDistributeQueueGroup(s.exchange),
		func(msg *nats.Msg) {
			err := util.ProcessWithTimeout(config.Env.NatsJetstream.TimeoutHandler["apply_tick"], msg, s.handleTickEvent)
			if err != nil {
				logrus.Errorf("error processing message: %v", err)
				return
			}

			err = msg.Ack()
			if err != nil {
				logrus.Errorf("failed to acknowledge message: %v", err)
				return
			}
		},
		nats.ManualAck(),
		nats.DeliverNew(), // only process new messages, ignore old messages when subscribe for the first time
	)

	return err
}

func (s *Service) handleTickEvent(ctx context.Context, msg *nats.Msg) (err error) {
	logger := logrus.WithFields(logrus.Fields{
		"req": string(msg.Data),
	})

	var event *entity.TickEvent
	err = json.Unmarshal(msg.Data, &event)
	if err != nil {
		logger.Error(err)
		return err
	}

	maxAge := config.Env.Feed.StaleEventMaxAge
	if maxAge <= 0 {
		maxAge = 1 * time.Minute
	}
	if event.Data.UpdateTime.UTC().Add(maxAge).Before(time.Now().UTC()) {
		logger.Info("skipping tick event that is too old")
		return nil
	}

	defer func() {
		if err != nil {
			event.RetryCount++
			if event.RetryCount >= config.Env.NatsJetstream.MaxRetries {
				return
			}

			err := util.PublishEvent(s.js, constant.GetTickStreamSubject(event.Exchange), event)
			if err != nil {
				logger.Error(err)
				return
			}
		}
	}()

	s.store.Apply(event.Data)

	now := time.Now().UTC()
	err = s.marketTickRepo.Create(ctx, &entity.MarketTick{
		ID:         event.ID,
		Exchange:   event.Exchange,
		Symbol:     event.Data.Symbol,
		EntryType:  string(event.Data.EntryType),
		Price:      event.Data.Price,
		Size:       event.Data.Size,
		TradeID:    null.NewString(event.TradeID, event.TradeID != ""),
		UpdateTime: event.Data.UpdateTime,
		CreatedAt:  now,
	})
	if err != nil {
		logger.Error(err)
		return err
	}

	return nil
}

// WarmFromLastValues restores the latest view from the cache so snapshots
// are served before the first live ticks arrive.
func (s *Service) WarmFromLastValues(ctx context.Context) error {
	view, ok, err := s.lastValues.Load(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	s.store.Warm(view)
	logrus.Infof("warmed market data view with %d cached entries", len(view))
	return nil
}

// StartLastValueSaver persists the live view on an interval until ctx is
// cancelled.
func (s *Service) StartLastValueSaver(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.saveInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				view, err := s.store.AllMarketData(ctx)
				if err != nil {
					logrus.Errorf("failed to read market data view: %v", err)
					continue
				}
				if len(view) == 0 {
					continue
				}
				if err := s.lastValues.Save(ctx, view); err != nil {
					logrus.Errorf("failed to save last values: %v", err)
				}
			}
		}
	}()
}
