package fix

import (
	"context"
	"time"

	"github.com/krobus00/fix-md-service/internal/constant"
	"github.com/krobus00/fix-md-service/internal/entity"
	"github.com/krobus00/fix-md-service/internal/service/marketdata"
	"github.com/quickfixgo/enum"
	mdr "github.com/quickfixgo/fix44/marketdatarequest"
	"github.com/quickfixgo/quickfix"
	"github.com/sirupsen/logrus"
)

// App is the quickfix.Application for the market data gateway. It routes
// MarketDataRequest messages to the engine and maps engine errors to
// MarketDataRequestReject. The handler holds no subscription state of its
// own.
type App struct {
	*quickfix.MessageRouter
	service *marketdata.Service
	tracker *SessionTracker
	sink    entity.SessionSink
}

func NewApp(service *marketdata.Service, tracker *SessionTracker, sink entity.SessionSink) *App {
	app := &App{
		MessageRouter: quickfix.NewMessageRouter(),
		service:       service,
		tracker:       tracker,
		sink:          sink,
	}
	app.AddRoute(mdr.Route(app.onMarketDataRequest))
	return app
}

func (a *App) OnCreate(sessionID quickfix.SessionID) {}

func (a *App) OnLogon(sessionID quickfix.SessionID) {
	a.tracker.add(sessionID)
	logrus.Infof("client logged on: %s", sessionID.String())
}

// OnLogout drops the session's subscriptions. Logon does not reinstate them.
func (a *App) OnLogout(sessionID quickfix.SessionID) {
	a.tracker.remove(sessionID)
	a.service.HandleSessionLogout(sessionID)
	logrus.Infof("client logged out: %s", sessionID.String())
}

func (a *App) ToAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) {}

func (a *App) ToApp(msg *quickfix.Message, sessionID quickfix.SessionID) error {
	return nil
}

func (a *App) FromAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return nil
}

func (a *App) FromApp(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return a.Route(msg, sessionID)
}

func (a *App) onMarketDataRequest(msg mdr.MarketDataRequest, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	requestID, err := msg.GetMDReqID()
	if err != nil {
		return err
	}

	requestType, err := msg.GetSubscriptionRequestType()
	if err != nil {
		return err
	}

	ctx := context.Background()

	switch requestType {
	case enum.SubscriptionRequestType_SNAPSHOT:
		params, perr := parseRequestParams(msg)
		if perr != nil {
			a.sendReject(sessionID, requestID, perr.Error())
			return nil
		}
		if err := a.service.HandleSnapshot(ctx, sessionID, requestID, params); err != nil {
			a.sendReject(sessionID, requestID, "failed to generate snapshot: "+err.Error())
		}

	case enum.SubscriptionRequestType_SNAPSHOT_PLUS_UPDATES:
		params, perr := parseRequestParams(msg)
		if perr != nil {
			a.sendReject(sessionID, requestID, perr.Error())
			return nil
		}
		if err := a.service.HandleSubscribe(ctx, sessionID, requestID, params); err != nil {
			a.sendReject(sessionID, requestID, "failed to create subscription: "+err.Error())
		}

	case enum.SubscriptionRequestType_DISABLE_PREVIOUS_SNAPSHOT_PLUS_UPDATE_REQUEST:
		if err := a.service.HandleUnsubscribe(ctx, sessionID, requestID); err != nil {
			a.sendReject(sessionID, requestID, "failed to cancel subscription: "+err.Error())
		}

	default:
		a.sendReject(sessionID, requestID, "Unsupported request type")
	}

	return nil
}

func (a *App) sendReject(sessionID quickfix.SessionID, requestID, reason string) {
	if err := a.sink.SendToSession(sessionID, marketdata.NewReject(requestID, reason)); err != nil {
		logrus.Errorf("failed to send reject for %s: %v", requestID, err)
	}
}

// parseRequestParams extracts the filter specification from the request.
// Zero related symbols means all symbols; zero entry types is a parameter
// error. MarketDepth carries the update period in seconds (the feed
// contract's reading of the field), clamped to the 1s floor and defaulting
// to it when absent.
func parseRequestParams(msg mdr.MarketDataRequest) (entity.RequestParams, error) {
	params := entity.RequestParams{
		EntryTypes:   make(map[enum.MDEntryType]struct{}),
		UpdatePeriod: constant.MinUpdatePeriod,
	}

	if msg.HasNoRelatedSym() {
		symbols, err := msg.GetNoRelatedSym()
		if err != nil {
			return params, marketdata.NewProtocolError("invalid NoRelatedSym group")
		}
		for i := 0; i < symbols.Len(); i++ {
			symbol, err := symbols.Get(i).GetSymbol()
			if err != nil {
				return params, marketdata.NewProtocolError("invalid Symbol in NoRelatedSym group")
			}
			params.Symbols = append(params.Symbols, symbol)
		}
	}
	params.AllSymbols = len(params.Symbols) == 0

	if !msg.HasNoMDEntryTypes() {
		return params, marketdata.NewProtocolError("at least one MDEntryType is required")
	}
	entryTypes, err := msg.GetNoMDEntryTypes()
	if err != nil {
		return params, marketdata.NewProtocolError("invalid NoMDEntryTypes group")
	}
	if entryTypes.Len() == 0 {
		return params, marketdata.NewProtocolError("at least one MDEntryType is required")
	}
	for i := 0; i < entryTypes.Len(); i++ {
		entryType, err := entryTypes.Get(i).GetMDEntryType()
		if err != nil {
			return params, marketdata.NewProtocolError("invalid MDEntryType in NoMDEntryTypes group")
		}
		params.EntryTypes[entryType] = struct{}{}
	}

	if msg.HasMarketDepth() {
		depth, err := msg.GetMarketDepth()
		if err != nil {
			return params, marketdata.NewProtocolError("invalid MarketDepth")
		}
		period := time.Duration(depth) * time.Second
		if period < constant.MinUpdatePeriod {
			period = constant.MinUpdatePeriod
		}
		params.UpdatePeriod = period
	}

	return params, nil
}
