package infrastructure

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/krobus00/fix-md-service/internal/config"
	"github.com/quickfixgo/quickfix"
	"github.com/sirupsen/logrus"
)

// NewFIXAcceptor builds an acceptor from the session settings file configured
// under fix.settings_path. Message store is in-memory, sessions are rebuilt
// from scratch on restart.
func NewFIXAcceptor(app quickfix.Application) (*quickfix.Acceptor, error) {
	settingsPath := strings.TrimSpace(config.Env.FIX.SettingsPath)
	if settingsPath == "" {
		return nil, errors.New("fix settings_path is required")
	}

	settingsFile, err := os.Open(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("open fix settings: %w", err)
	}
	defer settingsFile.Close()

	settings, err := quickfix.ParseSettings(settingsFile)
	if err != nil {
		return nil, fmt.Errorf("parse fix settings: %w", err)
	}

	storeFactory := quickfix.NewMemoryStoreFactory()

	var logFactory quickfix.LogFactory
	if fileLogPath := strings.TrimSpace(config.Env.FIX.FileLogPath); fileLogPath != "" {
		logFactory, err = quickfix.NewFileLogFactory(settings)
		if err != nil {
			return nil, fmt.Errorf("create fix file log factory: %w", err)
		}
	} else {
		logFactory = quickfix.NewScreenLogFactory()
	}

	acceptor, err := quickfix.NewAcceptor(app, storeFactory, settings, logFactory)
	if err != nil {
		return nil, fmt.Errorf("create fix acceptor: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"settings_path": settingsPath,
	}).Info("fix acceptor created")

	return acceptor, nil
}
