package internal

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"sync"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/quizzleteam/quizd/internal/core"
	"github.com/quizzleteam/quizd/internal/core/data"
	"github.com/quizzleteam/quizd/internal/game"
	"github.com/quizzleteam/quizd/internal/network"
	"github.com/quizzleteam/quizd/internal/notify"
	"github.com/quizzleteam/quizd/internal/player"
	"github.com/quizzleteam/quizd/internal/register"
	"github.com/quizzleteam/quizd/internal/session"
)

// Controller is the main entrypoint for quizd. It's responsible for initializing
// the shared resources (database, logging, dictionary), wiring the components
// together, and launching the servers.
type Controller struct {
	Config *core.Config

	logger *logrus.Logger
	wg     sync.WaitGroup
}

func (c *Controller) Start(ctx context.Context) {
	var err error
	// Set up the logger, which is shared by every component.
	c.logger, err = core.NewLogger(c.Config)
	if err != nil {
		fmt.Printf("error initializing logger: %v\n", err)
		return
	}

	if c.Config.Debugging.PprofEnabled {
		c.startPprofServer()
	}

	db, err := c.openDatabase()
	if err != nil {
		c.logger.Errorf("error connecting to database: %v", err)
		return
	}
	defer func() {
		if err := data.Shutdown(db); err != nil {
			c.logger.Errorf("error closing database connection: %v", err)
		}
	}()
	if err := data.Initialize(db); err != nil {
		c.logger.Errorf("error initializing database: %v", err)
		return
	}

	registry := player.NewRegistry(data.NewStore(db), c.logger)
	numUsers, err := registry.Load()
	if err != nil {
		c.logger.Errorf("error loading users: %v", err)
		return
	}
	c.logger.Infof("loaded %d registered users", numUsers)

	dictionary, err := game.LoadDictionary(c.Config.Game.DictionaryFile)
	if err != nil {
		c.logger.Errorf("error loading dictionary: %v", err)
		return
	}
	c.logger.Infof("loaded dictionary with %d words", dictionary.Size())

	engine := game.NewEngine(
		game.Config{
			NumWords:          c.Config.Game.NumWords,
			AcceptanceTimeout: c.Config.Game.AcceptanceTimeout,
			MatchTimeout:      c.Config.Game.MatchTimeout,
			WinnerBonus:       c.Config.Game.WinnerBonus,
		},
		dictionary,
		game.NewLookupClient(c.Config.Game.LookupURL),
		&notify.UDPNotifier{Logger: c.logger},
		c.logger,
	)

	registrar := &register.Service{Registry: registry, Logger: c.logger}
	registrar.Start(ctx, c.Config.WebAddress(), &c.wg)

	deps := session.Deps{
		Registry:    registry,
		Engine:      engine,
		Registrar:   registrar,
		Logger:      c.logger,
		LogMessages: c.Config.Debugging.MessageLoggingEnabled,
	}

	pool := network.NewPool(c.Config.Server.NumReactors, c.logger)
	pool.Start(ctx, &c.wg)

	acceptor := &network.Acceptor{
		Pool:           pool,
		Factory:        func(conn *network.Conn) network.Dispatcher { return session.New(deps, conn) },
		MaxConnections: c.Config.Server.MaxConnections,
		Logger:         c.logger,
	}
	if err := acceptor.Start(ctx, c.Config.ListenAddress(), &c.wg); err != nil {
		c.logger.Errorf("error starting server: %v", err)
		return
	}

	c.wg.Wait()
}

// openDatabase connects to whichever database engine the config specifies.
func (c *Controller) openDatabase() (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch c.Config.Database.Engine {
	case "sqlite":
		dialector = sqlite.Open(c.Config.Database.Filename)
	case "postgres":
		dialector = postgres.Open(c.Config.DatabaseURL())
	default:
		return nil, fmt.Errorf("unsupported database engine: %s", c.Config.Database.Engine)
	}

	gormLog := gormlogger.Discard
	if c.Config.Debugging.DatabaseLoggingEnabled {
		gormLog = gormlogger.Default.LogMode(gormlogger.Info)
	}
	return gorm.Open(dialector, &gorm.Config{Logger: gormLog})
}

// startPprofServer starts the default pprof HTTP server that can be accessed
// via localhost to get runtime information about quizd.
// See https://golang.org/pkg/net/http/pprof/
func (c *Controller) startPprofServer() {
	listenerAddr := fmt.Sprintf("localhost:%d", c.Config.Debugging.PprofPort)
	c.logger.Infof("starting pprof server on %s", listenerAddr)

	go func() {
		if err := http.ListenAndServe(listenerAddr, nil); err != nil {
			c.logger.Infof("error starting pprof server: %s", err)
		}
	}()
}
