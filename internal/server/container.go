package server

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/nfrund/campus/internal/config"
	"github.com/nfrund/campus/internal/database"
	"github.com/nfrund/campus/internal/domain"
	"github.com/nfrund/campus/internal/filestore"
	"github.com/nfrund/campus/internal/gateway"
	"github.com/nfrund/campus/internal/pubsub"
	"github.com/nfrund/campus/internal/storage"
)

// Stores are the repositories behind the feature modules and attachments.
type Stores struct {
	Profiles    domain.ProfileRepository
	Messages    domain.MessageRepository
	Communities domain.CommunityRepository
	Exams       domain.ExamRepository
	Results     domain.ResultRepository
	Files       domain.FileRepository
}

// ConnectStores opens the SurrealDB connection and builds every store on it.
func ConnectStores(ctx context.Context, cfg config.Provider) (*database.Connection, Stores, error) {
	conn := database.NewConnection(cfg)
	if err := conn.Connect(ctx); err != nil {
		return nil, Stores{}, fmt.Errorf("connect to database: %w", err)
	}
	conn.StartMonitoring()

	profiles, err := database.NewClient[domain.Profile](conn, cfg)
	if err != nil {
		return nil, Stores{}, err
	}
	messages, err := database.NewClient[domain.Message](conn, cfg)
	if err != nil {
		return nil, Stores{}, err
	}
	communities, err := database.NewClient[domain.Community](conn, cfg)
	if err != nil {
		return nil, Stores{}, err
	}
	exams, err := database.NewClient[domain.Exam](conn, cfg)
	if err != nil {
		return nil, Stores{}, err
	}
	results, err := database.NewClient[domain.QuizResult](conn, cfg)
	if err != nil {
		return nil, Stores{}, err
	}
	files, err := database.NewClient[domain.File](conn, cfg)
	if err != nil {
		return nil, Stores{}, err
	}

	return conn, Stores{
		Profiles:    database.NewProfileStore(profiles),
		Messages:    database.NewMessageStore(messages),
		Communities: database.NewCommunityStore(communities),
		Exams:       database.NewExamStore(exams),
		Results:     database.NewResultStore(results),
		Files:       database.NewFileStore(files),
	}, nil
}

// NewContainer builds the root injector holding the shared services. Services
// are created on first use and shut down in reverse dependency order by
// ShutdownWithContext.
func NewContainer(cfg config.Provider, stores Stores, blobs storage.Store) *do.RootScope {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, stores)
	do.ProvideValue(injector, blobs)

	do.Provide(injector, func(i do.Injector) (*pubsub.WatermillBridge, error) {
		return pubsub.NewWatermillBridge(), nil
	})
	do.Provide(injector, func(i do.Injector) (*gateway.Gateway, error) {
		bus, err := do.Invoke[*pubsub.WatermillBridge](i)
		if err != nil {
			return nil, err
		}
		return gateway.New(bus,
			gateway.WithSendBuffer(cfg.GetSendBufferSize()),
			gateway.WithAllowedOrigin(cfg.GetAllowedOrigin()),
		), nil
	})
	do.Provide(injector, func(i do.Injector) (*filestore.Service, error) {
		return filestore.NewService(stores.Files, blobs, cfg.GetMaxFileSize(), cfg.GetAllowedMimeTypes()), nil
	})

	return injector
}
