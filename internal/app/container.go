// Package app wires application services with infrastructure adapters.
package app

import (
	"context"
	"time"

	"github.com/doeshing/askdb-go/internal/classifier"
	"github.com/doeshing/askdb-go/internal/domain"
	"github.com/doeshing/askdb-go/internal/infrastructure/config"
	"github.com/doeshing/askdb-go/internal/infrastructure/llm"
	"github.com/doeshing/askdb-go/internal/infrastructure/server"
	"github.com/doeshing/askdb-go/internal/pkg/logger"
	"github.com/doeshing/askdb-go/internal/services"
	"github.com/doeshing/askdb-go/internal/sqlgen"
	"github.com/doeshing/askdb-go/internal/store"
)

// Container holds the assembled dependency graph.
type Container struct {
	Config        domain.Config
	ConfigLoader  *config.FileLoader
	Logger        *logger.ZapLogger
	Gateway       *llm.Client
	Chat          *services.ChatService
	Retrieval     *services.RetrievalService
	DoctorService *services.DoctorService
	Server        *server.Server
}

// BuildContainer constructs the dependency graph from configuration.
func BuildContainer(ctx context.Context, verbose bool) (*Container, error) {
	cfgLoader := config.NewFileLoader("")
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	log := logger.New(level, cfg.Logging.Format)

	gateway := llm.NewClient(cfg.LLM)

	classifyTimeout := time.Duration(cfg.LLM.ClassifyTimeout) * time.Second
	pipeline := classifier.NewPipeline(
		classifier.NewAnalyzer(gateway, classifyTimeout, log),
		classifier.NewDecider(gateway, classifyTimeout, log),
		classifier.NewTrigger(cfg.Retrieval),
		log,
	)

	generator := sqlgen.NewGenerator(gateway, time.Duration(cfg.LLM.GenerateTimeout)*time.Second, log)
	rowStore := store.NewStore(cfg.Database.Path, log)

	retrieval := &services.RetrievalService{
		Generator: generator,
		Executor:  rowStore,
		Logger:    log,
	}

	chat := &services.ChatService{
		Classifier:    pipeline,
		Retrieval:     retrieval,
		Gateway:       gateway,
		Logger:        log,
		AnswerTimeout: time.Duration(cfg.LLM.AnswerTimeout) * time.Second,
	}

	doctorService := &services.DoctorService{
		ConfigProvider: cfgLoader,
		Executor:       rowStore,
		Gateway:        gateway,
	}

	return &Container{
		Config:        cfg,
		ConfigLoader:  cfgLoader,
		Logger:        log,
		Gateway:       gateway,
		Chat:          chat,
		Retrieval:     retrieval,
		DoctorService: doctorService,
		Server:        server.NewServer(cfg.Server, chat, gateway, rowStore, log),
	}, nil
}
