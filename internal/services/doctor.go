package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/doeshing/askdb-go/internal/domain"
	"github.com/doeshing/askdb-go/internal/ports"
)

// DoctorService runs environment diagnostics: config, credentials, database
// and model endpoint.
type DoctorService struct {
	ConfigProvider ports.ConfigProvider
	Executor       ports.RowExecutor
	Gateway        ports.Completer
}

// Run executes checks and returns a report.
func (s *DoctorService) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	checks = append(checks, ok("Config file", fmt.Sprintf("format version %s", cfg.ConfigFormatVersion)))

	checks = append(checks, authCheck(cfg.LLM))
	checks = append(checks, s.databaseCheck(ctx, cfg))
	checks = append(checks, s.endpointCheck(ctx, cfg))

	return domain.HealthReport{Checks: checks}, nil
}

func authCheck(settings domain.LLMSettings) domain.HealthCheck {
	if settings.AuthEnvVar == "" {
		return ok("Credentials", "endpoint requires no auth")
	}
	if os.Getenv(settings.AuthEnvVar) == "" {
		return warn("Credentials", fmt.Sprintf("%s not set", settings.AuthEnvVar))
	}
	return ok("Credentials", fmt.Sprintf("%s present", settings.AuthEnvVar))
}

func (s *DoctorService) databaseCheck(ctx context.Context, cfg domain.Config) domain.HealthCheck {
	if _, err := os.Stat(cfg.Database.Path); err != nil {
		return warn("Database", fmt.Sprintf("%s not found", cfg.Database.Path))
	}
	if s.Executor == nil {
		return warn("Database", "executor not initialized")
	}
	if _, err := s.Executor.Query(ctx, "SELECT 1 AS probe"); err != nil {
		return fail("Database", err.Error())
	}
	return ok("Database", cfg.Database.Path)
}

func (s *DoctorService) endpointCheck(ctx context.Context, cfg domain.Config) domain.HealthCheck {
	if s.Gateway == nil {
		return warn("Model endpoint", "gateway not initialized")
	}
	_, err := s.Gateway.Complete(ctx, ports.CompletionRequest{
		Messages:    []domain.ChatMessage{{Role: "user", Content: "ping"}},
		MaxTokens:   1,
		Temperature: 0,
		Timeout:     5 * time.Second,
	})
	if err != nil {
		return fail("Model endpoint", fmt.Sprintf("%s unreachable: %v", cfg.LLM.Endpoint, err))
	}
	return ok("Model endpoint", cfg.LLM.Endpoint)
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
