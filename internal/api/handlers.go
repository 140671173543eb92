package api

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/jeovahfialho/companies-api/internal/domain"
	"github.com/jeovahfialho/companies-api/pkg/logger"
	"github.com/jeovahfialho/companies-api/pkg/metrics"
)

const version = "1.0.0"

type CompanyLister interface {
	ListCompanies(ctx context.Context, filter domain.CompanyFilter) ([]domain.Company, error)
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type Handler struct {
	companies CompanyLister
	checks    map[string]HealthChecker
}

// NewHandler wires the company service and the dependencies probed by
// the readiness check, keyed by the name reported in the response.
func NewHandler(companies CompanyLister, checks map[string]HealthChecker) *Handler {
	return &Handler{
		companies: companies,
		checks:    checks,
	}
}

func (h *Handler) GetCompanies(c *fiber.Ctx) error {
	filter := parseCompanyFilter(c)
	ctx := logger.WithRequestID(c.UserContext(), getRequestID(c))

	companies, err := h.companies.ListCompanies(ctx, filter)
	if err != nil {
		logger.WithContext(ctx).Error("failed to list companies",
			zap.String("sort_by", string(filter.SortBy)),
			zap.String("exchange_symbol", filter.ExchangeSymbol),
			zap.Bool("historical", filter.IncludeHistoricalData),
			zap.Error(err))

		metrics.RecordCompanyRequest(string(filter.SortBy), filter.IncludeHistoricalData, "error")
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "Internal server error",
		})
	}

	if companies == nil {
		companies = []domain.Company{}
	}

	metrics.RecordCompanyRequest(string(filter.SortBy), filter.IncludeHistoricalData, "success")
	return c.JSON(CompaniesResponse{Data: companies})
}

// parseCompanyFilter reads the query string leniently: values that do not
// parse fall back to their defaults instead of rejecting the request.
func parseCompanyFilter(c *fiber.Ctx) domain.CompanyFilter {
	filter := domain.NewCompanyFilter()

	filter.SortBy = domain.ParseSortBy(c.Query("sortBy"))
	filter.ExchangeSymbol = c.Query("exchange_symbol")
	filter.IncludeHistoricalData = c.Query("includeHistoricalData") == "true"

	if raw := strings.TrimSpace(c.Query("min_score")); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			filter.MinScore = &v
		}
	}

	filter.Limit = c.QueryInt("limit", domain.DefaultLimit)
	filter.Offset = c.QueryInt("offset", domain.DefaultOffset)

	return filter.Normalize()
}

func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "healthy",
		Version:   version,
		Timestamp: time.Now(),
	})
}

func (h *Handler) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	services := make(map[string]ServiceHealth, len(h.checks))
	status := "ready"

	for name, check := range h.checks {
		start := time.Now()
		if err := check.HealthCheck(ctx); err != nil {
			services[name] = ServiceHealth{
				Status: "unhealthy",
				Error:  err.Error(),
			}
			status = "not_ready"
			continue
		}
		services[name] = ServiceHealth{
			Status:  "healthy",
			Latency: time.Since(start).String(),
		}
	}

	response := HealthResponse{
		Status:    status,
		Version:   version,
		Timestamp: time.Now(),
		Services:  services,
	}

	if status != "ready" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(response)
	}

	return c.JSON(response)
}

func getRequestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestID").(string); ok {
		return id
	}
	return ""
}
