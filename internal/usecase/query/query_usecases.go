package query

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/ignatzorin/disaster-backend/internal/domain/entity"
	"github.com/ignatzorin/disaster-backend/internal/domain/repository"
	"github.com/ignatzorin/disaster-backend/internal/domain/valueobject"
	"github.com/ignatzorin/disaster-backend/internal/pkg/apperror"
	"github.com/ignatzorin/disaster-backend/internal/service"
	"github.com/ignatzorin/disaster-backend/internal/validation"
)

const (
	DefaultListLimit     = 50
	DefaultUserLimit     = 10
	DefaultNearbyLimit   = 50
	DefaultRadiusKm      = 10.0
	RecentReportsInStats = 5
)

type ListFilteredInput struct {
	Severity     string
	DisasterType string
	Status       string
	Limit        int
}

type ListFilteredUseCase struct {
	reportRepo repository.ReportRepository
}

func NewListFilteredUseCase(reportRepo repository.ReportRepository) *ListFilteredUseCase {
	return &ListFilteredUseCase{reportRepo: reportRepo}
}

// Execute применяет фильтры через AND. Неизвестное значение фильтра даёт VALIDATION_ERROR.
func (uc *ListFilteredUseCase) Execute(ctx context.Context, input ListFilteredInput) ([]*entity.Report, error) {
	filter := repository.ReportFilter{Limit: validation.ClampLimit(input.Limit, DefaultListLimit)}
	var invalid []string

	if strings.TrimSpace(input.Severity) != "" {
		if s, err := valueobject.NewSeverity(input.Severity); err != nil {
			invalid = append(invalid, "severity")
		} else {
			filter.Severity = s
		}
	}
	if strings.TrimSpace(input.DisasterType) != "" {
		if t, err := valueobject.NewDisasterType(input.DisasterType); err != nil {
			invalid = append(invalid, "disaster_type")
		} else {
			filter.DisasterType = t
		}
	}
	if strings.TrimSpace(input.Status) != "" {
		if s, err := valueobject.NewReportStatus(input.Status); err != nil {
			invalid = append(invalid, "status")
		} else {
			filter.Status = s
		}
	}
	if len(invalid) > 0 {
		return nil, apperror.Validation("некорректные значения фильтров", invalid...)
	}

	return uc.reportRepo.List(ctx, filter)
}

type ListNearInput struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
	Limit     int
}

type ListNearUseCase struct {
	reportRepo repository.ReportRepository
}

func NewListNearUseCase(reportRepo repository.ReportRepository) *ListNearUseCase {
	return &ListNearUseCase{reportRepo: reportRepo}
}

// Execute возвращает только отчёты с координатами, расстояние до которых по гаверсинусу не больше радиуса.
func (uc *ListNearUseCase) Execute(ctx context.Context, input ListNearInput) ([]*entity.Report, error) {
	center, err := valueobject.NewLocation(input.Latitude, input.Longitude)
	if err != nil {
		return nil, err
	}

	radius := input.RadiusKm
	if math.IsNaN(radius) || radius < 0 || radius > validation.MaxRadiusKm {
		return nil, apperror.Validation("некорректный радиус поиска", "radius")
	}

	return uc.reportRepo.ListNear(ctx, center, radius, validation.ClampLimit(input.Limit, DefaultNearbyLimit))
}

type ListUserReportsUseCase struct {
	reportRepo repository.ReportRepository
}

func NewListUserReportsUseCase(reportRepo repository.ReportRepository) *ListUserReportsUseCase {
	return &ListUserReportsUseCase{reportRepo: reportRepo}
}

func (uc *ListUserReportsUseCase) Execute(ctx context.Context, userID string, limit int) ([]*entity.Report, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperror.Validation("не указан пользователь", "user_id")
	}
	return uc.reportRepo.ListByUser(ctx, userID, validation.ClampLimit(limit, DefaultUserLimit))
}

// DashboardStats - агрегаты по последним ScanLimit отчётам.
type DashboardStats struct {
	TotalReports    int
	PendingReports  int
	ResolvedReports int
	CriticalReports int
	ByStatus        map[valueobject.ReportStatus]int
	BySeverity      map[valueobject.Severity]int
	ByDisasterType  map[valueobject.DisasterType]int
	RecentReports   []*entity.Report
	// Truncated означает, что отчётов больше, чем ScanLimit, и агрегаты неполные.
	Truncated   bool
	GeneratedAt time.Time
}

type DashboardStatsUseCase struct {
	reportRepo repository.ReportRepository
	cache      *service.CacheService
	ttl        time.Duration
	scanLimit  int
}

// NewDashboardStatsUseCase: cache может быть nil, тогда агрегаты считаются на каждый запрос.
func NewDashboardStatsUseCase(reportRepo repository.ReportRepository, cache *service.CacheService, ttl time.Duration, scanLimit int) *DashboardStatsUseCase {
	return &DashboardStatsUseCase{reportRepo: reportRepo, cache: cache, ttl: ttl, scanLimit: scanLimit}
}

func (uc *DashboardStatsUseCase) Execute(ctx context.Context) (*DashboardStats, error) {
	if uc.cache == nil || uc.ttl <= 0 {
		return uc.compute(ctx)
	}

	value, err := uc.cache.GetOrSet(ctx, service.DashboardStatsCacheKey(uc.scanLimit), uc.ttl,
		func(ctx context.Context) (interface{}, error) {
			return uc.compute(ctx)
		})
	if err != nil {
		return nil, err
	}
	return value.(*DashboardStats), nil
}

func (uc *DashboardStatsUseCase) compute(ctx context.Context) (*DashboardStats, error) {
	// берём на один больше, чтобы понять, обрезана ли выборка
	reports, err := uc.reportRepo.List(ctx, repository.ReportFilter{Limit: uc.scanLimit + 1})
	if err != nil {
		return nil, err
	}

	truncated := false
	if uc.scanLimit > 0 && len(reports) > uc.scanLimit {
		reports = reports[:uc.scanLimit]
		truncated = true
	}

	stats := BuildDashboardStats(reports)
	stats.Truncated = truncated
	return stats, nil
}

// BuildDashboardStats считает агрегаты по отчётам, отсортированным от новых к старым.
func BuildDashboardStats(reports []*entity.Report) *DashboardStats {
	stats := &DashboardStats{
		TotalReports:   len(reports),
		ByStatus:       make(map[valueobject.ReportStatus]int),
		BySeverity:     make(map[valueobject.Severity]int),
		ByDisasterType: make(map[valueobject.DisasterType]int),
		GeneratedAt:    time.Now().UTC(),
	}
	for _, s := range valueobject.ReportStatuses() {
		stats.ByStatus[s] = 0
	}
	for _, s := range valueobject.Severities() {
		stats.BySeverity[s] = 0
	}

	for _, r := range reports {
		stats.ByStatus[r.Status]++
		stats.BySeverity[r.Severity]++
		stats.ByDisasterType[r.DisasterType]++

		switch r.Status {
		case valueobject.ReportStatusPending:
			stats.PendingReports++
		case valueobject.ReportStatusResolved:
			stats.ResolvedReports++
		}
		if r.Severity == valueobject.SeverityCritical {
			stats.CriticalReports++
		}
	}

	recent := len(reports)
	if recent > RecentReportsInStats {
		recent = RecentReportsInStats
	}
	stats.RecentReports = append([]*entity.Report{}, reports[:recent]...)

	return stats
}
