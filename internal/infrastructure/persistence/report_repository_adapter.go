package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/disaster-backend/internal/domain/entity"
	"github.com/ignatzorin/disaster-backend/internal/domain/repository"
	"github.com/ignatzorin/disaster-backend/internal/domain/valueobject"
	"github.com/ignatzorin/disaster-backend/internal/pkg/apperror"
)

const reportColumns = `id, reporter_id, reporter_name, disaster_type, severity, latitude, longitude,
	description, photos, status, source, created_at, updated_at`

type reportRow struct {
	ID           string          `db:"id"`
	ReporterID   string          `db:"reporter_id"`
	ReporterName string          `db:"reporter_name"`
	DisasterType string          `db:"disaster_type"`
	Severity     string          `db:"severity"`
	Latitude     sql.NullFloat64 `db:"latitude"`
	Longitude    sql.NullFloat64 `db:"longitude"`
	Description  string          `db:"description"`
	Photos       pq.StringArray  `db:"photos"`
	Status       string          `db:"status"`
	Source       string          `db:"source"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

func (row reportRow) toEntity() *entity.Report {
	report := &entity.Report{
		ID:           row.ID,
		ReporterID:   row.ReporterID,
		ReporterName: row.ReporterName,
		DisasterType: valueobject.DisasterType(row.DisasterType),
		Severity:     valueobject.Severity(row.Severity),
		Description:  row.Description,
		Photos:       []string(row.Photos),
		Status:       valueobject.ReportStatus(row.Status),
		Source:       valueobject.ReportSource(row.Source),
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
	if report.Photos == nil {
		report.Photos = []string{}
	}
	if row.Latitude.Valid && row.Longitude.Valid {
		report.Location = &valueobject.Location{
			Latitude:  row.Latitude.Float64,
			Longitude: row.Longitude.Float64,
		}
	}
	return report
}

type ReportRepositoryAdapter struct {
	db *sqlx.DB
}

func NewReportRepositoryAdapter(db *sqlx.DB) *ReportRepositoryAdapter {
	return &ReportRepositoryAdapter{db: db}
}

func (r *ReportRepositoryAdapter) Create(ctx context.Context, report *entity.Report) error {
	query := `
		INSERT INTO disaster_reports (` + reportColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	var lat, lng sql.NullFloat64
	if report.Location != nil {
		lat = sql.NullFloat64{Float64: report.Location.Latitude, Valid: true}
		lng = sql.NullFloat64{Float64: report.Location.Longitude, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		report.ID,
		report.ReporterID,
		report.ReporterName,
		string(report.DisasterType),
		string(report.Severity),
		lat,
		lng,
		report.Description,
		pq.StringArray(report.Photos),
		string(report.Status),
		string(report.Source),
		report.CreatedAt,
		report.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return apperror.ErrDuplicateID
	}
	return mapStoreError(err, "не удалось сохранить отчёт")
}

func (r *ReportRepositoryAdapter) FindByID(ctx context.Context, id string) (*entity.Report, error) {
	var row reportRow
	query := `SELECT ` + reportColumns + ` FROM disaster_reports WHERE id = $1`

	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrReportNotFound
	}
	if err != nil {
		return nil, mapStoreError(err, "не удалось получить отчёт")
	}
	return row.toEntity(), nil
}

func (r *ReportRepositoryAdapter) ListByUser(ctx context.Context, userID string, limit int) ([]*entity.Report, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM disaster_reports
		WHERE reporter_id = $1
		ORDER BY created_at DESC
	`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return r.selectReports(ctx, query, args, "не удалось получить отчёты пользователя")
}

func (r *ReportRepositoryAdapter) List(ctx context.Context, filter repository.ReportFilter) ([]*entity.Report, error) {
	query, args := buildListQuery(filter)
	return r.selectReports(ctx, query, args, "не удалось получить список отчётов")
}

func buildListQuery(filter repository.ReportFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	addCondition := func(column, value string) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if filter.Severity != "" {
		addCondition("severity", string(filter.Severity))
	}
	if filter.DisasterType != "" {
		addCondition("disaster_type", string(filter.DisasterType))
	}
	if filter.Status != "" {
		addCondition("status", string(filter.Status))
	}

	query := `SELECT ` + reportColumns + ` FROM disaster_reports`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return query, args
}

func (r *ReportRepositoryAdapter) UpdateStatus(ctx context.Context, id string, from, to valueobject.ReportStatus) (*entity.Report, error) {
	var row reportRow
	query := `
		UPDATE disaster_reports
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = $4
		RETURNING ` + reportColumns

	err := r.db.GetContext(ctx, &row, query, id, string(to), time.Now().UTC(), string(from))
	if errors.Is(err, sql.ErrNoRows) {
		// Строки нет либо статус успели поменять.
		if _, findErr := r.FindByID(ctx, id); findErr != nil {
			return nil, findErr
		}
		return nil, apperror.ErrReportStatusChanged
	}
	if err != nil {
		return nil, mapStoreError(err, "не удалось обновить статус отчёта")
	}
	return row.toEntity(), nil
}

// ListNear отбирает кандидатов по ограничивающему прямоугольнику,
// точное расстояние считается гаверсинусом уже в памяти.
func (r *ReportRepositoryAdapter) ListNear(ctx context.Context, center valueobject.Location, radiusKm float64, limit int) ([]*entity.Report, error) {
	minLat, maxLat, minLng, maxLng := center.BoundingBox(radiusKm)
	query := `
		SELECT ` + reportColumns + `
		FROM disaster_reports
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL
		  AND latitude BETWEEN $1 AND $2
		  AND longitude BETWEEN $3 AND $4
		ORDER BY created_at DESC
	`

	candidates, err := r.selectReports(ctx, query,
		[]interface{}{minLat, maxLat, minLng, maxLng}, "не удалось выполнить поиск поблизости")
	if err != nil {
		return nil, err
	}
	return entity.WithinRadius(candidates, center, radiusKm, limit), nil
}

func (r *ReportRepositoryAdapter) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return apperror.StoreUnavailable(err, "хранилище недоступно")
	}
	return nil
}

func (r *ReportRepositoryAdapter) selectReports(ctx context.Context, query string, args []interface{}, message string) ([]*entity.Report, error) {
	var rows []reportRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapStoreError(err, message)
	}

	reports := make([]*entity.Report, 0, len(rows))
	for _, row := range rows {
		reports = append(reports, row.toEntity())
	}
	return reports, nil
}
