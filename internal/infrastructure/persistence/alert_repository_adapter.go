package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/disaster-backend/internal/domain/entity"
	"github.com/ignatzorin/disaster-backend/internal/domain/repository"
	"github.com/ignatzorin/disaster-backend/internal/domain/valueobject"
	"github.com/ignatzorin/disaster-backend/internal/pkg/apperror"
)

const alertColumns = `id, report_id, alert_type, disaster_type, severity, latitude, longitude,
	description, status, created_at, updated_at`

type alertRow struct {
	ID           uuid.UUID       `db:"id"`
	ReportID     string          `db:"report_id"`
	AlertType    string          `db:"alert_type"`
	DisasterType string          `db:"disaster_type"`
	Severity     string          `db:"severity"`
	Latitude     sql.NullFloat64 `db:"latitude"`
	Longitude    sql.NullFloat64 `db:"longitude"`
	Description  string          `db:"description"`
	Status       string          `db:"status"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

func (row alertRow) toEntity() *entity.EmergencyAlert {
	alert := &entity.EmergencyAlert{
		ID:           row.ID,
		ReportID:     row.ReportID,
		AlertType:    row.AlertType,
		DisasterType: valueobject.DisasterType(row.DisasterType),
		Severity:     valueobject.Severity(row.Severity),
		Description:  row.Description,
		Status:       valueobject.AlertStatus(row.Status),
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
	if row.Latitude.Valid && row.Longitude.Valid {
		alert.Location = &valueobject.Location{
			Latitude:  row.Latitude.Float64,
			Longitude: row.Longitude.Float64,
		}
	}
	return alert
}

type AlertRepositoryAdapter struct {
	db *sqlx.DB
}

func NewAlertRepositoryAdapter(db *sqlx.DB) *AlertRepositoryAdapter {
	return &AlertRepositoryAdapter{db: db}
}

// CreateAlert опирается на UNIQUE(report_id): повторная вставка ничего не делает
// и возвращает apperror.ErrAlertExists.
func (r *AlertRepositoryAdapter) CreateAlert(ctx context.Context, alert *entity.EmergencyAlert) error {
	query := `
		INSERT INTO emergency_alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (report_id) DO NOTHING
	`

	var lat, lng sql.NullFloat64
	if alert.Location != nil {
		lat = sql.NullFloat64{Float64: alert.Location.Latitude, Valid: true}
		lng = sql.NullFloat64{Float64: alert.Location.Longitude, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query,
		alert.ID,
		alert.ReportID,
		alert.AlertType,
		string(alert.DisasterType),
		string(alert.Severity),
		lat,
		lng,
		alert.Description,
		string(alert.Status),
		alert.CreatedAt,
		alert.UpdatedAt,
	)
	if err != nil {
		return mapStoreError(err, "не удалось сохранить оповещение")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return mapStoreError(err, "не удалось проверить результат вставки оповещения")
	}
	if rows == 0 {
		return apperror.ErrAlertExists
	}
	return nil
}

func (r *AlertRepositoryAdapter) FindAlertByReportID(ctx context.Context, reportID string) (*entity.EmergencyAlert, error) {
	return r.getAlert(ctx, `SELECT `+alertColumns+` FROM emergency_alerts WHERE report_id = $1`, reportID)
}

func (r *AlertRepositoryAdapter) FindAlertByID(ctx context.Context, id uuid.UUID) (*entity.EmergencyAlert, error) {
	return r.getAlert(ctx, `SELECT `+alertColumns+` FROM emergency_alerts WHERE id = $1`, id)
}

func (r *AlertRepositoryAdapter) ListAlerts(ctx context.Context, filter repository.AlertFilter) ([]*entity.EmergencyAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM emergency_alerts`
	var args []interface{}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` WHERE status = $1`
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	var rows []alertRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapStoreError(err, "не удалось получить список оповещений")
	}

	alerts := make([]*entity.EmergencyAlert, 0, len(rows))
	for _, row := range rows {
		alerts = append(alerts, row.toEntity())
	}
	return alerts, nil
}

func (r *AlertRepositoryAdapter) UpdateAlertStatus(ctx context.Context, id uuid.UUID, from, to valueobject.AlertStatus) (*entity.EmergencyAlert, error) {
	query := `
		UPDATE emergency_alerts
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = $4
		RETURNING ` + alertColumns

	var row alertRow
	err := r.db.GetContext(ctx, &row, query, id, string(to), time.Now().UTC(), string(from))
	if errors.Is(err, sql.ErrNoRows) {
		if _, findErr := r.FindAlertByID(ctx, id); findErr != nil {
			return nil, findErr
		}
		return nil, apperror.ErrAlertStatusChanged
	}
	if err != nil {
		return nil, mapStoreError(err, "не удалось обновить статус оповещения")
	}
	return row.toEntity(), nil
}

func (r *AlertRepositoryAdapter) getAlert(ctx context.Context, query string, arg interface{}) (*entity.EmergencyAlert, error) {
	var row alertRow
	err := r.db.GetContext(ctx, &row, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrAlertNotFound
	}
	if err != nil {
		return nil, mapStoreError(err, "не удалось получить оповещение")
	}
	return row.toEntity(), nil
}
