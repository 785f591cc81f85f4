package persistence

import (
	"errors"

	"github.com/lib/pq"

	"github.com/ignatzorin/disaster-backend/internal/pkg/apperror"
)

const uniqueViolation = pq.ErrorCode("23505")

// mapStoreError переводит ошибку драйвера в таксономию apperror.
// Классы 22 (data exception) и 23 (integrity constraint) означают некорректные данные,
// всё остальное считается недоступностью хранилища.
func mapStoreError(err error, message string) error {
	if err == nil {
		return nil
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "22", "23":
			var fields []string
			if pqErr.Column != "" {
				fields = append(fields, pqErr.Column)
			} else if pqErr.Constraint != "" {
				fields = append(fields, pqErr.Constraint)
			}
			validationErr := apperror.Validation(message, fields...)
			validationErr.Cause = err
			return validationErr
		}
	}

	return apperror.StoreUnavailable(err, message)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
