package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Константы валидации
const (
	MaxReporterIDLength   = 64
	MaxReporterNameLength = 100
	MaxDescriptionLength  = 4000
	MaxPhotosCount        = 10
	MaxPhotoRefLength     = 512
	MaxQueryLimit         = 500
	MaxRadiusKm           = 20000.0
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// SanitizeText обрезает пробелы и убирает управляющие символы, кроме переводов строк и табуляции.
func SanitizeText(value string) string {
	value = strings.TrimSpace(value)
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
}

func ValidateDescription(description string) error {
	return ValidateLength("описание", description, 0, MaxDescriptionLength)
}

// ValidatePhotos проверяет количество и длину ссылок на фото.
// Сами ссылки непрозрачны: это file_id платформы или URL вложения.
func ValidatePhotos(photos []string) error {
	if len(photos) > MaxPhotosCount {
		return fmt.Errorf("допускается не более %d фото", MaxPhotosCount)
	}
	for i, ref := range photos {
		if strings.TrimSpace(ref) == "" {
			return fmt.Errorf("ссылка на фото #%d пустая", i+1)
		}
		if err := ValidateLength("ссылка на фото", ref, 0, MaxPhotoRefLength); err != nil {
			return err
		}
	}
	return nil
}

// ClampLimit возвращает fallback для limit <= 0 и MaxQueryLimit для слишком больших значений.
func ClampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > MaxQueryLimit {
		return MaxQueryLimit
	}
	return limit
}
