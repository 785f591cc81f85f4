package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateLength(t *testing.T) {
	assert.NoError(t, ValidateLength("имя", "Аня", 1, 3))
	assert.Error(t, ValidateLength("имя", "", 1, 3))
	assert.Error(t, ValidateLength("имя", "Анна", 0, 3))
	assert.NoError(t, ValidateLength("имя", strings.Repeat("x", 1000), 0, 0))
}

func TestValidateNonEmpty(t *testing.T) {
	assert.Error(t, ValidateNonEmpty("user_id", "  \t"))
	assert.NoError(t, ValidateNonEmpty("user_id", "42"))
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "line1\nline2\tend", SanitizeText("  line1\nline2\tend\x00\x07  "))
	assert.Equal(t, "", SanitizeText(" \r "))
}

func TestValidateDescription(t *testing.T) {
	assert.NoError(t, ValidateDescription(""))
	assert.NoError(t, ValidateDescription(strings.Repeat("я", MaxDescriptionLength)))
	assert.Error(t, ValidateDescription(strings.Repeat("я", MaxDescriptionLength+1)))
}

func TestValidatePhotos(t *testing.T) {
	assert.NoError(t, ValidatePhotos(nil))
	assert.NoError(t, ValidatePhotos([]string{"AgACAgIAAxkBAAI", "https://cdn.example.com/a.jpg"}))
	assert.Error(t, ValidatePhotos([]string{"ok", " "}))
	assert.Error(t, ValidatePhotos([]string{strings.Repeat("a", MaxPhotoRefLength+1)}))

	tooMany := make([]string, MaxPhotosCount+1)
	for i := range tooMany {
		tooMany[i] = "file"
	}
	assert.Error(t, ValidatePhotos(tooMany))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 50, ClampLimit(0, 50))
	assert.Equal(t, 50, ClampLimit(-3, 50))
	assert.Equal(t, 7, ClampLimit(7, 50))
	assert.Equal(t, MaxQueryLimit, ClampLimit(MaxQueryLimit+1, 50))
}
