package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeMaterials(t *testing.T) {
	materials := NormalizeMaterials("  краска , , шпатлёвка,,  грунтовка  ")
	assert.Equal(t, []string{"краска", "шпатлёвка", "грунтовка"}, materials)
}

func TestNormalizeMaterialsEmpty(t *testing.T) {
	assert.Empty(t, NormalizeMaterials(""))
	assert.Empty(t, NormalizeMaterials(" , , "))
}

// Повторная нормализация уже нормализованной строки не меняет результат.
func TestNormalizeMaterialsIdempotent(t *testing.T) {
	once := NormalizeMaterials("доска, брус,  гвозди ")
	twice := NormalizeMaterials(strings.Join(once, ","))
	assert.Equal(t, once, twice)
}

func TestValidateMaterialsLimits(t *testing.T) {
	tooMany := make([]string, MaxMaterialsCount+1)
	for i := range tooMany {
		tooMany[i] = "материал"
	}
	assert.Error(t, ValidateMaterials(tooMany))

	assert.Error(t, ValidateMaterials([]string{strings.Repeat("а", MaxMaterialLength+1)}))
	assert.NoError(t, ValidateMaterials([]string{"краска"}))
}

func TestValidateProposalTitle(t *testing.T) {
	assert.Error(t, ValidateProposalTitle(""))
	assert.Error(t, ValidateProposalTitle("   "))
	assert.Error(t, ValidateProposalTitle("аб"))
	assert.Error(t, ValidateProposalTitle(strings.Repeat("а", MaxTitleLength+1)))
	assert.NoError(t, ValidateProposalTitle("Ремонт кровли"))
}

func TestValidateSignerName(t *testing.T) {
	assert.Error(t, ValidateSignerName(""))
	assert.Error(t, ValidateSignerName("   "))
	assert.NoError(t, ValidateSignerName("Иван Петров"))
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("user@example.com"))
	assert.NoError(t, ValidateEmail("USER@EXAMPLE.COM"))
	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("invalid"))
	assert.Error(t, ValidateEmail("user@@example.com"))
	assert.Error(t, ValidateEmail("user@localhost"))
}

func TestValidateExternalLink(t *testing.T) {
	valid := "https://example.com/portfolio"
	assert.NoError(t, ValidateExternalLink(&valid))

	noScheme := "example.com"
	assert.Error(t, ValidateExternalLink(&noScheme))

	ftp := "ftp://example.com"
	assert.Error(t, ValidateExternalLink(&ftp))

	assert.NoError(t, ValidateExternalLink(nil))
}
