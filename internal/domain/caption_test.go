package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validCaption = `ALERTA DE OCORRÊNCIA
Tiroteio - 03/11/25 14:30
Copacabana - Rio de Janeiro RJ`

func TestParseCaptions(t *testing.T) {
	t.Run("single caption", func(t *testing.T) {
		incidents := ParseCaptions(validCaption, testScrapedAt, discardLogger())
		require.Len(t, incidents, 1)

		inc := incidents[0]
		assert.Equal(t, TypeShooting, inc.Type)
		assert.Equal(t, time.Date(2025, time.November, 3, 14, 30, 0, 0, time.UTC), inc.OccurredAt)
		assert.Equal(t, "Copacabana", inc.Neighborhood)
		assert.Equal(t, "Rio de Janeiro", inc.Municipality)
		assert.Equal(t, "RJ", inc.State)
		assert.Equal(t, SourceSocialCaption, inc.Source)
		assert.Equal(t, testScrapedAt, inc.ScrapedAt)
	})

	t.Run("multiple captions separated by blank lines", func(t *testing.T) {
		text := validCaption + "\n\n" + `ALERTA DE OCORRÊNCIA
Operação Policial - 02/11/25 06:00
Maré - Rio de Janeiro RJ`

		incidents := ParseCaptions(text, testScrapedAt, discardLogger())
		require.Len(t, incidents, 2)
		assert.Equal(t, TypeShooting, incidents[0].Type)
		assert.Equal(t, TypePoliceOperation, incidents[1].Type)
	})

	t.Run("caption-only types resolve", func(t *testing.T) {
		text := `ALERTA DE OCORRÊNCIA
Arrastao - 01/11/25 19:45
Centro - Niterói RJ`
		incidents := ParseCaptions(text, testScrapedAt, discardLogger())
		require.Len(t, incidents, 1)
		assert.Equal(t, TypeMassRobbery, incidents[0].Type)
	})

	t.Run("multi-word municipality", func(t *testing.T) {
		text := `ALERTA DE OCORRÊNCIA
Roubo - 01/11/25 19:45
Boa Viagem - São Gonçalo RJ`
		incidents := ParseCaptions(text, testScrapedAt, discardLogger())
		require.Len(t, incidents, 1)
		assert.Equal(t, "Boa Viagem", incidents[0].Neighborhood)
		assert.Equal(t, "São Gonçalo", incidents[0].Municipality)
		assert.Equal(t, "RJ", incidents[0].State)
	})

	tests := []struct {
		name string
		text string
	}{
		{"too few lines", "ALERTA\nTiroteio - 03/11/25 14:30"},
		{"unknown type", "ALERTA\nAlagamento - 03/11/25 14:30\nCentro - Niterói RJ"},
		{"bad date", "ALERTA\nTiroteio - 31/02/25 14:30\nCentro - Niterói RJ"},
		{"malformed type line", "ALERTA\nTiroteio 03/11/25 14:30\nCentro - Niterói RJ"},
		{"malformed place line", "ALERTA\nTiroteio - 03/11/25 14:30\nCentro Niterói"},
		{"lowercase state code", "ALERTA\nTiroteio - 03/11/25 14:30\nCentro - Niterói rj"},
		{"empty input", ""},
	}
	for _, tt := range tests {
		t.Run("drops "+tt.name, func(t *testing.T) {
			assert.Empty(t, ParseCaptions(tt.text, testScrapedAt, discardLogger()))
		})
	}

	t.Run("bad caption does not abort the rest", func(t *testing.T) {
		text := "ALERTA\nAlagamento - 03/11/25 14:30\nCentro - Niterói RJ\n\n" + validCaption
		incidents := ParseCaptions(text, testScrapedAt, discardLogger())
		require.Len(t, incidents, 1)
		assert.Equal(t, TypeShooting, incidents[0].Type)
	})
}
