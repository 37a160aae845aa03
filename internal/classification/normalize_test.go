package classification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDescription(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bolt city reattached", "BOLT.EU O 2304 Warszawa", "BOLT.EU/O/2304 Warszawa"},
		{"bolt two tokens", "BOLT Warszawa", "BOLT Warszawa"},
		{"bolt single token", "BOLT", " BOLT"},
		{"plain description", "Zabka NANO Warszawa", "Zabka NANO Warszawa"},
		{"lowercase bolt untouched", "bolt ride Warszawa", "bolt ride Warszawa"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDescription(tt.in))
		})
	}
}

func TestNormalizeDescription_NoOpWithoutBolt(t *testing.T) {
	inputs := []string{
		"CARREFOUR HIPERMARKET WARSZAWA",
		"Leroy Merlin Warszawa A Warszawa",
		"Rent@Jan Kowalski->PL001",
		"  spaced   out  ",
		"Bolt Food Warszawa",
	}
	for _, in := range inputs {
		once := NormalizeDescription(in)
		assert.Equal(t, in, once)
		assert.Equal(t, once, NormalizeDescription(once))
	}
}
