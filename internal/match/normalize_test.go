package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Samsung Electronics Co., Ltd.", "SAMSUNG ELECTRONICS"},
		{"SAMSUNG ELECTRONICS", "SAMSUNG ELECTRONICS"},
		{"  samsung   electronics  co ltd ", "SAMSUNG ELECTRONICS"},
		{"Société Générale", "SOCIETE GENERALE"},
		{"Acme Freight LLC", "ACME FREIGHT"},
		{"AT&T Inc.", "AT&T"},
		{"Becton Dickinson de Mexico SA de CV", "BECTON DICKINSON DE MEXICO"},
		{"Intel Malaysia Sdn Bhd", "INTEL MALAYSIA"},
		{"Costco", "COSTCO"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}
