package dealer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in     string
		want   int64
		wantOK bool
	}{
		{"Ford Focus £4,500 2015", 4500, true},
		{"Now £ 12,995.00 was £13,500", 12995, true},
		{"POA", 0, false},
		{"$4,500", 0, false},
		{"£0", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParsePrice(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseYear(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"2015 (65 reg) Ford Focus", 2015, true},
		{"Registered 2029", 2029, true},
		{"1999 Rover 200 then 2003", 2003, true},
		{"2030 concept", 0, false},
		{"ref 120151", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseYear(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMileage(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"45,000 miles", 45000, true},
		{"62,113mi Petrol", 62113, true},
		{"12000 Miles", 12000, true},
		{"2019 Mini Cooper", 0, false},
		{"low mileage", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseMileage(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseVRM(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"Reg: AB12 CDE", "AB12CDE", true},
		{"XY99ZZZ Ford", "XY99ZZZ", true},
		{"lower ab12cde is not a plate", "", false},
		{"A123 BCD", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseVRM(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeVRM(t *testing.T) {
	assert.Equal(t, "AB12CDE", NormalizeVRM(" ab12 cde "))
}

func TestParseTransmissionAndFuel(t *testing.T) {
	tr, ok := ParseTransmission("1.6 AUTOMATIC 5dr")
	assert.True(t, ok)
	assert.Equal(t, "Automatic", tr)

	tr, ok = ParseTransmission("manual gearbox")
	assert.True(t, ok)
	assert.Equal(t, "Manual", tr)

	_, ok = ParseTransmission("CVT")
	assert.False(t, ok)

	fuel, ok := ParseFuel("Self-charging hybrid, petrol engine")
	assert.True(t, ok)
	assert.Equal(t, "Hybrid", fuel)

	_, ok = ParseFuel("LPG")
	assert.False(t, ok)
}

func TestParseDoors(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"Ford Focus 1.6 Automatic 5dr", 5, true},
		{"3 door hatchback", 3, true},
		{"4-doors saloon", 4, true},
		{"7 doors", 0, false},
		{"doors: many", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDoors(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPickTitle(t *testing.T) {
	assert.Equal(t, "Ford Focus 1.6 Automatic 5dr",
		PickTitle([]string{"£4,500", "New", "Ford Focus 1.6 Automatic 5dr"}))
	assert.Equal(t, "Ford Focus 1.6 Zetec 5dr",
		PickTitle([]string{"£4,500", "Reduced", "Ford Focus 1.6 Zetec 5dr"}))
	assert.Equal(t, "Reduced",
		PickTitle([]string{"Reduced", "Ford Focus 1.6 Zetec 5dr"}))
	assert.Equal(t, "£4,500 Kia",
		PickTitle([]string{"£4,500", "Kia"}))
	assert.Equal(t, "£4,500 Kia Rio",
		PickTitle([]string{"£4,500", "Kia Rio"}))
	assert.Equal(t, "", PickTitle(nil))
}

func TestUsableTitle(t *testing.T) {
	assert.True(t, UsableTitle("Fiat 500 1.2"))
	assert.False(t, UsableTitle("£4,500"))
	assert.False(t, UsableTitle(""))
}
