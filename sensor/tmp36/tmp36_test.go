package tmp36

import (
	"math"
	"testing"
)

type fixedADC uint16

func (a fixedADC) Get() uint16 { return uint16(a) }

func TestReadTemperature(t *testing.T) {
	for _, tc := range []struct {
		raw  uint16
		want float32
	}{
		{9930, 0},    // 0.5V
		{14895, 25},  // 0.75V
		{0, -50},     // 0V
		{65535, 280}, // 3.3V
	} {
		got, err := New(fixedADC(tc.raw)).ReadTemperature()
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(float64(got-tc.want)) > 0.1 {
			t.Errorf("raw %d: got %v°C, want %v°C", tc.raw, got, tc.want)
		}
	}
}

func TestReference(t *testing.T) {
	d := New(fixedADC(32768))
	d.Reference = 1.0
	if got, _ := d.ReadTemperature(); math.Abs(float64(got)) > 0.1 {
		t.Errorf("half scale at 1V reference: got %v°C, want 0°C", got)
	}
}

func TestFahrenheit(t *testing.T) {
	for _, tc := range []struct{ c, f float32 }{
		{0, 32},
		{100, 212},
		{-40, -40},
		{37, 98.6},
	} {
		if got := Fahrenheit(tc.c); math.Abs(float64(got-tc.f)) > 0.01 {
			t.Errorf("Fahrenheit(%v) = %v, want %v", tc.c, got, tc.f)
		}
	}
}
