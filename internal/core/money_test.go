package core

import (
	"encoding/json"
	"testing"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
		ok    bool
	}{
		{"0", 0, true},
		{"1", 100, true},
		{"1.2", 120, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"1.234", 123, true},
		{"1.235", 124, true},
		{"-5", -500, true},
		{"-0.005", -1, true},
		{"", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"99999999999999999999", 0, false},
	}
	for _, c := range cases {
		got, err := ParseMoney(c.in)
		if c.ok && err != nil {
			t.Fatalf("%q: unexpected err %v", c.in, err)
		}
		if !c.ok && err == nil {
			t.Fatalf("%q: expected error, got %d", c.in, got.Cents)
		}
		if c.ok && got.Cents != c.cents {
			t.Fatalf("%q: got %d, want %d", c.in, got.Cents, c.cents)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	tests := []struct {
		name  string
		money Money
		want  string
	}{
		{"whole", Money{Cents: 100000}, "1000"},
		{"fraction", Money{Cents: 1250}, "12.5"},
		{"cents", Money{Cents: 5}, "0.05"},
		{"negative", Money{Cents: -30000}, "-300"},
		{"zero", Money{}, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.money)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(b) != tt.want {
				t.Errorf("got %s, want %s", b, tt.want)
			}
		})
	}
}

func TestMoneyUnmarshalAcceptsNumbersAndStrings(t *testing.T) {
	var v struct {
		A Money  `json:"a"`
		B Money  `json:"b"`
		C *Money `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a": 12.345, "b": "7,5", "c": null}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A.Cents != 1235 {
		t.Errorf("a = %d, want 1235", v.A.Cents)
	}
	if v.B.Cents != 750 {
		t.Errorf("b = %d, want 750", v.B.Cents)
	}
	if v.C != nil {
		t.Errorf("c should stay nil")
	}
	if err := json.Unmarshal([]byte(`{"a": true}`), &v); err == nil {
		t.Fatalf("expected error for boolean amount")
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := NewMoney(10, 50)
	b := NewMoney(3, 25)
	if got := a.Add(b); got.Cents != 1375 {
		t.Errorf("Add = %d", got.Cents)
	}
	if got := a.Sub(b); got.Cents != 725 {
		t.Errorf("Sub = %d", got.Cents)
	}
	if got := b.Sub(a).String(); got != "-7.25" {
		t.Errorf("String = %s", got)
	}
}
