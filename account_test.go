package gnc

import "testing"

func TestParseColor(t *testing.T) {
	testCases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "#ff0033", want: "#ff0033"},
		{in: "#FF0033", want: "#ff0033"},
		{in: "#fff000333", want: "#ff0033"}, // legacy 9-digit form
		{in: "Not set", wantErr: true},
		{in: "#ff00", wantErr: true},
		{in: "red", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range testCases {
		got, err := ParseColor(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseColor(%q): expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseColor(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseColor(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestColorRGB(t *testing.T) {
	a := NewAccount("Checking", AccountTypeBank)
	if got := a.ColorRGB(); got != "" {
		t.Errorf("unset color = %q, want empty", got)
	}
	if err := a.SetColor("#ff8000"); err != nil {
		t.Fatal(err)
	}
	if got := a.ColorRGB(); got != "rgb(255,128,0)" {
		t.Errorf("ColorRGB() = %q, want rgb(255,128,0)", got)
	}
}

func TestImbalanceNaming(t *testing.T) {
	if got := ImbalanceAccountName("EUR"); got != "Imbalance-EUR" {
		t.Errorf("ImbalanceAccountName = %q", got)
	}
	if got := ImbalanceCurrency("Imbalance-EUR"); got != "EUR" {
		t.Errorf("ImbalanceCurrency = %q, want EUR", got)
	}
	if got := ImbalanceCurrency("Checking"); got != "" {
		t.Errorf("ImbalanceCurrency(Checking) = %q, want empty", got)
	}
}

func TestParseAccountType(t *testing.T) {
	if got, err := ParseAccountType("BANK"); err != nil || got != AccountTypeBank {
		t.Errorf("ParseAccountType(BANK) = %v, %v", got, err)
	}
	if _, err := ParseAccountType("SAVINGS"); err == nil {
		t.Error("expected error for unknown type")
	}
}
