package tools

import "testing"

func TestDigitsOnly(t *testing.T) {
	cases := map[string]string{
		"+55 (11) 99999-8888": "5511999998888",
		"5511999998888":       "5511999998888",
		"abc":                 "",
	}
	for in, want := range cases {
		if got := DigitsOnly(in); got != want {
			t.Errorf("DigitsOnly(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPhoneFromJID(t *testing.T) {
	cases := map[string]string{
		"5511999998888@s.whatsapp.net":  "5511999998888",
		"120363025246125486@g.us":       "120363025246125486",
		"@s.whatsapp.net":               "",
		" 5511999998888@s.whatsapp.net": "5511999998888",
	}
	for in, want := range cases {
		if got := PhoneFromJID(in); got != want {
			t.Errorf("PhoneFromJID(%q) = %q, want %q", in, got, want)
		}
	}
}
