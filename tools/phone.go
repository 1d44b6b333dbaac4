package tools

import (
	"strings"
	"unicode"
)

// DigitsOnly remove tudo que não é dígito ("+55 (11) 99999-8888" -> "5511999998888").
func DigitsOnly(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var jidSuffixes = []string{"@s.whatsapp.net", "@g.us"}

// PhoneFromJID extrai o telefone do remoteJid removendo os sufixos conhecidos.
func PhoneFromJID(jid string) string {
	phone := strings.TrimSpace(jid)
	for _, suffix := range jidSuffixes {
		phone = strings.Replace(phone, suffix, "", 1)
	}
	return phone
}
