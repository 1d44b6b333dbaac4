package services

import (
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// Content é o conteúdo de uma mensagem recebida, uma variante por tipo do gateway.
type Content interface {
	Body() string
	Kind() string
}

type TextContent struct{ Text string }
type ExtendedTextContent struct{ Text string }
type ImageContent struct{ Caption string }
type VideoContent struct{ Caption string }
type AudioContent struct{}
type DocumentContent struct{ FileName string }
type StickerContent struct{}
type ContactContent struct{ DisplayName string }
type LocationContent struct{}

// UnrecognizedContent guarda os campos vistos para log; não gera mensagem.
type UnrecognizedContent struct{ Fields []string }

func (c TextContent) Body() string         { return c.Text }
func (c ExtendedTextContent) Body() string { return c.Text }
func (c ImageContent) Body() string        { return labeled("[Imagem]", c.Caption) }
func (c VideoContent) Body() string        { return labeled("[Vídeo]", c.Caption) }
func (AudioContent) Body() string          { return "[Áudio]" }
func (c DocumentContent) Body() string     { return labeled("[Documento]", c.FileName) }
func (StickerContent) Body() string        { return "[Sticker]" }
func (c ContactContent) Body() string      { return labeled("[Contato]", c.DisplayName) }
func (LocationContent) Body() string       { return "[Localização]" }
func (UnrecognizedContent) Body() string   { return "" }

func (TextContent) Kind() string         { return "conversation" }
func (ExtendedTextContent) Kind() string { return "extendedTextMessage" }
func (ImageContent) Kind() string        { return "imageMessage" }
func (VideoContent) Kind() string        { return "videoMessage" }
func (AudioContent) Kind() string        { return "audioMessage" }
func (DocumentContent) Kind() string     { return "documentMessage" }
func (StickerContent) Kind() string      { return "stickerMessage" }
func (ContactContent) Kind() string      { return "contactMessage" }
func (LocationContent) Kind() string     { return "locationMessage" }
func (UnrecognizedContent) Kind() string { return "unrecognized" }

func labeled(label, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return label
	}
	return label + " " + text
}

type contentVariant struct {
	field string
	parse func(v any) (Content, bool)
}

func object(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// contentVariants é avaliado em ordem; o primeiro que casar vence.
var contentVariants = []contentVariant{
	{"conversation", func(v any) (Content, bool) {
		s := cast.ToString(v)
		return TextContent{Text: s}, s != ""
	}},
	{"extendedTextMessage", func(v any) (Content, bool) {
		m, ok := object(v)
		s := cast.ToString(m["text"])
		return ExtendedTextContent{Text: s}, ok && s != ""
	}},
	{"imageMessage", func(v any) (Content, bool) {
		m, ok := object(v)
		return ImageContent{Caption: cast.ToString(m["caption"])}, ok
	}},
	{"videoMessage", func(v any) (Content, bool) {
		m, ok := object(v)
		return VideoContent{Caption: cast.ToString(m["caption"])}, ok
	}},
	{"audioMessage", func(v any) (Content, bool) {
		_, ok := object(v)
		return AudioContent{}, ok
	}},
	{"documentMessage", func(v any) (Content, bool) {
		m, ok := object(v)
		return DocumentContent{FileName: cast.ToString(m["fileName"])}, ok
	}},
	{"stickerMessage", func(v any) (Content, bool) {
		_, ok := object(v)
		return StickerContent{}, ok
	}},
	{"contactMessage", func(v any) (Content, bool) {
		m, ok := object(v)
		return ContactContent{DisplayName: cast.ToString(m["displayName"])}, ok
	}},
	{"locationMessage", func(v any) (Content, bool) {
		_, ok := object(v)
		return LocationContent{}, ok
	}},
}

// ParseContent escolhe a variante do campo "message" de um envelope.
func ParseContent(message map[string]any) Content {
	for _, variant := range contentVariants {
		v, present := message[variant.field]
		if !present || v == nil {
			continue
		}
		if c, ok := variant.parse(v); ok {
			return c
		}
	}
	fields := make([]string, 0, len(message))
	for k := range message {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return UnrecognizedContent{Fields: fields}
}
