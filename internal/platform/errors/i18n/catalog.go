// Package i18n provides internationalization support for error messages.
package i18n

import (
	"bytes"
	"strings"
	"text/template"

	"golang.org/x/text/language"
)

// Code is a machine-readable error code (duplicated from errors package to avoid cycle).
type Code = string

// BaseLocale is the fallback locale when a requested one is unavailable.
const BaseLocale = "en-US"

// Catalog maps error codes to message templates for a specific locale.
type Catalog struct {
	locale   string
	messages map[Code]string
}

var catalogs = map[string]*Catalog{
	BaseLocale: {locale: BaseLocale, messages: enUS},
}

var matcher = language.NewMatcher([]language.Tag{
	language.AmericanEnglish,
})

// GetCatalog returns the catalog for the given locale.
// Falls back to en-US if the locale is not found.
func GetCatalog(locale string) *Catalog {
	requested := strings.TrimSpace(locale)
	if requested == "" {
		return catalogs[BaseLocale]
	}
	tag, err := language.Parse(requested)
	if err != nil {
		return catalogs[BaseLocale]
	}
	_, index, _ := matcher.Match(tag)
	resolved := []string{BaseLocale}[index]
	if c, ok := catalogs[resolved]; ok {
		return c
	}
	return catalogs[BaseLocale]
}

// Locale returns the locale of this catalog.
func (c *Catalog) Locale() string {
	return c.locale
}

// Message renders the message template for a code with the given metadata.
// Unknown codes render the CodeUnknown message.
func (c *Catalog) Message(code Code, metadata map[string]string) string {
	text, ok := c.messages[code]
	if !ok {
		text = c.messages[CodeUnknown]
	}
	tmpl, err := template.New(code).Parse(text)
	if err != nil {
		return text
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, metadata); err != nil {
		return text
	}
	return buf.String()
}
