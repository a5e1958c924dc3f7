package source

import (
	"path"
	"strings"
)

// Language identifies a supported source language.
type Language string

const (
	LangUnknown Language = ""
	LangGo      Language = "go"
	LangPython  Language = "python"
	LangJava    Language = "java"
)

// SupportedLanguages lists every language with an adapter.
var SupportedLanguages = []Language{LangGo, LangPython, LangJava}

var extToLanguage = map[string]Language{
	".go":   LangGo,
	".py":   LangPython,
	".pyw":  LangPython,
	".java": LangJava,
}

// LanguageForPath maps a file path to its language by extension.
func LanguageForPath(p string) Language {
	return extToLanguage[strings.ToLower(path.Ext(p))]
}

// ParseLanguage parses a user supplied language name.
func ParseLanguage(s string) (Language, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "go", "golang":
		return LangGo, true
	case "python", "py":
		return LangPython, true
	case "java":
		return LangJava, true
	}
	return LangUnknown, false
}

// Extensions returns the file extensions of l.
func (l Language) Extensions() []string {
	var exts []string
	for ext, lang := range extToLanguage {
		if lang == l {
			exts = append(exts, ext)
		}
	}
	return exts
}

// FenceTag is the Markdown code fence tag for l.
func (l Language) FenceTag() string {
	return string(l)
}
