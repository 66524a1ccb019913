// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

// Package extract pulls code snippets out of free-form chat text.
package extract

import (
	"regexp"
	"strings"
)

// LanguageUnknown is the language hint when detection fails.
const LanguageUnknown = "unknown"

var (
	fencedRe   = regexp.MustCompile(`(?is)` + "```" + `(\w+)?\n(.*?)\n` + "```")
	inlineRe   = regexp.MustCompile("`{1,3}([^`]+?)`{1,3}")
	indentRe   = regexp.MustCompile(`^( {4,}|\t)`)
	dedentRe   = regexp.MustCompile(`^( {4,}|\t)`)
	fenceQuote = "```"
)

// Code extracts the most likely code snippet from a chat message, trying in
// order: a fenced code block, inline backtick code, an indented block, then
// a keyword heuristic over individual lines. Returns the snippet and a
// lowercase language hint, or two empty strings when the text carries no
// code at all.
func Code(text string) (code, language string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ""
	}

	if m := fencedRe.FindStringSubmatch(text); m != nil {
		code := strings.TrimRight(m[2], " \t\n")
		if code != "" {
			if lang := strings.ToLower(m[1]); lang != "" {
				return code, lang
			}
			return code, LanguageUnknown
		}
	}

	if m := inlineRe.FindStringSubmatch(text); m != nil {
		if code := strings.TrimSpace(m[1]); code != "" {
			return code, LanguageUnknown
		}
	}

	if code := indentedBlock(text); code != "" {
		return code, DetectLanguage(code)
	}

	if code := heuristicLines(text); code != "" {
		return code, DetectLanguage(code)
	}

	return "", ""
}

// Explicit reports whether the text carries a deliberately marked code
// block: fenced, inline backticks, or an indented block. Keyword-heuristic
// hits are not explicit; punctuation in plain prose can satisfy them.
func Explicit(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if m := fencedRe.FindStringSubmatch(text); m != nil && strings.TrimRight(m[2], " \t\n") != "" {
		return true
	}
	if m := inlineRe.FindStringSubmatch(text); m != nil && strings.TrimSpace(m[1]) != "" {
		return true
	}
	return indentedBlock(text) != ""
}

// indentedBlock collects lines indented by four spaces or a tab and strips
// one level of indentation.
func indentedBlock(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if indentRe.MatchString(line) {
			lines = append(lines, dedentRe.ReplaceAllString(line, ""))
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// codeIndicators are substrings that mark a line as code rather than prose.
var codeIndicators = []string{
	"def ", "function ", "const ", "let ", "var ", "class ", "import ", "from ",
	"async ", "await ", "return ", "if ", "for ", "while ", "select ", "insert ",
	"=>", "->", "{", "}", "(", ")", "[", "]", "=", "==", "+=", ":", ";", "#",
}

// heuristicLines keeps the lines that look like code.
func heuristicLines(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		if likelyCodeLine(stripped) {
			lines = append(lines, line)
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func likelyCodeLine(line string) bool {
	lower := strings.ToLower(line)
	for _, indicator := range codeIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// DetectLanguage guesses the language of a snippet from keyword occurrence.
// Best-effort only; the hint feeds prompts and log fields, nothing depends
// on it being right.
func DetectLanguage(code string) string {
	if code == "" {
		return LanguageUnknown
	}
	lower := strings.ToLower(code)

	if containsAny(lower, "def ", "print(", "import ", "from ", "self.") {
		return "python"
	}
	if containsAny(lower, "function ", "const ", "let ", "var ", "=>", "console.log") {
		return "javascript"
	}
	if containsAny(lower, "func ", "package ", "type ", "struct ") {
		return "go"
	}
	if containsAny(lower, "select ", "where ", "insert into", "update ", "delete ") {
		return "sql"
	}
	if containsAny(lower, "public class", "void ", "new ", "return ") && strings.Contains(code, "{") {
		return "java"
	}
	if containsAny(lower, "echo ", "$", "export ", "sudo ") && !strings.Contains(code, fenceQuote) {
		return "bash"
	}
	return LanguageUnknown
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
