// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

package extract

import "testing"

func TestCode(t *testing.T) {
	tests := map[string]struct {
		text     string
		wantCode string
		wantLang string
	}{
		"fenced block with language": {
			text:     "sniff this\n```python\ndef f():\n    return 1\n```",
			wantCode: "def f():\n    return 1",
			wantLang: "python",
		},
		"fenced block without language": {
			text:     "```\nx = 1\n```",
			wantCode: "x = 1",
			wantLang: "unknown",
		},
		"fenced language tag is lowercased": {
			text:     "```Python\nprint(1)\n```",
			wantCode: "print(1)",
			wantLang: "python",
		},
		"fenced beats inline": {
			text:     "see `y = 2` or\n```go\nfunc main() {}\n```",
			wantCode: "func main() {}",
			wantLang: "go",
		},
		"inline code": {
			text:     "is `x = eval(input())` safe?",
			wantCode: "x = eval(input())",
			wantLang: "unknown",
		},
		"indented block": {
			text:     "here you go:\n    def f():\n        return 1\nthanks",
			wantCode: "def f():\nreturn 1",
			wantLang: "python",
		},
		"tab indented block": {
			text:     "check\n\tSELECT * FROM users WHERE id = 1",
			wantCode: "SELECT * FROM users WHERE id = 1",
			wantLang: "sql",
		},
		"heuristic raw lines": {
			text:     "please review\nfunction add(a, b) { return a + b }\nok?",
			wantCode: "function add(a, b) { return a + b }",
			wantLang: "javascript",
		},
		"plain prose": {
			text:     "hello there how are you",
			wantCode: "",
			wantLang: "",
		},
		"empty input": {
			text:     "",
			wantCode: "",
			wantLang: "",
		},
		"whitespace only": {
			text:     "   \n\t  ",
			wantCode: "",
			wantLang: "",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			code, lang := Code(tt.text)
			if code != tt.wantCode {
				t.Errorf("Code() code = %q, want %q", code, tt.wantCode)
			}
			if lang != tt.wantLang {
				t.Errorf("Code() language = %q, want %q", lang, tt.wantLang)
			}
		})
	}
}

func TestExplicit(t *testing.T) {
	tests := map[string]struct {
		text string
		want bool
	}{
		"fenced block":            {"```python\nx = 1\n```", true},
		"inline code":             {"is `eval(x)` safe?", true},
		"indented block":          {"look:\n    def f():\n        return 1", true},
		"punctuated gratitude":    {"thanks :)", false},
		"prose with parentheses":  {"that helped (a lot), cheers!", false},
		"heuristic-only raw line": {"function add(a, b) { return a + b }", false},
		"empty fence":             {"```\n\n```", false},
		"empty input":             {"", false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := Explicit(tt.text); got != tt.want {
				t.Errorf("Explicit(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := map[string]struct {
		code string
		want string
	}{
		"python":     {"def f():\n    return 1", "python"},
		"javascript": {"const x = () => 1", "javascript"},
		"go":         {"package main\n\nfunc main() {}", "go"},
		"sql":        {"SELECT id FROM users WHERE active = 1", "sql"},
		"java":       {"public class Main { void run() {} }", "java"},
		"bash":       {"echo $HOME", "bash"},
		"unknown":    {"lorem ipsum", "unknown"},
		"empty":      {"", "unknown"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := DetectLanguage(tt.code); got != tt.want {
				t.Errorf("DetectLanguage(%q) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}
