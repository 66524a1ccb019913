// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

package review

// AckReply answers a gratitude follow-up after a delivered review.
const AckReply = "You're welcome! Got more code to sniff?"

// NoCodeReply answers a review trigger that carried no detectable code.
const NoCodeReply = "**No code detected!**\n\n" +
	"You said `sniff this` but no code was found.\n\n" +
	"**Example:**\n" +
	"```\n" +
	"@SniffBot sniff this\n" +
	"    x = 1 + \"hello\"\n" +
	"```"

// PromptReply answers any message that is neither a trigger nor a follow-up.
const PromptReply = "Say `@SniffBot sniff this` + code to analyze."

// NoPreviousCodeReply answers a fix-last trigger with no prior code turn.
const NoPreviousCodeReply = "No previous code to fix! Send some code first."

// GreetingReply introduces the agent to a greeting.
const GreetingReply = "**Hello! I'm SniffBot**\n" +
	"Your AI-powered code reviewer.\n\n" +
	"**How to use me:**\n" +
	"1. Paste any code\n" +
	"2. Say `@SniffBot sniff this`\n" +
	"3. I'll return severity, fix, diff, and commit message\n\n" +
	"**Example:**\n" +
	"```\n" +
	"@SniffBot sniff this\n" +
	"    print(\"Hello \" + 42)\n" +
	"```\n\n" +
	"Every Friday → **Smell of the Week**\n\n" +
	"Try it now!"

// HelpReply documents the agent's commands and formats.
const HelpReply = "**SniffBot Help**\n\n" +
	"**Trigger:**\n" +
	"```\n" +
	"@SniffBot sniff this\n" +
	"[your code]\n" +
	"```\n" +
	"@SniffBot fix last\n" +
	"→ Re-analyze the last code you sent\n\n" +
	"**Code Formats Supported:**\n" +
	"- fenced code blocks\n" +
	"- `inline code`\n" +
	"- 4-space indent\n" +
	"- Raw lines with `def`, `function`, etc.\n\n" +
	"**I return:**\n" +
	"- Severity (Low/Medium/High)\n" +
	"- 1-sentence explanation\n" +
	"- Fixed code diff\n" +
	"- Conventional commit message\n\n" +
	"**Weekly:** Smell of the Week (Fri 10 AM UTC)"
