package main

import (
	"time"

	"github.com/spf13/pflag"
)

func logFlags() *pflag.FlagSet {
	f := pflag.NewFlagSet("log", pflag.ContinueOnError)
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	f.String("log-file", "", "Write logs to this file instead of stderr")
	return f
}

func storeFlags() *pflag.FlagSet {
	f := pflag.NewFlagSet("store", pflag.ContinueOnError)
	f.String("store", "sqlite", "Draft store (sqlite, file, memory)")
	f.String("db", "proctor.db", "SQLite database path")
	f.String("drafts-dir", "drafts", "Directory for the file draft store")
	return f
}

func bankFlags() *pflag.FlagSet {
	f := pflag.NewFlagSet("bank", pflag.ContinueOnError)
	f.StringSliceP("questions", "q", nil, "Question bank files, JSON/JSONC or YAML (repeatable; default built-in bank)")
	f.String("directory", "", "User directory seed YAML (default built-in directory)")
	f.StringP("lang", "l", "en", "UI language (en, ru)")
	return f
}

func examFlags() *pflag.FlagSet {
	f := pflag.NewFlagSet("exam", pflag.ContinueOnError)
	f.String("course", "", "Course name shown in the workspace header")
	f.Duration("time-limit", 0, "Exam countdown (0 = untimed)")
	f.Bool("flush-on-exit", false, "Save the answer when leaving the exam")
	f.String("capture", "auto", "Capture device (auto, none)")
	f.String("judge", "sim", "Execution backend (sim, llm)")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.Duration("llm-timeout", 30*time.Second, "Timeout for one remote evaluation")
	return f
}
