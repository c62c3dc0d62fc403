package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/pavelanni/proctor/internal/model"
)

// Theme is the workspace color palette.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color
	Background lipgloss.Color

	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	StatusIdle      lipgloss.Color
	StatusRunning   lipgloss.Color
	StatusSucceeded lipgloss.Color
	StatusFailed    lipgloss.Color

	NotifySuccess lipgloss.Color
	NotifyError   lipgloss.Color
	NotifyInfo    lipgloss.Color
	NotifyWarning lipgloss.Color

	// Chroma style for code blocks in the question pane.
	CodeStyle string
}

// DarkTheme is the default palette.
var DarkTheme = Theme{
	NormalText:       lipgloss.Color("252"),
	FaintText:        lipgloss.Color("243"),
	Background:       lipgloss.Color("235"),
	HeaderForeground: lipgloss.Color("75"),
	BorderColor:      lipgloss.Color("238"),
	HelpText:         lipgloss.Color("241"),
	StatusIdle:       lipgloss.Color("245"),
	StatusRunning:    lipgloss.Color("214"),
	StatusSucceeded:  lipgloss.Color("78"),
	StatusFailed:     lipgloss.Color("203"),
	NotifySuccess:    lipgloss.Color("78"),
	NotifyError:      lipgloss.Color("203"),
	NotifyInfo:       lipgloss.Color("75"),
	NotifyWarning:    lipgloss.Color("214"),
	CodeStyle:        "monokai",
}

// LightTheme is selected with the theme toggle.
var LightTheme = Theme{
	NormalText:       lipgloss.Color("236"),
	FaintText:        lipgloss.Color("245"),
	Background:       lipgloss.Color("255"),
	HeaderForeground: lipgloss.Color("25"),
	BorderColor:      lipgloss.Color("250"),
	HelpText:         lipgloss.Color("244"),
	StatusIdle:       lipgloss.Color("242"),
	StatusRunning:    lipgloss.Color("130"),
	StatusSucceeded:  lipgloss.Color("28"),
	StatusFailed:     lipgloss.Color("160"),
	NotifySuccess:    lipgloss.Color("28"),
	NotifyError:      lipgloss.Color("160"),
	NotifyInfo:       lipgloss.Color("25"),
	NotifyWarning:    lipgloss.Color("130"),
	CodeStyle:        "github",
}

// ThemeFor returns the palette for a session theme.
func ThemeFor(t model.Theme) Theme {
	if t == model.ThemeLight {
		return LightTheme
	}
	return DarkTheme
}

func (t Theme) statusColor(s model.ExecutionStatus) lipgloss.Color {
	switch s {
	case model.StatusRunning:
		return t.StatusRunning
	case model.StatusSucceeded:
		return t.StatusSucceeded
	case model.StatusFailed:
		return t.StatusFailed
	}
	return t.StatusIdle
}

func (t Theme) notifyColor(k model.NotificationKind) lipgloss.Color {
	switch k {
	case model.NotifySuccess:
		return t.NotifySuccess
	case model.NotifyError:
		return t.NotifyError
	case model.NotifyWarning:
		return t.NotifyWarning
	}
	return t.NotifyInfo
}
