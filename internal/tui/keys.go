// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// PickerKeyMap holds the bindings of the selection picker
type PickerKeyMap struct {
	Up             key.Binding
	Down           key.Binding
	NextPage       key.Binding
	PrevPage       key.Binding
	Toggle         key.Binding
	TogglePage     key.Binding
	SelectMatching key.Binding
	PageOnly       key.Binding
	Clear          key.Binding
	Search         key.Binding
	Confirm        key.Binding
	Quit           key.Binding
	Help           key.Binding
}

var DefaultPickerKeyMap = PickerKeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "move up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "move down"),
	),
	NextPage: key.NewBinding(
		key.WithKeys("l", "right", "pgdown"),
		key.WithHelp("l/→", "next page"),
	),
	PrevPage: key.NewBinding(
		key.WithKeys("h", "left", "pgup"),
		key.WithHelp("h/←", "prev page"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "toggle item"),
	),
	TogglePage: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "toggle page"),
	),
	SelectMatching: key.NewBinding(
		key.WithKeys("A"),
		key.WithHelp("A", "select all matching"),
	),
	PageOnly: key.NewBinding(
		key.WithKeys("P"),
		key.WithHelp("P", "this page only"),
	),
	Clear: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "clear"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	Confirm: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "apply"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
}

func (k PickerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.TogglePage, k.SelectMatching, k.Confirm, k.Quit, k.Help}
}

func (k PickerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextPage, k.PrevPage},
		{k.Toggle, k.TogglePage, k.SelectMatching, k.PageOnly, k.Clear},
		{k.Search, k.Confirm, k.Quit, k.Help},
	}
}

// ProgressKeyMap holds the bindings of the progress view
type ProgressKeyMap struct {
	Cancel key.Binding
	Quit   key.Binding
}

var DefaultProgressKeyMap = ProgressKeyMap{
	Cancel: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "cancel"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "cancel and quit"),
	),
}

func (k ProgressKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Cancel, k.Quit}
}

func (k ProgressKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
