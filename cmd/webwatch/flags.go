package main

import "time"

// GlobalFlags holds the persistent flags shared by every command.
type GlobalFlags struct {
	ConfigPath   string // settings TOML; optional
	RegistryPath string // watcher registry JSON; overrides settings and defaults
}

// Flag structs to decouple cobra from logic for testing.

type AddFlags struct {
	URL      string
	Keywords string
	Interval string
}

// EditFlags carries only the fields the user set explicitly.
type EditFlags struct {
	URL         string
	Keywords    string
	Interval    string
	SetURL      bool
	SetKeywords bool
	SetInterval bool
}

type ListFlags struct {
	JSON bool
}

type CheckFlags struct {
	JSON bool
}

type ServeFlags struct {
	Daemonize bool
	PidFile   string
	LogFile   string
	Listen    string
}

type StopFlags struct {
	PidFile string
	Wait    time.Duration
}

type StatusFlags struct {
	PidFile string
	// Remote daemon connection
	APIUrl     string
	APITimeout time.Duration
}
