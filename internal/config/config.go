// Curator - Emby Collection Synchronization for MDBList
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Package config loads and validates Curator's configuration: layered
// defaults, a yaml config file, and CURATOR_-prefixed environment
// variables, in increasing priority.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/curator/internal/reconcile"
)

// Config is the root configuration document.
type Config struct {
	Emby    EmbyConfig    `koanf:"emby" validate:"required"`
	MDBList MDBListConfig `koanf:"mdblist" validate:"required"`
	Sync    SyncConfig    `koanf:"sync"`
	Server  ServerConfig  `koanf:"server"`
	Store   StoreConfig   `koanf:"store"`
	Log     LogConfig     `koanf:"log"`
	Lists   []ListConfig  `koanf:"lists" validate:"dive"`
}

// EmbyConfig holds the Emby server connection settings.
type EmbyConfig struct {
	URL    string `koanf:"url" validate:"required,url"`
	APIKey string `koanf:"api_key" validate:"required"`
	UserID string `koanf:"user_id" validate:"required"`
}

// MDBListConfig holds the MDBList API settings.
type MDBListConfig struct {
	URL    string `koanf:"url" validate:"required,url"`
	APIKey string `koanf:"api_key" validate:"required"`
}

// SyncConfig holds the engine's cycle and policy settings.
type SyncConfig struct {
	// Interval between cycles. Zero runs exactly one cycle and exits.
	Interval time.Duration `koanf:"interval"`

	// ConnectTimeout is the per-request HTTP timeout for both upstream
	// clients.
	ConnectTimeout time.Duration `koanf:"connect_timeout"`

	// ConnectRetryBackoff is the pause after a failed connectivity
	// pre-check before the cycle start is retried.
	ConnectRetryBackoff time.Duration `koanf:"connect_retry_backoff"`

	ProcessConfiguredLists bool `koanf:"process_configured_lists"`
	ProcessMyLists         bool `koanf:"process_my_lists"`

	// SortNamesDefault is the update_items_sort_names value for lists
	// discovered from the MDBList account.
	SortNamesDefault bool `koanf:"sort_names_default"`

	UseListDescriptions bool `koanf:"use_list_descriptions"`

	RefreshItems                 bool `koanf:"refresh_items"`
	RefreshMaxDaysSinceAdded     int  `koanf:"refresh_max_days_since_added" validate:"min=0"`
	RefreshMaxDaysSincePremiered int  `koanf:"refresh_max_days_since_premiered" validate:"min=0"`
	RefreshRatingChanges         bool `koanf:"refresh_rating_changes"`
}

// ServerConfig holds the ops HTTP server settings (/healthz, /readyz,
// /metrics).
type ServerConfig struct {
	Enabled bool          `koanf:"enabled"`
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `koanf:"timeout"`
}

// StoreConfig holds the poster-cache location.
type StoreConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// ListConfig is the raw yaml form of one list definition. It is converted
// to a validated reconcile.ListSpec at load time so malformed definitions
// fail at startup rather than mid-cycle.
type ListConfig struct {
	Name string `koanf:"name" validate:"required"`

	// Exactly one identifier source: id, list_name+list_owner, or source.
	ID        int    `koanf:"id"`
	ListName  string `koanf:"list_name"`
	ListOwner string `koanf:"list_owner"`
	Source    string `koanf:"source"`

	// Frequency is a pointer so an omitted field (default 100, every
	// pass) stays distinguishable from an explicit 0 (never processed).
	Frequency     *int   `koanf:"frequency" validate:"omitempty,min=0,max=100"`
	Poster        string `koanf:"poster"`
	ActiveBetween string `koanf:"active_between"`

	UpdateItemSortNames bool   `koanf:"update_items_sort_names"`
	SortName            string `koanf:"sort_name"`
	SortPrefix          string `koanf:"sort_prefix"`
	SortDateBased       bool   `koanf:"sort_date_based"`

	Description string `koanf:"description"`
}

// defaultConfig returns the defaults layer, overridden by file and env.
func defaultConfig() *Config {
	return &Config{
		Emby: EmbyConfig{
			URL: "http://localhost:8096",
		},
		MDBList: MDBListConfig{
			URL: "https://api.mdblist.com",
		},
		Sync: SyncConfig{
			Interval:                     6 * time.Hour,
			ConnectTimeout:               30 * time.Second,
			ConnectRetryBackoff:          5 * time.Minute,
			ProcessConfiguredLists:       true,
			ProcessMyLists:               false,
			SortNamesDefault:             false,
			UseListDescriptions:          false,
			RefreshItems:                 false,
			RefreshMaxDaysSinceAdded:     10,
			RefreshMaxDaysSincePremiered: 30,
			RefreshRatingChanges:         false,
		},
		Server: ServerConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8343,
			Timeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Path: "/data/curator",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks field constraints and converts Lists into ListSpecs,
// surfacing every construction error at startup.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if _, err := c.ListSpecs(); err != nil {
		return err
	}
	return nil
}

// ListSpecs converts the raw list definitions into validated engine specs.
func (c *Config) ListSpecs() ([]reconcile.ListSpec, error) {
	specs := make([]reconcile.ListSpec, 0, len(c.Lists))
	seen := make(map[string]struct{}, len(c.Lists))

	for i := range c.Lists {
		lc := &c.Lists[i]

		if _, dup := seen[lc.Name]; dup {
			return nil, fmt.Errorf("duplicate list name %q", lc.Name)
		}
		seen[lc.Name] = struct{}{}

		frequency := 100
		if lc.Frequency != nil {
			frequency = *lc.Frequency
		}

		spec, err := reconcile.NewListSpec(lc.Name, lc.ID, lc.ListName, lc.ListOwner, lc.Source, frequency)
		if err != nil {
			return nil, err
		}

		window, err := reconcile.ParseActiveWindow(lc.ActiveBetween)
		if err != nil {
			return nil, fmt.Errorf("list %q: %w", lc.Name, err)
		}
		spec.ActiveWindow = window

		spec.UpdateItemSortNames = lc.UpdateItemSortNames
		spec.SortName = lc.SortName
		spec.SortPrefix = lc.SortPrefix
		spec.SortDateBased = lc.SortDateBased
		spec.Description = lc.Description
		spec.PosterPath = lc.Poster

		specs = append(specs, spec)
	}

	return specs, nil
}
