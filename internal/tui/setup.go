package tui

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/theirongolddev/gwlens/internal/config"
	"github.com/theirongolddev/gwlens/internal/model"
	"github.com/theirongolddev/gwlens/internal/tui/theme"

	"github.com/charmbracelet/huh"
)

// SetupValues holds the answers collected by the setup form.
type SetupValues struct {
	BaseURL string
	UserID  string
	Gateway string
	Days    int
	Theme   string
}

// SetupValuesFrom seeds the form with the current configuration.
func SetupValuesFrom(cfg config.Config) SetupValues {
	return SetupValues{
		BaseURL: cfg.Gateway.BaseURL,
		UserID:  cfg.Gateway.UserID,
		Gateway: cfg.General.DefaultGateway,
		Days:    cfg.General.DefaultDays,
		Theme:   cfg.Appearance.Theme,
	}
}

// Apply copies the answers into cfg. Blank answers leave cfg untouched.
func (v SetupValues) Apply(cfg *config.Config) {
	if s := strings.TrimSpace(v.BaseURL); s != "" {
		cfg.Gateway.BaseURL = strings.TrimRight(s, "/")
	}
	if s := strings.TrimSpace(v.UserID); s != "" {
		cfg.Gateway.UserID = s
	}
	if s := strings.TrimSpace(v.Gateway); s != "" {
		cfg.General.DefaultGateway = s
	}
	if config.ValidDay(v.Days) {
		cfg.General.DefaultDays = v.Days
	}
	if v.Theme != "" {
		cfg.Appearance.Theme = v.Theme
	}
}

// NewSetupForm builds the first-run wizard. When gateways is non-empty the
// default gateway is picked from a list; otherwise it is typed in.
func NewSetupForm(vals *SetupValues, gateways []model.Gateway) *huh.Form {
	var gatewayField huh.Field
	if len(gateways) > 0 {
		opts := make([]huh.Option[string], 0, len(gateways))
		for _, gw := range gateways {
			opts = append(opts, huh.NewOption(fmt.Sprintf("%s (%s)", gw.Name, gw.ID), gw.ID))
		}
		gatewayField = huh.NewSelect[string]().
			Title("Default gateway").
			Options(opts...).
			Value(&vals.Gateway)
	} else {
		gatewayField = huh.NewInput().
			Title("Default gateway ID").
			Description("Shown by `gwlens gateways`. Leave blank to pass --gateway each time.").
			Value(&vals.Gateway)
	}

	dayOpts := make([]huh.Option[int], 0, len(config.ValidDays))
	for _, d := range config.ValidDays {
		label := fmt.Sprintf("%d days", d)
		if d == 1 {
			label = "1 day"
		}
		dayOpts = append(dayOpts, huh.NewOption(label, d))
	}

	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, th := range theme.All {
		themeOpts = append(themeOpts, huh.NewOption(th.Name, th.Name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to gwlens").
				Description("Usage analytics for your LLM gateways.\nLet's set up a few things."),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Backend URL").
				Placeholder("http://localhost:8000").
				Value(&vals.BaseURL).
				Validate(validateBaseURL),
			huh.NewInput().
				Title("User ID").
				Description("Sent as X-User-ID. GWLENS_USER_ID overrides it.").
				EchoMode(huh.EchoModePassword).
				Value(&vals.UserID),
			gatewayField,
		),
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Default time range").
				Options(dayOpts...).
				Value(&vals.Days),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&vals.Theme),
		),
	).WithShowHelp(true)
}

func validateBaseURL(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("enter a URL like http://localhost:8000")
	}
	return nil
}

// saveSetupConfig applies the wizard answers to the config file and the
// running dashboard.
func (a *App) saveSetupConfig() error {
	cfg, err := config.LoadFile(config.ConfigPath())
	if err != nil {
		cfg = config.DefaultConfig()
	}
	a.setupVals.Apply(&cfg)
	theme.SetActive(cfg.Appearance.Theme)
	if a.gatewayID == "" {
		a.gatewayID = cfg.General.DefaultGateway
	}
	if err := config.Save(cfg); err != nil {
		return err
	}
	if a.onSetup != nil {
		a.onSetup(cfg)
	}
	return nil
}
