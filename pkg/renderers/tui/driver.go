package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// InputConfig configures a basic text input prompt.
type InputConfig struct {
	Message   string
	Default   string
	Help      string
	Validator func(string) error
}

// ConfirmConfig configures a yes/no style prompt.
type ConfirmConfig struct {
	Message string
	Default bool
	Help    string
}

// SelectConfig configures a single or multi-select prompt.
type SelectConfig struct {
	Message      string
	Options      []string
	DefaultIndex int
	Defaults     []int // multi-select only, indices into Options
	Help         string
	PageSize     int
}

// TextAreaConfig configures a multi-line text prompt.
type TextAreaConfig struct {
	Message string
	Default string
	Help    string
}

// PromptDriver asks the questions of a fill session. Tests script it, the
// default implementation talks to the terminal.
type PromptDriver interface {
	Input(ctx context.Context, cfg InputConfig) (string, error)
	Password(ctx context.Context, cfg InputConfig) (string, error)
	Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error)
	Select(ctx context.Context, cfg SelectConfig) (int, error)
	MultiSelect(ctx context.Context, cfg SelectConfig) ([]int, error)
	TextArea(ctx context.Context, cfg TextAreaConfig) (string, error)
	Info(ctx context.Context, msg string) error
}

// surveyDriver asks through survey/v2 on its own stdio.
type surveyDriver struct {
	stdio terminal.Stdio
}

// NewSurveyDriver returns the PromptDriver backed by survey/v2. Unset stdio
// streams default to the process stdin, stdout and stderr. Info messages are
// written to stdio.Out.
func NewSurveyDriver(stdio terminal.Stdio) PromptDriver {
	if stdio.In == nil {
		stdio.In = os.Stdin
	}
	if stdio.Out == nil {
		stdio.Out = os.Stdout
	}
	if stdio.Err == nil {
		stdio.Err = os.Stderr
	}
	return &surveyDriver{stdio: stdio}
}

// ask runs one survey prompt. An interrupt becomes ErrAborted.
func (d *surveyDriver) ask(ctx context.Context, p survey.Prompt, answer any, opts ...survey.AskOpt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opts = append(opts, survey.WithStdio(d.stdio.In, d.stdio.Out, d.stdio.Err))
	err := survey.AskOne(p, answer, opts...)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, terminal.InterruptErr):
		return ErrAborted
	default:
		return fmt.Errorf("tui: prompt: %w", err)
	}
}

func (d *surveyDriver) Input(ctx context.Context, cfg InputConfig) (string, error) {
	var out string
	p := &survey.Input{Message: cfg.Message, Help: cfg.Help, Default: cfg.Default}
	return out, d.ask(ctx, p, &out, validatorOpts(cfg.Validator)...)
}

func (d *surveyDriver) Password(ctx context.Context, cfg InputConfig) (string, error) {
	// survey's password prompt has no default; an empty answer keeps it.
	var out string
	p := &survey.Password{Message: cfg.Message, Help: cfg.Help}
	if err := d.ask(ctx, p, &out, validatorOpts(cfg.Validator)...); err != nil {
		return "", err
	}
	if out == "" {
		out = cfg.Default
	}
	return out, nil
}

func (d *surveyDriver) Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error) {
	var out bool
	p := &survey.Confirm{Message: cfg.Message, Help: cfg.Help, Default: cfg.Default}
	return out, d.ask(ctx, p, &out)
}

func (d *surveyDriver) Select(ctx context.Context, cfg SelectConfig) (int, error) {
	p := &survey.Select{Message: cfg.Message, Options: cfg.Options, Help: cfg.Help, PageSize: cfg.PageSize}
	if cfg.DefaultIndex >= 0 && cfg.DefaultIndex < len(cfg.Options) {
		p.Default = cfg.Options[cfg.DefaultIndex]
	}
	var out string
	if err := d.ask(ctx, p, &out); err != nil {
		return -1, err
	}
	return slices.Index(cfg.Options, out), nil
}

func (d *surveyDriver) MultiSelect(ctx context.Context, cfg SelectConfig) ([]int, error) {
	p := &survey.MultiSelect{Message: cfg.Message, Options: cfg.Options, Help: cfg.Help, PageSize: cfg.PageSize}
	var defaults []string
	for _, i := range cfg.Defaults {
		if i >= 0 && i < len(cfg.Options) {
			defaults = append(defaults, cfg.Options[i])
		}
	}
	if len(defaults) > 0 {
		p.Default = defaults
	}
	var picked []string
	if err := d.ask(ctx, p, &picked); err != nil {
		return nil, err
	}
	out := make([]int, 0, len(picked))
	for i, option := range cfg.Options {
		if slices.Contains(picked, option) {
			out = append(out, i)
		}
	}
	return out, nil
}

func (d *surveyDriver) TextArea(ctx context.Context, cfg TextAreaConfig) (string, error) {
	var out string
	p := &survey.Multiline{Message: cfg.Message, Help: cfg.Help, Default: cfg.Default}
	return out, d.ask(ctx, p, &out)
}

func (d *surveyDriver) Info(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(d.stdio.Out, msg)
	return err
}

func validatorOpts(fn func(string) error) []survey.AskOpt {
	if fn == nil {
		return nil
	}
	return []survey.AskOpt{survey.WithValidator(func(ans any) error {
		s, _ := ans.(string)
		return fn(s)
	})}
}
