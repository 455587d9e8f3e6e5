package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/goliatone/go-jsonform/pkg/form"
	"github.com/goliatone/go-jsonform/pkg/layout"
	"github.com/goliatone/go-jsonform/pkg/values"
	"github.com/goliatone/go-jsonform/pkg/widgets"
)

// Filler fills a form from the terminal. It walks the layout in order,
// prompts for every visible control and offers to add items wherever the
// layout has an add node.
type Filler struct {
	driver            PromptDriver
	outputFormat      OutputFormat
	submitTransformer SubmitTransformer
	theme             Theme
	maxAttempts       int
	logger            *slog.Logger
}

// New constructs a Filler with defaults (survey driver, JSON output).
func New(options ...Option) *Filler {
	f := &Filler{
		driver:       NewSurveyDriver(terminal.Stdio{}),
		outputFormat: OutputFormatJSON,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(f)
	}
	return f
}

// ContentType reports the serialization format used by Render.
func (f *Filler) ContentType() string {
	switch f.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain"
	default:
		return "application/json"
	}
}

// Fill prompts for the fields of frm and returns the submitted snapshot.
// Remaining validation errors are printed, not returned.
func (f *Filler) Fill(ctx context.Context, frm *form.Form) (form.Snapshot, error) {
	if ctx == nil {
		return form.Snapshot{}, errors.New("tui: context is required")
	}
	if frm == nil {
		return form.Snapshot{}, errors.New("tui: form is nil")
	}
	s := &session{Filler: f, form: frm}
	if err := s.walk(ctx, nil, nil, nil); err != nil {
		return form.Snapshot{}, err
	}
	snap, err := frm.Submit()
	if err != nil {
		return snap, fmt.Errorf("tui: submit: %w", err)
	}
	for _, e := range snap.Errors {
		s.warn(ctx, fmt.Sprintf("%s: %s", e.DataPath, e.Message))
	}
	return snap, nil
}

// Render fills frm and serializes the submitted data.
func (f *Filler) Render(ctx context.Context, frm *form.Form) ([]byte, error) {
	snap, err := f.Fill(ctx, frm)
	if err != nil {
		return nil, err
	}
	data := snap.Data
	if f.submitTransformer != nil {
		data, err = f.submitTransformer(data)
		if err != nil {
			return nil, fmt.Errorf("tui: submit transformer: %w", err)
		}
	}
	return f.serialize(data)
}

// session is one Fill run.
type session struct {
	*Filler
	form *form.Form
}

// walk prompts for the children of parent, or for the root nodes when
// parent is nil. Children are looked up again on every step because adding
// an item changes them.
func (s *session) walk(ctx context.Context, parent *layout.Node, dataIdx, layoutIdx []int) error {
	inArray := parent != nil && parent.Widget.Kind == widgets.KindArray
	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		items := s.children(parent)
		if i >= len(items) {
			return nil
		}
		n := items[i]
		di, li := dataIdx, layoutIdx
		if inArray {
			di = appendIndex(dataIdx, i)
			if n.ArrayItemType == layout.ItemList || n.IsAddButton() {
				li = appendIndex(layoutIdx, i)
			}
		}
		fctx := form.Context{LayoutNode: n, FormID: s.form.ID(), DataIndex: di, LayoutIndex: li}
		if n.IsAddButton() {
			added, err := s.offerAdd(ctx, fctx)
			if err != nil {
				return err
			}
			if added {
				// the new item took the add node's place
				i--
			}
			continue
		}
		if !s.form.IsVisible(fctx, nil) {
			continue
		}
		if err := s.node(ctx, fctx); err != nil {
			return err
		}
	}
}

func (s *session) children(parent *layout.Node) []*layout.Node {
	if parent == nil {
		return s.form.Layout()
	}
	return parent.Items
}

func (s *session) node(ctx context.Context, fctx form.Context) error {
	n := fctx.LayoutNode
	switch n.Widget.Kind {
	case widgets.KindContainer, widgets.KindArray:
		if title, ok := s.form.SetTitle(fctx); ok {
			s.info(ctx, title)
		}
		return s.walk(ctx, n, fctx.DataIndex, fctx.LayoutIndex)
	case widgets.KindChoice:
		if n.Widget.Multiple {
			return s.prompt(ctx, fctx, s.askMultiple)
		}
		if len(choices(n)) > 0 {
			return s.prompt(ctx, fctx, s.askChoice)
		}
		return s.prompt(ctx, fctx, s.askInput)
	case widgets.KindInput:
		switch n.Widget.InputType {
		case "hidden", "file":
			return nil
		}
		return s.prompt(ctx, fctx, s.askInput)
	case widgets.KindStatic:
		if text := n.StringOption("helpvalue"); text != "" {
			out, err := s.form.ParseText(text, fctx)
			if err != nil {
				s.logger.Warn("tui: static text", "node", n.ID, "error", err)
				return nil
			}
			s.info(ctx, layout.Sanitize(out))
		}
	}
	return nil
}

// askFunc asks once and writes the answer. A non-empty problem means the
// answer was rejected and the question is asked again.
type askFunc func(ctx context.Context, fctx form.Context, label string) (problem string, err error)

func (s *session) prompt(ctx context.Context, fctx form.Context, ask askFunc) error {
	c, ok := s.form.InitializeControl(fctx)
	if !ok || c.Disabled() {
		return nil
	}
	label := s.label(fctx)
	for attempt := 1; ; attempt++ {
		problem, err := ask(ctx, fctx, label)
		if err != nil {
			return err
		}
		if problem == "" {
			if errs := c.Errors(); len(errs) > 0 {
				problem = errs[0].Message
			}
		}
		if problem == "" {
			return nil
		}
		s.warn(ctx, fmt.Sprintf("Invalid %s: %s", label, problem))
		if s.maxAttempts > 0 && attempt >= s.maxAttempts {
			return fmt.Errorf("%w: %s", ErrTooManyAttempts, label)
		}
	}
}

func (s *session) askInput(ctx context.Context, fctx form.Context, label string) (string, error) {
	n := fctx.LayoutNode
	current, _ := s.form.GetControlValue(fctx)
	help := n.StringOption("description")

	if n.Widget.InputType == "checkbox" {
		on, _ := current.(bool)
		answer, err := s.driver.Confirm(ctx, ConfirmConfig{Message: label, Default: on, Help: help})
		if err != nil {
			return "", err
		}
		return s.update(fctx, answer), nil
	}

	def := ""
	if values.HasValue(current) {
		def = fmt.Sprint(current)
	}
	var (
		answer string
		err    error
	)
	switch n.Type {
	case "password":
		answer, err = s.driver.Password(ctx, InputConfig{Message: label, Default: def, Help: help})
	case "textarea":
		answer, err = s.driver.TextArea(ctx, TextAreaConfig{Message: label, Default: def, Help: help})
	default:
		answer, err = s.driver.Input(ctx, InputConfig{Message: label, Default: def, Help: help})
	}
	if err != nil {
		return "", err
	}

	switch n.DataType {
	case values.TypeInteger, values.TypeNumber:
		trimmed := strings.TrimSpace(answer)
		if trimmed == "" {
			return s.update(fctx, nil), nil
		}
		if n.DataType == values.TypeInteger {
			i, err := strconv.ParseInt(trimmed, 10, 64)
			if err != nil {
				return "not an integer", nil
			}
			return s.update(fctx, i), nil
		}
		v, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return "not a number", nil
		}
		return s.update(fctx, v), nil
	}
	return s.update(fctx, answer), nil
}

func (s *session) askChoice(ctx context.Context, fctx form.Context, label string) (string, error) {
	n := fctx.LayoutNode
	opts := choices(n)
	current, _ := s.form.GetControlValue(fctx)
	def := -1
	for i, o := range opts {
		if values.Equal(o.value, current) {
			def = i
			break
		}
	}
	idx, err := s.driver.Select(ctx, SelectConfig{
		Message:      label,
		Options:      names(opts),
		DefaultIndex: def,
		Help:         n.StringOption("description"),
	})
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(opts) {
		return "unknown selection", nil
	}
	return s.update(fctx, opts[idx].value), nil
}

func (s *session) askMultiple(ctx context.Context, fctx form.Context, label string) (string, error) {
	n := fctx.LayoutNode
	opts := choices(n)
	current, _ := s.form.GetControlValue(fctx)
	selected, _ := current.([]any)
	var defaults []int
	for i, o := range opts {
		if values.InArray(o.value, selected) {
			defaults = append(defaults, i)
		}
	}
	indices, err := s.driver.MultiSelect(ctx, SelectConfig{
		Message:  label,
		Options:  names(opts),
		Defaults: defaults,
		Help:     n.StringOption("description"),
	})
	if err != nil {
		return "", err
	}
	checked := make(map[int]bool, len(indices))
	for _, i := range indices {
		checked[i] = true
	}
	list := make([]form.CheckboxItem, len(opts))
	for i, o := range opts {
		list[i] = form.CheckboxItem{Value: o.value, Checked: checked[i]}
	}
	if !s.form.UpdateArrayCheckboxList(fctx, list) {
		return "selection not allowed", nil
	}
	return "", nil
}

// offerAdd asks whether to activate an add node and does so on a yes.
func (s *session) offerAdd(ctx context.Context, fctx form.Context) (bool, error) {
	if !s.form.IsVisible(fctx, nil) {
		return false, nil
	}
	label := fctx.LayoutNode.Label()
	if label == "" {
		label = "Add item"
	}
	yes, err := s.driver.Confirm(ctx, ConfirmConfig{Message: label + "?"})
	if err != nil || !yes {
		return false, err
	}
	if !s.form.AddItem(fctx, "") {
		s.warn(ctx, "Cannot add another item")
		return false, nil
	}
	return true, nil
}

func (s *session) update(fctx form.Context, value any) string {
	if !s.form.UpdateValue(fctx, value) {
		s.logger.Warn("tui: value rejected", "node", fctx.LayoutNode.ID)
		return "value rejected"
	}
	return ""
}

func (s *session) label(fctx form.Context) string {
	if title, ok := s.form.SetTitle(fctx); ok {
		return title
	}
	if label := fctx.LayoutNode.Label(); label != "" {
		return label
	}
	return s.form.GetControlName(fctx)
}

func (s *session) info(ctx context.Context, msg string) {
	_ = s.driver.Info(ctx, s.theme.InfoPrefix+msg)
}

func (s *session) warn(ctx context.Context, msg string) {
	_ = s.driver.Info(ctx, s.theme.ErrorPrefix+msg)
}

type choice struct {
	name  string
	value any
}

// choices reads the node's titleMap, falling back to its enum.
func choices(n *layout.Node) []choice {
	var out []choice
	if tm, ok := n.Option("titleMap"); ok {
		list, _ := tm.([]any)
		for _, entry := range list {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			name, _ := m["name"].(string)
			if name == "" {
				name = fmt.Sprint(m["value"])
			}
			out = append(out, choice{name: name, value: m["value"]})
		}
		return out
	}
	if enum, ok := n.Option("enum"); ok {
		list, _ := enum.([]any)
		for _, v := range list {
			out = append(out, choice{name: fmt.Sprint(v), value: v})
		}
	}
	return out
}

func names(opts []choice) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.name
	}
	return out
}

func appendIndex(indices []int, i int) []int {
	out := make([]int, len(indices), len(indices)+1)
	copy(out, indices)
	return append(out, i)
}
