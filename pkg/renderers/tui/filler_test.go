package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-jsonform/pkg/form"
	"github.com/goliatone/go-jsonform/pkg/jsonschema"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	multiIdx     [][]int
	confirm      []bool
	textAreas    []string
	passwords    []string
	infoMessages []string
	inputErr     error
	inputPos     int
	selectPos    int
	multiPos     int
	confirmPos   int
	textPos      int
	passPos      int
}

func (s *stubDriver) Input(_ context.Context, _ InputConfig) (string, error) {
	if s.inputErr != nil {
		return "", s.inputErr
	}
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Password(_ context.Context, _ InputConfig) (string, error) {
	if s.passPos >= len(s.passwords) {
		return "", errors.New("no password scripted")
	}
	val := s.passwords[s.passPos]
	s.passPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, _ ConfirmConfig) (bool, error) {
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, _ SelectConfig) (int, error) {
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) MultiSelect(_ context.Context, _ SelectConfig) ([]int, error) {
	if s.multiPos >= len(s.multiIdx) {
		return nil, errors.New("no multiselect scripted")
	}
	val := s.multiIdx[s.multiPos]
	s.multiPos++
	return val, nil
}

func (s *stubDriver) TextArea(_ context.Context, _ TextAreaConfig) (string, error) {
	if s.textPos >= len(s.textAreas) {
		return "", errors.New("no textarea scripted")
	}
	val := s.textAreas[s.textPos]
	s.textPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func newForm(t *testing.T, raw string) *form.Form {
	t.Helper()
	schema, err := jsonschema.DecodeSchema([]byte(raw))
	if err != nil {
		t.Fatalf("decode schema: %v", err)
	}
	f, err := form.New(form.Inputs{Schema: schema})
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	return f
}

const profileSchema = `{
  "type": "object",
  "properties": {
    "name": {"type": "string"},
    "age": {"type": "integer", "minimum": 0},
    "tags": {"type": "array", "items": {"type": "string"}},
    "status": {"type": "string", "enum": ["draft", "published"]}
  },
  "required": ["name"]
}`

func TestFill_PromptsInLayoutOrder(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"Ada", "-1", "10", "go"},
		confirm:   []bool{true, false},
		selectIdx: []int{1},
	}
	snap, err := New(WithPromptDriver(driver)).Fill(context.Background(), newForm(t, profileSchema))
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	want := map[string]any{
		"name":   "Ada",
		"age":    int64(10),
		"tags":   []any{"go"},
		"status": "published",
	}
	if diff := cmp.Diff(want, snap.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
	if !snap.Valid {
		t.Fatalf("expected valid snapshot, errors: %+v", snap.Errors)
	}
	found := false
	for _, msg := range driver.infoMessages {
		if strings.HasPrefix(msg, "Invalid") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a validation message for the negative age, got %q", driver.infoMessages)
	}
}

func TestFill_CheckboxList(t *testing.T) {
	driver := &stubDriver{multiIdx: [][]int{{0, 2}}}
	f := newForm(t, `{
  "type": "object",
  "properties": {
    "colors": {"type": "array", "uniqueItems": true, "items": {"type": "string", "enum": ["red", "green", "blue"]}}
  }
}`)
	snap, err := New(WithPromptDriver(driver)).Fill(context.Background(), f)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"colors": []any{"red", "blue"}}, snap.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestFill_Errors(t *testing.T) {
	cases := []struct {
		name   string
		driver *stubDriver
		opts   []Option
		want   error
	}{
		{
			name:   "aborted",
			driver: &stubDriver{inputErr: ErrAborted},
			want:   ErrAborted,
		},
		{
			name:   "too many attempts",
			driver: &stubDriver{inputs: []string{"Ada", "-1", "-2"}},
			opts:   []Option{WithMaxAttempts(2)},
			want:   ErrTooManyAttempts,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := append([]Option{WithPromptDriver(tc.driver)}, tc.opts...)
			_, err := New(opts...).Fill(context.Background(), newForm(t, profileSchema))
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestRender_OutputFormats(t *testing.T) {
	cases := []struct {
		format OutputFormat
		want   string
		ctype  string
	}{
		{format: OutputFormatJSON, want: `{"name":"Ada"}`, ctype: "application/json"},
		{format: OutputFormatFormURLEncoded, want: "name=Ada", ctype: "application/x-www-form-urlencoded"},
		{format: OutputFormatPrettyText, want: "name=Ada\n", ctype: "text/plain"},
	}
	for _, tc := range cases {
		t.Run(string(tc.format), func(t *testing.T) {
			driver := &stubDriver{inputs: []string{"Ada"}}
			f := New(WithPromptDriver(driver), WithOutputFormat(tc.format))
			out, err := f.Render(context.Background(), newForm(t, `{"type":"object","properties":{"name":{"type":"string"}}}`))
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if string(out) != tc.want {
				t.Fatalf("output = %q, want %q", out, tc.want)
			}
			if f.ContentType() != tc.ctype {
				t.Fatalf("content type = %q", f.ContentType())
			}
		})
	}
}

func TestFlattenForm_NestedValues(t *testing.T) {
	got := flattenForm(map[string]any{
		"b":     map[string]any{"c": 1},
		"a":     []any{"x", "y"},
		"empty": nil,
	})
	if got != "a%5B%5D=x&a%5B%5D=y&b.c=1" {
		t.Fatalf("flattenForm = %q", got)
	}
}
