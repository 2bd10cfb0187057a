package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"llmbatch/internal/llm"
)

// RawOptions is the caller-supplied option bag, keyed by the external
// option name (see the field table in the external interfaces spec).
// Values are untyped since they arrive from CLI/JSON-shaped callers.
type RawOptions map[string]any

// Validator asserts a constraint on an extracted value, returning a
// descriptive error on violation.
type Validator func(value any) error

// FieldEntry is one row of the declarative resolution table: for a
// given external option key, how to extract, validate, and store its
// value onto a ProgressRecord. CustomHandler bypasses GetValue/Validate
// entirely for the rare field that needs bespoke handling.
type FieldEntry struct {
	Prop                  string
	GetValue              func(raw any) (any, error)
	Validate              Validator
	StoreTransformedValue func(value any) any
	CustomHandler         func(rec *ProgressRecord, raw any) error
	Store                 func(rec *ProgressRecord, value any)
}

// Resolve applies table to raw, mutating rec in place. Keys absent from
// raw are left at rec's current (default) value. The first validation
// failure aborts resolution.
func Resolve(rec *ProgressRecord, raw RawOptions, table []FieldEntry) error {
	for _, entry := range table {
		v, present := raw[entry.Prop]
		if !present {
			continue
		}

		if entry.CustomHandler != nil {
			if err := entry.CustomHandler(rec, v); err != nil {
				return fmt.Errorf("config: %s: %w", entry.Prop, err)
			}
			continue
		}

		value := v
		if entry.GetValue != nil {
			extracted, err := entry.GetValue(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", entry.Prop, err)
			}
			value = extracted
		}

		if entry.Validate != nil {
			if err := entry.Validate(value); err != nil {
				return fmt.Errorf("config: %s: %w", entry.Prop, err)
			}
		}

		if entry.StoreTransformedValue != nil {
			value = entry.StoreTransformedValue(value)
		}
		if entry.Store != nil {
			entry.Store(rec, value)
		}
	}
	return nil
}

// --- composable validators ---

// NumericRange validates a float64 (or convertible int) lies in [min, max].
func NumericRange(min, max float64) Validator {
	return func(value any) error {
		f, ok := toFloat(value)
		if !ok {
			return fmt.Errorf("expected a number, got %T", value)
		}
		if f < min || f > max {
			return fmt.Errorf("value %v out of range [%v, %v]", f, min, max)
		}
		return nil
	}
}

// Integer validates value is an integral number (int or whole float64).
func Integer(value any) error {
	f, ok := toFloat(value)
	if !ok {
		return fmt.Errorf("expected a number, got %T", value)
	}
	if f != float64(int64(f)) {
		return fmt.Errorf("expected an integer, got %v", f)
	}
	return nil
}

// NotEmpty validates a non-blank string.
func NotEmpty(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected a string, got %T", value)
	}
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("value must not be empty")
	}
	return nil
}

// URLScheme validates value is a string URL with one of the given schemes.
func URLScheme(schemes ...string) Validator {
	return func(value any) error {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected a string, got %T", value)
		}
		u, err := url.Parse(s)
		if err != nil {
			return fmt.Errorf("invalid URL: %w", err)
		}
		for _, scheme := range schemes {
			if u.Scheme == scheme {
				return nil
			}
		}
		return fmt.Errorf("URL scheme %q not in %v", u.Scheme, schemes)
	}
}

// Regex validates a string matches pattern.
func Regex(pattern string) Validator {
	re := regexp.MustCompile(pattern)
	return func(value any) error {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected a string, got %T", value)
		}
		if !re.MatchString(s) {
			return fmt.Errorf("value %q does not match %s", s, pattern)
		}
		return nil
	}
}

// StrictBool validates value is exactly a bool.
func StrictBool(value any) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("expected a strict boolean, got %T", value)
	}
	return nil
}

// Enum validates value is one of the allowed members.
func Enum(members ...string) Validator {
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}
	return func(value any) error {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected a string, got %T", value)
		}
		if _, ok := set[s]; !ok {
			return fmt.Errorf("value %q not one of %v", s, members)
		}
		return nil
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// ReasoningEffortEnum is the dialect-wide accepted set named in spec §4.J.
var ReasoningEffortEnum = Enum("none", "low", "medium", "high", "xhigh")

// JobTable builds the field table for a ProgressRecord/engine-options
// resolution pass, shared by the LLM Client and the Batch Processor.
func JobTable() []FieldEntry {
	return []FieldEntry{
		{Prop: "url", Validate: URLScheme("http", "https"),
			Store: func(r *ProgressRecord, v any) { r.URL = v.(string) }},
		{Prop: "apiKey",
			Store: func(r *ProgressRecord, v any) { r.APIKey = v.(string) }},
		{Prop: "delay", Validate: allOf(Integer, NumericRange(0, 3_600_000)),
			Store: func(r *ProgressRecord, v any) { r.Delay = int(v.(float64)) }},
		{Prop: "maxAttempts", Validate: allOf(Integer, NumericRange(1, 1000)),
			Store: func(r *ProgressRecord, v any) { r.MaxAttempts = int(v.(float64)) }},
		{Prop: "tempIncrement", Validate: NumericRange(0, 2),
			Store: func(r *ProgressRecord, v any) { r.TempIncrement = v.(float64) }},
		{Prop: "timeout", Validate: NumericRange(0, 10_080),
			Store: func(r *ProgressRecord, v any) { r.Timeout = int(v.(float64)) }},
		{Prop: "chunkSize", Validate: allOf(Integer, NumericRange(1, 200_000)),
			Store: func(r *ProgressRecord, v any) { r.ChunkSize = int(v.(float64)) }},
		{Prop: "batchSize", Validate: allOf(Integer, NumericRange(1, 512)),
			Store: func(r *ProgressRecord, v any) { r.BatchSize = int(v.(float64)) }},
		{Prop: "parallel", Validate: allOf(Integer, NumericRange(1, 64)),
			Store: func(r *ProgressRecord, v any) { r.Parallel = int(v.(float64)) }},
		{Prop: "keepAlive", Validate: StrictBool,
			Store: func(r *ProgressRecord, v any) { r.KeepAlive = v.(bool) }},

		knobEntry("model", func(r *ProgressRecord) *llm.Knob[string] { return &r.Model }, nil),
		knobEntry("temperature", func(r *ProgressRecord) *llm.Knob[float64] { return &r.Temperature }, NumericRange(0, 2)),
		knobEntry("top_p", func(r *ProgressRecord) *llm.Knob[float64] { return &r.TopP }, NumericRange(0, 1)),
		knobEntry("top_k", func(r *ProgressRecord) *llm.Knob[int] { return &r.TopK }, Integer),
		knobEntry("presence_penalty", func(r *ProgressRecord) *llm.Knob[float64] { return &r.PresencePenalty }, NumericRange(-2, 2)),
		knobEntry("seed", func(r *ProgressRecord) *llm.Knob[int] { return &r.Seed }, Integer),
		knobEntry("reasoning_effort", func(r *ProgressRecord) *llm.Knob[string] { return &r.ReasoningEffort }, ReasoningEffortEnum),
		knobEntry("enable_thinking", func(r *ProgressRecord) *llm.Knob[bool] { return &r.EnableThinking }, StrictBool),
		knobEntry("chat_template_kwargs", func(r *ProgressRecord) *llm.Knob[map[string]any] { return &r.ChatTemplateKW }, nil),
		knobEntry("reasoning", func(r *ProgressRecord) *llm.Knob[map[string]any] { return &r.Reasoning }, nil),

		{Prop: "systemPrompt", CustomHandler: promptHandler(func(r *ProgressRecord) *llm.PromptKnob { return &r.SystemPrompt }, llm.RoleSystem)},
		{Prop: "prependPrompt", CustomHandler: promptHandler(func(r *ProgressRecord) *llm.PromptKnob { return &r.PrependPrompt }, llm.RoleUser)},
		{Prop: "prefill", CustomHandler: promptHandler(func(r *ProgressRecord) *llm.PromptKnob { return &r.Prefill }, llm.RoleAssistant)},

		{Prop: "images", CustomHandler: func(r *ProgressRecord, raw any) error {
			items, ok := raw.([]string)
			if !ok {
				return fmt.Errorf("expected []string, got %T", raw)
			}
			r.Images = items
			return nil
		}},
	}
}

func allOf(vs ...Validator) Validator {
	return func(value any) error {
		for _, v := range vs {
			if err := v(value); err != nil {
				return err
			}
		}
		return nil
	}
}

// knobEntry builds a FieldEntry for a llm.Knob[T] field: raw is expected
// to be the bare T value (enabled is implied by the key's presence).
func knobEntry[T any](prop string, field func(*ProgressRecord) *llm.Knob[T], validate Validator) FieldEntry {
	return FieldEntry{
		Prop: prop,
		CustomHandler: func(r *ProgressRecord, raw any) error {
			if validate != nil {
				if err := validate(raw); err != nil {
					return err
				}
			}
			v, ok := raw.(T)
			if !ok {
				return fmt.Errorf("expected %T, got %T", *new(T), raw)
			}
			*field(r) = llm.Enabled(v)
			return nil
		},
	}
}

// promptHandler builds the CustomHandler for a (enabled, text, role,
// isDefault) PromptTuple field, defaulting role when absent.
func promptHandler(field func(*ProgressRecord) *llm.PromptKnob, defaultRole llm.Role) func(*ProgressRecord, any) error {
	return func(r *ProgressRecord, raw any) error {
		m, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("expected prompt tuple object, got %T", raw)
		}
		text, _ := m["text"].(string)
		role := defaultRole
		if rv, ok := m["role"].(string); ok && rv != "" {
			role = llm.Role(rv)
		}
		isDefault, _ := m["isDefault"].(bool)
		*field(r) = llm.EnabledPrompt(text, role, isDefault)
		return nil
	}
}
